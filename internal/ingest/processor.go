// Package ingest turns uploaded files into text that can be added to a prompt.
package ingest

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
)

// Defaults used when Config leaves a field unset.
const (
	DefaultMaxFileSize = 10 << 20
)

// DefaultExtensions lists the accepted upload types.
var DefaultExtensions = []string{"pdf", "csv", "txt"}

// ValidationError is a user-facing rejection of an upload.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Document is the extracted content of one upload.
type Document struct {
	Name     string
	Kind     string
	Encoding string
	Text     string
	Size     int
	// Hash is the MD5 hex digest of the raw bytes, used to skip duplicate uploads.
	Hash string
}

// Config holds the processor limits.
type Config struct {
	MaxFileSize int64
	Extensions  []string
}

// Processor validates and extracts uploads. It is safe for concurrent use.
type Processor struct {
	cfg    Config
	logger *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	exts := make([]string, len(cfg.Extensions))
	for i, e := range cfg.Extensions {
		exts[i] = strings.ToLower(strings.TrimPrefix(e, "."))
	}
	cfg.Extensions = exts
	return &Processor{cfg: cfg, logger: logger.With("component", "ingest")}
}

// MaxFileSize returns the upload limit in bytes.
func (p *Processor) MaxFileSize() int64 {
	return p.cfg.MaxFileSize
}

// Extensions returns the accepted extensions without dots.
func (p *Processor) Extensions() []string {
	return slices.Clone(p.cfg.Extensions)
}

// Check validates the name and declared size of an upload before its
// content is fetched.
func (p *Processor) Check(name string, size int64) error {
	if !slices.Contains(p.cfg.Extensions, kindOf(name)) {
		return invalid("Unsupported file type %q. Allowed: %s.", filepath.Ext(name), strings.Join(p.cfg.Extensions, ", "))
	}
	if size > p.cfg.MaxFileSize {
		return invalid("File is too large (%.1f MB). The limit is %.0f MB.",
			float64(size)/(1<<20), float64(p.cfg.MaxFileSize)/(1<<20))
	}
	return nil
}

func kindOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Process validates name and data and extracts the text. Rejections are
// returned as *ValidationError.
func (p *Processor) Process(name string, data []byte) (Document, error) {
	if err := p.Check(name, int64(len(data))); err != nil {
		return Document{}, err
	}
	kind := kindOf(name)
	if len(data) == 0 {
		return Document{}, invalid("File %s is empty.", name)
	}

	sum := md5.Sum(data) //nolint:gosec // fingerprint only
	doc := Document{Name: name, Kind: kind, Size: len(data), Hash: hex.EncodeToString(sum[:])}

	var err error
	switch kind {
	case "txt":
		doc.Text, doc.Encoding, err = Decode(data)
	case "csv":
		doc.Text, doc.Encoding, err = summarizeCSV(data)
	case "pdf":
		doc.Text, err = extractPDF(data)
		doc.Encoding = "pdf"
	default:
		err = invalid("No extractor for %s files.", kind)
	}
	if err != nil {
		p.logger.Warn("Rejected upload", "name", name, "kind", kind, "error", err)
		return Document{}, err
	}

	p.logger.Info("Processed upload", "name", name, "kind", kind, "bytes", doc.Size, "encoding", doc.Encoding)
	return doc, nil
}

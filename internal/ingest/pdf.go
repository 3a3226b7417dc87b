package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func extractPDF(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", invalid("Could not read PDF: %v", p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", invalid("Could not read PDF: %v", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", invalid("Could not read page %d of the PDF: %v", i, err)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "[Page %d]\n%s\n\n", i, content)
	}

	if b.Len() == 0 {
		return "", invalid("The PDF has no extractable text.")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

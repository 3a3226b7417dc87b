// Package dataset loads the curated venue FAQ and information file and
// answers keyword and similarity lookups against it.
package dataset

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/edgard/faqchat/internal/text"
)

// DefaultSimilarityThreshold is the minimum Jaccard score a question needs to match.
const DefaultSimilarityThreshold = 0.5

const (
	keywordScore = 1.0
	infoKeyScore = 0.8
	minKeyRunes  = 2
)

// FAQ is one curated question with its answer.
type FAQ struct {
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Keywords []string `yaml:"keywords"`
}

type file struct {
	FAQ  []FAQ `yaml:"faq"`
	Info Node  `yaml:"info"`
}

// Dataset is an immutable, in-memory curated dataset. It is safe for concurrent use.
type Dataset struct {
	faqs      []FAQ
	info      *Node
	threshold float64
}

// Empty returns a dataset with no entries. Every search misses.
func Empty() *Dataset {
	return &Dataset{info: &Node{Kind: Branch}, threshold: DefaultSimilarityThreshold}
}

// Load reads a YAML dataset from path. An empty path yields Empty().
func Load(path string, threshold float64) (*Dataset, error) {
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return Parse(data, threshold)
}

// Parse decodes a YAML dataset.
func Parse(data []byte, threshold float64) (*Dataset, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	for i, faq := range f.FAQ {
		if strings.TrimSpace(faq.Question) == "" || strings.TrimSpace(faq.Answer) == "" {
			return nil, fmt.Errorf("faq entry %d needs both question and answer", i)
		}
	}
	return &Dataset{faqs: f.FAQ, info: &f.Info, threshold: threshold}, nil
}

// Info returns the information tree.
func (d *Dataset) Info() *Node {
	return d.info
}

// FAQs returns up to n curated entries in file order.
func (d *Dataset) FAQs(n int) []FAQ {
	if n <= 0 {
		return nil
	}
	n = min(n, len(d.faqs))
	out := make([]FAQ, n)
	copy(out, d.faqs[:n])
	return out
}

type hit struct {
	score float64
	order int
	text  string
}

// Search returns answers matching query, best first. A FAQ matches when one
// of its keywords appears in the query or when the token overlap with its
// question reaches the threshold. Info keys found in the query match too.
func (d *Dataset) Search(query string) []string {
	normalized := text.NormalizeQuestion(query)
	if normalized == "" {
		return nil
	}
	queryTokens := tokenize(normalized)

	var hits []hit
	for i, faq := range d.faqs {
		score := jaccard(queryTokens, tokenize(text.NormalizeQuestion(faq.Question)))
		for _, kw := range faq.Keywords {
			kw = text.NormalizeQuestion(kw)
			if kw != "" && strings.Contains(normalized, kw) {
				score = keywordScore
				break
			}
		}
		if score >= d.threshold {
			hits = append(hits, hit{score: score, order: i, text: faq.Answer})
		}
	}

	order := len(d.faqs)
	d.info.walk(func(e Entry) {
		key := text.NormalizeQuestion(e.Key)
		if utf8.RuneCountInString(key) < minKeyRunes || !strings.Contains(normalized, key) {
			return
		}
		if infoKeyScore >= d.threshold {
			hits = append(hits, hit{score: infoKeyScore, order: order, text: formatEntryText(e)})
		}
		order++
	})

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order < hits[j].order
	})

	seen := make(map[string]struct{}, len(hits))
	results := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.text]; dup {
			continue
		}
		seen[h.text] = struct{}{}
		results = append(results, h.text)
	}
	return results
}

// Lookup adapts Search to the answer race.
func (d *Dataset) Lookup(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Search(query), nil
}

func formatEntryText(e Entry) string {
	var b strings.Builder
	formatEntry(&b, e, 0)
	return strings.TrimRight(b.String(), "\n")
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

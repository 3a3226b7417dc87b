package text

// EstimateTokens provides a simple ballpark token count
// that works reasonably well across different models.
func EstimateTokens(text string) int {
	// Character count divided by 3 is a decent middle ground between tokenizers.
	return len(text)/3 + 5
}

// Window keeps the newest items of a conversation that fit in a token budget.
type Window struct {
	MaxTokens int
}

// NewWindow creates a window with the given token budget. A non-positive budget disables trimming.
func NewWindow(maxTokens int) *Window {
	return &Window{MaxTokens: maxTokens}
}

// Select returns the longest suffix of items whose estimated size fits the budget.
// Items are expected in chronological order; the returned slice keeps that order.
func Select[T any](w *Window, items []T, size func(T) int) []T {
	if w == nil || w.MaxTokens <= 0 || len(items) == 0 {
		return items
	}

	used := 0
	start := len(items)
	for i := len(items) - 1; i >= 0; i-- {
		n := size(items[i])
		if used+n > w.MaxTokens {
			break
		}
		used += n
		start = i
	}
	return items[start:]
}

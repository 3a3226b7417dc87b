package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/ingest"
	"github.com/edgard/faqchat/internal/text"
)

const (
	faqCallbackPrefix    = "faq:"
	recentCallbackPrefix = "recent:"
	faqLabelRunes        = 25
	recentLimit          = 20
	recentPreview        = 60
)

// faqKeyboard renders one button per entry. The callback data carries the
// entry index in the list the session last saw.
func faqKeyboard(entries []*database.FAQEntry) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(entries))
	for i, e := range entries {
		label := e.OriginalQuestion
		if strings.TrimSpace(label) == "" {
			label = e.NormalizedQuestion
		}
		if e.QuestionCount > 0 {
			label = fmt.Sprintf("%s (%d)", text.Ellipsize(label, faqLabelRunes), e.QuestionCount)
		} else {
			label = text.Ellipsize(label, faqLabelRunes)
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         label,
			CallbackData: faqCallbackPrefix + strconv.Itoa(i),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// recentKeyboard renders a re-ask button per row, in the order formatRecent
// lists them.
func recentKeyboard(msgs []*database.Message) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(msgs))
	for i, m := range msgs {
		label := m.UserText
		if strings.TrimSpace(label) == "" {
			label = m.CreatedAt.Format("01-02 15:04")
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "↩ " + text.Ellipsize(label, faqLabelRunes),
			CallbackData: recentCallbackPrefix + strconv.Itoa(i),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// parseIndexCallback extracts the list index from callback data.
func parseIndexCallback(prefix, data string) (int, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// formatRecent lists messages newest first, one line per exchange.
func formatRecent(header string, msgs []*database.Message) string {
	var b strings.Builder
	b.WriteString(header)
	for _, m := range msgs {
		fmt.Fprintf(&b, "\n• %s  %s", m.CreatedAt.Format("01-02 15:04"), text.Ellipsize(m.UserText, recentPreview))
	}
	return b.String()
}

// formatFiles lists the attached documents.
func formatFiles(header string, docs []ingest.Document) string {
	var b strings.Builder
	b.WriteString(header)
	for i, d := range docs {
		fmt.Fprintf(&b, "\n%d. %s (%s, %d chars)", i+1, d.Name, d.Kind, len([]rune(d.Text)))
	}
	return b.String()
}

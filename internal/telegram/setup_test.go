package telegram

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/faqchat/internal/bot/handlers"
)

type registration struct {
	pattern   string
	matchType bot.MatchType
	handler   bot.HandlerFunc
}

type fakeRegistrar struct {
	regs []registration
}

func (f *fakeRegistrar) RegisterHandler(_ bot.HandlerType, pattern string, matchType bot.MatchType, h bot.HandlerFunc, _ ...bot.Middleware) string {
	f.regs = append(f.regs, registration{pattern, matchType, h})
	return pattern
}

func TestApplyMiddleware_Order(t *testing.T) {
	t.Parallel()

	var calls []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				calls = append(calls, name)
				next(ctx, b, u)
			}
		}
	}
	h := applyMiddleware(func(context.Context, *bot.Bot, *models.Update) {
		calls = append(calls, "handler")
	}, []bot.Middleware{mw("outer"), mw("inner")})

	h(context.Background(), nil, &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestRegisterHandlers(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, *bot.Bot, *models.Update) {}
	reg := &fakeRegistrar{}
	err := RegisterHandlers(reg, nil, map[string]handlers.RegisteredHandler{
		"/faq":  {HandlerType: bot.HandlerTypeMessageText, Pattern: "faq", Handler: noop, MatchType: bot.MatchTypeCommandStartOnly},
		"/none": {HandlerType: bot.HandlerTypeMessageText, Pattern: "none"},
	})
	require.NoError(t, err)
	require.Len(t, reg.regs, 1)
	assert.Equal(t, "faq", reg.regs[0].pattern)

	assert.NoError(t, RegisterHandlers(reg, nil, nil))
}

func TestNewTelegramBot_EmptyToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramBot("", nil)
	assert.Error(t, err)
}

func TestTokenPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "12345678...", tokenPrefix("12345678:ABCDEF"))
	assert.Equal(t, "...", tokenPrefix("short"))
}

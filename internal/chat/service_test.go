package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/faqchat/internal/answer"
	"github.com/edgard/faqchat/internal/chat"
	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/ingest"
	"github.com/edgard/faqchat/internal/llm"
	"github.com/edgard/faqchat/internal/text"
)

type saved struct {
	session, user, bot string
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []saved
	saveErr error
	seed    []*database.Message
}

func (f *fakeStore) SaveExchange(_ context.Context, sessionID, userText, botText string) (*database.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, saved{sessionID, userText, botText})
	return &database.Message{ID: int64(len(f.saved)), SessionID: sessionID, UserText: userText, BotText: botText}, nil
}

func (f *fakeStore) RecentMessages(context.Context, int) ([]*database.Message, error) {
	return []*database.Message{{ID: 1}}, nil
}

func (f *fakeStore) RecentMessagesForSession(_ context.Context, sessionID string, _ int) ([]*database.Message, error) {
	var out []*database.Message
	for _, m := range f.seed {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	history []llm.Turn
	prompt  string
}

func (g *fakeGenerator) StreamReply(_ context.Context, history []llm.Turn, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history, g.prompt = history, prompt
	return g.reply, g.err
}

type fakeRanker struct{ n int }

func (r *fakeRanker) Top(_ context.Context, n int) ([]*database.FAQEntry, error) {
	r.n = n
	return []*database.FAQEntry{{OriginalQuestion: "q"}}, nil
}

var noHits = answer.DatasetLookupFunc(func(context.Context, string) ([]string, error) { return nil, nil })

func newService(store *fakeStore, gen *fakeGenerator, ds answer.DatasetLookup) *chat.Service {
	cfg := chat.Config{Race: answer.Config{ErrorMessage: "sorry: %v"}, FAQLimit: 5}
	return chat.NewService(store, &fakeRanker{}, ds, gen, chat.NewSessionManager(4), cfg, nil)
}

func TestAsk_ModelReply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &fakeStore{}
	gen := &fakeGenerator{reply: "Hall A is upstairs."}
	svc := newService(store, gen, noHits)
	sess := svc.Session(ctx, 42)

	reply := svc.Ask(ctx, sess, "Where is Hall A?")
	assert.Equal(t, "Hall A is upstairs.", reply.Text)
	assert.Equal(t, answer.SourceModel, reply.Source)
	require.NoError(t, reply.SaveErr)
	require.NotNil(t, reply.Message)

	require.Len(t, store.saved, 1)
	assert.Equal(t, saved{sess.ID(), "Where is Hall A?", "Hall A is upstairs."}, store.saved[0])
	assert.Equal(t, []llm.Turn{
		{Role: llm.RoleUser, Text: "Where is Hall A?"},
		{Role: llm.RoleModel, Text: "Hall A is upstairs."},
	}, sess.History())

	svc.Ask(ctx, sess, "And Hall B?")
	assert.Len(t, gen.history, 2, "previous exchange is sent as history")
}

func TestAsk_HistoryStartsWithUserTurn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{reply: "ok"}
	cfg := chat.Config{Race: answer.Config{ErrorMessage: "sorry"}, HistoryTokens: 50}
	svc := chat.NewService(&fakeStore{}, &fakeRanker{}, noHits, gen, chat.NewSessionManager(10), cfg, nil)
	sess := svc.Session(ctx, 7)

	t.Run("reply without its question is dropped", func(t *testing.T) {
		sess.AppendExchange(strings.Repeat("x", 300), "short")
		svc.Ask(ctx, sess, "next")
		assert.Empty(t, gen.history)
	})

	t.Run("whole exchanges that fit are kept", func(t *testing.T) {
		svc.Ask(ctx, sess, "again")
		require.NotEmpty(t, gen.history)
		assert.Equal(t, llm.RoleUser, gen.history[0].Role)
		assert.Equal(t, "next", gen.history[0].Text)
	})
}

func TestAsk_DatasetWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &fakeStore{}
	ds := answer.DatasetLookupFunc(func(context.Context, string) ([]string, error) { return []string{"curated"}, nil })
	svc := newService(store, &fakeGenerator{reply: "model"}, ds)

	reply := svc.Ask(ctx, svc.Session(ctx, 1), "parking?")
	assert.Equal(t, "curated", reply.Text)
	assert.Equal(t, answer.SourceDataset, reply.Source)
	assert.Len(t, store.saved, 1)
}

func TestAsk_IncludesTruncatedDocuments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{reply: "ok"}
	svc := newService(&fakeStore{}, gen, noHits)
	sess := svc.Session(ctx, 1)

	added, _ := sess.AddDocument(ingest.Document{Name: "big.txt", Text: strings.Repeat("x", 2500), Hash: "h1"})
	require.True(t, added)

	svc.Ask(ctx, sess, "summarize")
	assert.True(t, strings.HasPrefix(gen.prompt, "summarize\n\n[File: big.txt]\n"))
	assert.True(t, strings.HasSuffix(gen.prompt, strings.Repeat("x", 2000)+text.TruncationMarker))
}

func TestAsk_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persistence failure still replies", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{saveErr: errors.New("disk full")}
		svc := newService(store, &fakeGenerator{reply: "fine"}, noHits)

		reply := svc.Ask(ctx, svc.Session(ctx, 1), "q")
		assert.Equal(t, "fine", reply.Text)
		assert.EqualError(t, reply.SaveErr, "disk full")
		assert.Nil(t, reply.Message)
	})

	t.Run("model failure yields apology", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		svc := newService(store, &fakeGenerator{err: errors.New("quota")}, noHits)
		sess := svc.Session(ctx, 1)

		reply := svc.Ask(ctx, sess, "q")
		assert.Equal(t, "sorry: quota", reply.Text)
		assert.Equal(t, answer.SourceError, reply.Source)
		assert.Empty(t, sess.History())
		require.Len(t, store.saved, 1)
		assert.Equal(t, "sorry: quota", store.saved[0].bot)
	})
}

func TestReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &fakeStore{}
	svc := newService(store, &fakeGenerator{}, noHits)
	sess := svc.Session(ctx, 7)

	reply := svc.Replay(ctx, sess, "Where is parking?", "Underground.")
	assert.Equal(t, "Underground.", reply.Text)
	assert.Equal(t, chat.SourceFAQ, reply.Source)
	assert.Equal(t, []saved{{sess.ID(), "Where is parking?", "Underground."}}, store.saved)
}

func TestSession_SeededFromLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	first, _ := chat.NewSessionManager(4).Get(99)
	store := &fakeStore{seed: []*database.Message{
		{SessionID: first.ID(), UserText: "hi", BotText: "hello"},
		{SessionID: "other", UserText: "x", BotText: "y"},
	}}
	svc := newService(store, &fakeGenerator{}, noHits)

	sess := svc.Session(ctx, 99)
	assert.Equal(t, first.ID(), sess.ID(), "session ids are stable per chat")
	assert.Equal(t, []llm.Turn{{Role: llm.RoleUser, Text: "hi"}, {Role: llm.RoleModel, Text: "hello"}}, sess.History())
	assert.Same(t, sess, svc.Session(ctx, 99))
}

func TestTopFAQsAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ranker := &fakeRanker{}
	svc := chat.NewService(&fakeStore{}, ranker, noHits, &fakeGenerator{}, chat.NewSessionManager(0), chat.Config{FAQLimit: 3}, nil)

	faqs, err := svc.TopFAQs(ctx)
	require.NoError(t, err)
	assert.Len(t, faqs, 1)
	assert.Equal(t, 3, ranker.n)

	recent, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

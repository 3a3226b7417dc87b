// Package chat ties sessions, the answer race and the message log together.
package chat

import (
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/ingest"
	"github.com/edgard/faqchat/internal/llm"
)

// DefaultHistoryTurns bounds the conversation kept per session.
const DefaultHistoryTurns = 20

// sessionNamespace derives stable session ids from chat keys, so the log
// can reseed a conversation after a restart.
var sessionNamespace = uuid.MustParse("6f1c2f0e-4b8a-4c55-9a57-3f0f4f0b8d21")

// Session is the per-chat state: conversation history, uploaded documents
// and UI toggles. It is safe for concurrent use.
type Session struct {
	mu         sync.RWMutex
	id         string
	key        int64
	maxTurns   int
	history    []llm.Turn
	docs       []ingest.Document
	hashes     map[string]string
	showRecent bool
	lastFAQs   []*database.FAQEntry
	lastRecent []*database.Message
}

func newSession(id string, key int64, maxTurns int) *Session {
	return &Session{id: id, key: key, maxTurns: maxTurns, hashes: make(map[string]string)}
}

// ID returns the session id written to the message log.
func (s *Session) ID() string {
	return s.id
}

// Key returns the chat key the session belongs to.
func (s *Session) Key() int64 {
	return s.key
}

// History returns a copy of the conversation, oldest first.
func (s *Session) History() []llm.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// AppendExchange records a user turn and the model's reply, dropping the
// oldest turns beyond the limit.
func (s *Session) AppendExchange(user, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, llm.Turn{Role: llm.RoleUser, Text: user}, llm.Turn{Role: llm.RoleModel, Text: reply})
	if s.maxTurns > 0 && len(s.history) > s.maxTurns {
		s.history = slices.Clone(s.history[len(s.history)-s.maxTurns:])
	}
}

// ClearHistory forgets the conversation.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// AddDocument attaches doc unless a file with the same content was already
// attached. It reports whether doc was added and, if not, the name it was
// first uploaded under.
func (s *Session) AddDocument(doc ingest.Document) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, dup := s.hashes[doc.Hash]; dup {
		return false, name
	}
	s.hashes[doc.Hash] = doc.Name
	s.docs = append(s.docs, doc)
	return true, doc.Name
}

// Documents returns the attached documents in upload order.
func (s *Session) Documents() []ingest.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.docs)
}

// ClearDocuments drops every attached document.
func (s *Session) ClearDocuments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.hashes = make(map[string]string)
}

// ToggleShowRecent flips the recent-log toggle and returns the new value.
func (s *Session) ToggleShowRecent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showRecent = !s.showRecent
	return s.showRecent
}

// ShowRecent reports the recent-log toggle.
func (s *Session) ShowRecent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showRecent
}

// SetLastFAQs remembers the FAQ list last shown, so button callbacks can
// refer to entries by index.
func (s *Session) SetLastFAQs(entries []*database.FAQEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFAQs = slices.Clone(entries)
}

// LastFAQ returns entry i of the last shown list.
func (s *Session) LastFAQ(i int) (*database.FAQEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.lastFAQs) {
		return nil, false
	}
	return s.lastFAQs[i], true
}

// SetLastRecent remembers the recent-question list last shown, so re-ask
// buttons can refer to rows by index.
func (s *Session) SetLastRecent(msgs []*database.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRecent = slices.Clone(msgs)
}

// LastRecent returns row i of the last shown recent list.
func (s *Session) LastRecent(i int) (*database.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.lastRecent) {
		return nil, false
	}
	return s.lastRecent[i], true
}

// SessionManager creates sessions on first contact and discards them on reset.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	maxTurns int
}

// NewSessionManager creates a SessionManager keeping maxTurns turns per
// session. An odd limit is rounded down so history always holds whole exchanges.
func NewSessionManager(maxTurns int) *SessionManager {
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryTurns
	}
	maxTurns = max(maxTurns-maxTurns%2, 2)
	return &SessionManager{sessions: make(map[int64]*Session), maxTurns: maxTurns}
}

// Get returns the session for key, creating it if needed. created is true
// when the session did not exist yet.
func (m *SessionManager) Get(key int64) (s *Session, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s, false
	}
	id := uuid.NewSHA1(sessionNamespace, []byte(strconv.FormatInt(key, 10))).String()
	s = newSession(id, key, m.maxTurns)
	m.sessions[key] = s
	return s, true
}

// Reset replaces the session for key with an empty one under a fresh id.
func (m *SessionManager) Reset(key int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(uuid.NewString(), key, m.maxTurns)
	m.sessions[key] = s
	return s
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

package tripmesh

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripmesh/tripmesh/llm"
)

// ChatTurn is a single conversation turn.
type ChatTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds a conversation's turns with creation time.
type Session struct {
	ID        string     `json:"session_id"`
	CreatedAt time.Time  `json:"created_at"`
	Turns     []ChatTurn `json:"turns"`
}

// Messages converts the session's turns into chat messages for the prompt.
func (s *Session) Messages() []llm.Message {
	out := make([]llm.Message, 0, len(s.Turns))
	for _, t := range s.Turns {
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// SessionStore persists conversation sessions.
type SessionStore interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, bool)
	Delete(ctx context.Context, id string) bool
	// ListRange returns sessions from offset with limit, newest first.
	ListRange(ctx context.Context, offset, limit int) []*Session
	AddTurns(ctx context.Context, id string, turns ...ChatTurn) bool
	// Clean keeps at most max sessions by recency.
	Clean(ctx context.Context, max int) error
}

// MemSessionStore keeps sessions in memory, for single-process deployments
// and tests.
type MemSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemSessionStore() *MemSessionStore {
	return &MemSessionStore{sessions: make(map[string]*Session)}
}

func (m *MemSessionStore) Create(_ context.Context) (*Session, error) {
	s := &Session{ID: uuid.NewString(), CreatedAt: time.Now(), Turns: []ChatTurn{}}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *MemSessionStore) Get(_ context.Context, id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	return s, ok
}

func (m *MemSessionStore) Delete(_ context.Context, id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return ok
}

func (m *MemSessionStore) list() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemSessionStore) ListRange(_ context.Context, offset, limit int) []*Session {
	list := m.list()
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(list) {
		return []*Session{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

func (m *MemSessionStore) AddTurns(_ context.Context, id string, turns ...ChatTurn) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		s.Turns = append(s.Turns, turns...)
	}
	m.mu.Unlock()
	return ok
}

func (m *MemSessionStore) Clean(_ context.Context, max int) error {
	if max <= 0 {
		return nil
	}
	list := m.list()
	if len(list) <= max {
		return nil
	}
	m.mu.Lock()
	for _, s := range list[max:] {
		delete(m.sessions, s.ID)
	}
	m.mu.Unlock()
	return nil
}

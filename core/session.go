package core

import (
	"sync"
	"time"
)

// QueryError records one failed SQL execution so the agent can remind the
// model of past mistakes across questions.
type QueryError struct {
	SQL     string `json:"sql"`
	Message string `json:"message"`
}

// Session owns the mutable conversational state of one agent instance. It is
// safe for concurrent access, though the agent loop drives it from a single
// goroutine.
//
// Contract:
//   - History is append-only and never reorders; it is the single source of
//     truth handed to the model each turn.
//   - QueryErrors only grows within a session and is never replayed into
//     History; the agent summarizes it into the system prompt instead.
//   - Per-question sources reset on BeginQuestion and accumulate as tools
//     execute; Sources returns a deduplicated snapshot.
type Session struct {
	ID      string
	Created time.Time
	Updated time.Time

	mu          sync.RWMutex
	history     []Content
	queryErrors []QueryError
	sources     []Source
}

// NewSession creates an empty session with a generated id.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{ID: NewID(), Created: now, Updated: now}
}

// Append adds content to the conversation history.
func (s *Session) Append(c Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, c)
	s.Updated = time.Now().UTC()
}

// History returns a defensive copy of the conversation history.
func (s *Session) History() []Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]Content, len(s.history))
	copy(history, s.history)
	return history
}

// Len returns the number of history entries.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// BeginQuestion resets per-question source tracking. History and query-error
// memory survive question boundaries.
func (s *Session) BeginQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = nil
}

// AddSource records a source consulted while answering the current question.
func (s *Session) AddSource(src Source) {
	if src == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
}

// Sources returns the deduplicated sources of the current question.
func (s *Session) Sources() Sources {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collectSources(s.sources)
}

// RecordQueryError appends a failed SQL execution to the session's error
// memory.
func (s *Session) RecordQueryError(sql, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErrors = append(s.queryErrors, QueryError{SQL: sql, Message: message})
	s.Updated = time.Now().UTC()
}

// QueryErrors returns a defensive copy of the accumulated query errors.
func (s *Session) QueryErrors() []QueryError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	errs := make([]QueryError, len(s.queryErrors))
	copy(errs, s.queryErrors)
	return errs
}

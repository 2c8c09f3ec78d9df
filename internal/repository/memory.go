package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var errEmptyUserID = errors.New("repository: user id must not be empty")

// MemorySessionStore keeps the user → conversation mapping in process memory.
// It is lost on restart. Safe for concurrent use.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]string)}
}

func (s *MemorySessionStore) Get(_ context.Context, userID string) (string, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return "", false, errEmptyUserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[userID]
	return id, ok, nil
}

func (s *MemorySessionStore) Set(_ context.Context, userID, conversationID string) error {
	if strings.TrimSpace(userID) == "" {
		return errEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = conversationID
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, errEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; !ok {
		return false, nil
	}
	delete(s.sessions, userID)
	return true, nil
}

// Len reports the number of mapped users.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) Close() error { return nil }

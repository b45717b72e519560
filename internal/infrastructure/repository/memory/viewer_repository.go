package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ViewerRepository keeps heartbeat sessions in process memory.
type ViewerRepository struct {
	mu       sync.RWMutex
	sessions map[string]map[string]time.Time
}

func NewViewerRepository() *ViewerRepository {
	return &ViewerRepository{sessions: make(map[string]map[string]time.Time)}
}

func (r *ViewerRepository) Heartbeat(_ context.Context, matchID, sessionID string, at time.Time) error {
	matchID = strings.TrimSpace(matchID)
	sessionID = strings.TrimSpace(sessionID)
	if matchID == "" || sessionID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bySession, ok := r.sessions[matchID]
	if !ok {
		bySession = make(map[string]time.Time)
		r.sessions[matchID] = bySession
	}
	if last, ok := bySession[sessionID]; !ok || at.After(last) {
		bySession[sessionID] = at
	}

	return nil
}

func (r *ViewerRepository) CountActive(_ context.Context, matchID string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, seen := range r.sessions[strings.TrimSpace(matchID)] {
		if !seen.Before(since) {
			count++
		}
	}

	return count, nil
}

func (r *ViewerRepository) Prune(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for matchID, bySession := range r.sessions {
		for sessionID, seen := range bySession {
			if seen.Before(before) {
				delete(bySession, sessionID)
				removed++
			}
		}
		if len(bySession) == 0 {
			delete(r.sessions, matchID)
		}
	}

	return removed, nil
}

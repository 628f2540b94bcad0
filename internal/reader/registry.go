package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/yomu/internal/observe"
)

// Registry tracks at most one live Session per guild. Safe for concurrent
// use; all gateway event handlers and command handlers go through it.
type Registry struct {
	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry. A nil metrics falls back to
// observe.DefaultMetrics.
func NewRegistry(metrics *observe.Metrics) *Registry {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Registry{
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for cfg.GuildID. Returns ErrAlreadyConnected if
// the guild already has one; the existing session is left untouched.
func (r *Registry) Create(ctx context.Context, cfg Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[cfg.GuildID]; ok {
		return nil, fmt.Errorf("reader: create session for guild %s: %w", cfg.GuildID, ErrAlreadyConnected)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = r.metrics
	}
	s := newSession(ctx, cfg)
	r.sessions[cfg.GuildID] = s
	r.metrics.ActiveSessions.Add(ctx, 1)
	return s, nil
}

// Get returns the live session for a guild, or ErrNotConnected.
func (r *Registry) Get(guildID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	if !ok {
		return nil, fmt.Errorf("reader: guild %s: %w", guildID, ErrNotConnected)
	}
	return s, nil
}

// Destroy stops and removes the guild's session: the actor halts, pending
// items are discarded and the audio sink is disconnected. Returns
// ErrNotConnected if the guild has no session.
func (r *Registry) Destroy(ctx context.Context, guildID string) error {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	if ok {
		delete(r.sessions, guildID)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("reader: destroy session for guild %s: %w", guildID, ErrNotConnected)
	}

	r.metrics.ActiveSessions.Add(ctx, -1)
	return s.close()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Each calls fn for every live session. The snapshot is taken under the
// lock; fn runs outside it.
func (r *Registry) Each(fn func(*Session)) {
	r.mu.Lock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.Unlock()
	for _, s := range snapshot {
		fn(s)
	}
}

// DestroyAll tears down every session, used at shutdown. Errors are
// joined; teardown continues past failures.
func (r *Registry) DestroyAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var errs []error
	for guildID, s := range sessions {
		r.metrics.ActiveSessions.Add(ctx, -1)
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("reader: destroy all sessions: %w", errors.Join(errs...))
	}
	return nil
}

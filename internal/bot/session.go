package bot

import (
	"context"
	"sync"
	"time"

	"flickfusion-tg-bot/internal/catalog"
)

type sessionState int

const (
	stateAwaitingTitle sessionState = iota
	stateAwaitingReference
	stateAwaitingConfirmation
	stateAwaitingBroadcastText
	stateAwaitingBroadcastConfirm
)

// session is one admin's in-flight conversation. Handlers hold mu across a
// whole state transition so inputs from the same admin never interleave.
type session struct {
	mu        sync.Mutex
	state     sessionState
	title     string
	year      int
	source    catalog.SourceRef
	broadcast string
	touched   time.Time
}

// sessionRegistry owns at most one session per admin and expires idle ones.
type sessionRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	byAdmin map[int64]*session
}

func newSessionRegistry(ttl time.Duration) *sessionRegistry {
	return &sessionRegistry{
		ttl:     ttl,
		byAdmin: make(map[int64]*session),
	}
}

// start replaces any existing session for the admin. A second add-command
// mid-session restarts rather than tracking two sessions.
func (r *sessionRegistry) start(adminID int64, state sessionState) *session {
	s := &session{state: state, touched: time.Now()}
	r.mu.Lock()
	r.byAdmin[adminID] = s
	r.mu.Unlock()
	return s
}

// get returns the admin's live session, discarding it first if it idled out.
// The registry lock is never held while taking a session lock: handlers hold
// the session lock across a transition and call clear from inside it.
func (r *sessionRegistry) get(adminID int64) *session {
	r.mu.Lock()
	s, ok := r.byAdmin[adminID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	expired := time.Since(s.touched) > r.ttl
	s.mu.Unlock()
	if expired {
		r.drop(adminID, s)
		return nil
	}
	return s
}

func (r *sessionRegistry) clear(adminID int64) {
	r.mu.Lock()
	delete(r.byAdmin, adminID)
	r.mu.Unlock()
}

// drop removes the session only if it is still the registered one, so an
// expired session never evicts a replacement started in the meantime.
func (r *sessionRegistry) drop(adminID int64, s *session) {
	r.mu.Lock()
	if r.byAdmin[adminID] == s {
		delete(r.byAdmin, adminID)
	}
	r.mu.Unlock()
}

func (r *sessionRegistry) sweep() {
	r.mu.Lock()
	snapshot := make(map[int64]*session, len(r.byAdmin))
	for id, s := range r.byAdmin {
		snapshot[id] = s
	}
	r.mu.Unlock()

	for id, s := range snapshot {
		s.mu.Lock()
		expired := time.Since(s.touched) > r.ttl
		s.mu.Unlock()
		if expired {
			r.drop(id, s)
		}
	}
}

// run sweeps idle sessions until ctx is done.
func (r *sessionRegistry) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

package httpapi

import (
	"context"
	"sync"

	"meeting-platform/internal/calling"
	"meeting-platform/internal/session"

	"github.com/google/uuid"
)

// SessionRegistry owns the live session controllers. One entry per joined
// call per client; entries are removed when the session ends.
type SessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	controller *session.Controller
	attachment calling.Attachment
	cancel     context.CancelFunc
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{entries: make(map[string]*sessionEntry)}
}

// Add registers a controller and starts draining its attachment streams.
// The returned id addresses the session over HTTP and WebSocket.
func (r *SessionRegistry) Add(ctrl *session.Controller, attachment calling.Attachment) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.entries[id] = &sessionEntry{controller: ctrl, attachment: attachment, cancel: cancel}
	r.mu.Unlock()

	go func() {
		ctrl.Run(ctx, attachment)
		r.Remove(id)
	}()
	return id
}

func (r *SessionRegistry) Get(id string) (*session.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.controller, true
}

// Attachment returns the raw attachment for state reporting.
func (r *SessionRegistry) Attachment(id string) (calling.Attachment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.attachment, true
}

func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

package notify

import (
	"context"
	"sync"
	"time"
)

// Memory records notifications in order. Used by tests and local runs.
type Memory struct {
	clock func() time.Time

	mu    sync.Mutex
	sent  []Notification
}

func NewMemory() *Memory {
	return &Memory{clock: time.Now}
}

func (m *Memory) Success(ctx context.Context, userID, message string) {
	m.append(userID, LevelSuccess, message)
}

func (m *Memory) Warning(ctx context.Context, userID, message string) {
	m.append(userID, LevelWarning, message)
}

func (m *Memory) Error(ctx context.Context, userID, message string) {
	m.append(userID, LevelError, message)
}

func (m *Memory) append(userID string, level Level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Notification{
		UserID:    userID,
		Level:     level,
		Message:   message,
		CreatedAt: m.clock().UTC(),
	})
}

// Sent returns a copy of everything delivered so far.
func (m *Memory) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo filters delivered notifications by user.
func (m *Memory) SentTo(userID string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

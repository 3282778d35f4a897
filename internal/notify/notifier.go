package notify

import (
	"context"
	"time"
)

// Level is the severity of a user-facing toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one transient user-visible message.
type Notification struct {
	UserID    string    `json:"user_id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers transient notifications to a user. Delivery is
// best-effort: implementations log failures and never propagate them into
// the meeting workflows.
type Notifier interface {
	Success(ctx context.Context, userID, message string)
	Warning(ctx context.Context, userID, message string)
	Error(ctx context.Context, userID, message string)
}

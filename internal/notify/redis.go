package notify

import (
	"context"
	"encoding/json"
	"time"

	"meeting-platform/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notify:"

// Redis publishes notifications to a per-user channel (notify:{user_id}).
// The web frontend subscribes to its own channel and renders toasts.
type Redis struct {
	rdb   *redis.Client
	clock func() time.Time
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, clock: time.Now}
}

func (r *Redis) Success(ctx context.Context, userID, message string) {
	r.publish(ctx, userID, LevelSuccess, message)
}

func (r *Redis) Warning(ctx context.Context, userID, message string) {
	r.publish(ctx, userID, LevelWarning, message)
}

func (r *Redis) Error(ctx context.Context, userID, message string) {
	r.publish(ctx, userID, LevelError, message)
}

func (r *Redis) publish(ctx context.Context, userID string, level Level, message string) {
	if r.rdb == nil || userID == "" {
		return
	}

	n := Notification{
		UserID:    userID,
		Level:     level,
		Message:   message,
		CreatedAt: r.clock().UTC(),
	}
	raw, err := json.Marshal(n)
	if err != nil {
		logger.From(ctx).Warn("notification marshal failed", "err", err)
		return
	}
	if err := r.rdb.Publish(ctx, channelPrefix+userID, raw).Err(); err != nil {
		// Best-effort: a lost toast must not fail the workflow.
		logger.From(ctx).Warn("notification publish failed", "user_id", userID, "err", err)
	}
}

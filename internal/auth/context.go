package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxDisplayName
)

// Identity is the authenticated caller as seen by the meeting workflows.
type Identity struct {
	UserID      string
	DisplayName string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, id.UserID)
	ctx = context.WithValue(ctx, ctxDisplayName, id.DisplayName)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

// IdentityFrom returns the full identity, or ok=false when unauthenticated.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	uid, err := UserID(ctx)
	if err != nil {
		return Identity{}, false
	}
	name, _ := ctx.Value(ctxDisplayName).(string)
	return Identity{UserID: uid, DisplayName: name}, true
}

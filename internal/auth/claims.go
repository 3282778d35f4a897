package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for this service.
//
// Identity is intentionally small: the meeting workflows need a stable user
// id for call ownership and a display name for the participant list. There
// are no tenant or role claims; the only permission rule in this domain
// (personal rooms cannot be force-ended) is call-scoped, not identity-scoped.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

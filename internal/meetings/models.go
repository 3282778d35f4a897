package meetings

import "time"

// Meeting is the platform's own record of a created call, kept so the home
// screen can list upcoming and previous meetings without querying the
// calling provider. The ID is the call identifier and is immutable.
type Meeting struct {
	ID          string     `json:"id" db:"id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	Description string     `json:"description,omitempty" db:"description"`
	StartsAt    time.Time  `json:"starts_at" db:"starts_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

package calling

import "time"

// ConnectionState is the provider's reported phase of the local client's
// participation in a call.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateJoined
	StateEnded
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ParseConnectionState maps the wire name back to a state.
// Unknown names map to StateIdle so a buggy client cannot force a join.
func ParseConnectionState(v string) (ConnectionState, bool) {
	switch v {
	case "idle":
		return StateIdle, true
	case "connecting":
		return StateConnecting, true
	case "joined":
		return StateJoined, true
	case "ended":
		return StateEnded, true
	default:
		return StateIdle, false
	}
}

// CallInfo is the provider's record of a call, addressed by its identifier.
// The identifier is generated client-side and immutable once assigned;
// requesting the same identifier twice must return the same call.
type CallInfo struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	CreatedBy   string    `json:"created_by"`
	StartsAt    time.Time `json:"starts_at"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type GetOrCreateCallRequest struct {
	Kind        string
	CallID      string
	CreatedBy   string
	StartsAt    time.Time
	Description string
}

type JoinRequest struct {
	CallID      string
	UserID      string
	DisplayName string
}

type Participant struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// CallStats is a point-in-time snapshot; the provider owns the real numbers.
type CallStats struct {
	CallID           string        `json:"call_id"`
	ParticipantCount int           `json:"participant_count"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
}

type Recording struct {
	CallID    string    `json:"call_id"`
	URL       string    `json:"url"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

package calling

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound     = errors.New("calling: call not found")
	ErrCallEnded    = errors.New("calling: call already ended")
	ErrNotSupported = errors.New("calling: operation not supported by provider")
)

// Provider defines the provider-agnostic interface to the external
// video-calling platform.
//
// Rules:
// - No provider SDK/API calls outside this package.
// - GetOrCreateCall is idempotent by call identifier: the same identifier
//   always resolves to the same call, with the metadata of the first create.
// - Connection state and participant changes are pushed through Attachment
//   streams; callers never poll.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	GetOrCreateCall(ctx context.Context, req GetOrCreateCallRequest) (CallInfo, error)
	Join(ctx context.Context, req JoinRequest) (Attachment, error)
	EndCall(ctx context.Context, callID string) error

	ListRecordings(ctx context.Context, callID string) ([]Recording, error)
}

// Attachment is one local client's handle on a joined (or joining) call.
// The state and participant channels are closed when the attachment ends.
type Attachment interface {
	CallID() string
	States() <-chan ConnectionState
	Participants() <-chan []Participant
	Stats(ctx context.Context) (CallStats, error)

	// Leave detaches this client only.
	Leave(ctx context.Context) error
	// End terminates the call for everyone.
	End(ctx context.Context) error
}

// RemoteAttachment is an Attachment whose transitions are reported by the
// integration layer (the browser SDK reports its state; the server relays it
// here). Used by providers that cannot observe media state server-side.
type RemoteAttachment struct {
	callID string
	end    func(ctx context.Context) error
	stats  func(ctx context.Context) (CallStats, error)

	mu           sync.Mutex
	closed       bool
	states       chan ConnectionState
	participants chan []Participant
}

func NewRemoteAttachment(callID string, end func(ctx context.Context) error, stats func(ctx context.Context) (CallStats, error)) *RemoteAttachment {
	return &RemoteAttachment{
		callID:       callID,
		end:          end,
		stats:        stats,
		states:       make(chan ConnectionState, 8),
		participants: make(chan []Participant, 8),
	}
}

func (a *RemoteAttachment) CallID() string                     { return a.callID }
func (a *RemoteAttachment) States() <-chan ConnectionState     { return a.states }
func (a *RemoteAttachment) Participants() <-chan []Participant { return a.participants }

func (a *RemoteAttachment) Stats(ctx context.Context) (CallStats, error) {
	if a.stats == nil {
		return CallStats{}, ErrNotSupported
	}
	return a.stats(ctx)
}

// Report pushes a reported connection state. Reports after the attachment
// closed are dropped; an Ended report closes the streams.
func (a *RemoteAttachment) Report(state ConnectionState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.states <- state:
	default:
		// Slow consumer: drop rather than block the integration layer.
	}
	if state == StateEnded {
		a.closeLocked()
	}
}

// ReportParticipants pushes a participant-list change.
func (a *RemoteAttachment) ReportParticipants(list []Participant) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.participants <- list:
	default:
	}
}

func (a *RemoteAttachment) Leave(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	select {
	case a.states <- StateEnded:
	default:
	}
	a.closeLocked()
	return nil
}

func (a *RemoteAttachment) End(ctx context.Context) error {
	if err := a.Leave(ctx); err != nil {
		return err
	}
	if a.end == nil {
		return ErrNotSupported
	}
	return a.end(ctx)
}

func (a *RemoteAttachment) closeLocked() {
	a.closed = true
	close(a.states)
	close(a.participants)
}

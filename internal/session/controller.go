package session

import (
	"context"
	"errors"
	"sync"

	"meeting-platform/internal/calling"
)

var (
	ErrInvalidLayout = errors.New("session: unknown layout mode")
	ErrSessionEnded  = errors.New("session: session has ended")
	ErrPersonalRoom  = errors.New("session: personal rooms cannot be ended for everyone")
	ErrNotAttached   = errors.New("session: no call attachment")
)

// Controls tells the frontend which in-call controls to offer.
type Controls struct {
	// CanEndForEveryone is false for personal rooms: those are only left,
	// never force-ended by a participant.
	CanEndForEveryone bool `json:"can_end_for_everyone"`
}

// View is the read-only render state handed to the transport layer.
// While the connection is anything other than joined, only the loading
// indicator is populated; controls require a live media session.
type View struct {
	CallID           string                `json:"call_id"`
	State            string                `json:"state"`
	Loading          bool                  `json:"loading"`
	Layout           LayoutMode            `json:"layout,omitempty"`
	Composition      Composition           `json:"composition,omitempty"`
	ShowParticipants bool                  `json:"show_participants,omitempty"`
	Participants     []calling.Participant `json:"participants,omitempty"`
	Controls         Controls              `json:"controls"`
}

// Controller tracks the lifecycle of a single active call from join
// confirmation to termination and owns its UI state. A controller is built
// per call and never reused: once the session reaches Ended it is torn down
// and a fresh controller must be constructed for any subsequent call.
type Controller struct {
	call         calling.CallInfo
	personalRoom bool

	mu               sync.Mutex
	connState        calling.ConnectionState
	layout           LayoutMode
	showParticipants bool
	participants     []calling.Participant
	attachment       calling.Attachment

	nextWatcher int
	watchers    map[int]chan View
}

type Options struct {
	// PersonalRoom is derived from the meeting URL's query parameter, not
	// from call state.
	PersonalRoom bool
}

func NewController(call calling.CallInfo, opts Options) *Controller {
	return &Controller{
		call:         call,
		personalRoom: opts.PersonalRoom,
		connState:    calling.StateIdle,
		layout:       LayoutDefault,
		watchers:     make(map[int]chan View),
	}
}

// ConnectionState returns the provider-reported state as last applied.
func (c *Controller) ConnectionState() calling.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

// Apply consumes a pushed connection-state change. Ended is terminal;
// anything applied afterwards is ignored.
func (c *Controller) Apply(state calling.ConnectionState) {
	c.mu.Lock()
	if c.connState == calling.StateEnded {
		c.mu.Unlock()
		return
	}
	c.connState = state
	c.mu.Unlock()
	c.publish()
}

// SetParticipants consumes a pushed participant-list change.
func (c *Controller) SetParticipants(list []calling.Participant) {
	c.mu.Lock()
	c.participants = list
	c.mu.Unlock()
	c.publish()
}

// SetLayout switches the visual composition. Rejected once the session
// has ended.
func (c *Controller) SetLayout(mode LayoutMode) error {
	if !mode.Valid() {
		return ErrInvalidLayout
	}
	c.mu.Lock()
	if c.connState == calling.StateEnded {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	c.layout = mode
	c.mu.Unlock()
	c.publish()
	return nil
}

// ToggleParticipants flips panel visibility. Independent of layout and
// connection state.
func (c *Controller) ToggleParticipants() bool {
	c.mu.Lock()
	c.showParticipants = !c.showParticipants
	visible := c.showParticipants
	c.mu.Unlock()
	c.publish()
	return visible
}

// Snapshot renders the current view. The joined gate is hard: no controls
// and no participant list are exposed until the provider confirms the join.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() View {
	v := View{
		CallID: c.call.ID,
		State:  c.connState.String(),
	}
	if c.connState != calling.StateJoined {
		v.Loading = true
		return v
	}

	v.Layout = c.layout
	v.Composition = CompositionFor(c.layout)
	v.ShowParticipants = c.showParticipants
	v.Participants = append([]calling.Participant(nil), c.participants...)
	v.Controls = Controls{CanEndForEveryone: !c.personalRoom}
	return v
}

// Subscribe registers a watcher for view changes. The returned cancel
// function must be called when the watcher goes away. Slow watchers miss
// intermediate views rather than blocking the session.
func (c *Controller) Subscribe() (<-chan View, func()) {
	c.mu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	ch := make(chan View, 4)
	c.watchers[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if w, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(w)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) publish() {
	c.mu.Lock()
	v := c.snapshotLocked()
	for _, ch := range c.watchers {
		select {
		case ch <- v:
		default:
		}
	}
	c.mu.Unlock()
}

// Run drains the attachment's pushed streams into the controller until the
// call ends or ctx is canceled. The controller never polls the provider.
func (c *Controller) Run(ctx context.Context, attachment calling.Attachment) {
	c.mu.Lock()
	c.attachment = attachment
	c.mu.Unlock()

	states := attachment.States()
	participants := attachment.Participants()
	for states != nil || participants != nil {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			c.Apply(s)
			if s == calling.StateEnded {
				return
			}
		case list, ok := <-participants:
			if !ok {
				participants = nil
				continue
			}
			c.SetParticipants(list)
		}
	}
}

// Stats proxies the provider's statistics snapshot; only meaningful once
// joined.
func (c *Controller) Stats(ctx context.Context) (calling.CallStats, error) {
	c.mu.Lock()
	a := c.attachment
	c.mu.Unlock()
	if a == nil {
		return calling.CallStats{}, ErrNotAttached
	}
	return a.Stats(ctx)
}

// Leave detaches the local client and ends the session.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	a := c.attachment
	c.mu.Unlock()

	c.Apply(calling.StateEnded)
	if a == nil {
		return nil
	}
	return a.Leave(ctx)
}

// End terminates the call for everyone. Suppressed for personal rooms
// regardless of connection state.
func (c *Controller) End(ctx context.Context) error {
	if c.personalRoom {
		return ErrPersonalRoom
	}
	c.mu.Lock()
	a := c.attachment
	c.mu.Unlock()

	c.Apply(calling.StateEnded)
	if a == nil {
		return ErrNotAttached
	}
	return a.End(ctx)
}

// IsPersonalRoom reports whether this session targets a personal room.
func (c *Controller) IsPersonalRoom() bool { return c.personalRoom }

// Call returns the immutable call metadata this session was built for.
func (c *Controller) Call() calling.CallInfo { return c.call }

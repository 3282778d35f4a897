package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"meeting-platform/internal/auth"
	"meeting-platform/internal/calling"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/notify"
	"meeting-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	// ErrNoIdentity and ErrNoProvider mark missing preconditions; callers
	// treat these as silent no-ops rather than user-facing failures.
	ErrNoIdentity = errors.New("intent: no authenticated identity")
	ErrNoProvider = errors.New("intent: no calling client configured")

	// ErrDismissed marks a creation result that arrived after the dialog it
	// belonged to was dismissed. The result is dropped.
	ErrDismissed = errors.New("intent: dialog dismissed before creation completed")

	ErrInvalidIntent = errors.New("intent: unknown intent")
)

// DefaultDescription is stored when the draft carries no description.
const DefaultDescription = "Instant meeting"

// RouteRecordings is where the recordings intent sends the user.
const RouteRecordings = "/recordings"

// MeetingRecorder persists created meetings for the upcoming/previous views.
// Recording is best-effort; failures never abort a successful creation.
type MeetingRecorder interface {
	Record(ctx context.Context, m meetings.Meeting) error
}

// Outcome is the result of a successful create-or-fetch.
//
// Routing policy: a meeting created with no draft description is treated as a
// pure instant meeting and auto-joined (NavigateTo is set); a non-empty
// description signals a deliberate, scheduled meeting, so navigation is
// withheld and the shareable JoinLink is surfaced for copying instead.
type Outcome struct {
	Call       calling.CallInfo `json:"call"`
	JoinLink   string           `json:"join_link"`
	AutoJoin   bool             `json:"auto_join"`
	NavigateTo string           `json:"navigate_to,omitempty"`
	Warned     bool             `json:"warned,omitempty"`
}

// Resolver decides which workflow the user is invoking and produces the
// inputs needed to create or locate a call. All collaborators are injected;
// nothing is read from ambient state.
type Resolver struct {
	provider calling.Provider
	notifier notify.Notifier
	recorder MeetingRecorder

	mu     sync.Mutex
	states map[string]*State

	baseURL  string
	callKind string

	Now   func() time.Time
	NewID func() string
}

func NewResolver(provider calling.Provider, notifier notify.Notifier, recorder MeetingRecorder, baseURL string) *Resolver {
	return &Resolver{
		provider: provider,
		notifier: notifier,
		recorder: recorder,
		states:   make(map[string]*State),
		baseURL:  strings.TrimRight(baseURL, "/"),
		callKind: "default",
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// StateFor returns the dialog state owned by the given user, creating it on
// first use. Each user has exactly one dialog; drafts and dismissals never
// cross users.
func (r *Resolver) StateFor(userID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[userID]
	if !ok {
		st = NewState()
		r.states[userID] = st
	}
	return st
}

// SelectIntent activates a workflow for the user and returns the route to
// navigate to, if the intent navigates immediately (recordings). Other
// intents open a dialog.
func (r *Resolver) SelectIntent(userID string, i Intent) (string, error) {
	if userID == "" {
		return "", ErrNoIdentity
	}
	if !i.Valid() {
		return "", ErrInvalidIntent
	}
	r.StateFor(userID).Select(i)
	if i == IntentViewRecordings {
		return RouteRecordings, nil
	}
	return "", nil
}

// CreateOrFetchCall creates (or re-fetches, by identifier) a call for the
// given intent kind and draft.
//
// Missing scheduling input is soft-validated: a scheduled meeting without a
// start time fires a warning notification but the creation still proceeds
// with the current timestamp. The warning and the creation are one linear
// operation; the warning never gates the happy path.
func (r *Resolver) CreateOrFetchCall(ctx context.Context, user auth.Identity, kind Intent, draft Draft) (Outcome, error) {
	if user.UserID == "" {
		return Outcome{}, ErrNoIdentity
	}
	if r.provider == nil {
		return Outcome{}, ErrNoProvider
	}
	if kind != IntentInstantMeeting && kind != IntentScheduledMeeting {
		return Outcome{}, fmt.Errorf("%w: %q cannot create a call", ErrInvalidIntent, kind)
	}

	state := r.StateFor(user.UserID)
	generation := state.currentGeneration()
	log := logger.From(ctx)

	warned := false
	if kind == IntentScheduledMeeting && draft.StartTime == nil {
		r.notify(func() { r.notifier.Warning(ctx, user.UserID, "Please select a date and time") })
		warned = true
	}

	// Effective start time is resolved now, at call time.
	startsAt := r.Now().UTC()
	if draft.StartTime != nil {
		startsAt = draft.StartTime.UTC()
	}
	description := draft.Description
	if description == "" {
		description = DefaultDescription
	}

	callID := r.NewID()
	call, err := r.provider.GetOrCreateCall(ctx, calling.GetOrCreateCallRequest{
		Kind:        r.callKind,
		CallID:      callID,
		CreatedBy:   user.UserID,
		StartsAt:    startsAt,
		Description: description,
	})
	if err != nil {
		log.Error("meeting creation failed", "call_id", callID, "err", err)
		r.notify(func() { r.notifier.Error(ctx, user.UserID, "Failed to create a meeting") })
		return Outcome{}, fmt.Errorf("intent: create call: %w", err)
	}

	// The user's dialog owns the request; a result landing after dismissal
	// is dropped without notifications or side effects.
	if state.currentGeneration() != generation {
		log.Debug("creation result dropped after dismissal", "call_id", call.ID)
		return Outcome{}, ErrDismissed
	}

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, meetings.Meeting{
			ID:          call.ID,
			OwnerID:     user.UserID,
			Description: call.Description,
			StartsAt:    call.StartsAt,
		}); err != nil {
			log.Warn("meeting record failed", "call_id", call.ID, "err", err)
		}
	}

	r.notify(func() { r.notifier.Success(ctx, user.UserID, "Meeting successfully created") })

	out := Outcome{
		Call:     call,
		JoinLink: r.ResolveJoinLink(call.ID),
		Warned:   warned,
	}
	if draft.Description == "" {
		out.AutoJoin = true
		out.NavigateTo = "/meeting/" + call.ID
	}
	return out, nil
}

// ResolveJoinLink constructs the shareable URL for a call. Pure function.
func (r *Resolver) ResolveJoinLink(callID string) string {
	return r.baseURL + "/meeting/" + callID
}

func (r *Resolver) notify(fn func()) {
	if r.notifier != nil {
		fn()
	}
}

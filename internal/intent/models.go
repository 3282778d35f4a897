package intent

import (
	"sync"
	"time"
)

// Intent is the user's currently selected meeting workflow.
// At most one intent is active at a time.
type Intent string

const (
	IntentInstantMeeting   Intent = "instant_meeting"
	IntentScheduledMeeting Intent = "scheduled_meeting"
	IntentJoinMeeting      Intent = "join_meeting"
	IntentViewRecordings   Intent = "view_recordings"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentInstantMeeting, IntentScheduledMeeting, IntentJoinMeeting, IntentViewRecordings:
		return true
	default:
		return false
	}
}

// Draft is the mutable user input collected before a call is created.
// StartTime nil means the user never picked one; the effective start time is
// resolved at creation time, not at draft creation time.
type Draft struct {
	StartTime   *time.Time `json:"start_time,omitempty"`
	Description string     `json:"description,omitempty"`
}

// State tracks the active intent and its draft. Selecting a different intent
// discards the previous draft; dismissing discards everything and bumps a
// generation counter so an in-flight creation result for the old dialog is
// dropped when it lands.
type State struct {
	mu         sync.Mutex
	active     Intent
	draft      Draft
	generation uint64
}

func NewState() *State { return &State{} }

// Select activates an intent. A switch to a different kind clears the draft.
func (s *State) Select(i Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != i {
		s.draft = Draft{}
		s.generation++
	}
	s.active = i
}

// Dismiss closes the active dialog and discards its draft.
func (s *State) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
	s.draft = Draft{}
	s.generation++
}

func (s *State) SetStartTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.StartTime = &t
}

func (s *State) SetDescription(desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Description = desc
}

// Snapshot returns the active intent, a copy of the draft, and the current
// generation. The generation identifies the dialog a creation belongs to.
func (s *State) Snapshot() (Intent, Draft, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	if s.draft.StartTime != nil {
		t := *s.draft.StartTime
		d.StartTime = &t
	}
	return s.active, d, s.generation
}

func (s *State) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

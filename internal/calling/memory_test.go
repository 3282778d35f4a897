package calling

import (
	"context"
	"testing"
	"time"
)

func TestMemoryProvider_GetOrCreateIsIdempotent(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	first, err := p.GetOrCreateCall(ctx, GetOrCreateCallRequest{
		Kind:        "default",
		CallID:      "call-1",
		CreatedBy:   "u1",
		StartsAt:    time.Unix(1700000000, 0).UTC(),
		Description: "Standup",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second, err := p.GetOrCreateCall(ctx, GetOrCreateCallRequest{
		Kind:        "default",
		CallID:      "call-1",
		CreatedBy:   "u2",
		StartsAt:    time.Unix(1800000000, 0).UTC(),
		Description: "different",
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if first != second {
		t.Fatalf("expected same call for same identifier, got %+v vs %+v", first, second)
	}
	if second.Description != "Standup" {
		t.Fatalf("expected first create's metadata to win, got %q", second.Description)
	}
}

func TestMemoryProvider_JoinPushesConnectingThenJoined(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	if _, err := p.GetOrCreateCall(ctx, GetOrCreateCallRequest{Kind: "default", CallID: "c", CreatedBy: "u"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	a, err := p.Join(ctx, JoinRequest{CallID: "c", UserID: "u", DisplayName: "U"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if got := <-a.States(); got != StateConnecting {
		t.Fatalf("expected connecting first, got %v", got)
	}
	if got := <-a.States(); got != StateJoined {
		t.Fatalf("expected joined second, got %v", got)
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ParticipantCount != 1 {
		t.Fatalf("expected 1 participant, got %d", stats.ParticipantCount)
	}
}

func TestMemoryProvider_EndCallEndsAllAttachments(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	if _, err := p.GetOrCreateCall(ctx, GetOrCreateCallRequest{Kind: "default", CallID: "c", CreatedBy: "u"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	a, err := p.Join(ctx, JoinRequest{CallID: "c", UserID: "u"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := p.EndCall(ctx, "c"); err != nil {
		t.Fatalf("end: %v", err)
	}

	var last ConnectionState
	for s := range a.States() {
		last = s
	}
	if last != StateEnded {
		t.Fatalf("expected ended last, got %v", last)
	}

	if _, err := p.Join(ctx, JoinRequest{CallID: "c", UserID: "u2"}); err != ErrCallEnded {
		t.Fatalf("expected ErrCallEnded, got %v", err)
	}
}

func TestMemoryProvider_JoinUnknownCall(t *testing.T) {
	p := NewMemoryProvider()
	if _, err := p.Join(context.Background(), JoinRequest{CallID: "nope", UserID: "u"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoteAttachment_DropsReportsAfterClose(t *testing.T) {
	a := NewRemoteAttachment("c", nil, nil)
	a.Report(StateConnecting)
	if err := a.Leave(context.Background()); err != nil {
		t.Fatalf("leave: %v", err)
	}
	// Must not panic on a closed attachment.
	a.Report(StateJoined)
	a.ReportParticipants([]Participant{{UserID: "u"}})

	var states []ConnectionState
	for s := range a.States() {
		states = append(states, s)
	}
	if len(states) != 2 || states[1] != StateEnded {
		t.Fatalf("expected connecting then ended, got %v", states)
	}
}

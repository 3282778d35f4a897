package meetings

import (
	"context"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestService_RecordIsIdempotentByID(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	m := Meeting{ID: "call-1", OwnerID: "u1", Description: "Standup", StartsAt: time.Unix(1700000000, 0).UTC()}
	if err := svc.Record(ctx, m); err != nil {
		t.Fatalf("record: %v", err)
	}

	m.Description = "changed"
	if err := svc.Record(ctx, m); err != nil {
		t.Fatalf("second record: %v", err)
	}

	got, err := svc.Get(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "Standup" {
		t.Fatalf("expected first record to win, got %q", got.Description)
	}
}

func TestService_RecordValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Record(context.Background(), Meeting{OwnerID: "u"}); err != ErrInvalidMeeting {
		t.Fatalf("expected ErrInvalidMeeting, got %v", err)
	}
	if err := svc.Record(context.Background(), Meeting{ID: "c"}); err != ErrInvalidMeeting {
		t.Fatalf("expected ErrInvalidMeeting, got %v", err)
	}
}

func TestService_ListSplitsOnNow(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	now := time.Unix(1700000000, 0).UTC()
	svc.clock = fixedClock(now)
	ctx := context.Background()

	past := Meeting{ID: "past", OwnerID: "u1", StartsAt: now.Add(-time.Hour)}
	future := Meeting{ID: "future", OwnerID: "u1", StartsAt: now.Add(time.Hour)}
	other := Meeting{ID: "other", OwnerID: "u2", StartsAt: now.Add(time.Hour)}
	for _, m := range []Meeting{past, future, other} {
		if err := svc.Record(ctx, m); err != nil {
			t.Fatalf("record %s: %v", m.ID, err)
		}
	}

	up, err := svc.ListUpcoming(ctx, "u1")
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(up) != 1 || up[0].ID != "future" {
		t.Fatalf("expected [future], got %+v", up)
	}

	prev, err := svc.ListPrevious(ctx, "u1")
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if len(prev) != 1 || prev[0].ID != "past" {
		t.Fatalf("expected [past], got %+v", prev)
	}
}

func TestService_MarkEnded(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.Record(ctx, Meeting{ID: "c", OwnerID: "u", StartsAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.MarkEnded(ctx, "c"); err != nil {
		t.Fatalf("mark ended: %v", err)
	}
	got, err := svc.Get(ctx, "c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EndedAt == nil {
		t.Fatalf("expected ended_at to be set")
	}
}

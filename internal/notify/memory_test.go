package notify

import (
	"context"
	"testing"
)

func TestMemory_RecordsInOrderPerUser(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Warning(ctx, "u1", "Please select a date and time")
	m.Success(ctx, "u1", "Meeting successfully created")
	m.Error(ctx, "u2", "Failed to create a meeting")

	got := m.SentTo("u1")
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications for u1, got %d", len(got))
	}
	if got[0].Level != LevelWarning || got[1].Level != LevelSuccess {
		t.Fatalf("expected warning then success, got %v then %v", got[0].Level, got[1].Level)
	}
	if len(m.Sent()) != 3 {
		t.Fatalf("expected 3 total")
	}
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meeting-platform/internal/auth"
	"meeting-platform/internal/calling"
	"meeting-platform/internal/intent"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/notify"
	"meeting-platform/internal/session"

	"github.com/gin-gonic/gin"
)

type testEnv struct {
	router   *gin.Engine
	handlers Handlers
	toasts   *notify.Memory
	store    *meetings.Service
	guard    *MemoryCreationGuard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := calling.NewMemoryProvider()
	toasts := notify.NewMemory()
	store := meetings.NewService(meetings.NewMemoryRepo())
	resolver := intent.NewResolver(provider, toasts, store, "https://meet.example.com")
	guard := NewMemoryCreationGuard()

	h := Handlers{
		Resolver: resolver,
		Provider: provider,
		Meetings: store,
		Sessions: NewSessionRegistry(),
		Guard:    guard,
	}

	r := gin.New()
	// Test identity middleware standing in for the JWT one. X-Test-User
	// switches the caller; default is u1.
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Anonymous") == "" {
			uid := c.GetHeader("X-Test-User")
			if uid == "" {
				uid = "u1"
			}
			id := auth.Identity{UserID: uid, DisplayName: "Shan"}
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		}
		c.Next()
	})
	h.Register(r.Group("/v1"))

	return &testEnv{router: r, handlers: h, toasts: toasts, store: store, guard: guard}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateMeeting_InstantAutoJoins(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "instant_meeting"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var out intent.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.AutoJoin || out.NavigateTo == "" {
		t.Fatalf("expected auto join with navigation, got %+v", out)
	}
	if out.JoinLink != "https://meet.example.com/meeting/"+out.Call.ID {
		t.Fatalf("unexpected join link %q", out.JoinLink)
	}
}

func TestCreateMeeting_ScheduledShowsLink(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/v1/meetings", gin.H{
		"kind":        "scheduled_meeting",
		"starts_at":   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"description": "Planning",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var out intent.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AutoJoin || out.NavigateTo != "" {
		t.Fatalf("expected link view instead of navigation, got %+v", out)
	}

	// The link endpoint must agree with the creation outcome.
	w = e.do(t, http.MethodGet, "/v1/meetings/"+out.Call.ID+"/link", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var link struct {
		JoinLink string `json:"join_link"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if link.JoinLink != out.JoinLink {
		t.Fatalf("link mismatch: %q vs %q", link.JoinLink, out.JoinLink)
	}
}

func TestCreateMeeting_UnauthenticatedIsSilent(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "instant_meeting"}, "X-Test-Anonymous", "1")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(e.toasts.Sent()) != 0 {
		t.Fatalf("expected no toasts for silent no-op, got %+v", e.toasts.Sent())
	}
}

func TestCreateMeeting_GuardRejectsConcurrentCreate(t *testing.T) {
	e := newTestEnv(t)

	release, ok, err := e.guard.Acquire(context.Background(), "u1")
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	defer release()

	w := e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "instant_meeting"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a create is in flight, got %d", w.Code)
	}
}

func TestMeetingLink_UnknownMeeting(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/v1/meetings/nope/link", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSelectIntent_RecordingsNavigates(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/v1/intents", gin.H{"intent": "view_recordings"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		NavigateTo string `json:"navigate_to"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.NavigateTo != "/recordings" {
		t.Fatalf("expected /recordings, got %q", out.NavigateTo)
	}

	w = e.do(t, http.MethodPost, "/v1/intents", gin.H{"intent": "scheduled_meeting"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for dialog intents, got %d", w.Code)
	}
}

func TestUpdateDraft_FeedsCreation(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/v1/intents", gin.H{"intent": "scheduled_meeting"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("select: expected 204, got %d", w.Code)
	}
	w = e.do(t, http.MethodPatch, "/v1/intents/draft", gin.H{"description": "Planning"})
	if w.Code != http.StatusOK {
		t.Fatalf("draft: expected 200, got %d", w.Code)
	}

	// Creation without body fields picks up the stored draft.
	w = e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "scheduled_meeting"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var out intent.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AutoJoin {
		t.Fatalf("drafted description must suppress auto join, got %+v", out)
	}
	if out.Call.Description != "Planning" {
		t.Fatalf("expected drafted description, got %q", out.Call.Description)
	}
}

func TestDismissIntent_ClearsDraft(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/v1/intents", gin.H{"intent": "scheduled_meeting"})
	e.do(t, http.MethodPatch, "/v1/intents/draft", gin.H{"description": "Planning"})

	w := e.do(t, http.MethodDelete, "/v1/intents", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("dismiss: expected 204, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "instant_meeting"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var out intent.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.AutoJoin {
		t.Fatalf("dismissed draft must not leak into the next creation, got %+v", out)
	}
}

func TestCreateMeeting_DraftNeverCrossesUsers(t *testing.T) {
	e := newTestEnv(t)

	// alice fills in a dialog draft.
	e.do(t, http.MethodPost, "/v1/intents", gin.H{"intent": "scheduled_meeting"})
	w := e.do(t, http.MethodPatch, "/v1/intents/draft", gin.H{"description": "Alice planning"})
	if w.Code != http.StatusOK {
		t.Fatalf("draft: expected 200, got %d", w.Code)
	}

	// bob's pure instant meeting must not inherit it.
	w = e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "instant_meeting"}, "X-Test-User", "bob")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var out intent.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.AutoJoin || out.NavigateTo == "" {
		t.Fatalf("expected auto join for bob's instant meeting, got %+v", out)
	}
	if out.Call.Description == "Alice planning" {
		t.Fatalf("bob's meeting inherited alice's draft: %+v", out)
	}

	// alice's draft is still hers.
	w = e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "scheduled_meeting"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Call.Description != "Alice planning" {
		t.Fatalf("expected alice's drafted description, got %q", out.Call.Description)
	}
}

func TestDismissIntent_OnlyAffectsCaller(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, http.MethodPost, "/v1/intents", gin.H{"intent": "instant_meeting"})
	e.do(t, http.MethodPost, "/v1/intents", gin.H{"intent": "instant_meeting"}, "X-Test-User", "bob")

	// bob dismisses his dialog; u1's creation still lands.
	w := e.do(t, http.MethodDelete, "/v1/intents", nil, "X-Test-User", "bob")
	if w.Code != http.StatusNoContent {
		t.Fatalf("dismiss: expected 204, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/v1/meetings", gin.H{"kind": "instant_meeting"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 after another user's dismissal, got %d: %s", w.Code, w.Body.String())
	}
}

func joinSession(t *testing.T, e *testEnv, callID string, personal bool) string {
	t.Helper()
	path := "/v1/meetings/" + callID + "/join"
	if personal {
		path += "?personal=true"
	}
	w := e.do(t, http.MethodPost, path, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("join: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out.SessionID
}

func waitForJoined(t *testing.T, e *testEnv, sessionID string) session.View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := e.do(t, http.MethodGet, "/v1/sessions/"+sessionID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("view: expected 200, got %d", w.Code)
		}
		var v session.View
		if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !v.Loading {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached joined state")
	return session.View{}
}

func TestJoinAndControlSession(t *testing.T) {
	e := newTestEnv(t)
	id := joinSession(t, e, "call-1", false)

	v := waitForJoined(t, e, id)
	if v.Layout != session.LayoutDefault {
		t.Fatalf("expected default layout, got %q", v.Layout)
	}
	if !v.Controls.CanEndForEveryone {
		t.Fatalf("expected end-for-everyone control for a regular call")
	}

	w := e.do(t, http.MethodPost, "/v1/sessions/"+id+"/layout", gin.H{"layout": "speaker-left"})
	if w.Code != http.StatusOK {
		t.Fatalf("layout: expected 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Composition.Strip != session.StripRight {
		t.Fatalf("speaker-left must render the strip on the right, got %q", v.Composition.Strip)
	}

	w = e.do(t, http.MethodPost, "/v1/sessions/"+id+"/participants/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/v1/sessions/"+id+"/leave", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("leave: expected 204, got %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/v1/sessions/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected session gone after leave, got %d", w.Code)
	}
}

func TestEndSession_PersonalRoomForbidden(t *testing.T) {
	e := newTestEnv(t)
	id := joinSession(t, e, "personal-1", true)
	waitForJoined(t, e, id)

	w := e.do(t, http.MethodPost, "/v1/sessions/"+id+"/end", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for personal room end, got %d", w.Code)
	}

	// Leaving is still allowed.
	w = e.do(t, http.MethodPost, "/v1/sessions/"+id+"/leave", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("leave: expected 204, got %d", w.Code)
	}
}

func TestSetLayout_UnknownLayoutRejected(t *testing.T) {
	e := newTestEnv(t)
	id := joinSession(t, e, "call-2", false)
	waitForJoined(t, e, id)

	w := e.do(t, http.MethodPost, "/v1/sessions/"+id+"/layout", gin.H{"layout": "cinema"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown layout, got %d", w.Code)
	}
}

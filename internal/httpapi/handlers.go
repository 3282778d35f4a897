package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"meeting-platform/internal/auth"
	"meeting-platform/internal/calling"
	"meeting-platform/internal/intent"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/session"
	"meeting-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers wires HTTP requests to the meeting workflows.
// No business logic here; everything delegates to internal modules.
type Handlers struct {
	Resolver *intent.Resolver
	Provider calling.Provider
	Meetings *meetings.Service
	Sessions *SessionRegistry
	Guard    CreationGuard
}

type selectIntentRequest struct {
	Intent intent.Intent `json:"intent" binding:"required"`
}

// SelectIntent activates a workflow for the caller. Recordings navigates
// immediately; the other intents open a dialog client-side.
func (h Handlers) SelectIntent(c *gin.Context) {
	user, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req selectIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	route, err := h.Resolver.SelectIntent(user.UserID, req.Intent)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown intent"})
		return
	}
	if route != "" {
		c.JSON(http.StatusOK, gin.H{"navigate_to": route})
		return
	}
	c.Status(http.StatusNoContent)
}

// DismissIntent closes the caller's active dialog and discards its draft. A
// creation still in flight is not canceled; its result will be dropped when
// it lands. Other users' dialogs are untouched.
func (h Handlers) DismissIntent(c *gin.Context) {
	user, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	h.Resolver.StateFor(user.UserID).Dismiss()
	c.Status(http.StatusNoContent)
}

type updateDraftRequest struct {
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// UpdateDraft stores dialog input as the user fills it in. Fields absent from
// the body are left untouched.
func (h Handlers) UpdateDraft(c *gin.Context) {
	user, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req updateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	st := h.Resolver.StateFor(user.UserID)
	if req.StartsAt != nil {
		st.SetStartTime(*req.StartsAt)
	}
	if req.Description != nil {
		st.SetDescription(*req.Description)
	}
	active, draft, _ := st.Snapshot()
	c.JSON(http.StatusOK, gin.H{"intent": active, "draft": draft})
}

type createMeetingRequest struct {
	Kind        intent.Intent `json:"kind" binding:"required"`
	StartsAt    *time.Time    `json:"starts_at,omitempty"`
	Description string        `json:"description,omitempty"`
}

// CreateMeeting runs the create-or-fetch workflow for an instant or
// scheduled meeting.
func (h Handlers) CreateMeeting(c *gin.Context) {
	user, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		// Precondition-missing is a silent no-op: plain status, no toast.
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if h.Guard != nil {
		release, ok, err := h.Guard.Acquire(c.Request.Context(), user.UserID)
		if err != nil {
			logger.FromGin(c).Error("creation guard failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "creation guard unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a meeting creation is already in progress"})
			return
		}
		defer release()
	}

	// Body fields override whatever the caller's dialog accumulated.
	_, draft, _ := h.Resolver.StateFor(user.UserID).Snapshot()
	if req.StartsAt != nil {
		draft.StartTime = req.StartsAt
	}
	if req.Description != "" {
		draft.Description = req.Description
	}

	out, err := h.Resolver.CreateOrFetchCall(c.Request.Context(), user, req.Kind, draft)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, out)
	case errors.Is(err, intent.ErrNoIdentity):
		c.AbortWithStatus(http.StatusUnauthorized)
	case errors.Is(err, intent.ErrNoProvider):
		c.AbortWithStatus(http.StatusServiceUnavailable)
	case errors.Is(err, intent.ErrInvalidIntent):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "intent cannot create a meeting"})
	case errors.Is(err, intent.ErrDismissed):
		// Result dropped; nothing for the client to render.
		c.Status(http.StatusNoContent)
	default:
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "meeting creation failed"})
	}
}

// MeetingLink returns the shareable join link for an existing meeting.
func (h Handlers) MeetingLink(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Meetings.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, meetings.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown meeting"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"join_link": h.Resolver.ResolveJoinLink(id)})
}

// ListUpcoming and ListPrevious back the home screen meeting lists.
func (h Handlers) ListUpcoming(c *gin.Context) { h.list(c, h.Meetings.ListUpcoming) }
func (h Handlers) ListPrevious(c *gin.Context) { h.list(c, h.Meetings.ListPrevious) }

func (h Handlers) list(c *gin.Context, fn func(ctx context.Context, ownerID string) ([]meetings.Meeting, error)) {
	user, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	out, err := fn(c.Request.Context(), user.UserID)
	if err != nil {
		logger.FromGin(c).Error("meeting list failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	if out == nil {
		out = []meetings.Meeting{}
	}
	c.JSON(http.StatusOK, gin.H{"meetings": out})
}

// ListRecordings returns the provider's recordings for a call.
func (h Handlers) ListRecordings(c *gin.Context) {
	recs, err := h.Provider.ListRecordings(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, calling.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
			return
		}
		logger.FromGin(c).Error("recordings fetch failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "recordings unavailable"})
		return
	}
	if recs == nil {
		recs = []calling.Recording{}
	}
	c.JSON(http.StatusOK, gin.H{"recordings": recs})
}

// JoinMeeting attaches the caller to a call and spins up a session
// controller for it. The personal query parameter mirrors the meeting URL;
// it suppresses the end-for-everyone control.
func (h Handlers) JoinMeeting(c *gin.Context) {
	user, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id := c.Param("id")
	call, err := h.Provider.GetOrCreateCall(c.Request.Context(), calling.GetOrCreateCallRequest{
		Kind:      "default",
		CallID:    id,
		CreatedBy: user.UserID,
		StartsAt:  time.Now().UTC(),
	})
	if err != nil {
		logger.FromGin(c).Error("call fetch failed", "call_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "call unavailable"})
		return
	}

	attachment, err := h.Provider.Join(c.Request.Context(), calling.JoinRequest{
		CallID:      call.ID,
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		if errors.Is(err, calling.ErrCallEnded) {
			c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "call has ended"})
			return
		}
		logger.FromGin(c).Error("call join failed", "call_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "join failed"})
		return
	}

	personal, _ := strconv.ParseBool(c.Query("personal"))
	ctrl := session.NewController(call, session.Options{PersonalRoom: personal})
	sessionID := h.Sessions.Add(ctrl, attachment)

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
		"view":       ctrl.Snapshot(),
	})
}

// SessionView returns the current render state.
func (h Handlers) SessionView(c *gin.Context) {
	ctrl, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

type setLayoutRequest struct {
	Layout session.LayoutMode `json:"layout" binding:"required"`
}

func (h Handlers) SetLayout(c *gin.Context) {
	ctrl, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req setLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	switch err := ctrl.SetLayout(req.Layout); {
	case errors.Is(err, session.ErrInvalidLayout):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown layout"})
		return
	case errors.Is(err, session.ErrSessionEnded):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "session has ended"})
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h Handlers) ToggleParticipants(c *gin.Context) {
	ctrl, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	ctrl.ToggleParticipants()
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h Handlers) SessionStats(c *gin.Context) {
	ctrl, ok := h.Sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	stats, err := ctrl.Stats(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// LeaveSession detaches the caller; the call keeps running for others.
func (h Handlers) LeaveSession(c *gin.Context) {
	id := c.Param("id")
	ctrl, ok := h.Sessions.Get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	if err := ctrl.Leave(c.Request.Context()); err != nil {
		logger.FromGin(c).Warn("session leave failed", "session_id", id, "err", err)
	}
	h.Sessions.Remove(id)
	c.Status(http.StatusNoContent)
}

// EndSession terminates the call for everyone. Refused for personal rooms.
func (h Handlers) EndSession(c *gin.Context) {
	id := c.Param("id")
	ctrl, ok := h.Sessions.Get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	err := ctrl.End(c.Request.Context())
	if errors.Is(err, session.ErrPersonalRoom) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "personal rooms cannot be ended for everyone"})
		return
	}
	if err != nil && !errors.Is(err, session.ErrNotAttached) {
		logger.FromGin(c).Warn("session end failed", "session_id", id, "err", err)
	}
	if h.Meetings != nil {
		if err := h.Meetings.MarkEnded(c.Request.Context(), ctrl.Call().ID); err != nil && !errors.Is(err, meetings.ErrNotFound) {
			logger.FromGin(c).Warn("meeting end mark failed", "call_id", ctrl.Call().ID, "err", err)
		}
	}
	h.Sessions.Remove(id)
	c.Status(http.StatusNoContent)
}

package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"meeting-platform/internal/calling"
	"meeting-platform/internal/session"
	"meeting-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the app origin; the access token on the
	// upgrade request is the actual gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// sessionCommand is what the browser sends over the session feed.
// report_state relays the SDK's connection-state notifications; the other
// ops are the in-call controls.
type sessionCommand struct {
	Op     string             `json:"op"`
	Layout session.LayoutMode `json:"layout,omitempty"`
	State  string             `json:"state,omitempty"`
}

type sessionEvent struct {
	Type string        `json:"type"`
	View *session.View `json:"view,omitempty"`
}

// stateReporter is satisfied by calling.RemoteAttachment.
type stateReporter interface {
	Report(calling.ConnectionState)
}

// SessionFeed upgrades to a WebSocket and streams render-state views for a
// session while accepting control commands. The connection closes when the
// session ends.
func (h Handlers) SessionFeed(c *gin.Context) {
	id := c.Param("id")
	ctrl, ok := h.Sessions.Get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.FromGin(c).Warn("websocket upgrade failed", "session_id", id, "err", err)
		return
	}
	defer conn.Close()

	log := logger.FromGin(c).With("session_id", id)

	views, cancel := ctrl.Subscribe()
	defer cancel()

	// Writer: initial snapshot, then every change, plus keepalive pings.
	// Closing the connection on exit unblocks the read loop below; without it
	// a silent client would keep the reader parked in ReadJSON forever.
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()

		if err := writeEvent(conn, sessionEvent{Type: "view", View: viewPtr(ctrl.Snapshot())}); err != nil {
			return
		}
		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			select {
			case v, ok := <-views:
				if !ok {
					return
				}
				if err := writeEvent(conn, sessionEvent{Type: "view", View: &v}); err != nil {
					return
				}
				if v.State == calling.StateEnded.String() {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
						time.Now().Add(wsWriteTimeout))
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	// Reader: apply commands until the peer goes away or the feed closes.
	for {
		var cmd sessionCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		h.applyCommand(c, ctrl, id, cmd, log)

		select {
		case <-done:
			return
		default:
		}
	}
	<-done
}

func (h Handlers) applyCommand(c *gin.Context, ctrl *session.Controller, id string, cmd sessionCommand, log *slog.Logger) {
	switch cmd.Op {
	case "layout":
		if err := ctrl.SetLayout(cmd.Layout); err != nil {
			log.Warn("layout command rejected", "layout", cmd.Layout)
		}
	case "toggle_participants":
		ctrl.ToggleParticipants()
	case "report_state":
		state, ok := calling.ParseConnectionState(cmd.State)
		if !ok {
			log.Warn("state report rejected", "state", cmd.State)
			return
		}
		if a, found := h.Sessions.Attachment(id); found {
			if reporter, canReport := a.(stateReporter); canReport {
				reporter.Report(state)
			}
		}
	case "leave":
		_ = ctrl.Leave(c.Request.Context())
		h.Sessions.Remove(id)
	case "end":
		if err := ctrl.End(c.Request.Context()); err != nil {
			log.Warn("end command rejected", "err", err)
			return
		}
		h.Sessions.Remove(id)
	default:
		log.Warn("unknown session command", "op", cmd.Op)
	}
}

func writeEvent(conn *websocket.Conn, ev sessionEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(ev)
}

func viewPtr(v session.View) *session.View { return &v }

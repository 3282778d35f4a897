package httpapi

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func dialFeed(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + sessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestSessionFeed_PushesViewsAndCommands(t *testing.T) {
	e := newTestEnv(t)
	id := joinSession(t, e, "feed-1", false)
	waitForJoined(t, e, id)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialFeed(t, srv, id)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev struct {
		Type string `json:"type"`
		View struct {
			Layout string `json:"layout"`
		} `json:"view"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("initial view: %v", err)
	}
	if ev.Type != "view" {
		t.Fatalf("expected view event, got %q", ev.Type)
	}

	if err := conn.WriteJSON(gin.H{"op": "layout", "layout": "grid"}); err != nil {
		t.Fatalf("layout command: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.View.Layout == "grid" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("layout change never reached the feed")
		}
	}
}

func TestSessionFeed_DisconnectsSilentClientAfterEnd(t *testing.T) {
	e := newTestEnv(t)
	id := joinSession(t, e, "feed-2", false)
	waitForJoined(t, e, id)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialFeed(t, srv, id)
	defer conn.Close()

	if err := conn.WriteJSON(gin.H{"op": "end"}); err != nil {
		t.Fatalf("end command: %v", err)
	}

	// Drain until the feed stops sending.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				t.Fatalf("feed kept streaming after session end")
			}
			break
		}
	}

	// The client stays silent and keeps the socket open; the server must tear
	// the connection down rather than leave its reader parked.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(100*time.Millisecond))
		if err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("connection still writable long after session end")
}

func TestSessionFeed_UnknownSession(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/v1/sessions/nope/ws", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

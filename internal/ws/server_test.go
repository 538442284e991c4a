package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"parley/internal/models"

	"github.com/gorilla/websocket"
)

// chatServer speaks the backend's socket protocol: it accepts one token,
// acknowledges the auth frame and echoes direct messages back to the sender.
type chatServer struct {
	token    string
	upgrader websocket.Upgrader

	mu       sync.Mutex
	received []map[string]any
	conns    []*websocket.Conn
}

func newChatServer(t *testing.T, token string) (*chatServer, string) {
	t.Helper()
	s := &chatServer{
		token: token,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func (s *chatServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") != s.token {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()
	defer func() { _ = conn.Close() }()

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, msg)
		s.mu.Unlock()

		var reply any
		switch msg["type"] {
		case "auth":
			reply = map[string]any{"type": "authenticated", "message": "Successfully authenticated"}
		case "ping":
			reply = map[string]any{"type": "pong"}
		case "status_request":
			reply = map[string]any{"type": "status", "user": msg["target"], "status": "online"}
		case "message":
			reply = map[string]any{
				"type":      "message",
				"_id":       "m1",
				"client_id": msg["client_id"],
				"sender":    "me@example.com",
				"receiver":  msg["receiver"],
				"content":   msg["content"],
				"timestamp": "2024-01-01T10:00:00",
			}
		default:
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// kick drops every open connection from the server side.
func (s *chatServer) kick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func (s *chatServer) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.received {
		out = append(out, m["type"].(string))
	}
	return out
}

func nextFrame(t *testing.T, h *mockHandler) models.InboundFrame {
	t.Helper()
	select {
	case f := <-h.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame dispatched")
	}
	return nil
}

func TestGorillaDialer_EndToEnd(t *testing.T) {
	srv, url := newChatServer(t, "secret")
	h := newMockHandler()
	s := NewSession(Config{
		Token:     "secret",
		Subscribe: models.StatusRequestFrame{Target: "bob@example.com"},
	}, NewDialer(url, time.Second), h)
	run(s)
	defer s.Close()

	expectState(t, h, models.StateConnected)

	status, ok := nextFrame(t, h).(models.StatusEvent)
	if !ok || status.User != "bob@example.com" || status.Status != models.PresenceOnline {
		t.Fatalf("expected online status of bob, got %+v", status)
	}

	if err := s.Send(models.DirectMessageFrame{Receiver: "bob@example.com", Content: "hi", ClientID: "c1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	echo, ok := nextFrame(t, h).(models.IncomingMessage)
	if !ok || echo.ClientID != "c1" || echo.Content != "hi" {
		t.Fatalf("unexpected echo %+v", echo)
	}

	got := srv.types()
	want := []string{"auth", "status_request", "message"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("server received %v, want %v", got, want)
	}
}

func TestGorillaDialer_ServerDrop(t *testing.T) {
	srv, url := newChatServer(t, "secret")
	h := newMockHandler()
	s := NewSession(Config{Token: "secret", Backoff: Backoff{Base: 10 * time.Millisecond, Max: 10 * time.Millisecond}, MaxRetries: 3},
		NewDialer(url, time.Second), h)
	run(s)
	defer s.Close()

	expectState(t, h, models.StateConnected)
	srv.kick()
	expectState(t, h, models.StateDisconnected)
	expectState(t, h, models.StateConnected)
	if s.Attempts() != 0 {
		t.Errorf("attempts after reconnect = %d, want 0", s.Attempts())
	}
}

func TestGorillaDialer_Rejected(t *testing.T) {
	_, url := newChatServer(t, "secret")
	d := NewDialer(url, time.Second)
	if _, err := d.Dial(t.Context(), "wrong"); err == nil {
		t.Fatal("expected handshake to fail for a bad token")
	}
}

package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame OutboundFrame
		want  map[string]any
	}{
		{"Auth", AuthFrame{Token: "t0k"}, map[string]any{"type": "auth", "token": "t0k"}},
		{"JoinGroup", JoinGroupFrame{GroupID: "g1"}, map[string]any{"type": "join_group", "group_id": "g1"}},
		{"Ping", PingFrame{}, map[string]any{"type": "ping"}},
		{"Typing stop keeps flag", TypingFrame{Receiver: "a@example.com"}, map[string]any{"type": "typing", "receiver": "a@example.com", "isTyping": false}},
		{"Group typing", TypingFrame{GroupID: "g1", IsTyping: true}, map[string]any{"type": "typing", "group_id": "g1", "isTyping": true}},
		{"StatusRequest", StatusRequestFrame{Target: "a@example.com"}, map[string]any{"type": "status_request", "target": "a@example.com"}},
		{"Direct message", DirectMessageFrame{Receiver: "a@example.com", Content: "hi", ClientID: "c1"}, map[string]any{"type": "message", "receiver": "a@example.com", "content": "hi", "client_id": "c1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeFrame(tt.frame)
			if err != nil {
				t.Fatalf("EncodeFrame() error = %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("encoded frame is not JSON: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("EncodeFrame() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("field %s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestDecodeInbound(t *testing.T) {
	t.Run("Message", func(t *testing.T) {
		f, err := DecodeInbound([]byte(`{"type":"message","sender":"a@example.com","content":"Hello?","timestamp":"2024-01-01T10:00:00"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		msg, ok := f.(IncomingMessage)
		if !ok {
			t.Fatalf("expected IncomingMessage, got %T", f)
		}
		if msg.Sender != "a@example.com" || msg.Content != "Hello?" {
			t.Errorf("wrong message: %+v", msg)
		}
	})

	t.Run("GroupMessage", func(t *testing.T) {
		f, err := DecodeInbound([]byte(`{"type":"group_message","message":{"_id":"m1","sender":"b@example.com","content":"yo","timestamp":"t","group_id":"g1"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		gm := f.(IncomingGroupMessage)
		if gm.Message.ID != "m1" || gm.Message.GroupID != "g1" {
			t.Errorf("wrong group message: %+v", gm)
		}
	})

	t.Run("Typing", func(t *testing.T) {
		f, err := DecodeInbound([]byte(`{"type":"typing","sender":"b@example.com","isTyping":false,"group_id":"g1"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		te := f.(TypingEvent)
		if te.IsTyping || te.GroupID != "g1" {
			t.Errorf("wrong typing event: %+v", te)
		}
	})

	t.Run("Unknown type is not an error", func(t *testing.T) {
		f, err := DecodeInbound([]byte(`{"type":"read_receipt"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.FrameType() != "read_receipt" {
			t.Errorf("expected unknown frame type to be kept, got %s", f.FrameType())
		}
	})

	malformed := []struct {
		name string
		data string
	}{
		{"Not JSON", `{"type":`},
		{"Not an object", `"message"`},
		{"Null", `null`},
		{"Missing type", `{"sender":"a"}`},
		{"Message without content", `{"type":"message","sender":"a"}`},
		{"Group message without group", `{"type":"group_message","message":{"sender":"a","content":"x"}}`},
		{"Typing without flag", `{"type":"typing","sender":"a"}`},
		{"Status without user", `{"type":"status","status":"online"}`},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.data))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("expected ErrMalformedFrame, got %v", err)
			}
		})
	}
}

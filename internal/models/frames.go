package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned by DecodeInbound for frames that are not
// valid JSON objects, carry no type, or miss fields their type requires.
var ErrMalformedFrame = errors.New("malformed frame")

type FrameType string

const (
	// Client -> server.
	FrameAuth          FrameType = "auth"
	FrameJoinGroup     FrameType = "join_group"
	FrameStatusRequest FrameType = "status_request"
	FramePing          FrameType = "ping"

	// Both directions.
	FrameMessage      FrameType = "message"
	FrameGroupMessage FrameType = "group_message"
	FrameTyping       FrameType = "typing"

	// Server -> client.
	FrameAuthenticated FrameType = "authenticated"
	FrameStatus        FrameType = "status"
	FrameRefresh       FrameType = "refresh"
	FramePong          FrameType = "pong"
	FrameError         FrameType = "error"
	FrameGroupJoined   FrameType = "group_joined"
	FrameGroupCreated  FrameType = "group_created"
)

// OutboundFrame is one of the frames the client is allowed to send.
type OutboundFrame interface {
	FrameType() FrameType
	outbound()
}

type AuthFrame struct {
	Token string `json:"token"`
}

type JoinGroupFrame struct {
	GroupID string `json:"group_id"`
}

type DirectMessageFrame struct {
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
	ClientID string `json:"client_id,omitempty"`
}

type GroupMessageFrame struct {
	GroupID  string `json:"group_id"`
	Content  string `json:"content"`
	ClientID string `json:"client_id,omitempty"`
}

// TypingFrame carries either Receiver (direct) or GroupID (group).
type TypingFrame struct {
	Receiver string `json:"receiver,omitempty"`
	GroupID  string `json:"group_id,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

type StatusRequestFrame struct {
	Target string `json:"target"`
}

type PingFrame struct{}

func (AuthFrame) FrameType() FrameType          { return FrameAuth }
func (JoinGroupFrame) FrameType() FrameType     { return FrameJoinGroup }
func (DirectMessageFrame) FrameType() FrameType { return FrameMessage }
func (GroupMessageFrame) FrameType() FrameType  { return FrameGroupMessage }
func (TypingFrame) FrameType() FrameType        { return FrameTyping }
func (StatusRequestFrame) FrameType() FrameType { return FrameStatusRequest }
func (PingFrame) FrameType() FrameType          { return FramePing }

func (AuthFrame) outbound()          {}
func (JoinGroupFrame) outbound()     {}
func (DirectMessageFrame) outbound() {}
func (GroupMessageFrame) outbound()  {}
func (TypingFrame) outbound()        {}
func (StatusRequestFrame) outbound() {}
func (PingFrame) outbound()          {}

// EncodeFrame marshals f as a JSON object with its "type" discriminator.
func EncodeFrame(f OutboundFrame) ([]byte, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", f.FrameType(), err)
	}
	obj := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", f.FrameType(), err)
	}
	obj["type"], _ = json.Marshal(f.FrameType())
	return json.Marshal(obj)
}

// InboundFrame is one of the frames the server may send.
type InboundFrame interface {
	FrameType() FrameType
	inbound()
}

type Authenticated struct {
	Message string `json:"message,omitempty"`
}

// IncomingMessage is a direct message pushed by the server.
// ID and ClientID are only present on servers that echo them.
type IncomingMessage struct {
	ID        string `json:"_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type IncomingGroupMessage struct {
	Message Message `json:"message"`
}

type TypingEvent struct {
	Sender   string `json:"sender"`
	IsTyping bool   `json:"isTyping"`
	GroupID  string `json:"group_id,omitempty"`
}

type StatusEvent struct {
	User   string   `json:"user"`
	Status Presence `json:"status"`
}

type Refresh struct{}

type Pong struct{}

type ErrorEvent struct {
	Message string `json:"message"`
}

type GroupJoined struct {
	GroupID string `json:"group_id"`
}

type GroupCreated struct {
	Group Group `json:"group"`
}

// Unknown is any frame whose type is not recognised.
type Unknown struct {
	Type FrameType
}

func (Authenticated) FrameType() FrameType        { return FrameAuthenticated }
func (IncomingMessage) FrameType() FrameType      { return FrameMessage }
func (IncomingGroupMessage) FrameType() FrameType { return FrameGroupMessage }
func (TypingEvent) FrameType() FrameType          { return FrameTyping }
func (StatusEvent) FrameType() FrameType          { return FrameStatus }
func (Refresh) FrameType() FrameType              { return FrameRefresh }
func (Pong) FrameType() FrameType                 { return FramePong }
func (ErrorEvent) FrameType() FrameType           { return FrameError }
func (GroupJoined) FrameType() FrameType          { return FrameGroupJoined }
func (GroupCreated) FrameType() FrameType         { return FrameGroupCreated }
func (u Unknown) FrameType() FrameType            { return u.Type }

func (Authenticated) inbound()        {}
func (IncomingMessage) inbound()      {}
func (IncomingGroupMessage) inbound() {}
func (TypingEvent) inbound()          {}
func (StatusEvent) inbound()          {}
func (Refresh) inbound()              {}
func (Pong) inbound()                 {}
func (ErrorEvent) inbound()           {}
func (GroupJoined) inbound()          {}
func (GroupCreated) inbound()         {}
func (Unknown) inbound()              {}

// DecodeInbound is the single decode step for everything read off the socket.
// Unrecognised types decode to Unknown without error.
func DecodeInbound(data []byte) (InboundFrame, error) {
	var env struct {
		Type FrameType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	switch env.Type {
	case FrameAuthenticated:
		return decode(data, func(Authenticated) error { return nil })
	case FrameMessage:
		return decode(data, func(f IncomingMessage) error {
			return check(f.Sender != "" && f.Content != "", "sender and content are required")
		})
	case FrameGroupMessage:
		return decode(data, func(f IncomingGroupMessage) error {
			m := f.Message
			return check(m.GroupID != "" && m.Sender != "" && m.Content != "",
				"message.group_id, message.sender and message.content are required")
		})
	case FrameTyping:
		var f struct {
			Sender   string `json:"sender"`
			IsTyping *bool  `json:"isTyping"`
			GroupID  string `json:"group_id"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.Sender == "" || f.IsTyping == nil {
			return nil, fmt.Errorf("%w: typing: sender and isTyping are required", ErrMalformedFrame)
		}
		return TypingEvent{Sender: f.Sender, IsTyping: *f.IsTyping, GroupID: f.GroupID}, nil
	case FrameStatus:
		return decode(data, func(f StatusEvent) error {
			return check(f.User != "" && f.Status != "", "user and status are required")
		})
	case FrameRefresh:
		return Refresh{}, nil
	case FramePong:
		return Pong{}, nil
	case FrameError:
		return decode(data, func(ErrorEvent) error { return nil })
	case FrameGroupJoined:
		return decode(data, func(f GroupJoined) error {
			return check(f.GroupID != "", "group_id is required")
		})
	case FrameGroupCreated:
		return decode(data, func(f GroupCreated) error {
			return check(f.Group.ID != "", "group._id is required")
		})
	default:
		return Unknown{Type: env.Type}, nil
	}
}

func decode[T InboundFrame](data []byte, validate func(T) error) (InboundFrame, error) {
	var f T
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := validate(f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, f.FrameType(), err)
	}
	return f, nil
}

func check(ok bool, msg string) error {
	if ok {
		return nil
	}
	return errors.New(msg)
}

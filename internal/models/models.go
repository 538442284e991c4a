package models

import "errors"

var (
	ErrNotFound = errors.New("not found")
)

// ConnectionState is the lifecycle state of a socket session.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

func (s ConnectionState) String() string {
	return string(s)
}

// Presence represents the online status of a contact.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// User represents a user as returned by the backend.
type User struct {
	ID           string   `json:"_id,omitempty"`
	Email        string   `json:"email"`
	Name         string   `json:"name,omitempty"`
	Avatar       string   `json:"avatar,omitempty"`
	Status       Presence `json:"status,omitempty"`
	LastSeen     string   `json:"last_seen,omitempty"`
	LastSeenText string   `json:"last_seen_text,omitempty"`
}

// DisplayName returns the name if set, the email otherwise.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Identity is the locally persisted login state: bearer token and cached profile.
type Identity struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Message represents a chat message in a conversation.
type Message struct {
	ID        string `json:"_id"`
	ClientID  string `json:"client_id,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"` // RFC 3339
	GroupID   string `json:"group_id,omitempty"`

	// Pending is set on optimistic entries until the server copy is seen.
	Pending bool `json:"-"`
}

// Group represents a group conversation.
type Group struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Members     []string `json:"members"`
	CreatedBy   string   `json:"created_by,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Admins      []string `json:"admins,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
}

// Conversation identifies either a direct thread (by contact email) or a group thread.
type Conversation struct {
	Peer    string
	GroupID string
}

func (c Conversation) IsGroup() bool {
	return c.GroupID != ""
}

func (c Conversation) String() string {
	if c.IsGroup() {
		return "group:" + c.GroupID
	}
	return "direct:" + c.Peer
}

package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"parley/internal/models"
	"parley/internal/ws"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultTypingTTL = 10 * time.Second

var ErrEmptyMessage = errors.New("message is empty")

// Sender is the socket side of a conversation.
type Sender interface {
	Send(frame models.OutboundFrame) error
	State() models.ConnectionState
}

// Poster delivers a message over request/response when the socket is down.
type Poster interface {
	PostMessage(ctx context.Context, msg models.Message) (models.Message, error)
}

type Config struct {
	// Self is the local user's email.
	Self string
	// Peer is the contact email of a direct conversation.
	Peer string
	// GroupID selects a group conversation; Peer is ignored when set.
	GroupID        string
	TypingDebounce time.Duration
	// TypingTTL bounds how long a remote typing indicator survives without
	// a refresh. Zero disables expiry.
	TypingTTL time.Duration
}

type Option func(*Conversation)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Conversation) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Conversation) {
		c.now = now
		c.typing.now = now
	}
}

// Conversation is the controller of one open chat: its message list,
// outbox, typing state and presence. It consumes socket frames as a
// ws.Handler and is safe for concurrent use.
type Conversation struct {
	cfg    Config
	id     models.Conversation
	sender Sender
	poster Poster
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string

	composer *composer

	messages []models.Message
	// pending maps client IDs of unconfirmed local sends to list positions.
	pending map[string]int
	ids     map[string]bool
	keys    map[fingerprint]bool

	typing   *TypingSet
	state    models.ConnectionState
	presence models.Presence
	group    models.Group

	onRefresh func()
	onChange  func()

	mux sync.RWMutex
}

var _ ws.Handler = (*Conversation)(nil)

func NewConversation(cfg Config, poster Poster, opts ...Option) *Conversation {
	id := models.Conversation{Peer: cfg.Peer, GroupID: cfg.GroupID}
	if id.IsGroup() {
		id.Peer = ""
	}

	c := &Conversation{
		cfg:      cfg,
		id:       id,
		poster:   poster,
		log:      log.With().Str("component", "chat").Str("conversation", id.String()).Logger(),
		now:      time.Now,
		newID:    uuid.NewString,
		pending:  make(map[string]int),
		ids:      make(map[string]bool),
		keys:     make(map[fingerprint]bool),
		typing:   NewTypingSet(cfg.TypingTTL),
		state:    models.StateConnecting,
		presence: models.PresenceOffline,
		group:    models.Group{ID: cfg.GroupID},
	}
	c.composer = newComposer(cfg.TypingDebounce, c.sendTyping)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind attaches the socket session. Until then sends go over request/response.
func (c *Conversation) Bind(sender Sender) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.sender = sender
}

// OnRefresh registers the hook run when the server asks for a reload.
func (c *Conversation) OnRefresh(f func()) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.onRefresh = f
}

// OnChange registers the hook run after every visible change.
func (c *Conversation) OnChange(f func()) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.onChange = f
}

func (c *Conversation) ID() models.Conversation {
	return c.id
}

// Subscribe returns the frame announcing interest in this conversation
// once the socket is authenticated.
func (c *Conversation) Subscribe() models.OutboundFrame {
	if c.id.IsGroup() {
		return models.JoinGroupFrame{GroupID: c.id.GroupID}
	}
	return models.StatusRequestFrame{Target: c.id.Peer}
}

func (c *Conversation) HandleState(state models.ConnectionState) {
	c.mux.Lock()
	c.state = state
	c.mux.Unlock()
	c.changed()
}

func (c *Conversation) HandleFrame(frame models.InboundFrame) {
	switch f := frame.(type) {
	case models.IncomingMessage:
		if c.id.IsGroup() {
			return
		}
		msg := models.Message{
			ID:        f.ID,
			ClientID:  f.ClientID,
			Sender:    f.Sender,
			Receiver:  f.Receiver,
			Content:   f.Content,
			Timestamp: f.Timestamp,
		}
		switch {
		case f.Sender == c.id.Peer:
			c.appendMessage(msg)
		case f.Sender == c.cfg.Self && f.Receiver == c.id.Peer:
			c.confirmOrAppend(msg)
		default:
			return
		}
	case models.IncomingGroupMessage:
		if f.Message.GroupID != c.id.GroupID {
			return
		}
		if f.Message.Sender == c.cfg.Self {
			c.confirmOrAppend(f.Message)
		} else {
			c.appendMessage(f.Message)
		}
	case models.TypingEvent:
		if !c.addressed(f) {
			return
		}
		c.mux.Lock()
		c.typing.Set(f.Sender, f.IsTyping)
		c.mux.Unlock()
	case models.StatusEvent:
		if c.id.IsGroup() || f.User != c.id.Peer {
			return
		}
		c.SetPresence(f.Status)
		return
	case models.Refresh:
		c.mux.RLock()
		hook := c.onRefresh
		c.mux.RUnlock()
		if hook != nil {
			go hook()
		}
		return
	case models.GroupJoined:
		c.log.Debug().Str("group", f.GroupID).Msg("joined group")
		return
	case models.GroupCreated:
		c.log.Info().Str("group", f.Group.ID).Str("name", f.Group.Name).Msg("added to a new group")
		return
	default:
		return
	}
	c.changed()
}

func (c *Conversation) addressed(f models.TypingEvent) bool {
	if f.Sender == c.cfg.Self {
		return false
	}
	if c.id.IsGroup() {
		return f.GroupID == c.id.GroupID
	}
	return f.GroupID == "" && f.Sender == c.id.Peer
}

// Compose reports the current composer text; it drives the local typing
// indicator sent to the other side.
func (c *Conversation) Compose(text string) {
	c.composer.input(text)
}

func (c *Conversation) sendTyping(typing bool) {
	c.mux.RLock()
	sender := c.sender
	c.mux.RUnlock()
	if sender == nil || sender.State() != models.StateConnected {
		return
	}

	frame := models.TypingFrame{IsTyping: typing}
	if c.id.IsGroup() {
		frame.GroupID = c.id.GroupID
	} else {
		frame.Receiver = c.id.Peer
	}
	if err := sender.Send(frame); err != nil {
		c.log.Debug().Err(err).Bool("typing", typing).Msg("failed to send typing status")
	}
}

func (c *Conversation) SetPresence(p models.Presence) {
	c.mux.Lock()
	c.presence = p
	c.mux.Unlock()
	c.changed()
}

func (c *Conversation) SetGroup(g models.Group) {
	c.mux.Lock()
	c.group = g
	c.mux.Unlock()
	c.changed()
}

func (c *Conversation) State() models.ConnectionState {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.state
}

func (c *Conversation) Presence() models.Presence {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.presence
}

// Messages returns a copy of the list in display order.
func (c *Conversation) Messages() []models.Message {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return append([]models.Message(nil), c.messages...)
}

// Typing returns who is typing right now.
func (c *Conversation) Typing() []string {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.typing.Members()
}

// Close stops the typing debounce timer. The socket session is closed by
// its owner.
func (c *Conversation) Close() {
	c.composer.close()
}

func (c *Conversation) changed() {
	c.mux.RLock()
	hook := c.onChange
	c.mux.RUnlock()
	if hook != nil {
		hook()
	}
}

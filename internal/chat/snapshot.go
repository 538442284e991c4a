package chat

import (
	"parley/internal/content"
	"parley/internal/models"
	"parley/internal/replies"
)

// MessageView is a message prepared for display.
type MessageView struct {
	models.Message
	HTML string
	Mine bool
}

// View is a point-in-time copy of everything a UI renders for a conversation.
type View struct {
	Conversation models.Conversation
	Title        string
	Members      int
	Presence     models.Presence
	State        models.ConnectionState
	Messages     []MessageView
	Typing       string
	Suggestions  []string
}

// Reconnecting reports whether the passive reconnect indicator should show.
func (v View) Reconnecting() bool {
	return v.State != models.StateConnected
}

// Suggestions returns quick replies to the last message, or nil when it was
// sent by the local user or is a link.
func (c *Conversation) Suggestions() []string {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.suggestionsLocked()
}

func (c *Conversation) suggestionsLocked() []string {
	if len(c.messages) == 0 {
		return nil
	}
	last := c.messages[len(c.messages)-1]
	if last.Sender == c.cfg.Self || content.IsURL(last.Content) {
		return nil
	}
	return replies.ForMessage(last.Content)
}

func (c *Conversation) Snapshot() View {
	c.mux.Lock()
	defer c.mux.Unlock()

	v := View{
		Conversation: c.id,
		Title:        c.id.Peer,
		Presence:     c.presence,
		State:        c.state,
		Messages:     make([]MessageView, 0, len(c.messages)),
		Typing:       TypingText(c.typing.Members(), c.cfg.Self),
		Suggestions:  c.suggestionsLocked(),
	}
	if c.id.IsGroup() {
		v.Title = content.Sanitize(c.group.Name)
		v.Members = len(c.group.Members)
	}
	for _, m := range c.messages {
		v.Messages = append(v.Messages, MessageView{
			Message: m,
			HTML:    content.Render(m.Content),
			Mine:    m.Sender == c.cfg.Self,
		})
	}
	return v
}

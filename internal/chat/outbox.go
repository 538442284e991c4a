package chat

import (
	"context"
	"errors"
	"strings"

	"parley/internal/models"
	"parley/internal/ws"

	"golang.org/x/crypto/blake2b"
)

// TimestampLayout is used for locally created messages.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type fingerprint [blake2b.Size256]byte

func fingerprintOf(parts ...string) fingerprint {
	return blake2b.Sum256([]byte(strings.Join(parts, "\x00")))
}

// contentKey matches a server copy to an optimistic entry whose timestamp
// was set locally.
func contentKey(m models.Message) fingerprint {
	return fingerprintOf(m.Sender, m.Content)
}

// historyKey identifies a message regardless of whether it carries a server ID.
// Live direct frames have none.
func historyKey(m models.Message) fingerprint {
	return fingerprintOf(m.Sender, m.Timestamp, m.Content)
}

// Send appends content to the list right away and delivers it: over the
// socket when it is connected, otherwise with one request/response call.
// The returned message is the optimistic entry. A delivery error leaves the
// entry in place.
func (c *Conversation) Send(ctx context.Context, content string) (models.Message, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	id := c.newID()
	msg := models.Message{
		ID:        id,
		ClientID:  id,
		Sender:    c.cfg.Self,
		Receiver:  c.id.Peer,
		GroupID:   c.id.GroupID,
		Content:   text,
		Timestamp: c.now().UTC().Format(TimestampLayout),
		Pending:   true,
	}

	c.mux.Lock()
	c.pending[id] = len(c.messages)
	c.messages = append(c.messages, msg)
	sender := c.sender
	c.mux.Unlock()
	c.changed()

	c.composer.input("")

	if sender != nil && sender.State() == models.StateConnected {
		err := sender.Send(c.frameFor(msg))
		switch {
		case err == nil:
			return msg, nil
		case errors.Is(err, ws.ErrNotConnected), errors.Is(err, ws.ErrClosed):
			c.log.Debug().Err(err).Msg("socket refused message, posting instead")
		default:
			c.log.Error().Err(err).Str("client_id", id).Msg("failed to send message")
			return msg, err
		}
	}

	if c.poster == nil {
		return msg, ws.ErrNotConnected
	}
	saved, err := c.poster.PostMessage(ctx, msg)
	if err != nil {
		c.log.Error().Err(err).Str("client_id", id).Msg("failed to post message")
		return msg, err
	}
	if saved.ClientID == "" {
		saved.ClientID = id
	}
	c.confirmOrAppend(saved)
	return msg, nil
}

func (c *Conversation) frameFor(msg models.Message) models.OutboundFrame {
	if c.id.IsGroup() {
		return models.GroupMessageFrame{GroupID: c.id.GroupID, Content: msg.Content, ClientID: msg.ClientID}
	}
	return models.DirectMessageFrame{Receiver: c.id.Peer, Content: msg.Content, ClientID: msg.ClientID}
}

func (c *Conversation) appendMessage(msg models.Message) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.appendLocked(msg)
}

func (c *Conversation) appendLocked(msg models.Message) {
	msg.Pending = false
	c.messages = append(c.messages, msg)
	c.index(msg)
}

func (c *Conversation) index(msg models.Message) {
	if msg.ID != "" {
		c.ids[msg.ID] = true
	}
	c.keys[historyKey(msg)] = true
}

// confirmOrAppend reconciles a server copy of a local message with its
// optimistic entry, or appends it when no entry matches.
func (c *Conversation) confirmOrAppend(msg models.Message) {
	c.mux.Lock()
	if msg.ID != "" && c.ids[msg.ID] {
		c.mux.Unlock()
		return
	}
	if !c.confirmLocked(msg) {
		c.appendLocked(msg)
	}
	c.mux.Unlock()
	c.changed()
}

func (c *Conversation) confirmLocked(msg models.Message) bool {
	pos, ok := c.pending[msg.ClientID]
	if !ok {
		pos, ok = c.pendingByContent(msg)
	}
	if !ok {
		return false
	}

	entry := &c.messages[pos]
	delete(c.pending, entry.ClientID)
	if msg.ID != "" {
		entry.ID = msg.ID
	}
	if msg.Timestamp != "" {
		entry.Timestamp = msg.Timestamp
	}
	entry.Pending = false
	c.index(*entry)
	return true
}

// pendingByContent finds the oldest pending entry with the same sender and body.
func (c *Conversation) pendingByContent(msg models.Message) (int, bool) {
	key := contentKey(msg)
	best := -1
	for _, pos := range c.pending {
		if contentKey(c.messages[pos]) != key {
			continue
		}
		if best == -1 || pos < best {
			best = pos
		}
	}
	return best, best != -1
}

// Merge adds loaded history to the list. Messages already shown are
// skipped, local pending sends are confirmed in place, the rest are
// appended in the given order. It returns how many entries were appended.
func (c *Conversation) Merge(history []models.Message) int {
	c.mux.Lock()
	added := 0
	for _, m := range history {
		if (m.ID != "" && c.ids[m.ID]) || c.keys[historyKey(m)] {
			continue
		}
		if m.Sender == c.cfg.Self && c.confirmLocked(m) {
			continue
		}
		c.appendLocked(m)
		added++
	}
	c.mux.Unlock()

	c.changed()
	return added
}

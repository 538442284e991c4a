// Package history fills a conversation with what the server already has.
package history

import (
	"context"
	"fmt"
	"sort"

	"parley/internal/models"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Client is the subset of the request/response API the loader needs.
type Client interface {
	Contacts(ctx context.Context) ([]models.User, error)
	Messages(ctx context.Context, contact string) ([]models.Message, error)
	MarkRead(ctx context.Context, sender string) error
	Group(ctx context.Context, id string) (models.Group, error)
	GroupMessages(ctx context.Context, id string) ([]models.Message, error)
}

// Target receives loaded state. *chat.Conversation implements it.
type Target interface {
	ID() models.Conversation
	Merge(history []models.Message) int
	SetPresence(p models.Presence)
	SetGroup(g models.Group)
}

type Loader struct {
	client Client
	log    zerolog.Logger
}

func NewLoader(client Client) *Loader {
	return &Loader{
		client: client,
		log:    log.With().Str("component", "history").Logger(),
	}
}

// Load fetches history and metadata for the target's conversation with two
// parallel requests. A failed request is logged and leaves its part of the
// target untouched; the first failure is returned.
func (l *Loader) Load(ctx context.Context, t Target) error {
	id := t.ID()
	if id.IsGroup() {
		return l.loadGroup(ctx, t, id.GroupID)
	}
	return l.loadDirect(ctx, t, id.Peer)
}

func (l *Loader) loadDirect(ctx context.Context, t Target, peer string) error {
	var g errgroup.Group

	g.Go(func() error {
		msgs, err := l.client.Messages(ctx, peer)
		if err != nil {
			l.log.Error().Err(err).Str("contact", peer).Msg("failed to fetch messages")
			return fmt.Errorf("messages: %w", err)
		}
		added := t.Merge(chronological(msgs))
		l.log.Debug().Int("fetched", len(msgs)).Int("added", added).Str("contact", peer).Msg("history merged")

		if err := l.client.MarkRead(ctx, peer); err != nil {
			l.log.Warn().Err(err).Str("contact", peer).Msg("failed to mark messages read")
		}
		return nil
	})

	g.Go(func() error {
		contacts, err := l.client.Contacts(ctx)
		if err != nil {
			l.log.Error().Err(err).Msg("failed to fetch contacts")
			return fmt.Errorf("contacts: %w", err)
		}
		for _, c := range contacts {
			if c.Email == peer {
				t.SetPresence(c.Status)
				break
			}
		}
		return nil
	})

	return g.Wait()
}

func (l *Loader) loadGroup(ctx context.Context, t Target, groupID string) error {
	var g errgroup.Group

	g.Go(func() error {
		msgs, err := l.client.GroupMessages(ctx, groupID)
		if err != nil {
			l.log.Error().Err(err).Str("group", groupID).Msg("failed to fetch group messages")
			return fmt.Errorf("group messages: %w", err)
		}
		added := t.Merge(chronological(msgs))
		l.log.Debug().Int("fetched", len(msgs)).Int("added", added).Str("group", groupID).Msg("history merged")
		return nil
	})

	g.Go(func() error {
		group, err := l.client.Group(ctx, groupID)
		if err != nil {
			l.log.Error().Err(err).Str("group", groupID).Msg("failed to fetch group details")
			return fmt.Errorf("group: %w", err)
		}
		t.SetGroup(group)
		return nil
	})

	return g.Wait()
}

// chronological orders a batch oldest first. Group history arrives newest
// first; ties keep their server order.
func chronological(msgs []models.Message) []models.Message {
	out := append([]models.Message(nil), msgs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

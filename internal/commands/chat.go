package commands

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"parley/internal/api"
	"parley/internal/chat"
	"parley/internal/history"
	"parley/internal/http"
	"parley/internal/models"
	"parley/internal/ws"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const quitCommand = "/quit"

func (c *cli) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <email>",
		Short: "Open a conversation with a contact",
		Long: "Open a conversation with a contact. Every input line is sent as a message; " +
			quitCommand + " or end of input leaves.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd.Context(), models.Conversation{Peer: args[0]})
		},
	}
}

func (c *cli) groupChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <group-id>",
		Short: "Open a group conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd.Context(), models.Conversation{GroupID: args[0]})
		},
	}
}

func (c *cli) runChat(ctx context.Context, target models.Conversation) error {
	a := c.app
	if err := a.requireLogin(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel

	conv := chat.NewConversation(chat.Config{
		Self:           a.self(),
		Peer:           target.Peer,
		GroupID:        target.GroupID,
		TypingDebounce: a.cfg.TypingDebounce,
		TypingTTL:      a.cfg.TypingTTL,
	}, a.client)
	defer conv.Close()

	p := &printer{a: a, conv: conv}
	conv.OnChange(p.update)

	loader := history.NewLoader(a.client)
	reload := func() {
		if err := loader.Load(ctx, conv); err != nil && ctx.Err() == nil {
			a.printf("%s\n", api.UserMessage(err))
		}
	}
	conv.OnRefresh(reload)

	sess := ws.NewSession(ws.Config{
		Token:      a.session.Token(),
		Subscribe:  conv.Subscribe(),
		Backoff:    ws.Backoff{Base: a.cfg.ReconnectBase, Max: a.cfg.ReconnectMax},
		MaxRetries: a.cfg.MaxRetries,
		Heartbeat:  a.cfg.Heartbeat,
	}, ws.NewDialer(a.cfg.WSURL, a.cfg.RequestTimeout), conv, ws.WithMetrics(a.metrics))
	conv.Bind(sess)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })

	if a.cfg.MetricsAddr != "" {
		debug := http.NewDebugServer(a.cfg.MetricsAddr, a.registry, func() any {
			return status{
				Conversation: conv.ID().String(),
				State:        sess.State(),
				Attempts:     sess.Attempts(),
				Exhausted:    sess.Exhausted(),
				Messages:     len(conv.Messages()),
			}
		})
		g.Go(debug.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return debug.Shutdown(shutdownCtx)
		})
	}

	reload()
	p.update()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := a.readLine()
			if err != nil {
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		defer cancel()
		defer sess.Close()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok || strings.TrimSpace(line) == quitCommand {
					return nil
				}
				if strings.TrimSpace(line) == "" {
					continue
				}
				if _, err := conv.Send(gctx, line); err != nil {
					if errors.Is(err, api.ErrUnauthorized) {
						return err
					}
					a.printf("! not delivered: %s\n", api.UserMessage(err))
				}
			}
		}
	})

	err := g.Wait()
	if a.rejected.Load() {
		return api.ErrUnauthorized
	}
	return err
}

type status struct {
	Conversation string                 `json:"conversation"`
	State        models.ConnectionState `json:"state"`
	Attempts     int                    `json:"attempts"`
	Exhausted    bool                   `json:"exhausted"`
	Messages     int                    `json:"messages"`
}

// printer writes what changed in a conversation since the last update.
// Entries never move, so only the tail past the last printed one is new.
type printer struct {
	a    *app
	conv *chat.Conversation

	mu          sync.Mutex
	printed     int
	header      bool
	state       models.ConnectionState
	presence    models.Presence
	typing      string
	suggestions string
}

func (p *printer) update() {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.conv.Snapshot()

	if !p.header && v.Title != "" {
		p.header = true
		if v.Conversation.IsGroup() {
			p.a.printf("== %s (%d members)\n", v.Title, v.Members)
		} else {
			p.a.printf("== %s\n", v.Title)
			p.presence = models.PresenceOffline
		}
	}

	if v.State != p.state {
		p.state = v.State
		switch v.State {
		case models.StateConnected:
			p.a.printf("* connected\n")
		case models.StateDisconnected:
			p.a.printf("* reconnecting...\n")
		}
	}

	if !v.Conversation.IsGroup() && v.Presence != p.presence {
		p.presence = v.Presence
		p.a.printf("* %s is %s\n", v.Title, v.Presence)
	}

	for _, m := range v.Messages[min(p.printed, len(v.Messages)):] {
		who := m.Sender
		if m.Mine {
			who = "you"
		}
		p.a.printf("[%s] %s: %s\n", clock(m.Timestamp), who, m.Content)
	}
	p.printed = len(v.Messages)

	if v.Typing != p.typing {
		p.typing = v.Typing
		if v.Typing != "" {
			p.a.printf("* %s\n", v.Typing)
		}
	}

	s := strings.Join(v.Suggestions, " | ")
	if s != p.suggestions {
		p.suggestions = s
		if s != "" {
			p.a.printf("  suggestions: %s\n", s)
		}
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// clock renders a message timestamp as local HH:MM, or as-is when it does
// not parse.
func clock(ts string) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Local().Format("15:04")
		}
	}
	return ts
}

package commands

import (
	"context"
	"strings"

	"parley/internal/api"
	"parley/internal/content"
	"parley/internal/history"
	"parley/internal/models"

	"github.com/spf13/cobra"
)

func (c *cli) contactsCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List contacts and whether they are online",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := a.requireLogin(); err != nil {
				return err
			}
			if !watch {
				return c.printContacts(cmd.Context())
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a.cancel = cancel
			history.Poll(ctx, a.cfg.PollInterval, c.printContacts)
			if a.rejected.Load() {
				return api.ErrUnauthorized
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh the list periodically")
	return cmd
}

func (c *cli) printContacts(ctx context.Context) error {
	users, err := c.app.client.Contacts(ctx)
	if err != nil {
		return err
	}
	a := c.app
	if len(users) == 0 {
		a.printf("No contacts yet\n")
		return nil
	}
	for _, u := range users {
		a.printf("%-32s %-8s %s\n", u.DisplayName(), presenceLabel(u.Status), lastSeen(u))
	}
	a.printf("\n")
	return nil
}

func presenceLabel(p models.Presence) string {
	if p == models.PresenceOnline {
		return "online"
	}
	return "offline"
}

func lastSeen(u models.User) string {
	if u.Status == models.PresenceOnline {
		return ""
	}
	if u.LastSeenText != "" {
		return "last seen " + u.LastSeenText
	}
	return ""
}

func (c *cli) groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "group",
		Aliases: []string{"groups"},
		Short:   "List your groups",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := a.requireLogin(); err != nil {
				return err
			}
			groups, err := a.client.Groups(cmd.Context())
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				a.printf("No groups yet\n")
				return nil
			}
			for _, g := range groups {
				a.printf("%-26s %-24s %d members\n", g.ID, g.Name, len(g.Members))
			}
			return nil
		},
	}
	cmd.AddCommand(c.groupCreateCmd(), c.groupChatCmd())
	return cmd
}

func (c *cli) groupCreateCmd() *cobra.Command {
	var name string
	var members []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group with the given members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := a.requireLogin(); err != nil {
				return err
			}
			name = strings.TrimSpace(name)
			if err := content.ValidateGroup(name, members); err != nil {
				return err
			}
			g, err := a.client.CreateGroup(cmd.Context(), name, members)
			if err != nil {
				return err
			}
			a.printf("Created group %s (%s)\n", g.Name, g.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "group name")
	cmd.Flags().StringSliceVarP(&members, "member", "m", nil, "member email; repeat or comma-separated")
	return cmd
}

package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"parley/internal/api"
	"parley/internal/chat"
	"parley/internal/content"
	"parley/internal/models"
	"parley/internal/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/blake2b"
)

func (c *cli) sendCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "send <email> <text>...",
		Short: "Send one message without opening the conversation",
		Args: func(cmd *cobra.Command, args []string) error {
			if group != "" {
				return cobra.MinimumNArgs(1)(cmd, args)
			}
			return cobra.MinimumNArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := a.requireLogin(); err != nil {
				return err
			}

			cfg := chat.Config{Self: a.self(), GroupID: group}
			if group == "" {
				cfg.Peer, args = args[0], args[1:]
			}
			conv := chat.NewConversation(cfg, a.client)
			defer conv.Close()

			if _, err := conv.Send(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			a.printf("Sent\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "send to this group instead of a contact")
	return cmd
}

func (c *cli) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <email> <file>",
		Short: "Send an image or audio file to a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := a.requireLogin(); err != nil {
				return err
			}
			receiver, path := args[0], args[1]

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			_, mime, err := content.DetectMedia(data)
			if err != nil {
				return err
			}
			sum := blake2b.Sum256(data)
			hash := hex.EncodeToString(sum[:])

			cached, err := a.store.GetUpload(hash)
			switch {
			case err == nil:
				if _, err := a.client.SendMessage(cmd.Context(), receiver, cached.URL, uuid.NewString()); err != nil {
					return err
				}
				a.printf("Sent %s\n", cached.URL)
				return nil
			case !errors.Is(err, models.ErrNotFound):
				a.log.Warn().Err(err).Msg("upload cache lookup failed")
			}

			res, err := a.client.Upload(cmd.Context(), api.File{Name: path, Data: data}, a.self(), receiver)
			if err != nil {
				return err
			}
			link := res.Link()
			if link == "" {
				a.printf("Uploaded\n")
				return nil
			}
			if err := a.store.UpsertUpload(storage.Upload{
				Hash:     hash,
				URL:      link,
				MimeType: mime,
				Size:     int64(len(data)),
			}); err != nil {
				a.log.Warn().Err(err).Msg("failed to cache upload")
			}
			a.printf("Sent %s\n", link)
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"os"

	"parley/internal/api"
	"parley/internal/content"
	"parley/internal/models"

	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			var err error
			if email == "" {
				if email, err = a.prompt("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt("Password: "); err != nil {
					return err
				}
			}
			if err := content.ValidateLogin(email, password); err != nil {
				return err
			}

			id, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.session.Set(id); err != nil {
				return err
			}
			a.printf("Logged in as %s\n", id.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (asked when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (asked when empty)")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var email, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := content.ValidateSignup(email, password, confirm); err != nil {
				return err
			}
			if err := a.client.Register(cmd.Context(), email, password); err != nil {
				return err
			}
			a.printf("Registration successful! Please log in.\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password again")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.session.Clear(); err != nil {
				return err
			}
			c.app.printf("Logged out\n")
			return nil
		},
	}
}

func (c *cli) profileCmd() *cobra.Command {
	var username, avatar string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := a.requireLogin(); err != nil {
				return err
			}

			if username != "" {
				if err := content.ValidateUsername(username); err != nil {
					return err
				}
				if err := a.client.UpdateUsername(cmd.Context(), username); err != nil {
					return err
				}
				if err := a.session.UpdateUser(func(u *models.User) { u.Name = username }); err != nil {
					return err
				}
			}

			if avatar != "" {
				data, err := os.ReadFile(avatar)
				if err != nil {
					return fmt.Errorf("failed to read avatar: %w", err)
				}
				link, err := a.client.UpdateAvatar(cmd.Context(), api.File{Name: avatar, Data: data})
				if err != nil {
					return err
				}
				if err := a.session.UpdateUser(func(u *models.User) { u.Avatar = link }); err != nil {
					return err
				}
			}

			u := a.session.User()
			a.printf("Email:    %s\n", u.Email)
			a.printf("Username: %s\n", u.DisplayName())
			if u.Avatar != "" {
				a.printf("Avatar:   %s\n", u.Avatar)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "set a new username")
	cmd.Flags().StringVar(&avatar, "avatar", "", "upload a new avatar image (JPEG, PNG or GIF, up to 5MB)")
	return cmd
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"parley/internal/models"
)

type loginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

// Login exchanges credentials for a token and the user's profile.
func (c *Client) Login(ctx context.Context, email, password string) (models.Identity, error) {
	r, err := jsonRequest(http.MethodPost, "/api/login", "/api/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return models.Identity{}, err
	}
	r.anonymous = true
	var resp loginResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return models.Identity{}, err
	}
	if resp.Token == "" {
		return models.Identity{}, errors.New("login response carries no token")
	}
	if resp.User.Email == "" {
		resp.User.Email = email
	}
	return models.Identity{Token: resp.Token, User: resp.User}, nil
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	r, err := jsonRequest(http.MethodPost, "/api/register", "/api/register", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	r.anonymous = true
	return c.do(ctx, r, nil)
}

func (c *Client) Contacts(ctx context.Context) ([]models.User, error) {
	var users []models.User
	r := request{method: http.MethodGet, path: "/api/contacts", route: "/api/contacts"}
	if err := c.do(ctx, r, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Messages returns the direct history with contact, oldest first.
func (c *Client) Messages(ctx context.Context, contact string) ([]models.Message, error) {
	var msgs []models.Message
	r := request{method: http.MethodGet, path: "/api/messages/" + url.PathEscape(contact), route: "/api/messages/{contact}"}
	if err := c.do(ctx, r, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SendMessage(ctx context.Context, receiver, content, clientID string) (models.Message, error) {
	r, err := jsonRequest(http.MethodPost, "/api/messages/send", "/api/messages/send", map[string]string{
		"receiver":  receiver,
		"content":   content,
		"client_id": clientID,
	})
	if err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	if err := c.do(ctx, r, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (c *Client) MarkRead(ctx context.Context, sender string) error {
	r, err := jsonRequest(http.MethodPost, "/api/messages/read", "/api/messages/read", map[string]string{
		"sender": sender,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// PostMessage delivers an outbox entry to its direct or group endpoint.
func (c *Client) PostMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var (
		saved models.Message
		err   error
	)
	if msg.GroupID != "" {
		saved, err = c.SendGroupMessage(ctx, msg.GroupID, msg.Content, msg.ClientID)
	} else {
		saved, err = c.SendMessage(ctx, msg.Receiver, msg.Content, msg.ClientID)
	}
	if err != nil {
		return models.Message{}, err
	}
	if saved.ClientID == "" {
		saved.ClientID = msg.ClientID
	}
	return saved, nil
}

func (c *Client) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	r := request{method: http.MethodGet, path: "/api/groups", route: "/api/groups"}
	if err := c.do(ctx, r, &groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		c.groups.Set(g.ID, g)
	}
	return groups, nil
}

func (c *Client) CreateGroup(ctx context.Context, name string, members []string) (models.Group, error) {
	r, err := jsonRequest(http.MethodPost, "/api/groups/create", "/api/groups/create", map[string]any{
		"name":    name,
		"members": members,
	})
	if err != nil {
		return models.Group{}, err
	}
	var group models.Group
	if err := c.do(ctx, r, &group); err != nil {
		return models.Group{}, err
	}
	c.groups.Set(group.ID, group)
	return group, nil
}

// Group returns group details, served from cache when fresh.
func (c *Client) Group(ctx context.Context, id string) (models.Group, error) {
	if g, err := c.groups.Get(id); err == nil {
		return g, nil
	}

	var group models.Group
	r := request{method: http.MethodGet, path: "/api/groups/" + url.PathEscape(id), route: "/api/groups/{id}"}
	if err := c.do(ctx, r, &group); err != nil {
		return models.Group{}, err
	}
	c.groups.Set(id, group)
	return group, nil
}

// ForgetGroup drops cached details of a group.
func (c *Client) ForgetGroup(id string) {
	_ = c.groups.Del(id)
}

// GroupMessages returns the latest group messages as the server orders
// them (newest first).
func (c *Client) GroupMessages(ctx context.Context, id string) ([]models.Message, error) {
	var msgs []models.Message
	r := request{method: http.MethodGet, path: "/api/groups/" + url.PathEscape(id) + "/messages", route: "/api/groups/{id}/messages"}
	if err := c.do(ctx, r, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SendGroupMessage(ctx context.Context, id, content, clientID string) (models.Message, error) {
	r, err := jsonRequest(http.MethodPost, "/api/groups/" + url.PathEscape(id) + "/messages", "/api/groups/{id}/messages", map[string]string{
		"content":   content,
		"client_id": clientID,
	})
	if err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	if err := c.do(ctx, r, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (c *Client) UpdateUsername(ctx context.Context, username string) error {
	r, err := jsonRequest(http.MethodPut, "/api/user/username", "/api/user/username", map[string]string{
		"username": username,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

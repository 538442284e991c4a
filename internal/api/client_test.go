package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"parley/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	cleared bool
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared = true
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, r http.Handler, creds Credentials, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, Config{BaseURL: srv.URL + "/", Rate: 1000, Burst: 1000}, creds, opts...)
}

func TestClient_Login(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"email": "me@example.com", "password": "secret"}, body)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Login successful",
			"token":   "jwt",
			"user":    map[string]string{"email": "me@example.com", "status": "online"},
		})
	})
	c := newTestClient(t, r, &fakeCreds{token: "stale"})

	id, err := c.Login(context.Background(), "me@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "jwt", id.Token)
	require.Equal(t, models.PresenceOnline, id.User.Status)
}

func TestClient_LoginRejected(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Email and password are required"})
	})
	c := newTestClient(t, r, &fakeCreds{})

	_, err := c.Login(context.Background(), "", "")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Error: Email and password are required", UserMessage(err))
}

func TestClient_LoginWrongPassword(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
	})
	creds := &fakeCreds{token: "keep"}
	var hooked atomic.Bool
	c := newTestClient(t, r, creds, OnUnauthorized(func() { hooked.Store(true) }))

	_, err := c.Login(context.Background(), "me@example.com", "wrong1")
	require.Error(t, err)
	require.False(t, IsUnauthorized(err))
	require.False(t, creds.cleared)
	require.False(t, hooked.Load())
	require.Equal(t, "Error: Invalid email or password", UserMessage(err))
}

func TestClient_BearerToken(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/contacts", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []models.User{
			{Email: "a@example.com", Status: models.PresenceOnline, LastSeenText: "just now"},
		})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t0k"})

	users, err := c.Contacts(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "just now", users[0].LastSeenText)
}

func TestClient_UnauthorizedClearsSession(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/messages/{contact}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has expired"})
	})
	creds := &fakeCreds{token: "old"}
	var hooked atomic.Bool
	c := newTestClient(t, r, creds, OnUnauthorized(func() { hooked.Store(true) }))

	_, err := c.Messages(context.Background(), "a@example.com")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, IsUnauthorized(err))
	require.True(t, creds.cleared)
	require.Empty(t, creds.Token())
	require.True(t, hooked.Load())
	require.Equal(t, "Session expired. Please log in again.", UserMessage(err))
}

func TestClient_ErrorMessages(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/messages/{contact}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Contact not found"})
	})
	r.Get("/api/groups", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	_, err := c.Messages(context.Background(), "nobody@example.com")
	require.Equal(t, "Error: Contact not found", UserMessage(err))

	_, err = c.Groups(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Internal server error", apiErr.Message)
	require.Equal(t, "Server error. Please try again later.", UserMessage(err))
	require.False(t, IsUnauthorized(err))
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(context.Background(), Config{BaseURL: srv.URL}, &fakeCreds{})
	_, err := c.Contacts(context.Background())
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, "Network error. Check your connection.", UserMessage(err))
}

func TestClient_PostMessage(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a@example.com", body["receiver"])
		require.Equal(t, "c1", body["client_id"])
		writeJSON(w, http.StatusCreated, models.Message{ID: "m1", Sender: "me", Receiver: body["receiver"], Content: body["content"], Timestamp: "2024-01-01T10:00:00"})
	})
	r.Post("/api/groups/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, models.Message{ID: "m2", Sender: "me", GroupID: chi.URLParam(r, "id"), Content: body["content"]})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	saved, err := c.PostMessage(context.Background(), models.Message{ClientID: "c1", Receiver: "a@example.com", Content: "hi"})
	require.NoError(t, err)
	require.Equal(t, "m1", saved.ID)
	require.Equal(t, "c1", saved.ClientID)

	saved, err = c.PostMessage(context.Background(), models.Message{ClientID: "c2", GroupID: "g1", Content: "yo"})
	require.NoError(t, err)
	require.Equal(t, "m2", saved.ID)
	require.Equal(t, "g1", saved.GroupID)
	require.Equal(t, "c2", saved.ClientID)
}

func TestClient_GroupCache(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/api/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, models.Group{ID: chi.URLParam(r, "id"), Name: "Friends", Members: []string{"a", "b"}})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	for i := 0; i < 3; i++ {
		g, err := c.Group(context.Background(), "g1")
		require.NoError(t, err)
		require.Equal(t, "Friends", g.Name)
	}
	require.Equal(t, int32(1), hits.Load())

	c.ForgetGroup("g1")
	_, err := c.Group(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestClient_CreateGroupAndMarkRead(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/groups/create", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name    string   `json:"name"`
			Members []string `json:"members"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, models.Group{ID: "g9", Name: body.Name, Members: body.Members})
	})
	var read atomic.Value
	r.Post("/api/messages/read", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		read.Store(body["sender"])
		writeJSON(w, http.StatusOK, map[string]string{"message": "Marked 2 messages as read"})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	g, err := c.CreateGroup(context.Background(), "Team", []string{"a@example.com"})
	require.NoError(t, err)
	require.Equal(t, "g9", g.ID)

	cached, err := c.Group(context.Background(), "g9")
	require.NoError(t, err, "created group is served from cache")
	require.Equal(t, "Team", cached.Name)

	require.NoError(t, c.MarkRead(context.Background(), "a@example.com"))
	require.Equal(t, "a@example.com", read.Load())
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, "", UserMessage(nil))
	require.Equal(t, "Error: boom", UserMessage(errors.New("boom")))
	require.Equal(t, "Server error. Please try again later.", UserMessage(&Error{Status: http.StatusBadGateway}))
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestClient_Upload(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "image", r.FormValue("type"))
		require.Equal(t, "me@example.com", r.FormValue("sender"))
		require.Equal(t, "a@example.com", r.FormValue("receiver"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		require.Equal(t, "cat.png", hdr.Filename)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, pngHeader, data)

		writeJSON(w, http.StatusCreated, map[string]string{"fileUrl": "/uploads/cat.png"})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	res, err := c.Upload(context.Background(), File{Name: "/tmp/cat.png", Data: pngHeader}, "me@example.com", "a@example.com")
	require.NoError(t, err)
	require.Equal(t, "/uploads/cat.png", res.Link())
}

func TestClient_UploadRejectsUnknownMedia(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Post("/api/upload", func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	_, err := c.Upload(context.Background(), File{Name: "notes.txt", Data: []byte("plain text")}, "me", "you")
	require.Error(t, err)
	require.Zero(t, hits.Load())
}

func TestClient_UpdateAvatar(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/api/user/avatar", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hdr, err := r.FormFile("avatar")
		require.NoError(t, err)
		require.Equal(t, "me.png", hdr.Filename)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Avatar updated", "avatar": "/uploads/me.png"})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	url, err := c.UpdateAvatar(context.Background(), File{Name: "me.png", Data: pngHeader})
	require.NoError(t, err)
	require.Equal(t, "/uploads/me.png", url)
}

func TestClient_UpdateUsername(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/api/user/username", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if len(body["username"]) < 3 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username must be at least 3 characters long"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Username updated successfully"})
	})
	c := newTestClient(t, r, &fakeCreds{token: "t"})

	require.NoError(t, c.UpdateUsername(context.Background(), "annie"))
	err := c.UpdateUsername(context.Background(), "an")
	require.Equal(t, "Error: Username must be at least 3 characters long", UserMessage(err))
}

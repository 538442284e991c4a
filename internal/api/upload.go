package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"parley/internal/content"
)

// UploadResult is what the backend returns for a stored file.
type UploadResult struct {
	URL     string `json:"url,omitempty"`
	FileURL string `json:"fileUrl,omitempty"`
	Message string `json:"message,omitempty"`
}

// Link returns the stored file's URL, whichever field carries it.
func (u UploadResult) Link() string {
	if u.URL != "" {
		return u.URL
	}
	return u.FileURL
}

type File struct {
	Name string
	Data []byte
}

func multipartRequest(method, path string, fields map[string]string, fileField string, f File) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return request{}, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(fileField, filepath.Base(f.Name))
	if err != nil {
		return request{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(f.Data)); err != nil {
		return request{}, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return request{}, fmt.Errorf("failed to finish form: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		route:       path,
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, nil
}

// Upload sends an image or audio file to a contact. The media type is
// sniffed from the file content.
func (c *Client) Upload(ctx context.Context, f File, sender, receiver string) (UploadResult, error) {
	kind, _, err := content.DetectMedia(f.Data)
	if err != nil {
		return UploadResult{}, err
	}
	r, err := multipartRequest(http.MethodPost, "/api/upload", map[string]string{
		"type":     string(kind),
		"sender":   sender,
		"receiver": receiver,
	}, "file", f)
	if err != nil {
		return UploadResult{}, err
	}
	var res UploadResult
	if err := c.do(ctx, r, &res); err != nil {
		return UploadResult{}, err
	}
	return res, nil
}

// UpdateAvatar replaces the profile image and returns its new URL.
func (c *Client) UpdateAvatar(ctx context.Context, f File) (string, error) {
	if _, err := content.ValidateAvatar(f.Data); err != nil {
		return "", err
	}
	r, err := multipartRequest(http.MethodPut, "/api/user/avatar", nil, "avatar", f)
	if err != nil {
		return "", err
	}
	var res struct {
		Avatar string `json:"avatar"`
	}
	if err := c.do(ctx, r, &res); err != nil {
		return "", err
	}
	return res.Avatar, nil
}

package content

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	policy   = bluemonday.UGCPolicy()
	markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
)

// Sanitize strips unsafe markup from text chosen by other users, such as
// group names.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// Escape makes input safe to embed in HTML as text.
func Escape(input string) string {
	return template.HTMLEscapeString(input)
}

// Render converts a markdown message body to sanitized HTML.
// If conversion fails the escaped source is returned.
func Render(input string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		return Escape(input)
	}
	return strings.TrimSpace(policy.Sanitize(buf.String()))
}

// IsURL reports whether a message body is a link (shared file, GIF) rather
// than text worth suggesting replies to.
func IsURL(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "http")
}

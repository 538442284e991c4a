package content

import (
	"errors"
	"fmt"

	"github.com/h2non/filetype"
)

// MediaType is the upload "type" field understood by the backend.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
)

const MaxAvatarSize = 5 << 20

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrAvatarTooLarge   = errors.New("image size should not exceed 5MB")
)

var avatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// DetectMedia sniffs the file header and classifies it for upload.
func DetectMedia(head []byte) (MediaType, string, error) {
	kind, err := filetype.Match(head)
	if err != nil {
		return "", "", fmt.Errorf("failed to detect file type: %w", err)
	}
	switch {
	case filetype.IsImage(head):
		return MediaImage, kind.MIME.Value, nil
	case filetype.IsAudio(head):
		return MediaAudio, kind.MIME.Value, nil
	}
	return "", "", ErrUnsupportedMedia
}

// ValidateAvatar accepts JPEG, PNG or GIF images up to 5MB.
func ValidateAvatar(data []byte) (string, error) {
	if len(data) > MaxAvatarSize {
		return "", ErrAvatarTooLarge
	}
	kind, err := filetype.Match(data)
	if err != nil || !avatarTypes[kind.MIME.Value] {
		return "", fmt.Errorf("%w: please upload a valid image (JPEG, PNG, or GIF)", ErrUnsupportedMedia)
	}
	return kind.MIME.Value, nil
}

// Package blob stores review images and hands back a public URL plus an ID
// that can later be used to delete the object.
package blob

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
	ErrInvalidID        = errors.New("invalid object id")
)

// DefaultMaxBytes matches the upload limit of the web form.
const DefaultMaxBytes = 5 << 20

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Object struct {
	ID        string `json:"id"`
	PublicURL string `json:"public_url"`
	Checksum  string `json:"checksum"`
}

type Storage interface {
	Put(ctx context.Context, data []byte, contentType string) (Object, error)
	Delete(ctx context.Context, id string) error
}

// DetectImage sniffs data and returns its content type when it is one of the
// accepted image formats. A maxBytes of zero or less disables the size check.
func DetectImage(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", ErrUnsupportedImage
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", ErrImageTooLarge
	}

	ct := mimetype.Detect(data).String()
	if _, ok := imageExt[ct]; !ok {
		return "", ErrUnsupportedImage
	}
	return ct, nil
}

func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newObjectID(contentType string) string {
	return uuid.NewString() + imageExt[contentType]
}

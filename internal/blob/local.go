package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes objects into Dir; they are served under BaseURL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStorage) Put(ctx context.Context, data []byte, contentType string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if _, ok := imageExt[contentType]; !ok {
		return Object{}, ErrUnsupportedImage
	}

	id := newObjectID(contentType)
	if err := os.WriteFile(filepath.Join(s.Dir, id), data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write object: %w", err)
	}
	return Object{ID: id, PublicURL: s.BaseURL + "/" + id, Checksum: Checksum(data)}, nil
}

// Delete removes the object. Deleting an object that is already gone is not
// an error.
func (s *LocalStorage) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return ErrInvalidID
	}

	if err := os.Remove(filepath.Join(s.Dir, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

package images

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// Store saves uploaded note images under random names in a single
// directory. Notes reference images by filename only; cleanup of images
// belonging to deleted notes happens through the message queue consumer.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the uploaded content under a fresh uuid-derived name,
// keeping the original extension, and returns the stored filename.
func (s *Store) Save(content io.Reader, originalFilename string) (string, error) {
	imageId, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	name := imageId.String() + strings.ToLower(filepath.Ext(originalFilename))

	file, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return name, nil
}

// Delete removes a stored image. Deleting an absent image is not an error.
func (s *Store) Delete(name string) error {
	// Names are generated here, but the queue body comes from outside the
	// process, so refuse anything that could escape the image dir.
	if name != filepath.Base(name) || name == "." || name == "" {
		return fmt.Errorf("invalid image name %q", name)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

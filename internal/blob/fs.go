package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	fsTempDir  = ".tmp"
	fsBlobsDir = "blobs"
)

// FSStore хранит blob'ы в локальной файловой системе.
// Запись идет во временный файл, который затем переименовывается,
// поэтому частично записанный blob никогда не виден по идентификатору.
type FSStore struct {
	root string
}

// NewFSStore создает каталоги хранилища
func NewFSStore(root string) (*FSStore, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(filepath.Join(root, fsBlobsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating blobs directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, fsTempDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	id = parsed.String()
	return filepath.Join(s.root, fsBlobsDir, id[:2], id), nil
}

// Store записывает поток во временный файл и переносит его на место
func (s *FSStore) Store(ctx context.Context, r io.Reader, name, contentType string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, fsTempDir), "blob-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("syncing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing blob: %w", err)
	}

	id := uuid.NewString()
	target, err := s.path(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating shard directory: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("committing blob: %w", err)
	}
	committed = true

	return id, nil
}

// Open открывает blob на чтение
func (s *FSStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}

// Delete удаляет blob
func (s *FSStore) Delete(ctx context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("removing blob: %w", err)
	}
	return nil
}

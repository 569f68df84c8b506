package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// LocalStorage keeps objects on the local filesystem under a root
// directory, laid out as root/kind/base/parent/filename.
type LocalStorage struct {
	root string
}

func NewLocal(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) path(base, parent, filename, kind string) string {
	return filepath.Join(s.root, kind, base, parent, filename)
}

func (s *LocalStorage) Upload(ctx context.Context, base, parent, filename, kind string, r io.Reader, size int64) (int64, error) {
	target := s.path(base, parent, filename, kind)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create object directory: %w", err)
	}
	f, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("create object: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, fmt.Errorf("write object: %w", err)
	}
	return n, nil
}

func (s *LocalStorage) Download(ctx context.Context, base, parent, filename, kind string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(base, parent, filename, kind))
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Stat(ctx context.Context, base, parent, filename, kind string) (*FileInfo, error) {
	info, err := os.Stat(s.path(base, parent, filename, kind))
	if err != nil {
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return &FileInfo{
		Filename:    filename,
		ContentType: contentTypeFor(filename),
		Size:        info.Size(),
	}, nil
}

func (s *LocalStorage) Exists(ctx context.Context, base, parent, filename, kind string) bool {
	_, err := os.Stat(s.path(base, parent, filename, kind))
	return err == nil
}

func (s *LocalStorage) Delete(ctx context.Context, base, parent, filename, kind string) error {
	err := os.Remove(s.path(base, parent, filename, kind))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

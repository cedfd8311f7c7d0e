package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Object is a stored file. Key is relative to the store root and always uses
// forward slashes.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Store persists uploaded files and hands back a public URL for them.
type Store interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) (Object, error)
}

// DiskStore writes files under Root and serves them from BaseURL + "/uploads".
type DiskStore struct {
	Root    string
	BaseURL string
	now     func() time.Time
}

func NewDiskStore(root, baseURL string) *DiskStore {
	return &DiskStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *DiskStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	dir := s.now().UTC().Format("2006/01/02")
	key := path.Join(dir, uuid.NewString()+extension(filename, contentType))

	target := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("create upload dir: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return Object{}, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(target)
		return Object{}, fmt.Errorf("write upload file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(target)
		return Object{}, fmt.Errorf("close upload file: %w", err)
	}

	return Object{Key: key, URL: s.URL(key)}, nil
}

// URL is the public address of a stored key.
func (s *DiskStore) URL(key string) string {
	return s.BaseURL + "/uploads/" + key
}

// extension prefers the client's file extension and falls back to one derived
// from the content type.
func extension(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && len(ext) <= 5 {
		return ext
	}
	if m := mimetype.Lookup(strings.ToLower(contentType)); m != nil {
		return m.Extension()
	}
	return ""
}

package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LocalStorage keeps objects under root on disk; the HTTP server serves root
// at baseURL.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create media root")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

func (s *LocalStorage) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "create media dir")
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", errors.Wrap(err, "write media file")
	}
	return s.baseURL + key, nil
}

func (s *LocalStorage) Remove(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove media file")
	}
	return nil
}

func (s *LocalStorage) Key(url string) (string, bool) {
	key := strings.TrimPrefix(url, s.baseURL)
	if key == url || key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

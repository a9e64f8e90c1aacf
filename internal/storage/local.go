package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes files below Dir. References are URL paths below Prefix.
type LocalStore struct {
	Dir    string
	Prefix string
}

func NewLocalStore(dir, prefix string) *LocalStore {
	return &LocalStore{Dir: dir, Prefix: strings.TrimRight(prefix, "/")}
}

func (s *LocalStore) Put(_ context.Context, folder, filename string, body io.Reader) (string, error) {
	key, _, data, err := prepare(folder, filename, body)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return s.Prefix + "/" + key, nil
}

func (s *LocalStore) Remove(_ context.Context, ref string) error {
	if !strings.HasPrefix(ref, s.Prefix+"/") {
		return nil
	}
	key := path.Clean("/" + strings.TrimPrefix(ref, s.Prefix+"/"))[1:]
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Package storage keeps uploaded files: admin profile images and guest ID
// documents. Files land either on local disk, served under /uploads, or in
// an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-admin/internal/config"
)

// MaxSize bounds a single upload.
const MaxSize = 5 << 20

var (
	ErrTooLarge        = errors.New("file exceeds 5MB")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// Store saves and removes uploaded files. Put returns the reference that is
// stored on the owning record; Remove accepts such a reference and ignores
// ones it did not produce.
type Store interface {
	Put(ctx context.Context, folder, filename string, body io.Reader) (string, error)
	Remove(ctx context.Context, ref string) error
}

// New picks the driver named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, "/uploads"), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// prepare checks the name and size of an upload and picks its object name.
func prepare(folder, filename string, body io.Reader) (key, contentType string, data []byte, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedExt[ext]
	if !ok {
		return "", "", nil, ErrUnsupportedType
	}
	folder = path.Clean("/" + strings.ReplaceAll(folder, "\\", "/"))[1:]
	data, err = io.ReadAll(io.LimitReader(body, MaxSize+1))
	if err != nil {
		return "", "", nil, err
	}
	if len(data) > MaxSize {
		return "", "", nil, ErrTooLarge
	}
	key = path.Join(folder, uuid.NewString()+ext)
	return key, contentType, data, nil
}

func reader(data []byte) io.Reader { return bytes.NewReader(data) }

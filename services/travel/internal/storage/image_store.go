// Package storage keeps tour images on local disk under a public prefix.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/diagnosis/jf-travel/internal/utils"
)

var ErrInvalidImage = errors.New("invalid image")

// InvalidImageError carries a message fit to show the uploader.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return "invalid image: " + e.Reason
}

func (e *InvalidImageError) Is(target error) bool {
	return target == ErrInvalidImage
}

func invalid(format string, args ...any) error {
	return &InvalidImageError{Reason: fmt.Sprintf(format, args...)}
}

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Upload is a file received from a client, not yet validated.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type LocalStore struct {
	root     string
	prefix   string
	maxBytes int64
	now      func() time.Time
}

func NewLocalStore(root, publicPrefix string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "tours"), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{
		root:     root,
		prefix:   "/" + strings.Trim(publicPrefix, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

// Root is the directory served read-only under the public prefix.
func (s *LocalStore) Root() string {
	return s.root
}

// Save validates the upload and writes it as tours/<unix>_<name>, returning that relative path.
func (s *LocalStore) Save(ctx context.Context, up Upload) (string, error) {
	name := utils.SanitizeFilename(up.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	wantType, ok := allowedExt[ext]
	if !ok {
		return "", invalid("The image must be a file of type: jpeg, png, jpg, gif.")
	}
	if up.Size > s.maxBytes {
		return "", invalid("The image may not be greater than %d kilobytes.", s.maxBytes/1024)
	}

	// read one byte past the limit so a lying Size is still caught
	data, err := io.ReadAll(io.LimitReader(up.Content, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", invalid("The image may not be greater than %d kilobytes.", s.maxBytes/1024)
	}
	if got := http.DetectContentType(data); got != wantType && !(wantType == "image/jpeg" && got == "image/jpg") {
		return "", invalid("The image content does not match its %s extension.", ext)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := path.Join("tours", fmt.Sprintf("%d_%s", s.now().Unix(), name))
	dst := filepath.Join(s.root, filepath.FromSlash(rel))
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		rel = path.Join("tours", fmt.Sprintf("%d_%d_%s", s.now().Unix(), s.now().UnixNano()%1e6, name))
		dst = filepath.Join(s.root, filepath.FromSlash(rel))
		f, err = os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close image file: %w", err)
	}
	return rel, nil
}

// Delete removes a stored image. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, rel string) error {
	if rel == "" {
		return nil
	}
	clean := path.Clean("/" + rel)[1:]
	if !strings.HasPrefix(clean, "tours/") {
		return fmt.Errorf("refusing to delete %q outside tours/", rel)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL maps a stored path to the route that serves it.
func (s *LocalStore) URL(rel string) string {
	return s.prefix + "/" + strings.TrimPrefix(rel, "/")
}

package file

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file: not found")

// Store writes and serves meme images under a single static directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Save streams the upload to disk under a generated collision-resistant name
// and returns that name.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	name := buildFileName(originalName)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return name, nil
}

// Path resolves name inside the store, rejecting traversal attempts.
func (s *Store) Path(name string) (string, error) {
	clean := safeName(name)
	if clean == "" {
		return "", ErrNotFound
	}
	full := filepath.Join(s.dir, clean)
	if _, err := os.Stat(full); err != nil {
		return "", ErrNotFound
	}
	return full, nil
}

func (s *Store) Remove(name string) error {
	clean := safeName(name)
	if clean == "" {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, clean))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// buildFileName generates a collision-resistant filename that preserves the
// original extension.
func buildFileName(original string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(original)))
	if ext == "" || len(ext) > 10 {
		ext = ".dat"
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:18] + ext
}

// safeName returns the base name of raw only when it is a safe path segment.
func safeName(raw string) string {
	name := filepath.Base(strings.TrimSpace(raw))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return ""
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			continue
		}
		return ""
	}
	return name
}

// DetectContentType sniffs the MIME type from the declared header, extension,
// or raw payload bytes, in that priority order. Upload handlers use it when a
// client sends a file part without a Content-Type.
func DetectContentType(filename string, payload []byte, fallback string) string {
	contentType := strings.TrimSpace(fallback)
	if contentType != "" {
		return contentType
	}
	if ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename))); ext != "" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			return guessed
		}
	}
	if len(payload) > 0 {
		return http.DetectContentType(payload)
	}
	return "application/octet-stream"
}

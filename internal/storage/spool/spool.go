// Package spool owns the transient files that bridge uploaded byte streams
// into the file-path API the recognition model requires. Every file is
// request-scoped: uniquely named on capture, removed when the request ends.
package spool

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Spool writes request-scoped files under a single root directory.
type Spool struct {
	root string
}

// New creates the spool directory if needed.
func New(dir string) (*Spool, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "./data/spool"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{root: dir}, nil
}

// Root reports the spool directory.
func (s *Spool) Root() string {
	return s.root
}

// Capture copies the stream into a uniquely named file and returns its path
// and size. Unique names keep concurrent requests from colliding. On any
// failure the partial file is removed.
func (s *Spool) Capture(r io.Reader, ext string) (string, int64, error) {
	path := filepath.Join(s.root, "upload-"+uuid.NewString()+sanitizeExt(ext))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create spool file: %w", err)
	}
	written, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		os.Remove(path)
		return "", 0, fmt.Errorf("copy to spool file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("close spool file: %w", err)
	}
	return path, written, nil
}

// Remove deletes a captured file. Removing a file that is already gone is
// not an error.
func (s *Spool) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// sanitizeExt keeps a short, safe extension so the recognition model can use
// it as a container hint; anything suspicious is dropped.
func sanitizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return ""
		}
	}
	return strings.ToLower(ext)
}

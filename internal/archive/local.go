package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Local writes uploads under a directory on disk.
type Local struct {
	dir string
	now func() time.Time
}

// NewLocal creates a Local archiver rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir, now: time.Now}
}

// Archive implements Archiver.
func (l *Local) Archive(ctx context.Context, userID, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(l.dir, filepath.FromSlash(objectName(userID, filename, l.now())))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}

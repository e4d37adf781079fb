// Package archive stores the raw bytes of uploaded CSV files.
package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"smartspend/internal/config"
)

// Archiver keeps a copy of an uploaded file and reports where it went.
type Archiver interface {
	Archive(ctx context.Context, userID, filename string, data []byte) (location string, err error)
}

// New builds the archiver selected by cfg.ArchiveBackend. The returned close
// function releases any client the archiver holds.
func New(ctx context.Context, cfg *config.Config) (Archiver, func() error, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveLocal:
		return NewLocal(cfg.ArchiveDir), noClose, nil
	case config.ArchiveGCS:
		client, err := NewGCSClient(ctx, cfg.GCSEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return NewGCS(client, cfg.GCSBucket), client.Close, nil
	default:
		return Noop{}, noClose, nil
	}
}

func noClose() error { return nil }

// Noop discards uploads and reports no location.
type Noop struct{}

// Archive implements Archiver.
func (Noop) Archive(context.Context, string, string, []byte) (string, error) { return "", nil }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName is "<user>/<unix millis>-<sanitized filename>".
func objectName(userID, filename string, now time.Time) string {
	base := unsafeChars.ReplaceAllString(filepath.Base(filename), "_")
	if base == "" || base == "." || base == "_" {
		base = "upload.csv"
	}
	return fmt.Sprintf("%s/%d-%s", userID, now.UnixMilli(), base)
}

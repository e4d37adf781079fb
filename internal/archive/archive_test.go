package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartspend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1741996800000)

	tests := []struct {
		filename string
		want     string
	}{
		{"march.csv", "u1/1741996800000-march.csv"},
		{"../../etc/passwd", "u1/1741996800000-passwd"},
		{"my bank export (1).csv", "u1/1741996800000-my_bank_export_1_.csv"},
		{"", "u1/1741996800000-upload.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, objectName("u1", tt.filename, now))
		})
	}
}

func TestLocal_Archive(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir)
	l.now = func() time.Time { return time.UnixMilli(42) }

	location, err := l.Archive(context.Background(), "user-1", "march.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location, "file://"))
	assert.True(t, strings.HasSuffix(location, "user-1/42-march.csv"))

	data, err := os.ReadFile(filepath.Join(dir, "user-1", "42-march.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestLocal_ArchiveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal(t.TempDir()).Archive(ctx, "user-1", "march.csv", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	a, closeFn, err := New(context.Background(), &config.Config{ArchiveBackend: config.ArchiveNone})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, a)
	assert.NoError(t, closeFn())

	location, err := a.Archive(context.Background(), "u", "f.csv", nil)
	assert.NoError(t, err)
	assert.Empty(t, location)

	a, _, err = New(context.Background(), &config.Config{ArchiveBackend: config.ArchiveLocal, ArchiveDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, a)
}

package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDir(t *testing.T, parent, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(path, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(path, "tone.wav"), []byte("x"), 0o600))
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestSweep(t *testing.T) {
	root := t.TempDir()
	stale := makeDir(t, root, "spectro-111", 2*time.Hour)
	fresh := makeDir(t, root, "spectro-222", time.Minute)
	other := makeDir(t, root, "unrelated", 2*time.Hour)

	svc := NewService(root, "spectro-", time.Hour, time.Hour)
	assert.Equal(t, 1, svc.Sweep())

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.DirExists(t, other)
}

func TestSweep_MissingDirectory(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "nope"), "spectro-", time.Hour, time.Hour)
	assert.Equal(t, 0, svc.Sweep())
}

func TestStartStop(t *testing.T) {
	root := t.TempDir()
	stale := makeDir(t, root, "spectro-abc", 2*time.Hour)

	svc := NewService(root, "spectro-", time.Hour, 10*time.Millisecond)
	svc.Start(context.Background())
	assert.NoDirExists(t, stale, "initial sweep runs synchronously")

	svc.Stop()
	svc.Stop() // idempotent
}

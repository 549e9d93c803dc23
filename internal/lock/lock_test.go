package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesOwner(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "tooly.lock")
	l, err := Acquire(lockPath, "127.0.0.1:7878")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Release() })

	o, err := ReadOwner(lockPath)
	require.NoError(t, err)
	assert.Positive(t, o.PID)
	assert.Equal(t, "127.0.0.1:7878", o.Addr)
	assert.Equal(t, lockPath, l.Path())
}

func TestAcquireTwiceIsHeld(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "nested", "tooly.lock")
	l, err := Acquire(lockPath, "")
	require.NoError(t, err)

	_, err = Acquire(lockPath, "")
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, l.Release())
	l2, err := Acquire(lockPath, "")
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestSetAddr(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "tooly.lock")
	l, err := Acquire(lockPath, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Release() })

	require.NoError(t, l.SetAddr("127.0.0.1:9000"))
	o, err := ReadOwner(lockPath)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", o.Addr)
}

func TestReleaseNil(t *testing.T) {
	var l *InstanceLock
	assert.NoError(t, l.Release())
}

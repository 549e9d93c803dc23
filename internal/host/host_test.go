package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/tooly/internal/protocol"
)

func TestEnsureFirstRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Tooly")

	first, err := EnsureFirstRun(dir)
	require.NoError(t, err)
	assert.True(t, first)

	b, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))

	first, err = EnsureFirstRun(dir)
	require.NoError(t, err)
	assert.False(t, first)
}

func TestDataDir(t *testing.T) {
	dir, err := DataDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	assert.Equal(t, AppName, filepath.Base(dir))
}

func TestHeadless(t *testing.T) {
	h := NewHeadless()
	assert.NoError(t, h.ShowMain())
	assert.NoError(t, h.OpenFindAndReplace(protocol.Instruction{Target: "/tmp"}))
}

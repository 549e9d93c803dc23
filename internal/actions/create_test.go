package actions

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/tooly/internal/protocol"
)

func TestSplitCreateAction(t *testing.T) {
	tests := []struct {
		action      string
		wantName    string
		wantContent string
	}{
		{"notes.md|# Title", "notes.md", "# Title"},
		{"notes.md", "notes.md", ""},
		{"", DefaultFileName, ""},
		{"|body", DefaultFileName, "body"},
		{"a.sh|echo a | wc -c", "a.sh", "echo a | wc -c"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			name, content := SplitCreateAction(tt.action)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantContent, content)
		})
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct{ name, stem, ext string }{
		{"New File.txt", "New File", ".txt"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"Makefile", "Makefile", ""},
		{".bashrc", ".bashrc", ""},
		{"trailing.", "trailing", "."},
	}
	for _, tt := range tests {
		stem, ext := splitExt(tt.name)
		assert.Equal(t, tt.stem, stem, tt.name)
		assert.Equal(t, tt.ext, ext, tt.name)
	}
}

func TestCreateFile_PicksFirstFreeName(t *testing.T) {
	dir := t.TempDir()
	for _, existing := range []string{"New File.txt", "New File (1).txt", "New File (3).txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, existing), []byte("keep"), 0o644))
	}

	path, err := CreateFile(dir, "New File.txt", "fresh")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "New File (2).txt"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(b))

	for _, existing := range []string{"New File.txt", "New File (1).txt", "New File (3).txt"} {
		b, err := os.ReadFile(filepath.Join(dir, existing))
		require.NoError(t, err)
		assert.Equal(t, "keep", string(b), "existing file %s was overwritten", existing)
	}
}

func TestCreateFile_Sequence(t *testing.T) {
	dir := t.TempDir()
	want := []string{"Makefile", "Makefile (1)", "Makefile (2)"}
	for _, w := range want {
		path, err := CreateFile(dir, "Makefile", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, w), path)
	}
}

func TestCreateFile_RejectsPathNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"../escape.txt", "sub/file.txt", `sub\file.txt`, "..", "."} {
		_, err := CreateFile(dir, name, "")
		var fsErr *FSError
		require.ErrorAs(t, err, &fsErr, name)
		assert.ErrorIs(t, err, fs.ErrInvalid)
	}
}

func TestCreateFile_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := CreateFile(dir, "a.txt", "")

	var fsErr *FSError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, filepath.Join(dir, "a.txt"), fsErr.Path)
	assert.NoDirExists(t, dir)
}

func TestCreateHandler(t *testing.T) {
	dir := t.TempDir()
	r := NewRouter(Deps{})

	out, err := r.Route(context.Background(), protocol.Instruction{
		Target:     dir,
		Action:     "todo.txt|buy milk",
		ActionType: protocol.ActionCreate,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "todo.txt"), out.Path)

	_, err = r.Route(context.Background(), protocol.Instruction{ActionType: protocol.ActionCreate})
	assert.ErrorIs(t, err, ErrTargetMissing)
}

package installdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "manifest.txt")
	content := "# comment line\nlibc6 /lib/x86_64-linux-gnu/libc.so.6\nzlib1g /lib/x86_64-linux-gnu/libz.so.1\n\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))

	db, err := Load(p)
	require.NoError(t, err)

	pkg, ok := db.Lookup("/lib/x86_64-linux-gnu/libc.so.6")
	require.True(t, ok)
	require.Equal(t, "libc6", pkg)

	_, ok = db.Lookup("/not/installed")
	require.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/manifest.txt")
	require.Error(t, err)
}

func TestLookupOnNilDB(t *testing.T) {
	var db *DB
	_, ok := db.Lookup("/anything")
	require.False(t, ok)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "manifest.txt")
	require.NoError(t, os.WriteFile(p, []byte("onlyonetoken\n"), 0644))

	db, err := Load(p)
	require.NoError(t, err)
	_, ok := db.Lookup("onlyonetoken")
	require.False(t, ok)
}

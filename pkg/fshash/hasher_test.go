package fshash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFileEmpty(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(p, nil, 0644))

	got, err := HashFile(p)
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestHashFileContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hello")
	require.NoError(t, os.WriteFile(p, []byte("hello world\n"), 0644))

	got, err := HashFile(p)
	require.NoError(t, err)
	require.Equal(t, "22596363b3de40b06f981fb85d82312e8c0ed511", got)
}

func TestHashFileRejectsNonRegular(t *testing.T) {
	_, err := HashFile(os.DevNull)
	require.Error(t, err)
}

func TestSplitExt(t *testing.T) {
	require.Equal(t, "o", SplitExt("foo.o"))
	require.Equal(t, "", SplitExt("Makefile"))
	require.Equal(t, "Po", SplitExt("/tmp/.deps/foo.Po"))
}

func TestRelativize(t *testing.T) {
	require.Equal(t, "sub/file.c", Relativize("/proj", "/proj/sub/file.c"))
}

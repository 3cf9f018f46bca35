package mtconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIgnoreLists(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.IsIgnoredProcess("make"))
	require.False(t, cfg.IsIgnoredProcess("gcc"))
	require.True(t, cfg.IsIgnoredExtension("h"))
	require.False(t, cfg.IsIgnoredExtension("c"))
	require.True(t, cfg.IsDiscardDefine("PIC"))
	require.False(t, cfg.IsDiscardDefine("DEBUG"))
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte("rewrite_iteration_cap: 7\n"), 0644))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.RewriteIterationCap)
	// untouched keys keep their defaults
	require.True(t, cfg.IsIgnoredProcess("bash"))
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// Package mtconfig holds maketrace's runtime tunables: ignore lists,
// the rewrite iteration cap, the tool discovery timeout, and the
// PIC/SHARED/STATIC discard list. Defaults are reasonable out of the
// box; Load overrides them from a YAML file only. Environment variables
// and CLI flags do not reach the Config Load returns.
package mtconfig

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Config is the full set of runtime tunables.
type Config struct {
	// IgnoredProcessBasenames are process images whose file accesses are
	// dropped by TraceReader before GraphBuilder ever sees them.
	IgnoredProcessBasenames []string `yaml:"ignored_process_basenames"`

	// IgnoredExtensions are file extensions dropped the same way.
	IgnoredExtensions []string `yaml:"ignored_extensions"`

	// RewriteIterationCap bounds StepRecognizer's find-and-replace loop.
	RewriteIterationCap int `yaml:"rewrite_iteration_cap"`

	// ToolDiscoveryTimeout bounds ToolSearchPath's subprocess calls.
	ToolDiscoveryTimeout time.Duration `yaml:"tool_discovery_timeout"`

	// DiscardDefines are -D flag names dropped during canonicalization,
	// e.g. PIC/SHARED/STATIC, which vary build to build without changing
	// a target's semantics.
	DiscardDefines []string `yaml:"discard_defines"`

	// InstalledFilesManifest, if set, names the manifest pkg/installdb
	// reads, used by GraphBuilder to log the package owning a read path.
	InstalledFilesManifest string `yaml:"installed_files_manifest"`
}

// Default returns maketrace's built-in default tunables.
func Default() Config {
	return Config{
		IgnoredProcessBasenames: []string{"bash", "cat", "cmake", "grep", "make", "sed", "sh"},
		IgnoredExtensions:       []string{"h", "hpp", "Plo", "Po", "Tpo", "la", "lai", "loT"},
		RewriteIterationCap:     100,
		ToolDiscoveryTimeout:    1 * time.Second,
		DiscardDefines:          []string{"PIC", "SHARED", "STATIC"},
	}
}

// Load reads a YAML config file over the defaults. A missing path is not
// an error; it just means the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	raw, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return cfg, errors.Wrap(err, "re-marshaling viper settings")
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// BindFlags registers the default tunables and AutomaticEnv on the given
// viper instance, mirroring crux/cmd/organza/cmd/flock.go's flag-to-viper
// binding. Load uses its own viper instance and does not read this one.
func BindFlags(v *viper.Viper) {
	v.SetDefault("ignored_process_basenames", Default().IgnoredProcessBasenames)
	v.SetDefault("ignored_extensions", Default().IgnoredExtensions)
	v.SetDefault("rewrite_iteration_cap", Default().RewriteIterationCap)
	v.SetDefault("tool_discovery_timeout", Default().ToolDiscoveryTimeout)
	v.SetDefault("discard_defines", Default().DiscardDefines)
	v.AutomaticEnv()
}

func (c Config) isIgnoredBasename(name string) bool {
	for _, b := range c.IgnoredProcessBasenames {
		if b == name {
			return true
		}
	}
	return false
}

// IsIgnoredProcess reports whether a process basename should be dropped.
func (c Config) IsIgnoredProcess(basename string) bool {
	return c.isIgnoredBasename(basename)
}

// IsIgnoredExtension reports whether a file extension (without the dot)
// should be dropped.
func (c Config) IsIgnoredExtension(ext string) bool {
	for _, e := range c.IgnoredExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// IsDiscardDefine reports whether a preprocessor define name is dropped
// during Deduplicator canonicalization.
func (c Config) IsDiscardDefine(name string) bool {
	for _, d := range c.DiscardDefines {
		if d == name {
			return true
		}
	}
	return false
}

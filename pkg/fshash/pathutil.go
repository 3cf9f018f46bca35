// Package fshash provides the PathUtil and Hasher components of §4:
// path normalization/relativization and the content hash used to
// identify generated-file TraceNodes.
package fshash

import (
	"path/filepath"
	"strings"
)

// Normalize cleans a path and makes it absolute against base if it is
// not already absolute.
func Normalize(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(base, path))
}

// Relativize returns path expressed relative to base, or path itself
// (cleaned) if it cannot be made relative (e.g. different volumes,
// which does not occur on the Linux-only target of this tool but keeps
// the function total).
func Relativize(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.Clean(path)
	}
	return rel
}

// SplitExt returns the file's extension without the leading dot, or ""
// if it has none. Matches the ignore-list comparisons in
// internal/mtconfig, which store extensions bare.
func SplitExt(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(ext, ".")
}

// ResolveSymlinks resolves path to its final target, following chained
// symlinks. If resolution fails (dangling link, permission error) the
// original path is returned unchanged: a tracer observing an operation
// that itself fails is not this component's business to diagnose.
func ResolveSymlinks(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// Basename returns the final path component, matching the process-name
// comparisons used by TraceReader's ignore list.
func Basename(path string) string {
	return filepath.Base(path)
}

// Package installdb is the optional installed-files cross-reference
// collaborator described in SPEC_FULL.md's original_source supplement,
// grounded on original_source/src/installedfilesreader.h. GraphBuilder
// looks up each opened path that has no generator and logs the owning
// package when the manifest lists it; the lookup does not change which
// nodes GraphBuilder adds.
package installdb

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DB maps installed file paths to the package that owns them.
type DB struct {
	owner map[string]string
}

// Load reads a manifest file where each line is "<package> <path>",
// matching the shape dpkg/rpm "list files" output takes.
func Load(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening installed-files manifest %s", path)
	}
	defer f.Close()

	db := &DB{owner: make(map[string]string)}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		db.owner[parts[1]] = parts[0]
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading installed-files manifest %s", path)
	}
	return db, nil
}

// Lookup reports the package that owns path, if any.
func (db *DB) Lookup(path string) (pkg string, ok bool) {
	if db == nil {
		return "", false
	}
	pkg, ok = db.owner[path]
	return pkg, ok
}

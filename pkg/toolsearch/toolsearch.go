// Package toolsearch implements ToolSearchPath (§4 component table): it
// asks gcc and ld where they look for libraries and returns those
// directories to its caller. No other package in this repository calls
// Discover; GraphBuilder and the argv parsers do not consult its result.
package toolsearch

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"

	"github.com/google/maketrace/internal/mtlog"
)

// Discover runs `gcc -print-search-dirs` and `ld --verbose` with the
// given timeout and returns the union of directories either reports.
// A timeout or a missing tool produces an empty, non-error result: tool
// discovery is advisory, not required for correctness (§5).
func Discover(ctx context.Context, timeout time.Duration) []string {
	tag := uuid.New()
	log := mtlog.L().WithField("discovery", tag)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dirs []string
	dirs = append(dirs, gccSearchDirs(ctx, log)...)
	dirs = append(dirs, ldSearchDirs(ctx, log)...)
	return dedupeDirs(dirs)
}

func gccSearchDirs(ctx context.Context, log *logrus.Entry) []string {
	out, err := exec.CommandContext(ctx, "gcc", "-print-search-dirs").Output()
	if err != nil {
		log.WithField("tool", "gcc").Debugf("tool discovery unavailable: %v", err)
		return nil
	}
	var dirs []string
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "libraries: =") {
			dirs = append(dirs, strings.Split(strings.TrimPrefix(line, "libraries: ="), ":")...)
		}
	}
	return dirs
}

func ldSearchDirs(ctx context.Context, log *logrus.Entry) []string {
	out, err := exec.CommandContext(ctx, "ld", "--verbose").Output()
	if err != nil {
		log.WithField("tool", "ld").Debugf("tool discovery unavailable: %v", err)
		return nil
	}
	var dirs []string
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		line := sc.Text()
		for {
			i := strings.Index(line, `SEARCH_DIR("`)
			if i < 0 {
				break
			}
			line = line[i+len(`SEARCH_DIR("`):]
			j := strings.Index(line, `")`)
			if j < 0 {
				break
			}
			dirs = append(dirs, strings.TrimPrefix(line[:j], "="))
			line = line[j+len(`")`):]
		}
	}
	return dirs
}

func dedupeDirs(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	var out []string
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

package argvlex

import (
	"fmt"
	"strings"
)

// Namer generates qualified names for build targets, resolving
// collisions by suffixing a numeric disambiguator the way §4.5
// describes. Not safe for concurrent use; each GraphBuilder/
// StepRecognizer run owns its own Namer.
type Namer struct {
	projectRoot string
	seen        map[string]int
}

// NewNamer returns an empty Namer. projectRoot, if non-empty, is
// stripped from an absolute path before qualified-name generation;
// paths outside it are left as-is (sanitized, not rejected).
func NewNamer(projectRoot string) *Namer {
	return &Namer{projectRoot: projectRoot, seen: make(map[string]int)}
}

// Qualify returns a qualified name for path: project-relativize, strip
// the extension, replace every character outside [A-Za-z0-9_/] with
// "_", replace the last "/" with ":", and prepend "//". Collisions with
// a name already issued by this Namer are disambiguated with "_<N>",
// starting at 2.
func (nm *Namer) Qualify(path string) string {
	base := nm.qualifiedBase(path)
	n := nm.seen[base]
	nm.seen[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n+1)
}

func (nm *Namer) qualifiedBase(path string) string {
	rel := path
	if nm.projectRoot != "" {
		if trimmed := strings.TrimPrefix(rel, nm.projectRoot); trimmed != rel {
			rel = strings.TrimPrefix(trimmed, "/")
		}
	}
	rel = strings.TrimPrefix(rel, "/")

	if i := strings.LastIndexByte(rel, '.'); i > strings.LastIndexByte(rel, '/') {
		rel = rel[:i]
	}

	sanitized := sanitizeQualifiedChars(rel)

	if i := strings.LastIndexByte(sanitized, '/'); i >= 0 {
		sanitized = sanitized[:i] + ":" + sanitized[i+1:]
	}

	return "//" + sanitized
}

func sanitizeQualifiedChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '/':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

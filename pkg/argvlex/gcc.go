package argvlex

import (
	"strings"

	"github.com/google/maketrace/internal/mtlog"
)

// Invocation is the parsed shape of a GCC-family tool invocation: the
// inputs it reads, the output it names, and the flags that matter to
// StepRecognizer and Deduplicator.
type Invocation struct {
	Inputs      []string
	Output      string
	Defines     map[string]string // -D name -> value ("" if bare); -U removes
	IncludeDirs []string          // -I paths
	LibDirs     []string          // -L paths not in the standard set
	Libs        []string          // -l names not in the standard set
	Flags       []string          // passed-through -W*/-f*/-std* tokens, in order
	Shared      bool              // -shared
	Static      bool              // -static
	PIC         bool              // -fPIC / -fpic
	Compile     bool              // -c (compile, don't link)
	IsArchiver  bool              // argv[0] is "ar"

	// UnrecognizedFlags collects flags the dispatch table has no entry
	// for; ParseGCCInvocation logs them as a warning but keeps them out
	// of the recognized shape, "failing the parse" softly rather than
	// aborting reconstruction over one unknown flag.
	UnrecognizedFlags []string
}

// standardLibs is the §4.5 standard-library set: -l references into it
// are implied by the toolchain itself and carry no build-graph signal.
var standardLibs = map[string]bool{"c": true, "gcc": true, "gcc_s": true, "stdc++": true}

// standardLibDirs are -L directories baked into every toolchain
// invocation that carry no project-specific signal.
var standardLibDirs = map[string]bool{
	"/usr/lib": true, "/usr/lib64": true, "/lib": true, "/lib64": true,
}

// ignoredExactFlags are §4.5's ignore-list entries that never take a
// value of their own.
var ignoredExactFlags = map[string]bool{
	"-g": true, "-m": true, "-pg": true, "-nostdlib": true,
	"--eh-frame-hdr": true, "--build-id": true,
	"--as-needed": true, "--no-as-needed": true, "-dynamic-linker": true,
}

var ignoredPrefixes = []string{"-Wl,", "-O", "--sysroot", "--hash-style"}

func isIgnoredFlag(flag string) bool {
	if ignoredExactFlags[flag] {
		return true
	}
	if strings.HasPrefix(flag, "-M") && flag != "-MF" && flag != "-MT" && flag != "-MQ" {
		return true
	}
	for _, p := range ignoredPrefixes {
		if strings.HasPrefix(flag, p) {
			return true
		}
	}
	return false
}

// ParseGCCInvocation walks a tool's argv (argv[0] is the tool itself,
// not passed here) using the GCC-family token-dispatch table of §4.5.
func ParseGCCInvocation(argv []string) Invocation {
	inv := Invocation{Defines: make(map[string]string)}
	for _, tok := range Lex(argv) {
		switch tok.Kind {
		case TokPositional:
			inv.Inputs = append(inv.Inputs, tok.Value)
		case TokFlag:
			dispatchGCCFlag(&inv, tok)
		}
	}
	if len(inv.UnrecognizedFlags) > 0 {
		mtlog.L().WithField("flags", inv.UnrecognizedFlags).Warn("argvlex: unrecognized flags kept as opaque, dropped from the reconstructed target")
	}
	return inv
}

func dispatchGCCFlag(inv *Invocation, tok Token) {
	switch {
	case tok.Flag == "-o":
		inv.Output = tok.Value
	case tok.Flag == "-MF", tok.Flag == "-MT", tok.Flag == "-MQ", tok.Flag == "-z", tok.Flag == "-soname":
		// consumed, no effect on the reconstructed target
	case tok.Flag == "-c":
		inv.Compile = true
	case tok.Flag == "-shared":
		inv.Shared = true
	case tok.Flag == "-static":
		inv.Static = true
	case tok.Flag == "-fPIC", tok.Flag == "-fpic":
		inv.PIC = true
	case tok.Flag == "-pthread":
		inv.Libs = appendUniqueLib(inv.Libs, "pthread")
	case tok.Flag == "-D":
		name, value := splitDefine(tok.Value)
		inv.Defines[name] = value
	case tok.Flag == "-U":
		delete(inv.Defines, tok.Value)
	case tok.Flag == "-I":
		inv.IncludeDirs = append(inv.IncludeDirs, tok.Value)
	case tok.Flag == "-L":
		if !standardLibDirs[tok.Value] {
			inv.LibDirs = append(inv.LibDirs, tok.Value)
		}
	case tok.Flag == "-l":
		if !standardLibs[tok.Value] {
			inv.Libs = appendUniqueLib(inv.Libs, tok.Value)
		}
	case isIgnoredFlag(tok.Flag):
		// matched the ignore list, drop
	case strings.HasPrefix(tok.Flag, "-W"), strings.HasPrefix(tok.Flag, "-f"), strings.HasPrefix(tok.Flag, "-std"):
		inv.Flags = append(inv.Flags, rejoinFlag(tok.Flag, tok.Value))
	default:
		inv.UnrecognizedFlags = append(inv.UnrecognizedFlags, rejoinFlag(tok.Flag, tok.Value))
	}
}

func appendUniqueLib(libs []string, name string) []string {
	for _, l := range libs {
		if l == name {
			return libs
		}
	}
	return append(libs, name)
}

func rejoinFlag(flag, value string) string {
	if value == "" {
		return flag
	}
	return flag + "=" + value
}

func splitDefine(value string) (name, def string) {
	if i := strings.IndexByte(value, '='); i >= 0 {
		return value[:i], value[i+1:]
	}
	return value, ""
}

// ParseArchiverInvocation parses a static archiver (`ar`) argv: the mode
// string (e.g. "rcs") and the member files, with the first member after
// the mode being the archive itself.
func ParseArchiverInvocation(argv []string) Invocation {
	inv := Invocation{IsArchiver: true, Defines: make(map[string]string)}
	if len(argv) == 0 {
		return inv
	}
	// argv[0] is the mode string ("rcs", "cr", ...), not a flag at all;
	// ar has its own tiny grammar distinct from GCC's.
	rest := argv[1:]
	if len(rest) > 0 {
		inv.Output = rest[0]
		inv.Inputs = append(inv.Inputs, rest[1:]...)
	}
	return inv
}

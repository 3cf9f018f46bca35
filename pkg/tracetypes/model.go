// Package tracetypes is the data model of §3: MetaData, Process, file
// access records, the Reference discriminated union, tagged TraceNode
// variants, and the BuildTarget classification GraphBuilder and
// StepRecognizer produce.
package tracetypes

import "fmt"

// Access classifies how a process touched a file over the life of the
// trace, per §3.
type Access int

const (
	// Created means the file did not exist before this process's first
	// touch and does exist (with content) after.
	Created Access = iota
	// Read means the file was opened for reading and never written.
	Read
	// Modified means the file existed before and was written to.
	Modified
	// WrittenButUnchanged means a write syscall on the file was observed
	// but its content hash did not change (a rebuild that produced
	// identical output).
	WrittenButUnchanged
	// Deleted means the file existed and was removed by this process.
	Deleted
)

func (a Access) String() string {
	switch a {
	case Created:
		return "CREATED"
	case Read:
		return "READ"
	case Modified:
		return "MODIFIED"
	case WrittenButUnchanged:
		return "WRITTEN_BUT_UNCHANGED"
	case Deleted:
		return "DELETED"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// MetaData carries session-wide information gathered before tracing
// begins: the project root, the build directory, and the tool search
// path results consulted throughout the run.
type MetaData struct {
	ProjectRoot string
	BuildDir    string
	SearchDirs  []string
}

// Process is one traced process's record: its argv, working directory,
// parent, exit status, and the files it touched, keyed by the path
// recorded in each file's close event.
type Process struct {
	ID       int64
	PID      int
	ParentID int64
	Argv     []string
	Cwd      string
	ExitCode int
	// BeginOrdering/EndOrdering bound every FileRecord ordering this
	// process owns: BeginOrdering < every Files[*].OpenOrdering/
	// CloseOrdering < EndOrdering, per §3's global invariant.
	BeginOrdering int64
	EndOrdering   int64
	Files         map[string]*FileRecord
}

// FileRecord is one file's observed access history within a single
// process.
type FileRecord struct {
	Path         string
	RenamedFrom  string
	OpenOrdering int64
	CloseOrdering int64
	Access       Access
	HashBefore   string
	HashAfter    string
}

// ReferenceKind discriminates the four ways an argument to a compiler or
// linker invocation can name a file, per reference.cc, plus
// BuildTargetRef.
type ReferenceKind int

const (
	// Absolute is an absolute filesystem path.
	Absolute ReferenceKind = iota
	// RelativeToProjectRoot is a path relative to MetaData.ProjectRoot.
	RelativeToProjectRoot
	// RelativeToBuildDir is a path relative to MetaData.BuildDir.
	RelativeToBuildDir
	// Library is a `-lfoo` style linker library reference.
	Library
	// BuildTargetRef refers to another reconstructed BuildTarget by its
	// qualified name; this fifth kind exists only in this spec's own
	// reference-resolution pass and has no analogue in reference.cc.
	BuildTargetRef
)

// Reference is a single resolved argument reference.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

// NodeKind discriminates the tagged variants of TraceNode.
type NodeKind int

const (
	SourceFileNode NodeKind = iota
	GeneratedFileNode
	ProcessNode
	CompileStepNode
	StaticLinkStepNode
	DynamicLinkStepNode
)

// TraceNode is the tagged-union node type of the build graph. Each
// variant carries its own identity string, formed as described in §3:
// `source/<path>`, `gen/<hex-sha1>:<path>`, `proc/<id>`, `compile/<id>`,
// `slink/<id>`, `dlink/<id>`.
type TraceNode struct {
	Kind NodeKind

	// SourceFile / GeneratedFile
	Path string
	Hash string // GeneratedFile only

	// Process
	ProcessID int64
	Argv      []string
	Cwd       string

	// Step nodes (Compile/StaticLink/DynamicLink)
	StepID  int64
	Target  *BuildTarget
}

// ID returns the node's identity string, used as the Graph key.
func (n *TraceNode) ID() string {
	switch n.Kind {
	case SourceFileNode:
		return "source/" + n.Path
	case GeneratedFileNode:
		return fmt.Sprintf("gen/%s:%s", n.Hash, n.Path)
	case ProcessNode:
		return fmt.Sprintf("proc/%d", n.ProcessID)
	case CompileStepNode:
		return fmt.Sprintf("compile/%d", n.StepID)
	case StaticLinkStepNode:
		return fmt.Sprintf("slink/%d", n.StepID)
	case DynamicLinkStepNode:
		return fmt.Sprintf("dlink/%d", n.StepID)
	default:
		return fmt.Sprintf("unknown/%d", n.StepID)
	}
}

// TargetKind discriminates the two BuildTarget shapes named in §3.
type TargetKind int

const (
	CCompile TargetKind = iota
	CLink
)

// BuildTarget is the semantic build step a StepRecognizer rewrite
// produces: a compile of one source into one object, or a link of
// several objects/libraries into one output, in the structured
// CCompile/CLink shape of §3 rather than raw argv.
type BuildTarget struct {
	Kind          TargetKind
	QualifiedName string
	Output        string
	Inputs        []Reference
	Tool          string
	Args          []string

	// IsCC is true when the driver name ends in "++" (a C++ frontend).
	IsCC bool
	// IsLibrary is true for CLink targets built with -shared, and for
	// CLink targets produced by the static archiver.
	IsLibrary bool
	// Install is reserved for a future pkg/installdb-backed pass that
	// marks a target as one whose output also ships in an installed
	// package manifest; StepRecognizer never sets it.
	Install bool

	// Flags are the passed-through -W*/-f*/-std* tokens, in argv order.
	Flags []string
	// Defines maps -D names to their value ("" for a bare -D<name>),
	// with -U<name> entries removed before the target is built.
	Defines map[string]string
	// HeaderSearchPath holds -I directories (CCompile only).
	HeaderSearchPath []Reference
	// Headers holds the .h files the compile's cc1/cc1plus frontend
	// process read, sorted, per §4.5.
	Headers []Reference
	// LibrarySearchPath holds -L directories not in the tool's standard
	// set (CLink only).
	LibrarySearchPath []Reference
	// FrontendProcessID is the maketrace process id (the ProcessID of its
	// Process node, not the OS pid) of the cc1/cc1plus child that
	// did the actual parsing (CCompile only); the driver process named by
	// Tool/Args spawns it but never touches the source file itself.
	FrontendProcessID int64
}

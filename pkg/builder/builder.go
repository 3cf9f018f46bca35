// Package builder implements GraphBuilder (§4.3): it folds a sequence of
// trace events into the raw process/file DAG that StepRecognizer later
// collapses into semantic build targets.
//
// The fold-over-an-ordered-stream shape is grounded on
// crux/pkg/begat/lib/prep.go's Parse.prep(), which walks a parsed
// program's statements accumulating dependency maps in a single pass.
package builder

import (
	"github.com/google/maketrace/internal/mtlog"
	"github.com/google/maketrace/pkg/fshash"
	"github.com/google/maketrace/pkg/graph"
	"github.com/google/maketrace/pkg/installdb"
	"github.com/google/maketrace/pkg/tracetypes"
)

// Builder accumulates a raw TraceNode graph from an ordered Event
// stream. Zero value is not usable; construct with New.
type Builder struct {
	g        *graph.Graph[*tracetypes.TraceNode]
	installs *installdb.DB
	procArgv map[int64][]string
	procCwd  map[int64]string
	// generators maps an absolute path to the process id that most
	// recently produced it, so a later reader gets an edge from the
	// generating process rather than being treated as a bare source file.
	generators map[string]int64
	// generatedHash maps the same path to the content hash MarkGenerated
	// stamped on its GeneratedFile node, so a later read resolves to the
	// SAME hashed node identity instead of building a fresh hash-less one.
	generatedHash map[string]string
}

// New returns an empty Builder. installs may be nil (SUPPLEMENT 1 is
// optional).
func New(installs *installdb.DB) *Builder {
	return &Builder{
		g:             graph.New[*tracetypes.TraceNode](),
		installs:      installs,
		procArgv:      make(map[int64][]string),
		procCwd:       make(map[int64]string),
		generators:    make(map[string]int64),
		generatedHash: make(map[string]string),
	}
}

// Apply folds one trace event into the graph, per §4.3's event-to-edge
// rules.
func (b *Builder) Apply(e tracetypes.Event) {
	switch e.Syscall {
	case "execve":
		b.applyExec(e)
	case "open", "openat", "creat":
		b.applyOpen(e)
	case "rename", "renameat":
		b.applyRename(e)
	case "unlink", "unlinkat":
		b.applyUnlink(e)
	case "close":
		b.applyClose(e)
	default:
		// write/dup/fork/exit and friends only matter to the Tracer's own
		// FileRecord bookkeeping (§4.1); GraphBuilder only cares once a
		// path has been named by open/openat/rename/close.
	}
}

func (b *Builder) procNode(id int64) *tracetypes.TraceNode {
	n := &tracetypes.TraceNode{Kind: tracetypes.ProcessNode, ProcessID: id, Argv: b.procArgv[id], Cwd: b.procCwd[id]}
	b.g.AddNode(n)
	return n
}

func (b *Builder) applyExec(e tracetypes.Event) {
	b.procArgv[e.ProcID] = e.Argv
	b.procCwd[e.ProcID] = e.Cwd
	proc := b.procNode(e.ProcID)
	if e.ParentID != 0 {
		parent := b.procNode(e.ParentID)
		_ = b.g.AddEdge(parent.ID(), proc.ID())
	}
}

// applyOpen records an edge from the named file to the acting process,
// per §4.3: an open of a path a process has generated joins that
// generator's GeneratedFile node; any other path, absolute or relative,
// becomes a SourceFile node (the optional installdb only logs the owning
// system package). Generators are recorded by applyClose through
// MarkGenerated, not here.
func (b *Builder) applyOpen(e tracetypes.Event) {
	if e.Path == "" {
		return
	}
	proc := b.procNode(e.ProcID)

	if genProc, ok := b.generators[e.Path]; ok {
		gen := b.procNode(genProc)
		// Same path + same hash the generator stamped via MarkGenerated
		// yields the same node identity (gen/<hash>:<path>), so AddNode
		// is a no-op here and this read joins the existing node rather
		// than creating a hash-less duplicate.
		file := &tracetypes.TraceNode{Kind: tracetypes.GeneratedFileNode, Path: e.Path, Hash: b.generatedHash[e.Path]}
		b.g.AddNode(file)
		_ = b.g.AddEdge(gen.ID(), file.ID())
		_ = b.g.AddEdge(file.ID(), proc.ID())
		return
	}

	if pkg, ok := b.installs.Lookup(e.Path); ok {
		mtlog.L().WithFields(map[string]interface{}{"path": e.Path, "package": pkg}).Debug("builder: absolute path attributed to installed package")
	}

	src := &tracetypes.TraceNode{Kind: tracetypes.SourceFileNode, Path: e.Path}
	b.g.AddNode(src)
	_ = b.g.AddEdge(src.ID(), proc.ID())
}

// MarkGenerated records that e.ProcID produced e.Path, so a later open
// of the same path attributes it to this process rather than treating it
// as a source leaf. Called by applyClose for close events classified
// Created, Modified or WrittenButUnchanged.
func (b *Builder) MarkGenerated(procID int64, path string) {
	b.generators[path] = procID
	gen := b.procNode(procID)
	h, err := fshash.HashFile(path)
	if err != nil {
		h = ""
	}
	b.generatedHash[path] = h
	file := &tracetypes.TraceNode{Kind: tracetypes.GeneratedFileNode, Path: path, Hash: h}
	b.g.AddNode(file)
	_ = b.g.AddEdge(gen.ID(), file.ID())
}

func (b *Builder) applyRename(e tracetypes.Event) {
	if genProc, ok := b.generators[e.Path]; ok {
		b.generators[e.NewPath] = genProc
		delete(b.generators, e.Path)
		b.generatedHash[e.NewPath] = b.generatedHash[e.Path]
		delete(b.generatedHash, e.Path)
	}
}

func (b *Builder) applyUnlink(e tracetypes.Event) {
	delete(b.generators, e.Path)
}

// applyClose is the Tracer's "close" event, carrying the finalized Access
// classification for one file a process touched (§4.1). Only the
// classifications that imply new or changed content on disk attribute the
// path to this process as its generator; a pure READ never does, so a
// process that only reads a file never shadows its actual generator (or
// lack of one).
func (b *Builder) applyClose(e tracetypes.Event) {
	switch e.Access {
	case tracetypes.Created, tracetypes.Modified, tracetypes.WrittenButUnchanged:
		b.MarkGenerated(e.ProcID, e.Path)
	}
}

// Graph returns the accumulated raw graph. Isolated nodes (file nodes
// with neither a generator process edge nor a consumer edge, an artifact
// of ignored-process filtering upstream in TraceReader) are pruned
// before returning, per §4.3's cleanup step.
func (b *Builder) Graph() *graph.Graph[*tracetypes.TraceNode] {
	for _, id := range b.g.Nodes() {
		if b.g.InDegree(id) == 0 && b.g.OutDegree(id) == 0 {
			b.g.RemoveNode(id)
		}
	}
	return b.g
}

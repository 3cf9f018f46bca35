// Package steprecognizer implements the three rewrite rules of §4.4:
// collapsing a compiler invocation (and its cc1/as helpers) into a
// CompileStep, an archiver invocation (and any ranlib child) into a
// StaticLinkStep, and a linker invocation (walking up through collect2
// to the invoking gcc/g++) into a DynamicLinkStep.
//
// The fixpoint driving loop mirrors crux/pkg/begat/lib/begat.go's
// runGroup/progress-flag control loop: keep re-scanning for matches
// until a pass makes no further progress or the iteration cap trips.
package steprecognizer

import (
	"sort"
	"strings"

	"github.com/google/maketrace/internal/mtconfig"
	"github.com/google/maketrace/internal/mtlog"
	"github.com/google/maketrace/pkg/argvlex"
	"github.com/google/maketrace/pkg/fshash"
	"github.com/google/maketrace/pkg/graph"
	"github.com/google/maketrace/pkg/tracetypes"
)

var compilerBasenames = map[string]bool{"gcc": true, "g++": true, "cc": true, "c++": true, "clang": true, "clang++": true}
var compilerHelperBasenames = map[string]bool{"cc1": true, "cc1plus": true, "as": true}

// frontendBasenames are the cc1/cc1plus preprocessor-and-parser helpers
// whose incoming file-read edges become a CompileStep's "headers" list,
// per §4.5 ("pull all .h files the frontend process read").
var frontendBasenames = map[string]bool{"cc1": true, "cc1plus": true}

var archiverBasenames = map[string]bool{"ar": true}
var ranlibBasenames = map[string]bool{"ranlib": true}
var linkerBasenames = map[string]bool{"ld": true}
var collect2Basenames = map[string]bool{"collect2": true}

// sourceExtensions classifies a Reference as RelativeToProjectRoot
// rather than RelativeToBuildDir, per reference.cc's extension-based
// path categorization.
var sourceExtensions = map[string]bool{
	"c": true, "C": true, "cc": true, "cpp": true, "cxx": true,
	"h": true, "hh": true, "hpp": true, "hxx": true, "inc": true, "S": true,
}

func basename(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	i := strings.LastIndexByte(argv[0], '/')
	if i < 0 {
		return argv[0]
	}
	return argv[0][i+1:]
}

// Namer issues qualified names for the recognized build targets.
type Namer = argvlex.Namer

// Recognize runs all three rewrite rules over g to a fixpoint, returning
// the recognized BuildTargets in the order their steps were created.
func Recognize(g *graph.Graph[*tracetypes.TraceNode], cfg mtconfig.Config, namer *Namer) []*tracetypes.BuildTarget {
	var targets []*tracetypes.BuildTarget

	collapseCompiles(g, namer, &targets, cfg.RewriteIterationCap)
	collapseStaticLinks(g, namer, &targets, cfg.RewriteIterationCap)
	collapseDynamicLinks(g, namer, &targets, cfg.RewriteIterationCap)

	return targets
}

// collapseCompiles finds every Process node whose argv is a `-c`
// compiler invocation, folds in any cc1/as helper child processes, and
// replaces the whole set with a single CompileStep node carrying the
// recognized BuildTarget.
func collapseCompiles(g *graph.Graph[*tracetypes.TraceNode], namer *Namer, targets *[]*tracetypes.BuildTarget, cap int) {
	var stepID int64
	for iter := 0; iter < cap; iter++ {
		progressed := false
		for _, id := range g.Nodes() {
			n, _ := g.Node(id)
			if n.Kind != tracetypes.ProcessNode || len(n.Argv) == 0 {
				continue
			}
			tool := basename(n.Argv)
			if !compilerBasenames[tool] {
				continue
			}
			inv := argvlex.ParseGCCInvocation(n.Argv[1:])
			if !inv.Compile {
				continue
			}
			headers, frontendPID := gatherFrontendHeaders(g, n)
			stepID++
			step := &tracetypes.TraceNode{
				Kind:   tracetypes.CompileStepNode,
				StepID: stepID,
				Target: buildCompileTarget(namer, tool, n.Argv, inv, headers, frontendPID),
			}
			absorbHelpersAndCollapse(g, n, step, compilerHelperBasenames)
			*targets = append(*targets, step.Target)
			progressed = true
			break // graph mutated; restart the scan
		}
		if !progressed {
			return
		}
	}
	mtlog.L().Warn("steprecognizer: compile collapse hit its iteration cap")
}

// gatherFrontendHeaders finds n's direct cc1/cc1plus child, if any, and
// returns the sorted paths of everything that fed into it (the headers
// the frontend read) along with that child's own process id, before
// absorbHelpersAndCollapse removes the child node from the graph.
func gatherFrontendHeaders(g *graph.Graph[*tracetypes.TraceNode], n *tracetypes.TraceNode) ([]string, int64) {
	var headers []string
	var frontendPID int64
	for _, childID := range g.Outgoing(n.ID()) {
		child, ok := g.Node(childID)
		if !ok || child.Kind != tracetypes.ProcessNode || !frontendBasenames[basename(child.Argv)] {
			continue
		}
		frontendPID = child.ProcessID
		for _, inID := range g.Incoming(childID) {
			in, ok := g.Node(inID)
			if !ok || (in.Kind != tracetypes.SourceFileNode && in.Kind != tracetypes.GeneratedFileNode) {
				continue
			}
			if fshash.SplitExt(in.Path) == "h" {
				headers = append(headers, in.Path)
			}
		}
	}
	sort.Strings(headers)
	return headers, frontendPID
}

func buildCompileTarget(namer *Namer, tool string, argv []string, inv argvlex.Invocation, headers []string, frontendPID int64) *tracetypes.BuildTarget {
	qualifyFrom := inv.Output
	if len(inv.Inputs) > 0 {
		qualifyFrom = inv.Inputs[0]
	}
	qname := namer.Qualify(qualifyFrom)

	var inputs []tracetypes.Reference
	for _, in := range inv.Inputs {
		inputs = append(inputs, tracetypes.Reference{Kind: classifyRef(in), Value: in})
	}
	var headerSearchPath []tracetypes.Reference
	for _, dir := range inv.IncludeDirs {
		headerSearchPath = append(headerSearchPath, tracetypes.Reference{Kind: classifyRef(dir), Value: dir})
	}
	var headerRefs []tracetypes.Reference
	for _, h := range headers {
		headerRefs = append(headerRefs, tracetypes.Reference{Kind: classifyRef(h), Value: h})
	}

	return &tracetypes.BuildTarget{
		Kind:              tracetypes.CCompile,
		QualifiedName:     qname,
		Output:            inv.Output,
		Inputs:            inputs,
		Tool:              tool,
		Args:              argv[1:],
		IsCC:              strings.HasSuffix(tool, "++"),
		Flags:             inv.Flags,
		Defines:           inv.Defines,
		HeaderSearchPath:  headerSearchPath,
		Headers:           headerRefs,
		FrontendProcessID: frontendPID,
	}
}

// collapseStaticLinks finds every Process node whose argv is an `ar`
// invocation, folds in any direct child process of it named ranlib, and
// replaces them with a StaticLinkStep. A ranlib run as a separate process
// after ar (not a child of it) is not absorbed and stays in the graph.
func collapseStaticLinks(g *graph.Graph[*tracetypes.TraceNode], namer *Namer, targets *[]*tracetypes.BuildTarget, cap int) {
	var stepID int64
	for iter := 0; iter < cap; iter++ {
		progressed := false
		for _, id := range g.Nodes() {
			n, _ := g.Node(id)
			if n.Kind != tracetypes.ProcessNode || len(n.Argv) == 0 {
				continue
			}
			if !archiverBasenames[basename(n.Argv)] {
				continue
			}
			inv := argvlex.ParseArchiverInvocation(n.Argv[1:])
			target := buildLinkTarget(namer, tracetypes.CLink, "ar", n.Argv, inv.Output, inv.Inputs)
			target.IsLibrary = true
			stepID++
			step := &tracetypes.TraceNode{
				Kind:   tracetypes.StaticLinkStepNode,
				StepID: stepID,
				Target: target,
			}
			absorbHelpersAndCollapse(g, n, step, ranlibBasenames)
			*targets = append(*targets, step.Target)
			progressed = true
			break
		}
		if !progressed {
			return
		}
	}
	mtlog.L().Warn("steprecognizer: static link collapse hit its iteration cap")
}

// collapseDynamicLinks finds every Process node running `ld`, walks up
// its parent chain through any collect2 ancestor to the invoking
// gcc/g++, and replaces the whole chain with a DynamicLinkStep. §9 Open
// Question 3 keeps this collect2-to-gcc assumption as specified.
func collapseDynamicLinks(g *graph.Graph[*tracetypes.TraceNode], namer *Namer, targets *[]*tracetypes.BuildTarget, cap int) {
	var stepID int64
	for iter := 0; iter < cap; iter++ {
		progressed := false
		for _, id := range g.Nodes() {
			n, _ := g.Node(id)
			if n.Kind != tracetypes.ProcessNode || len(n.Argv) == 0 {
				continue
			}
			if !linkerBasenames[basename(n.Argv)] {
				continue
			}
			chain := []*tracetypes.TraceNode{n}
			cur := n
			for {
				parentID := soleParent(g, cur.ID())
				if parentID == "" {
					break
				}
				parent, ok := g.Node(parentID)
				if !ok || parent.Kind != tracetypes.ProcessNode {
					break
				}
				pb := basename(parent.Argv)
				if collect2Basenames[pb] || compilerBasenames[pb] {
					chain = append(chain, parent)
					cur = parent
					if compilerBasenames[pb] {
						break
					}
					continue
				}
				break
			}
			inv := argvlex.ParseGCCInvocation(n.Argv[1:])
			driver := basename(chain[len(chain)-1].Argv)
			stepID++
			target := buildLinkTarget(namer, tracetypes.CLink, "ld", n.Argv, inv.Output, inv.Inputs)
			target.IsLibrary = inv.Shared
			target.IsCC = strings.HasSuffix(driver, "++")
			target.Flags = inv.Flags
			for _, lib := range inv.Libs {
				target.Inputs = append(target.Inputs, tracetypes.Reference{Kind: tracetypes.Library, Value: lib})
			}
			for _, dir := range inv.LibDirs {
				target.LibrarySearchPath = append(target.LibrarySearchPath, tracetypes.Reference{Kind: classifyRef(dir), Value: dir})
			}
			step := &tracetypes.TraceNode{
				Kind:   tracetypes.DynamicLinkStepNode,
				StepID: stepID,
				Target: target,
			}
			absorbChainAndCollapse(g, chain, step)
			*targets = append(*targets, step.Target)
			progressed = true
			break
		}
		if !progressed {
			return
		}
	}
	mtlog.L().Warn("steprecognizer: dynamic link collapse hit its iteration cap")
}

func buildLinkTarget(namer *Namer, kind tracetypes.TargetKind, tool string, argv []string, output string, inputPaths []string) *tracetypes.BuildTarget {
	qname := namer.Qualify(output)
	var inputs []tracetypes.Reference
	for _, in := range inputPaths {
		inputs = append(inputs, tracetypes.Reference{Kind: classifyRef(in), Value: in})
	}
	return &tracetypes.BuildTarget{
		Kind:          kind,
		QualifiedName: qname,
		Output:        output,
		Inputs:        inputs,
		Tool:          tool,
		Args:          argv[1:],
	}
}

// classifyRef categorizes a path argument the way reference.cc does:
// absolute paths are Absolute; relative paths are split by extension
// between project sources (RelativeToProjectRoot) and build-directory
// artifacts (RelativeToBuildDir). "-l" dependency names are classified
// as Library directly by their caller, not through this path heuristic.
func classifyRef(path string) tracetypes.ReferenceKind {
	if strings.HasPrefix(path, "/") {
		return tracetypes.Absolute
	}
	if sourceExtensions[fshash.SplitExt(path)] {
		return tracetypes.RelativeToProjectRoot
	}
	return tracetypes.RelativeToBuildDir
}

// soleParent returns id's single Process-graph parent, or "" if it has
// zero or more than one (ambiguous ancestry is not walked).
func soleParent(g *graph.Graph[*tracetypes.TraceNode], id string) string {
	var parents []string
	for _, in := range g.Incoming(id) {
		if n, ok := g.Node(in); ok && n.Kind == tracetypes.ProcessNode {
			parents = append(parents, in)
		}
	}
	if len(parents) != 1 {
		return ""
	}
	return parents[0]
}

// absorbHelpersAndCollapse removes n and any of its direct Process
// children whose basename is in helpers, rewiring n's remaining external
// edges onto step, then inserts step.
func absorbHelpersAndCollapse(g *graph.Graph[*tracetypes.TraceNode], n *tracetypes.TraceNode, step *tracetypes.TraceNode, helpers map[string]bool) {
	toRemove := []string{n.ID()}
	for _, childID := range g.Outgoing(n.ID()) {
		child, ok := g.Node(childID)
		if !ok || child.Kind != tracetypes.ProcessNode {
			continue
		}
		if helpers[basename(child.Argv)] {
			toRemove = append(toRemove, childID)
		}
	}
	collapseSet(g, toRemove, step)
}

func absorbChainAndCollapse(g *graph.Graph[*tracetypes.TraceNode], chain []*tracetypes.TraceNode, step *tracetypes.TraceNode) {
	ids := make([]string, len(chain))
	for i, n := range chain {
		ids[i] = n.ID()
	}
	collapseSet(g, ids, step)
}

// collapseSet removes every node in ids, rewiring external edges onto
// step, then adds step. Mirrors graph.FindAndReplaceSubgraph's collapse
// step but operates on an explicit node set rather than a discovered
// Match, since these two rules need ancestry-aware selection that the
// generic structural matcher does not express.
func collapseSet(g *graph.Graph[*tracetypes.TraceNode], ids []string, step *tracetypes.TraceNode) {
	matched := make(map[string]bool, len(ids))
	for _, id := range ids {
		matched[id] = true
	}
	var externalIn, externalOut []string
	for _, id := range ids {
		for _, from := range g.Incoming(id) {
			if !matched[from] {
				externalIn = append(externalIn, from)
			}
		}
		for _, to := range g.Outgoing(id) {
			if !matched[to] {
				externalOut = append(externalOut, to)
			}
		}
	}
	for _, id := range ids {
		g.RemoveNode(id)
	}
	g.AddNode(step)
	for _, from := range externalIn {
		_ = g.AddEdge(from, step.ID())
	}
	for _, to := range externalOut {
		_ = g.AddEdge(step.ID(), to)
	}
}

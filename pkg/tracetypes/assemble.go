package tracetypes

import "sort"

// Assemble folds an ordered Event stream into the per-process view of §3:
// one Process per ProcID, each carrying the FileRecords its "close" events
// resolved. Mirrors GraphBuilder's single-pass fold over the same stream,
// but accumulates Process/FileRecord structs instead of graph nodes.
func Assemble(events []Event) []*Process {
	procs := make(map[int64]*Process)

	get := func(id int64) *Process {
		p, ok := procs[id]
		if !ok {
			p = &Process{ID: id, Files: make(map[string]*FileRecord)}
			procs[id] = p
		}
		return p
	}

	for _, e := range events {
		p := get(e.ProcID)
		switch e.Syscall {
		case "fork":
			p.ParentID = e.ParentID
			p.BeginOrdering = e.Seq
		case "execve":
			p.Argv = e.Argv
			p.Cwd = e.Cwd
			if p.BeginOrdering == 0 {
				p.BeginOrdering = e.Seq
			}
		case "close":
			assembleClose(p, e)
		case "exit":
			p.ExitCode = e.ExitCode
			p.EndOrdering = e.Seq
		}
	}

	ids := make([]int64, 0, len(procs))
	for id := range procs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*Process, len(ids))
	for i, id := range ids {
		out[i] = procs[id]
	}
	return out
}

// assembleClose resolves one "close" event into p's FileRecord for the
// path, applying §4.1's reconciliation rule that a file CREATED under a
// name it was later renamed to drops the rename: the record reads as a
// plain CREATED under the final path, not a created-then-renamed file.
func assembleClose(p *Process, e Event) {
	rec := &FileRecord{
		Path:          e.Path,
		RenamedFrom:   e.RenamedFrom,
		OpenOrdering:  e.OpenOrdering,
		CloseOrdering: e.Seq,
		Access:        e.Access,
	}
	if rec.Access == Created {
		rec.RenamedFrom = ""
	}
	p.Files[rec.Path] = rec
}

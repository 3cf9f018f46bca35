package tracetypes

import (
	"bufio"
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// Event is one line of the trace's opaque event log: a syscall
// observation the Tracer emits and TraceReader later replays in order.
// The wire format is intentionally simple line-delimited JSON, matching
// the "opaque callback / accumulator" collaborator boundary of §6 rather
// than a fixed protobuf schema, which is explicitly out of scope there.
type Event struct {
	Seq         int64    `json:"seq"`
	ProcID      int64    `json:"proc_id"`
	Syscall     string   `json:"syscall"`
	Path        string   `json:"path,omitempty"`
	NewPath     string   `json:"new_path,omitempty"` // rename
	RenamedFrom string   `json:"renamed_from,omitempty"`
	FD          int      `json:"fd,omitempty"`
	Argv        []string `json:"argv,omitempty"`
	Cwd         string   `json:"cwd,omitempty"`
	ParentID    int64    `json:"parent_id,omitempty"`
	// ExitCode is the traced process's real exit status, carried only on
	// a "exit" event; "close" events never set it.
	ExitCode int `json:"exit_code,omitempty"`
	// Access is the fold outcome of a "close" event, per §4.1's
	// process-exit finalization.
	Access Access `json:"access,omitempty"`
	// OpenOrdering is the Seq of the open (or rename-without-open) that
	// began this file's lifetime, carried on the matching "close" event.
	OpenOrdering int64 `json:"open_ordering,omitempty"`
}

// Writer appends Events to an underlying stream in arrival order,
// grounded on begat/lib/blackbox.go's BlackBox.Record: an append-only
// event recorder that a separate pass replays.
type Writer struct {
	w   *bufio.Writer
	enc *json.Encoder
	seq int64
}

// NewWriter wraps w for event recording.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{w: bw, enc: json.NewEncoder(bw)}
}

// Write records one event, assigning it the next sequence number.
func (rw *Writer) Write(e Event) error {
	rw.seq++
	e.Seq = rw.seq
	if err := rw.enc.Encode(e); err != nil {
		return errors.Wrap(err, "encoding trace event")
	}
	return nil
}

// LastSeq returns the sequence number assigned to the most recently
// written Event, so a caller that needs to stamp a later event with the
// ordering of one it just wrote (e.g. OpenOrdering) doesn't have to
// thread the counter through separately.
func (rw *Writer) LastSeq() int64 {
	return rw.seq
}

// Flush pushes buffered output to the underlying writer.
func (rw *Writer) Flush() error {
	return errors.Wrap(rw.w.Flush(), "flushing trace writer")
}

// Reader replays a Writer's output in the original sequence order.
type Reader struct {
	dec *json.Decoder
}

// NewReader wraps r for event replay.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(bufio.NewReader(r))}
}

// ReadAll reads every event in the stream, in sequence order (the wire
// format already writes them in order, but this re-sorts defensively
// since TraceReader's contract in §4 promises "sorted by global
// ordering" regardless of source).
func (rr *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		var e Event
		if err := rr.dec.Decode(&e); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "decoding trace event")
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })
	return events, nil
}

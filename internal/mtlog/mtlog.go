// Package mtlog is the process-wide structured logger for maketrace.
//
// Every component logs through the single entry returned by L(), which
// carries a runID field. The run ID is process-wide: it stays the same
// for every run in the process until NewRun replaces it.
package mtlog

import (
	"io"
	"os"
	"sync"

	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"
)

var (
	mu     sync.Mutex
	base   = logrus.New()
	runID  = uuid.New()
	entry  = logrus.NewEntry(base).WithField("run", runID)
)

func init() {
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// L returns the process-wide log entry, pre-tagged with a run ID.
func L() *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	return entry
}

// SetOutput redirects all logging output. Tests use this to capture or
// silence log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base.SetOutput(w)
}

// SetLevel sets the minimum log level.
func SetLevel(lvl logrus.Level) {
	mu.Lock()
	defer mu.Unlock()
	base.SetLevel(lvl)
}

// NewRun replaces the run ID tag, used when a process wants to start a
// fresh, distinguishable trace session without restarting.
func NewRun() string {
	mu.Lock()
	defer mu.Unlock()
	runID = uuid.New()
	entry = logrus.NewEntry(base).WithField("run", runID)
	return runID
}

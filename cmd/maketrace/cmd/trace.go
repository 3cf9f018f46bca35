package cmd

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/google/maketrace/internal/mtconfig"
	"github.com/google/maketrace/internal/mtlog"
	"github.com/google/maketrace/pkg/argvlex"
	"github.com/google/maketrace/pkg/builder"
	"github.com/google/maketrace/pkg/dedup"
	"github.com/google/maketrace/pkg/fshash"
	"github.com/google/maketrace/pkg/installdb"
	"github.com/google/maketrace/pkg/refresolve"
	"github.com/google/maketrace/pkg/steprecognizer"
	"github.com/google/maketrace/pkg/tracer"
	"github.com/google/maketrace/pkg/tracetypes"
)

var (
	metricsAddr     string
	outputPath      string
	processDumpPath string
)

var traceCmd = &cobra.Command{
	Use:   "trace -- <build command> [args...]",
	Short: "Run a build command under ptrace and reconstruct its build targets",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address while tracing")
	traceCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "where to write the reconstructed targets as JSON (\"-\" for stdout)")
	traceCmd.Flags().StringVar(&processDumpPath, "process-dump", "", "if set, write the assembled per-process/per-file trace record as JSON to this path")
}

func runTrace(c *cobra.Command, args []string) error {
	cfg, err := mtconfig.Load(cfgFile)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			mtlog.L().Warnf("metrics server exited: %v", http.ListenAndServe(metricsAddr, nil))
		}()
	}

	var installs *installdb.DB
	if cfg.InstalledFilesManifest != "" {
		installs, err = installdb.Load(cfg.InstalledFilesManifest)
		if err != nil {
			return errors.Wrap(err, "loading installed-files manifest")
		}
	}

	r, w := newPipe()
	tw := tracetypes.NewWriter(w)
	tr := tracer.New(tw)

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "getting working directory")
	}

	done := make(chan error, 1)
	go func() {
		_, runErr := tr.Run(args, os.Environ(), cwd)
		_ = tw.Flush()
		_ = w.Close()
		done <- runErr
	}()

	tr2 := tracetypes.NewReader(r)
	events, err := tr2.ReadAll()
	if runErr := <-done; runErr != nil {
		return errors.Wrap(runErr, "running traced command")
	}
	if err != nil {
		return errors.Wrap(err, "reading trace events")
	}

	events = filterIgnored(cfg, events)

	if processDumpPath != "" {
		if err := writeProcessDump(processDumpPath, tracetypes.Assemble(events)); err != nil {
			return err
		}
	}

	b := builder.New(installs)
	for _, e := range events {
		b.Apply(e)
	}

	namer := argvlex.NewNamer(cwd)
	targets := steprecognizer.Recognize(b.Graph(), cfg, namer)
	targets = dedup.Dedupe(cfg, targets, cfg.RewriteIterationCap)
	refresolve.Resolve(targets)

	return writeTargets(targets)
}

// filterIgnored drops every event belonging to a process whose most
// recent execve names an ignored basename (§6's process ignore list),
// and separately drops file events naming an ignored extension.
func filterIgnored(cfg mtconfig.Config, events []tracetypes.Event) []tracetypes.Event {
	ignoredProc := make(map[int64]bool)
	for _, e := range events {
		if e.Syscall == "execve" && len(e.Argv) > 0 {
			ignoredProc[e.ProcID] = cfg.IsIgnoredProcess(fshash.Basename(e.Argv[0]))
		}
	}

	var kept []tracetypes.Event
	for _, e := range events {
		if ignoredProc[e.ProcID] {
			continue
		}
		if e.Path != "" && cfg.IsIgnoredExtension(fshash.SplitExt(e.Path)) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func writeTargets(targets []*tracetypes.BuildTarget) error {
	out := os.Stdout
	if outputPath != "-" {
		f, err := os.Create(outputPath)
		if err != nil {
			return errors.Wrapf(err, "creating output file %s", outputPath)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(targets), "encoding reconstructed targets")
}

func writeProcessDump(path string, procs []*tracetypes.Process) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating process dump file %s", path)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(procs), "encoding assembled process dump")
}

func newPipe() (*os.File, *os.File) {
	r, w, err := os.Pipe()
	if err != nil {
		// a pipe failing to open means the process is nearly out of file
		// descriptors; nothing downstream could recover meaningfully.
		panic(err)
	}
	return r, w
}

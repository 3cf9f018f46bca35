// Command maketrace traces a build command and reconstructs the
// semantic build targets (compiles, static links, dynamic links) that
// produced its outputs. It is glue over the core packages, in the shape
// of crux/cmd/organza: a thin cobra entry point, not a build system of
// its own.
package main

import (
	"os"

	"github.com/google/maketrace/cmd/maketrace/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package refresolve is the Reference Resolver of §4.7: it builds an
// index from each BuildTarget's output to its qualified name, then
// rewrites every target's Reference list so path references that
// actually name another reconstructed target become BuildTargetRef
// entries, per §4.7's self-reference and multiple-producer rules.
// Library references are left as they are.
package refresolve

import (
	"github.com/google/maketrace/internal/mtlog"
	"github.com/google/maketrace/pkg/tracetypes"
)

// Resolve mutates targets in place, replacing any Reference whose Value
// matches another target's Output with a BuildTargetRef to that target's
// QualifiedName. Self-references are left unresolved, with a warning; when two
// targets claim the same output, the first one seen wins and the
// collision is logged, matching the "must log, never silent" carve-out
// in §1.
func Resolve(targets []*tracetypes.BuildTarget) {
	outputIndex := make(map[string]*tracetypes.BuildTarget, len(targets))
	for _, t := range targets {
		if existing, ok := outputIndex[t.Output]; ok {
			mtlog.L().WithFields(map[string]interface{}{
				"output": t.Output,
				"first":  existing.QualifiedName,
				"second": t.QualifiedName,
			}).Warn("refresolve: multiple build targets produce the same output; keeping the first seen")
			continue
		}
		outputIndex[t.Output] = t
	}

	for _, t := range targets {
		for i, ref := range t.Inputs {
			if ref.Kind == tracetypes.Library || ref.Kind == tracetypes.BuildTargetRef {
				continue
			}
			producer, ok := outputIndex[ref.Value]
			if !ok {
				continue
			}
			if producer == t {
				mtlog.L().WithField("target", t.QualifiedName).Warn("refresolve: target references its own output; leaving self-reference unresolved")
				continue
			}
			t.Inputs[i] = tracetypes.Reference{Kind: tracetypes.BuildTargetRef, Value: producer.QualifiedName}
		}
	}
}

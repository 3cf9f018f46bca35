// Package dedup implements the Deduplicator of §4.6: it canonicalizes
// each BuildTarget's argv (dropping PIC/SHARED/STATIC defines and the
// output/header-search-path noise that varies run to run without
// changing the target's semantics) and then merges targets that
// canonicalize identically, iterating to a fixpoint the way
// crux/pkg/begat/lib/begat.go's BegatFile control loop does: repeat
// runGroup over the working set until a pass makes no further progress.
package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/maketrace/internal/mtconfig"
	"github.com/google/maketrace/pkg/argvlex"
	"github.com/google/maketrace/pkg/tracetypes"
)

// Canonicalize returns a stable string key for a target's meaning,
// independent of the discardable argv noise mtconfig.Config.DiscardDefines
// names and independent of the output path and include/library search
// flags, which do not affect whether two invocations produce "the same"
// logical build step. Args are re-parsed with argvlex rather than
// string-matched, so a flag's value (whether attached or given as the
// following argv element) is always discarded along with its flag.
func Canonicalize(cfg mtconfig.Config, t *tracetypes.BuildTarget) string {
	inv := argvlex.ParseGCCInvocation(t.Args)

	var defines []string
	for name, value := range inv.Defines {
		if cfg.IsDiscardDefine(name) {
			continue
		}
		defines = append(defines, name+"="+value)
	}
	sort.Strings(defines)

	inputs := append([]string(nil), inv.Inputs...)
	sort.Strings(inputs)
	libs := append([]string(nil), inv.Libs...)
	sort.Strings(libs)

	var refs []string
	for _, r := range t.Inputs {
		refs = append(refs, refKey(r))
	}
	sort.Strings(refs)

	return strings.Join([]string{
		fmt.Sprintf("%d", t.Kind),
		t.Tool,
		fmt.Sprintf("shared=%v static=%v", inv.Shared, inv.Static),
		"D:" + strings.Join(defines, ","),
		"F:" + strings.Join(inv.Flags, ","),
		"L:" + strings.Join(libs, ","),
		"in:" + strings.Join(inputs, ","),
		"refs:" + strings.Join(refs, ","),
	}, "|")
}

func refKey(r tracetypes.Reference) string {
	return fmt.Sprintf("%d:%s", r.Kind, r.Value)
}

// Dedupe merges targets whose Canonicalize keys match, keeping the
// first target seen for each key and dropping later duplicates; any
// BuildTargetRef input that named a dropped duplicate is rewritten to
// name the surviving target. Runs to a fixpoint: folding can itself
// change a later target's canonical key if that target referenced one
// of the merged duplicates, so passes repeat until a pass merges nothing.
func Dedupe(cfg mtconfig.Config, targets []*tracetypes.BuildTarget, iterationCap int) []*tracetypes.BuildTarget {
	working := targets
	for iter := 0; iter < iterationCap; iter++ {
		merged, progressed := dedupePass(cfg, working)
		working = merged
		if !progressed {
			return working
		}
	}
	return working
}

func dedupePass(cfg mtconfig.Config, targets []*tracetypes.BuildTarget) ([]*tracetypes.BuildTarget, bool) {
	byKey := make(map[string]*tracetypes.BuildTarget)
	aliasOf := make(map[string]string) // old qualified name -> surviving qualified name
	var order []string
	progressed := false

	for _, t := range targets {
		key := Canonicalize(cfg, t)
		if existing, ok := byKey[key]; ok {
			aliasOf[t.QualifiedName] = existing.QualifiedName
			progressed = true
			continue
		}
		byKey[key] = t
		order = append(order, key)
	}

	var result []*tracetypes.BuildTarget
	for _, key := range order {
		result = append(result, byKey[key])
	}

	if len(aliasOf) == 0 {
		return result, false
	}

	for _, t := range result {
		for i, ref := range t.Inputs {
			if ref.Kind != tracetypes.BuildTargetRef {
				continue
			}
			if survivor, ok := aliasOf[ref.Value]; ok {
				t.Inputs[i].Value = survivor
				progressed = true
			}
		}
	}
	return result, progressed
}

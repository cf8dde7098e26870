// Package passes is the transformation pipeline and pass framework
// (spec.md §4.1): a registry of named deobfuscation passes, each operating
// on an in-memory class universe, with ordering, tagging, and
// partial-failure semantics.
//
// Grounded on other_examples/IvanShishkin-houndoom__deobfuscator.go's
// Manager/Register/Deobfuscate loop — a registry of named transforms run in
// sequence, catching each one's failure independently and continuing —
// generalized from plain string content to *universe.U, and from a single
// Deobfuscator interface to the richer Pass capability spec.md §3/§4.1
// describes (category, tags, execute(U, verbose) bool).
package passes

import (
	"fmt"

	"threadtear/internal/diag"
	"threadtear/internal/universe"
)

// Category classifies a pass for default-ordering and selection purposes
// (spec.md §3's "Category (analysis/cleaning/generic/vendor-X)").
type Category string

const (
	CategoryAnalysis Category = "analysis"
	CategoryCleaning Category = "cleaning"
	CategoryGeneric  Category = "generic"
	CategoryVendor   Category = "vendor"
)

// Tag is one of the fixed behavioral hints spec.md §3 lists.
type Tag string

const (
	TagShrink             Tag = "SHRINK"
	TagRunnable           Tag = "RUNNABLE"
	TagBetterDecompile    Tag = "BETTER_DECOMPILE"
	TagBetterDeobfuscate  Tag = "BETTER_DEOBFUSCATE"
	TagPossibleDamage     Tag = "POSSIBLE_DAMAGE"
	TagPossiblyMalicious  Tag = "POSSIBLY_MALICIOUS"
)

// Meta is a pass's static description (spec.md §3's "Pass record").
type Meta struct {
	ID          string
	DisplayName string
	Description string
	Category    Category
	Tags        []Tag
}

func (m Meta) HasTag(t Tag) bool {
	for _, existing := range m.Tags {
		if existing == t {
			return true
		}
	}
	return false
}

// Pass is the capability every transform implements (spec.md §4.1): a
// zero-argument-constructible, stateless-between-runs unit with metadata and
// an execute contract that reports whether anything changed.
type Pass interface {
	Metadata() Meta
	Execute(u *universe.U, opts diag.Options) (changed bool, err error)
}

// Registry holds the compiled pass set, keyed by Meta.ID.
type Registry struct {
	order []string
	byID  map[string]Pass
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]Pass{}}
}

// Register adds p to the registry. Registering the same ID twice overwrites
// the previous entry but keeps its position in List's order.
func (r *Registry) Register(p Pass) {
	id := p.Metadata().ID
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = p
}

// List returns every registered pass in registration order (spec.md §4.1's
// listPasses()).
func (r *Registry) List() []Pass {
	out := make([]Pass, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Get returns the pass registered under id, or nil.
func (r *Registry) Get(id string) Pass { return r.byID[id] }

// PassReport is one pass's outcome within a pipeline run.
type PassReport struct {
	ID      string
	Changed bool
	Err     string // empty unless the pass panicked, returned an error, was unknown, or was cancelled before running
}

// Report summarizes a full pipeline run (spec.md §4.1's "summary").
type Report struct {
	Passes []PassReport
}

// AnyChanged reports whether any pass in the run reported a change —
// used by callers implementing spec.md §8 invariant 1/2's idempotence check.
func (r Report) AnyChanged() bool {
	for _, p := range r.Passes {
		if p.Changed {
			return true
		}
	}
	return false
}

// RunPipeline runs selection (a sequence of pass IDs resolved against r) in
// order against u, catching each pass's panics/errors as a pipeline-level
// failure rather than halting the run (spec.md §4.1: "The framework catches
// exceptions from execute and records them ... it never propagates them to
// halt the run"). cancel is checked between passes (spec.md §5).
func RunPipeline(r *Registry, u *universe.U, selection []string, opts diag.Options, cancel diag.Cancel) Report {
	var report Report
	for _, id := range selection {
		if cancel != nil && cancel.Cancelled() {
			report.Passes = append(report.Passes, PassReport{ID: id, Err: "cancelled before run"})
			break
		}
		p := r.Get(id)
		if p == nil {
			report.Passes = append(report.Passes, PassReport{ID: id, Err: "unknown pass"})
			continue
		}
		pr := runOne(p, u, opts)
		report.Passes = append(report.Passes, pr)
		if pr.Err != "" && opts.Mode == diag.ModeStrict {
			break
		}
	}
	return report
}

// runOne executes a single pass, converting a panic into a PassReport error
// the same way a managed runtime's catch-all would (spec.md §4.1).
func runOne(p Pass, u *universe.U, opts diag.Options) (pr PassReport) {
	id := p.Metadata().ID
	pr.ID = id
	defer func() {
		if r := recover(); r != nil {
			pr.Err = fmt.Sprintf("panic: %v", r)
		}
	}()
	changed, err := p.Execute(u, opts)
	pr.Changed = changed
	if err != nil {
		pr.Err = err.Error()
	}
	return pr
}

// Package universe holds the working set of classes a pipeline run
// operates over: U, the map every pass reads and mutates in place.
package universe

import (
	"threadtear/internal/diag"
	"threadtear/internal/ir"
)

// ClassRecord pairs one parsed class with where it came from and any
// per-class failures accumulated while loading or processing it. Grounded
// on the teacher's internal/snapshot.Info, generalized from "one snapshot's
// regions" to "many classes" (DESIGN.md).
type ClassRecord struct {
	Node       *ir.ClassNode
	Provenance string // archive entry path, for diagnostics
	Failures   *diag.Diags
}

// U is the set of classes a pipeline run operates over, keyed by internal
// (slash-separated) class name.
type U struct {
	Classes map[string]*ClassRecord
}

func New() *U {
	return &U{Classes: map[string]*ClassRecord{}}
}

// Add registers a parsed class, overwriting any existing record of the
// same name (duplicate class names inside one archive are a loader-level
// concern, out of scope here per spec.md §1).
func (u *U) Add(node *ir.ClassNode, provenance string) *ClassRecord {
	rec := &ClassRecord{Node: node, Provenance: provenance, Failures: &diag.Diags{}}
	u.Classes[node.Name] = rec
	return rec
}

// Get returns the class record for internal name, or nil.
func (u *U) Get(name string) *ClassRecord { return u.Classes[name] }

// Remove deletes a class by internal name.
func (u *U) Remove(name string) { delete(u.Classes, name) }

// Each calls fn for every class record, in an unspecified order not
// depended on by any pass (spec.md's passes operate per-class or scan all
// of U for references, never relying on traversal order for correctness).
func (u *U) Each(fn func(*ClassRecord)) {
	for _, rec := range u.Classes {
		fn(rec)
	}
}

// Len reports the number of classes currently in U.
func (u *U) Len() int { return len(u.Classes) }

// FindMethodRefs scans every method body in U for direct method-reference
// instructions whose owner equals className, returning each referring
// class once. The unused-class remover (spec.md §4.4.3) does not call it;
// it builds its own broader edge set.
func (u *U) FindMethodRefs(className string) []*ClassRecord {
	var refs []*ClassRecord
	u.Each(func(rec *ClassRecord) {
		for _, m := range rec.Node.Methods {
			if m.Instructions == nil {
				continue
			}
			for _, it := range m.Instructions.Items {
				if mi, ok := it.(*ir.MethodInsn); ok && mi.Owner == className {
					refs = append(refs, rec)
					return
				}
			}
		}
	})
	return refs
}

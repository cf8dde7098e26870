package clean

import (
	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/passes"
	"threadtear/internal/universe"
)

// StripDebugAttributes is a Supplement (SPEC_FULL.md §3): once a prior pass
// has spliced, removed, or renumbered instructions, its LineNumber pseudo-
// instructions and LocalVariable entries may point at stale source
// positions. Rather than try to keep them consistent through every rewrite,
// this pass drops them outright — matching the teacher's own instinct in
// internal/disasm/thraudit.go of stripping unresolved noise before a run's
// output is considered final.
type StripDebugAttributes struct{}

func (StripDebugAttributes) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "clean.strip-debug",
		DisplayName: "Strip debug attributes",
		Description: "Drops all LineNumberTable/LocalVariableTable entries, which earlier rewrites may have invalidated.",
		Category:    passes.CategoryCleaning,
		Tags:        []passes.Tag{passes.TagShrink},
	}
}

func (StripDebugAttributes) Execute(u *universe.U, opts diag.Options) (bool, error) {
	changed := false
	u.Each(func(rec *universe.ClassRecord) {
		for _, m := range rec.Node.Methods {
			if len(m.LocalVariables) > 0 {
				m.LocalVariables = nil
				changed = true
			}
			if m.Instructions == nil {
				continue
			}
			kept := m.Instructions.Items[:0]
			for _, it := range m.Instructions.Items {
				if _, ok := it.(*ir.LineNumber); ok {
					changed = true
					continue
				}
				kept = append(kept, it)
			}
			m.Instructions.Items = kept
		}
	})
	return changed, nil
}

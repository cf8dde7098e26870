package clean

import (
	"threadtear/internal/cfg"
	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/modifier"
	"threadtear/internal/passes"
	"threadtear/internal/universe"
)

// RemoveNopBlocks is a Supplement (SPEC_FULL.md §3): basic blocks
// unreachable from a method's entry block (dead code left behind once
// upstream rewrites fold away the branches that used to reach them) are
// removed outright, using internal/cfg's reachability rather than any
// per-opcode pattern.
type RemoveNopBlocks struct{}

func (RemoveNopBlocks) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "clean.remove-dead-blocks",
		DisplayName: "Remove dead blocks",
		Description: "Deletes basic blocks unreachable from a method's entry point.",
		Category:    passes.CategoryCleaning,
		Tags:        []passes.Tag{passes.TagShrink, passes.TagPossibleDamage},
	}
}

func (RemoveNopBlocks) Execute(u *universe.U, opts diag.Options) (bool, error) {
	changed := false
	u.Each(func(rec *universe.ClassRecord) {
		for _, m := range rec.Node.Methods {
			if m.Instructions == nil || len(m.Instructions.Items) == 0 {
				continue
			}
			g := cfg.Build(m)
			reachable := make([]bool, len(g.Blocks))
			reachable[0] = true
			queue := []int{0}
			for len(queue) > 0 {
				bi := queue[0]
				queue = queue[1:]
				for _, s := range g.Blocks[bi].Succs {
					if !reachable[s.BlockID] {
						reachable[s.BlockID] = true
						queue = append(queue, s.BlockID)
					}
				}
			}

			tcbLabels := map[ir.LabelID]bool{}
			for _, tcb := range m.TryCatchBlocks {
				tcbLabels[tcb.Start] = true
				tcbLabels[tcb.End] = true
				tcbLabels[tcb.Handler] = true
			}

			mod := modifier.New(m)
			any := false
			for _, blk := range g.Blocks {
				if reachable[blk.ID] || blk.End <= blk.Start {
					continue
				}
				if blockHasReferencedLabel(g.Items[blk.Start:blk.End], tcbLabels) {
					// A label inside the dead range is still a try/catch
					// anchor referenced from elsewhere; leave the range
					// alone rather than risk a dangling reference.
					continue
				}
				mod.RemoveRange(blk.Start, blk.End)
				any = true
			}
			if any && mod.Apply() {
				changed = true
			}
		}
	})
	return changed, nil
}

func blockHasReferencedLabel(items []ir.Instr, referenced map[ir.LabelID]bool) bool {
	for _, it := range items {
		if lbl, ok := it.(*ir.Label); ok && referenced[lbl.ID] {
			return true
		}
	}
	return false
}

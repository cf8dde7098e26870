package clean

import (
	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/passes"
	"threadtear/internal/universe"
)

// FakeTryCatchRemover implements spec.md §4.6. The spec titles the pattern
// "(ZKM family)" but the recognized shape — a handler whose first real
// instruction is ATHROW, or INVOKESTATIC immediately followed by ATHROW —
// is vendor-agnostic (SPEC_FULL.md §3), so this lives in internal/passes/clean
// rather than internal/passes/zkm and is registered in the cleaning category.
type FakeTryCatchRemover struct{}

func (FakeTryCatchRemover) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "clean.fake-trycatch",
		DisplayName: "Fake try/catch remover",
		Description: "Removes exception handlers that unconditionally rethrow without affecting runtime behavior.",
		Category:    passes.CategoryCleaning,
		Tags:        []passes.Tag{passes.TagBetterDecompile, passes.TagBetterDeobfuscate},
	}
}

func (FakeTryCatchRemover) Execute(u *universe.U, opts diag.Options) (bool, error) {
	removed := 0
	u.Each(func(rec *universe.ClassRecord) {
		for _, m := range rec.Node.Methods {
			if m.Instructions == nil || len(m.TryCatchBlocks) == 0 {
				continue
			}
			kept := m.TryCatchBlocks[:0]
			for _, tcb := range m.TryCatchBlocks {
				if isFakeHandler(m, tcb.Handler) {
					removed++
					continue
				}
				kept = append(kept, tcb)
			}
			m.TryCatchBlocks = kept
		}
	})
	return removed > 0, nil
}

// isFakeHandler reports whether the handler starting at label matches
// spec.md §4.6's recognized shape.
func isFakeHandler(m *ir.MethodNode, label ir.LabelID) bool {
	idx := m.Instructions.IndexOfLabel(label)
	if idx < 0 {
		return false
	}
	items := m.Instructions.Items
	i := idx + 1
	for i < len(items) {
		switch items[i].(type) {
		case *ir.Label, *ir.LineNumber, *ir.Frame:
			i++
			continue
		}
		break
	}
	if i >= len(items) {
		return false
	}
	if z, ok := items[i].(*ir.ZeroOp); ok && z.Opcode == ir.OpAthrow {
		return true
	}
	if mi, ok := items[i].(*ir.MethodInsn); ok && mi.Opcode == ir.OpInvokestatic {
		j := i + 1
		for j < len(items) {
			switch items[j].(type) {
			case *ir.Label, *ir.LineNumber, *ir.Frame:
				j++
				continue
			}
			break
		}
		if j < len(items) {
			if z, ok := items[j].(*ir.ZeroOp); ok && z.Opcode == ir.OpAthrow {
				return true
			}
		}
	}
	return false
}

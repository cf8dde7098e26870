// Package clean implements the vendor-agnostic cleaning passes (spec.md
// §4.4): trivial method inlining, constant-field inlining, unused-class
// removal, bitwise simplification, plus the supplemented attribute-stripping
// and dead-block removal passes (SPEC_FULL.md §3).
package clean

import (
	"threadtear/internal/ir"
	"threadtear/internal/modifier"
	"threadtear/internal/passes"
	"threadtear/internal/universe"

	"threadtear/internal/diag"
)

// TrivialMethodInliner implements spec.md §4.4.1.
type TrivialMethodInliner struct{}

func (TrivialMethodInliner) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "clean.trivial-inline",
		DisplayName: "Trivial method inliner",
		Description: "Inlines small, side-effect-free helper methods into their call sites.",
		Category:    passes.CategoryCleaning,
		Tags:        []passes.Tag{passes.TagShrink, passes.TagBetterDecompile},
	}
}

const trivialMaxInstrs = 32

// isTrivial reports whether m satisfies spec.md §4.4.1's selection rule.
func isTrivial(m *ir.MethodNode) bool {
	if m.IsConstructor() || m.IsStaticInitializer() || m.Instructions == nil {
		return false
	}
	count := 0
	var last ir.Instr
	for _, it := range m.Instructions.Items {
		switch it.(type) {
		case *ir.Label, *ir.LineNumber, *ir.Frame:
			continue
		case *ir.MethodInsn, *ir.InvokeDynamic, *ir.FieldInsn, *ir.TypeInsn,
			*ir.Jump, *ir.LookupSwitch, *ir.TableSwitch:
			return false
		}
		count++
		last = it
	}
	if count == 0 || count > trivialMaxInstrs {
		return false
	}
	z, ok := last.(*ir.ZeroOp)
	if !ok {
		return false
	}
	return z.Opcode.IsReturn() || z.Opcode == ir.OpAthrow
}

func storeOpcodeFor(descriptor string) ir.Opcode {
	switch descriptor[0] {
	case 'J':
		return ir.OpLstore
	case 'F':
		return ir.OpFstore
	case 'D':
		return ir.OpDstore
	case 'L', '[':
		return ir.OpAstore
	default:
		return ir.OpIstore
	}
}

// bodyWithoutTrailingReturn returns callee's cloned instruction list with
// its final return instruction stripped, so the return value (if any) is
// left on the stack for the inline site (spec.md §4.4.1: "the callee's body
// with returns stripped"). A body whose last real instruction is not a
// return (for example ATHROW) yields ok=false.
func bodyWithoutTrailingReturn(items []ir.Instr) ([]ir.Instr, bool) {
	end := len(items)
	for end > 0 {
		switch it := items[end-1].(type) {
		case *ir.Label, *ir.LineNumber, *ir.Frame:
			end--
			continue
		case *ir.ZeroOp:
			if it.Opcode.IsReturn() {
				return items[:end-1], true
			}
			return nil, false
		default:
			return nil, false
		}
	}
	return nil, false
}

// buildInlineSequence constructs the replacement instruction sequence for
// one call site: store args/receiver into fresh locals starting at offset,
// then the callee's body with its own local references shifted by offset.
func buildInlineSequence(callee *ir.MethodNode, isStatic bool, offset int) (seq []ir.Instr, localsUsed int, ok bool) {
	cloned, _ := callee.Instructions.Clone()
	body, ok := bodyWithoutTrailingReturn(cloned.Items)
	if !ok {
		return nil, 0, false
	}

	desc := ir.ParseMethodDescriptor(callee.Descriptor)
	var slots []string
	if !isStatic {
		slots = append(slots, "L") // receiver
	}
	slots = append(slots, desc.Params...)

	// Pop in reverse order: the last parameter is on top of the stack.
	for i := len(slots) - 1; i >= 0; i-- {
		p := slots[i]
		idx := offset
		for j := 0; j < i; j++ {
			if ir.Category(slots[j]) == 2 {
				idx += 2
			} else {
				idx++
			}
		}
		seq = append(seq, &ir.VarInsn{Opcode: storeOpcodeFor(p), Index: idx})
	}

	total := offset
	for _, s := range slots {
		if ir.Category(s) == 2 {
			total += 2
		} else {
			total++
		}
	}

	for _, it := range body {
		switch v := it.(type) {
		case *ir.VarInsn:
			seq = append(seq, &ir.VarInsn{Opcode: v.Opcode, Index: v.Index + offset})
		case *ir.Incr:
			seq = append(seq, &ir.Incr{Index: v.Index + offset, Delta: v.Delta})
		default:
			seq = append(seq, it)
		}
	}
	localsUsed = total + callee.MaxLocals
	return seq, localsUsed, true
}

// Execute implements passes.Pass.
func (TrivialMethodInliner) Execute(u *universe.U, opts diag.Options) (bool, error) {
	changed := false
	u.Each(func(ownerRec *universe.ClassRecord) {
		owner := ownerRec.Node
		candidates := map[string]*ir.MethodNode{}
		for _, m := range owner.Methods {
			if isTrivial(m) {
				candidates[m.Name+"\x00"+m.Descriptor] = m
			}
		}
		if len(candidates) == 0 {
			return
		}
		used := map[string]bool{}

		u.Each(func(callerRec *universe.ClassRecord) {
			for _, cm := range callerRec.Node.Methods {
				if cm.Instructions == nil {
					continue
				}
				mod := modifier.New(cm)
				for idx, it := range cm.Instructions.Items {
					mi, ok := it.(*ir.MethodInsn)
					if !ok || mi.Owner != owner.Name || mi.IsInterface {
						continue
					}
					if mi.Opcode != ir.OpInvokestatic && mi.Opcode != ir.OpInvokespecial && mi.Opcode != ir.OpInvokevirtual {
						continue
					}
					callee, ok := candidates[mi.Name+"\x00"+mi.Descriptor]
					if !ok || callee == cm {
						continue
					}
					seq, locals, ok := buildInlineSequence(callee, mi.Opcode == ir.OpInvokestatic, cm.MaxLocals)
					if !ok {
						continue
					}
					mod.ReplaceAt(idx, seq...)
					modifier.WidenMaxLocals(cm, locals)
					modifier.WidenMaxStack(cm, cm.MaxStack+callee.MaxStack)
					used[mi.Name+"\x00"+mi.Descriptor] = true
				}
				if mod.Apply() {
					changed = true
				}
			}
		})

		for key := range used {
			m := candidates[key]
			owner.RemoveMethod(m.Name, m.Descriptor)
		}
	})
	return changed, nil
}

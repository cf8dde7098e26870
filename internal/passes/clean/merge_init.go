package clean

import "threadtear/internal/ir"

// mergeStaticInitializers implements spec.md §4.4.2a: if a class carries
// more than one <clinit>()V (a manipulation artifact obfuscators sometimes
// leave behind), splice every secondary initializer's body into the
// primary's, preserving try/catch ranges and local-variable entries via a
// single shared label remap. Returns the resulting single initializer, or
// nil if the class has none.
func mergeStaticInitializers(c *ir.ClassNode) *ir.MethodNode {
	inits := c.StaticInitializers()
	if len(inits) == 0 {
		return nil
	}
	primary := inits[0]
	if len(inits) == 1 {
		return primary
	}

	remap := ir.LabelRemap{}
	nextLabel := primary.Instructions.NewLabel()

	insertAt := findTrailingReturnIndex(primary.Instructions.Items)

	var spliced []ir.Instr
	for _, secondary := range inits[1:] {
		body := secondary.CloneInto(remap, &nextLabel)
		body, _ = bodyWithoutTrailingReturn(body)
		spliced = append(spliced, body...)
		for _, tcb := range secondary.TryCatchBlocks {
			primary.TryCatchBlocks = append(primary.TryCatchBlocks, &ir.TryCatchBlock{
				Start:   remapOrFresh(remap, tcb.Start, &nextLabel),
				End:     remapOrFresh(remap, tcb.End, &nextLabel),
				Handler: remapOrFresh(remap, tcb.Handler, &nextLabel),
				Type:    tcb.Type,
			})
		}
		for _, lv := range secondary.LocalVariables {
			primary.LocalVariables = append(primary.LocalVariables, &ir.LocalVariable{
				Name:       lv.Name,
				Descriptor: lv.Descriptor,
				Index:      lv.Index,
				Start:      remapOrFresh(remap, lv.Start, &nextLabel),
				End:        remapOrFresh(remap, lv.End, &nextLabel),
			})
		}
		if secondary.MaxStack > primary.MaxStack {
			primary.MaxStack = secondary.MaxStack
		}
		if secondary.MaxLocals > primary.MaxLocals {
			primary.MaxLocals = secondary.MaxLocals
		}
	}

	items := primary.Instructions.Items
	merged := make([]ir.Instr, 0, len(items)+len(spliced))
	merged = append(merged, items[:insertAt]...)
	merged = append(merged, spliced...)
	merged = append(merged, items[insertAt:]...)
	primary.Instructions.Items = merged

	for _, secondary := range inits[1:] {
		c.RemoveMethod(secondary.Name, secondary.Descriptor)
	}
	return primary
}

func findTrailingReturnIndex(items []ir.Instr) int {
	for i := len(items) - 1; i >= 0; i-- {
		if z, ok := items[i].(*ir.ZeroOp); ok && z.Opcode.IsReturn() {
			return i
		}
	}
	return len(items)
}

func remapOrFresh(remap ir.LabelRemap, id ir.LabelID, next *ir.LabelID) ir.LabelID {
	return remap.Handle(id, next)
}

package clean

import (
	"testing"

	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/universe"
)

// buildMethodWithDeadBlock constructs:
//
//	0: RETURN
//	1: NOP        (unreachable: falls after an unconditional return)
//	2: NOP
func buildMethodWithDeadBlock() *ir.MethodNode {
	list := ir.NewInstructionList()
	list.Append(
		&ir.ZeroOp{Opcode: ir.OpReturn},
		&ir.ZeroOp{Opcode: ir.OpNop},
		&ir.ZeroOp{Opcode: ir.OpNop},
	)
	return &ir.MethodNode{Name: "m", Descriptor: "()V", Instructions: list}
}

func TestRemoveNopBlocksDeletesUnreachableTail(t *testing.T) {
	m := buildMethodWithDeadBlock()
	u := universe.New()
	u.Add(&ir.ClassNode{Name: "C", Methods: []*ir.MethodNode{m}}, "")

	changed, err := RemoveNopBlocks{}.Execute(u, diag.Options{})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !changed {
		t.Fatal("expected the pass to report a change")
	}
	if len(m.Instructions.Items) != 1 {
		t.Fatalf("expected only the RETURN to survive, got %+v", m.Instructions.Items)
	}
}

func TestRemoveNopBlocksPreservesReachableCode(t *testing.T) {
	list := ir.NewInstructionList()
	list.Append(&ir.ZeroOp{Opcode: ir.OpNop}, &ir.ZeroOp{Opcode: ir.OpReturn})
	m := &ir.MethodNode{Name: "m", Descriptor: "()V", Instructions: list}
	u := universe.New()
	u.Add(&ir.ClassNode{Name: "C", Methods: []*ir.MethodNode{m}}, "")

	changed, _ := RemoveNopBlocks{}.Execute(u, diag.Options{})
	if changed {
		t.Error("a fully reachable method should not be modified")
	}
	if len(m.Instructions.Items) != 2 {
		t.Errorf("instructions were unexpectedly changed: %+v", m.Instructions.Items)
	}
}

func TestRemoveNopBlocksPreservesHandlerAnchors(t *testing.T) {
	list := ir.NewInstructionList()
	start := list.NewLabel()
	end := list.NewLabel()
	handler := list.NewLabel()
	list.Append(
		&ir.ZeroOp{Opcode: ir.OpReturn},
		&ir.Label{ID: handler}, // unreachable by flow, but a try/catch anchor
		&ir.ZeroOp{Opcode: ir.OpAthrow},
	)
	m := &ir.MethodNode{
		Name: "m", Descriptor: "()V", Instructions: list,
		TryCatchBlocks: []*ir.TryCatchBlock{{Start: start, End: end, Handler: handler, Type: ""}},
	}
	u := universe.New()
	u.Add(&ir.ClassNode{Name: "C", Methods: []*ir.MethodNode{m}}, "")

	RemoveNopBlocks{}.Execute(u, diag.Options{})

	found := false
	for _, it := range m.Instructions.Items {
		if lbl, ok := it.(*ir.Label); ok && lbl.ID == handler {
			found = true
		}
	}
	if !found {
		t.Error("a block anchoring a referenced exception handler should not be removed")
	}
}

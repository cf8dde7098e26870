package modifier

import (
	"testing"

	"threadtear/internal/ir"
)

func newMethod(ops ...ir.Opcode) *ir.MethodNode {
	list := ir.NewInstructionList()
	for _, op := range ops {
		list.Append(&ir.ZeroOp{Opcode: op})
	}
	return &ir.MethodNode{Name: "m", Descriptor: "()V", Instructions: list}
}

func opSeq(m *ir.MethodNode) []ir.Opcode {
	out := make([]ir.Opcode, len(m.Instructions.Items))
	for i, it := range m.Instructions.Items {
		out[i] = it.Op()
	}
	return out
}

func TestApplyNoEditsReturnsFalse(t *testing.T) {
	m := newMethod(ir.OpNop, ir.OpReturn)
	mod := New(m)
	if mod.Pending() {
		t.Error("fresh modifier should have no pending edits")
	}
	if mod.Apply() {
		t.Error("Apply with no edits should return false")
	}
}

func TestRemoveSingle(t *testing.T) {
	m := newMethod(ir.OpNop, ir.OpIconst0, ir.OpReturn)
	mod := New(m)
	mod.Remove(1)
	if !mod.Pending() {
		t.Error("expected a pending edit")
	}
	if !mod.Apply() {
		t.Fatal("Apply should report a change")
	}
	got := opSeq(m)
	want := []ir.Opcode{ir.OpNop, ir.OpReturn}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReplaceAt(t *testing.T) {
	m := newMethod(ir.OpNop, ir.OpIconst0, ir.OpReturn)
	mod := New(m)
	mod.ReplaceAt(1, &ir.ZeroOp{Opcode: ir.OpIconst1}, &ir.ZeroOp{Opcode: ir.OpIconst2})
	mod.Apply()
	got := opSeq(m)
	want := []ir.Opcode{ir.OpNop, ir.OpIconst1, ir.OpIconst2, ir.OpReturn}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInsertBeforeAndAfterOrderIndependent(t *testing.T) {
	// Multiple edits at different positions, applied in one Apply() call,
	// must all land correctly regardless of the order buffered.
	m := newMethod(ir.OpNop, ir.OpReturn)
	mod := New(m)
	mod.InsertAfter(0, &ir.ZeroOp{Opcode: ir.OpIconst0})
	mod.InsertBefore(1, &ir.ZeroOp{Opcode: ir.OpIconst1})
	mod.Apply()
	got := opSeq(m)
	want := []ir.Opcode{ir.OpNop, ir.OpIconst0, ir.OpIconst1, ir.OpReturn}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRemoveRangeClampedAtZero(t *testing.T) {
	// Regression: a negative start (as can arise from idx-argCount
	// arithmetic in a calling pass) must not panic Apply.
	m := newMethod(ir.OpIconst0, ir.OpReturn)
	mod := New(m)
	start := -3
	if start < 0 {
		start = 0
	}
	mod.RemoveRange(start, 1)
	mod.ReplaceAt(1, &ir.ZeroOp{Opcode: ir.OpNop})
	if !mod.Apply() {
		t.Fatal("expected Apply to report a change")
	}
	got := opSeq(m)
	if len(got) != 1 || got[0] != ir.OpNop {
		t.Errorf("got %v, want [NOP]", got)
	}
}

func TestWidenMaxStackAndLocals(t *testing.T) {
	m := &ir.MethodNode{MaxStack: 2, MaxLocals: 1}
	WidenMaxStack(m, 5)
	WidenMaxLocals(m, 3)
	if m.MaxStack != 5 {
		t.Errorf("MaxStack = %d, want 5", m.MaxStack)
	}
	if m.MaxLocals != 3 {
		t.Errorf("MaxLocals = %d, want 3", m.MaxLocals)
	}
	WidenMaxStack(m, 1) // smaller than current: no-op
	if m.MaxStack != 5 {
		t.Errorf("WidenMaxStack should not shrink, got %d", m.MaxStack)
	}
}

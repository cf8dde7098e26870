package universe

import (
	"testing"

	"threadtear/internal/ir"
)

func classWithCallTo(name, calleeOwner string) *ir.ClassNode {
	list := ir.NewInstructionList()
	list.Append(
		&ir.MethodInsn{Opcode: ir.OpInvokestatic, Owner: calleeOwner, Name: "target", Descriptor: "()V"},
		&ir.ZeroOp{Opcode: ir.OpReturn},
	)
	m := &ir.MethodNode{Name: "run", Descriptor: "()V", Instructions: list}
	return &ir.ClassNode{Name: name, Methods: []*ir.MethodNode{m}}
}

func TestAddGetRemove(t *testing.T) {
	u := New()
	rec := u.Add(&ir.ClassNode{Name: "A"}, "A.class")
	if u.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", u.Len())
	}
	if got := u.Get("A"); got != rec {
		t.Error("Get should return the same record Add returned")
	}
	if u.Get("missing") != nil {
		t.Error("Get for an unknown class should return nil")
	}
	u.Remove("A")
	if u.Len() != 0 {
		t.Errorf("Len() after Remove = %d, want 0", u.Len())
	}
}

func TestAddOverwritesSameName(t *testing.T) {
	u := New()
	u.Add(&ir.ClassNode{Name: "A"}, "first.class")
	u.Add(&ir.ClassNode{Name: "A"}, "second.class")
	if u.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after re-adding the same class name", u.Len())
	}
	if got := u.Get("A").Provenance; got != "second.class" {
		t.Errorf("Provenance = %q, want the later Add's value", got)
	}
}

func TestEach(t *testing.T) {
	u := New()
	u.Add(&ir.ClassNode{Name: "A"}, "")
	u.Add(&ir.ClassNode{Name: "B"}, "")
	seen := map[string]bool{}
	u.Each(func(rec *ClassRecord) { seen[rec.Node.Name] = true })
	if !seen["A"] || !seen["B"] {
		t.Errorf("Each visited %v, want both A and B", seen)
	}
}

func TestFindMethodRefs(t *testing.T) {
	u := New()
	u.Add(classWithCallTo("Caller", "Target"), "")
	u.Add(classWithCallTo("OtherCaller", "Target"), "")
	u.Add(classWithCallTo("Unrelated", "SomethingElse"), "")

	refs := u.FindMethodRefs("Target")
	if len(refs) != 2 {
		t.Fatalf("FindMethodRefs = %d results, want 2", len(refs))
	}
	for _, r := range refs {
		if r.Node.Name == "Unrelated" {
			t.Error("FindMethodRefs should not match an unrelated owner")
		}
	}
}

func TestFindMethodRefsSkipsAbstractMethods(t *testing.T) {
	u := New()
	abstract := &ir.MethodNode{Name: "abs", Descriptor: "()V"} // Instructions == nil
	u.Add(&ir.ClassNode{Name: "I", Methods: []*ir.MethodNode{abstract}}, "")
	if refs := u.FindMethodRefs("Target"); len(refs) != 0 {
		t.Errorf("expected no refs, got %d", len(refs))
	}
}

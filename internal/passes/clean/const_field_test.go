package clean

import (
	"testing"

	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/universe"
)

// buildConstClass builds:
//
//	class K { static int V; static { V = 7; } }
//	class User { static int read() { return K.V; } }
func buildConstClass() *ir.ClassNode {
	clinit := ir.NewInstructionList()
	clinit.Append(
		&ir.IntPush{Opcode: ir.OpBipush, Operand: 7},
		&ir.FieldInsn{Opcode: ir.OpPutstatic, Owner: "K", Name: "V", Descriptor: "I"},
		&ir.ZeroOp{Opcode: ir.OpReturn},
	)
	clinitMethod := &ir.MethodNode{Name: "<clinit>", Descriptor: "()V", Instructions: clinit}
	clinitMethod.Access = ir.AccStatic

	field := &ir.FieldNode{Name: "V", Descriptor: "I"}
	field.Access = ir.AccStatic

	return &ir.ClassNode{
		Name:    "K",
		Fields:  []*ir.FieldNode{field},
		Methods: []*ir.MethodNode{clinitMethod},
	}
}

func buildReaderClass() *ir.ClassNode {
	list := ir.NewInstructionList()
	list.Append(
		&ir.FieldInsn{Opcode: ir.OpGetstatic, Owner: "K", Name: "V", Descriptor: "I"},
		&ir.ZeroOp{Opcode: ir.OpIreturn},
	)
	m := &ir.MethodNode{Name: "read", Descriptor: "()I", Instructions: list}
	m.Access = ir.AccStatic
	return &ir.ClassNode{Name: "User", Methods: []*ir.MethodNode{m}}
}

func TestConstantFieldInlinerFoldsGetstatic(t *testing.T) {
	u := universe.New()
	u.Add(buildConstClass(), "K.class")
	u.Add(buildReaderClass(), "User.class")

	changed, err := ConstantFieldInliner{}.Execute(u, diag.Options{})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !changed {
		t.Fatal("expected the field inliner to report a change")
	}

	reader := u.Get("User").Node
	readMethod := reader.Method("read", "()I")
	items := readMethod.Instructions.Items
	if len(items) != 2 {
		t.Fatalf("expected 2 instructions after inlining, got %d: %+v", len(items), items)
	}
	ip, ok := items[0].(*ir.IntPush)
	if !ok || ip.Operand != 7 {
		t.Errorf("first instruction = %#v, want IntPush(7)", items[0])
	}
}

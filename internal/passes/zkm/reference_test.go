package zkm

import (
	"testing"

	"threadtear/internal/constprop"
	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/sandbox"
	"threadtear/internal/universe"
)

func TestIsStringSignature(t *testing.T) {
	if !isStringSignature("(J)Ljava/lang/String;") {
		t.Error("a String-returning descriptor should match")
	}
	if isStringSignature("(J)J") {
		t.Error("a long-returning descriptor should not match")
	}
}

func TestHarvestArgs(t *testing.T) {
	frame := &constprop.Frame{Stack: []ir.ConstantValue{ir.KnownInt(1), ir.KnownLong(2), ir.KnownInt(3)}}
	got, ok := harvestArgs(frame, 2)
	if !ok {
		t.Fatal("expected a successful harvest")
	}
	if len(got) != 2 || got[0].J != 2 || got[1].I != 3 {
		t.Errorf("got %+v", got)
	}

	if _, ok := harvestArgs(frame, 10); ok {
		t.Error("harvesting more values than the stack holds should fail")
	}
	if _, ok := harvestArgs(nil, 1); ok {
		t.Error("a nil frame should fail")
	}
	if out, ok := harvestArgs(frame, 0); !ok || out != nil {
		t.Errorf("harvestArgs(_, 0) = %v, %v, want nil, true", out, ok)
	}
}

func TestHarvestArgsRejectsUnknown(t *testing.T) {
	frame := &constprop.Frame{Stack: []ir.ConstantValue{ir.Unknown}}
	if _, ok := harvestArgs(frame, 1); ok {
		t.Error("an Unknown stack slot should not be harvestable")
	}
}

func TestInstructionFromHandle(t *testing.T) {
	cases := []struct {
		kind int
		want ir.Opcode
	}{
		{6, ir.OpInvokestatic},
		{5, ir.OpInvokevirtual},
		{2, ir.OpGetstatic},
		{3, ir.OpPutfield},
	}
	for _, c := range cases {
		h := &sandbox.Handle{Kind: c.kind, Owner: "C", Name: "n", Descriptor: "d"}
		instr, ok := instructionFromHandle(h)
		if !ok {
			t.Fatalf("kind %d: expected a recognized instruction", c.kind)
		}
		if instr.Op() != c.want {
			t.Errorf("kind %d: op = %v, want %v", c.kind, instr.Op(), c.want)
		}
	}
	if _, ok := instructionFromHandle(&sandbox.Handle{Kind: 99}); ok {
		t.Error("an unrecognized reference_kind should fail")
	}
}

func TestConstantToValue(t *testing.T) {
	if v := constantToValue(ir.KnownInt(5)); v.(int32) != 5 {
		t.Errorf("got %v", v)
	}
	if v := constantToValue(ir.KnownString("s")); v.(string) != "s" {
		t.Errorf("got %v", v)
	}
	if v := constantToValue(ir.KnownNull()); v != nil {
		t.Errorf("got %v, want nil", v)
	}
}

func TestBuildBootstrapArgs(t *testing.T) {
	idy := &ir.InvokeDynamic{Name: "a", Descriptor: "(J)J"}
	args := buildBootstrapArgs(idy, []ir.ConstantValue{ir.KnownInt(9)}, 0x42)
	if len(args) != 6 {
		t.Fatalf("got %d args, want 6: %+v", len(args), args)
	}
	if args[2] != "a" || args[3] != "(J)J" {
		t.Errorf("name/descriptor args = %v, %v", args[2], args[3])
	}
	if args[4].(int32) != 9 {
		t.Errorf("harvested arg = %v, want 9", args[4])
	}
	if args[5].(int64) != 0x42 {
		t.Errorf("key arg = %v, want 0x42", args[5])
	}
}

// TestExecuteResolvesZeroHarvestCallSite is an end-to-end regression test
// for a bootstrap descriptor with no extra (harvested) static arguments —
// the minimal shape where the fixed 4-arg-plus-key vector exactly fills the
// bootstrap's declared parameter list. A harvestCount off-by-one here means
// harvestArgs is asked for an operand the call site never pushed and the
// whole call site is skipped instead of decrypted.
func TestExecuteResolvesZeroHarvestCallSite(t *testing.T) {
	bootDescriptor := "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/Object;Ljava/lang/String;Ljava/lang/invoke/MethodType;J)Ljava/lang/Object;"

	clinit := ir.NewInstructionList()
	clinit.Append(
		&ir.Ldc{Value: ir.KnownLong(42)},
		&ir.FieldInsn{Opcode: ir.OpPutstatic, Owner: "C", Name: "KEY", Descriptor: "J"},
		&ir.ZeroOp{Opcode: ir.OpReturn},
	)
	clinitMethod := &ir.MethodNode{Name: "<clinit>", Descriptor: "()V", Instructions: clinit}
	clinitMethod.Access = ir.AccStatic

	boot := ir.NewInstructionList()
	boot.Append(
		&ir.Ldc{Value: ir.KnownString("Target")},
		&ir.Ldc{Value: ir.KnownString("foo")},
		&ir.Ldc{Value: ir.KnownString("()V")},
		&ir.MethodInsn{
			Opcode: ir.OpInvokestatic, Owner: "java/lang/invoke/MethodHandles$Lookup", Name: "findStatic",
			Descriptor: "(Ljava/lang/Class;Ljava/lang/String;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/MethodHandle;",
		},
		&ir.ZeroOp{Opcode: ir.OpAreturn},
	)
	bootMethod := &ir.MethodNode{Name: "boot", Descriptor: bootDescriptor, Instructions: boot, MaxLocals: 5}
	bootMethod.Access = ir.AccStatic

	keyField := &ir.FieldNode{Name: "KEY", Descriptor: "J"}
	keyField.Access = ir.AccStatic

	idy := &ir.InvokeDynamic{
		Name: "call", Descriptor: "()I",
		Bootstrap: ir.Handle{Owner: "C", Name: "boot", Descriptor: bootDescriptor},
	}
	mList := ir.NewInstructionList()
	mList.Append(
		&ir.FieldInsn{Opcode: ir.OpGetstatic, Owner: "C", Name: "KEY", Descriptor: "J"},
		idy,
	)
	m := &ir.MethodNode{Name: "m", Descriptor: "()V", Instructions: mList}

	cls := &ir.ClassNode{
		Name:    "C",
		Fields:  []*ir.FieldNode{keyField},
		Methods: []*ir.MethodNode{clinitMethod, bootMethod, m},
	}

	u := universe.New()
	rec := u.Add(cls, "")

	changed, err := ReferenceDecryptor{}.Execute(u, diag.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !changed {
		t.Fatal("expected the call site to be rewritten")
	}
	if rec.Failures.Len() != 0 {
		t.Fatalf("unexpected failures: %v", rec.Failures.Items())
	}

	var found bool
	for _, it := range m.Instructions.Items {
		if mi, ok := it.(*ir.MethodInsn); ok && mi.Owner == "Target" && mi.Name == "foo" {
			found = true
		}
		if _, ok := it.(*ir.InvokeDynamic); ok {
			t.Error("the dynamic-invoke instruction should have been replaced")
		}
	}
	if !found {
		t.Error("expected the resolved direct method reference to appear in the rewritten instructions")
	}
}

func TestBuildProxyClassKeepsOnlyStatics(t *testing.T) {
	staticField := &ir.FieldNode{Name: "S", Descriptor: "J"}
	staticField.Access = ir.AccStatic
	instField := &ir.FieldNode{Name: "I", Descriptor: "I"}

	staticMethod := &ir.MethodNode{Name: "helper", Descriptor: "()V", Instructions: ir.NewInstructionList()}
	staticMethod.Access = ir.AccStatic
	instMethod := &ir.MethodNode{Name: "inst", Descriptor: "()V", Instructions: ir.NewInstructionList()}

	clinit := &ir.MethodNode{Name: "<clinit>", Descriptor: "()V", Instructions: ir.NewInstructionList()}
	clinit.Access = ir.AccStatic

	c := &ir.ClassNode{
		Name:    "C",
		Fields:  []*ir.FieldNode{staticField, instField},
		Methods: []*ir.MethodNode{staticMethod, instMethod, clinit},
	}

	proxy := buildProxyClass(c, clinit)
	if len(proxy.Fields) != 1 || proxy.Fields[0].Name != "S" {
		t.Errorf("proxy fields = %+v, want only the static field", proxy.Fields)
	}
	if proxy.Method("inst", "()V") != nil {
		t.Error("an instance method should not be carried into the proxy")
	}
	if proxy.Method("helper", "()V") == nil {
		t.Error("a static helper method should be carried into the proxy")
	}
	if proxy.Method("clinitProxy", "()V") == nil {
		t.Error("the renamed static initializer should be present")
	}
	if proxy.Method("<clinit>", "()V") != nil {
		t.Error("the original <clinit> name should not appear in the proxy")
	}
}

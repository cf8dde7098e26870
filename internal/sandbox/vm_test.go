package sandbox

import (
	"testing"

	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/universe"
)

func TestLoadClassReturnsStubWhenAbsent(t *testing.T) {
	vm := ConstructVM(universe.New(), diag.Options{})
	lc := vm.LoadClass("does/not/Exist")
	if !lc.Stub {
		t.Error("expected a stub for a class not present in the universe")
	}
	if _, ok := vm.StaticField("does/not/Exist", "x"); ok {
		t.Error("StaticField on a stub should report ok=false")
	}
}

func buildConstClinitClass() *ir.ClassNode {
	field := &ir.FieldNode{Name: "V", Descriptor: "I"}
	field.Access = ir.AccStatic

	clinit := ir.NewInstructionList()
	clinit.Append(
		&ir.IntPush{Opcode: ir.OpBipush, Operand: 7},
		&ir.FieldInsn{Opcode: ir.OpPutstatic, Owner: "K", Name: "V", Descriptor: "I"},
		&ir.ZeroOp{Opcode: ir.OpReturn},
	)
	m := &ir.MethodNode{Name: "<clinit>", Descriptor: "()V", Instructions: clinit}
	m.Access = ir.AccStatic

	return &ir.ClassNode{Name: "K", Fields: []*ir.FieldNode{field}, Methods: []*ir.MethodNode{m}}
}

func TestRunStaticInitializerPopulatesStaticField(t *testing.T) {
	u := universe.New()
	u.Add(buildConstClinitClass(), "")
	vm := ConstructVM(u, diag.Options{})

	if err := vm.RunStaticInitializer("K"); err != nil {
		t.Fatalf("RunStaticInitializer: %v", err)
	}
	v, ok := vm.StaticField("K", "V")
	if !ok {
		t.Fatal("expected StaticField to report ok=true after initialization")
	}
	if v.Kind != ir.ConstInt || v.I != 7 {
		t.Errorf("got %+v, want KnownInt(7)", v)
	}
}

func TestRunStaticInitializerIsIdempotent(t *testing.T) {
	u := universe.New()
	u.Add(buildConstClinitClass(), "")
	vm := ConstructVM(u, diag.Options{})

	if err := vm.RunStaticInitializer("K"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Overwrite the static as if something else mutated it, then confirm a
	// second RunStaticInitializer call is a no-op (the clinit doesn't re-run).
	vm.LoadClass("K").Statics["V"] = int32(99)
	if err := vm.RunStaticInitializer("K"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	v, _ := vm.StaticField("K", "V")
	if v.I != 99 {
		t.Errorf("got %+v, want the unchanged value 99 (clinit should not re-run)", v)
	}
}

func buildAddMethodClass() *ir.ClassNode {
	list := ir.NewInstructionList()
	list.Append(
		&ir.ZeroOp{Opcode: ir.OpIconst2},
		&ir.ZeroOp{Opcode: ir.OpIconst3},
		&ir.ZeroOp{Opcode: ir.OpIadd},
		&ir.ZeroOp{Opcode: ir.OpIreturn},
	)
	m := &ir.MethodNode{Name: "add", Descriptor: "()I", Instructions: list, MaxLocals: 0}
	m.Access = ir.AccStatic
	return &ir.ClassNode{Name: "M", Methods: []*ir.MethodNode{m}}
}

func TestInvokeStaticReturnsComputedValue(t *testing.T) {
	u := universe.New()
	u.Add(buildAddMethodClass(), "")
	vm := ConstructVM(u, diag.Options{})

	v, err := vm.InvokeStatic("M", "add", "()I", nil)
	if err != nil {
		t.Fatalf("InvokeStatic: %v", err)
	}
	if got, ok := v.(int32); !ok || got != 5 {
		t.Errorf("got %v (%T), want int32(5)", v, v)
	}
}

func TestInvokeStaticOnStubFails(t *testing.T) {
	vm := ConstructVM(universe.New(), diag.Options{})
	if _, err := vm.InvokeStatic("Missing", "m", "()V", nil); err == nil {
		t.Error("expected an error invoking a method on a stub class")
	}
}

func buildNowMethodClass() *ir.ClassNode {
	list := ir.NewInstructionList()
	list.Append(
		&ir.MethodInsn{Opcode: ir.OpInvokestatic, Owner: "java/lang/System", Name: "currentTimeMillis", Descriptor: "()J"},
		&ir.ZeroOp{Opcode: ir.OpLreturn},
	)
	m := &ir.MethodNode{Name: "now", Descriptor: "()J", Instructions: list}
	m.Access = ir.AccStatic
	return &ir.ClassNode{Name: "Caller", Methods: []*ir.MethodNode{m}}
}

func TestNativeAllowlistRerouteCurrentTimeMillis(t *testing.T) {
	u := universe.New()
	u.Add(buildNowMethodClass(), "")
	vm := ConstructVM(u, diag.Options{})

	v, err := vm.InvokeStatic("Caller", "now", "()J", nil)
	if err != nil {
		t.Fatalf("InvokeStatic: %v", err)
	}
	if got, ok := v.(int64); !ok || got != 0 {
		t.Errorf("got %v (%T), want int64(0) (deterministic stand-in)", v, v)
	}
}

func buildExitCallerClass() *ir.ClassNode {
	list := ir.NewInstructionList()
	list.Append(
		&ir.ZeroOp{Opcode: ir.OpIconst0},
		&ir.MethodInsn{Opcode: ir.OpInvokestatic, Owner: "java/lang/System", Name: "exit", Descriptor: "(I)V"},
		&ir.ZeroOp{Opcode: ir.OpReturn},
	)
	m := &ir.MethodNode{Name: "die", Descriptor: "()V", Instructions: list}
	m.Access = ir.AccStatic
	return &ir.ClassNode{Name: "Caller", Methods: []*ir.MethodNode{m}}
}

func TestNativeAllowlistBlocksSystemExit(t *testing.T) {
	u := universe.New()
	u.Add(buildExitCallerClass(), "")
	vm := ConstructVM(u, diag.Options{})

	if _, err := vm.InvokeStatic("Caller", "die", "()V", nil); err == nil {
		t.Error("expected System.exit to be blocked")
	}
}

func TestRegisterOverridesAllowlistEntry(t *testing.T) {
	u := universe.New()
	u.Add(buildNowMethodClass(), "")
	vm := ConstructVM(u, diag.Options{})
	vm.Register("java/lang/System", "currentTimeMillis", "()J", func(Value, []Value) (Value, error) {
		return int64(42), nil
	})

	v, err := vm.InvokeStatic("Caller", "now", "()J", nil)
	if err != nil {
		t.Fatalf("InvokeStatic: %v", err)
	}
	if got, ok := v.(int64); !ok || got != 42 {
		t.Errorf("got %v, want the overridden value 42", v)
	}
}

func TestExplicitlyPreloadFailsOnStub(t *testing.T) {
	vm := ConstructVM(universe.New(), diag.Options{})
	if err := vm.ExplicitlyPreload("Missing"); err == nil {
		t.Error("expected an error preloading a class absent from the universe")
	}
}

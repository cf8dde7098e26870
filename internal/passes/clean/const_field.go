package clean

import (
	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/modifier"
	"threadtear/internal/passes"
	"threadtear/internal/sandbox"
	"threadtear/internal/universe"
)

// ConstantFieldInliner implements spec.md §4.4.2: merge static initializers,
// run them under a fresh Sandbox VM, and fold every static field that is
// never written outside its class's initializer into a constant push at
// every GETSTATIC site across U.
type ConstantFieldInliner struct{}

func (ConstantFieldInliner) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "clean.const-field",
		DisplayName: "Constant field inliner",
		Description: "Executes static initializers in the sandbox and inlines effectively-final static fields.",
		Category:    passes.CategoryCleaning,
		Tags:        []passes.Tag{passes.TagBetterDecompile, passes.TagBetterDeobfuscate},
	}
}

func fieldKey(owner, name string) string { return owner + "\x00" + name }

func (ConstantFieldInliner) Execute(u *universe.U, opts diag.Options) (bool, error) {
	u.Each(func(rec *universe.ClassRecord) {
		if rec.Node.Access.IsEnum() {
			return
		}
		mergeStaticInitializers(rec.Node)
	})

	writtenOutside := map[string]bool{}
	u.Each(func(rec *universe.ClassRecord) {
		for _, m := range rec.Node.Methods {
			if m.Instructions == nil {
				continue
			}
			for _, it := range m.Instructions.Items {
				fi, ok := it.(*ir.FieldInsn)
				if !ok || (m.IsStaticInitializer() && fi.Owner == rec.Node.Name) {
					continue
				}
				if fi.Opcode == ir.OpPutstatic || fi.Opcode == ir.OpPutfield {
					writtenOutside[fieldKey(fi.Owner, fi.Name)] = true
				}
			}
		}
	})

	vm := sandbox.ConstructVM(u, opts)
	u.Each(func(rec *universe.ClassRecord) {
		if rec.Node.Access.IsEnum() {
			return
		}
		if err := vm.RunStaticInitializer(rec.Node.Name); err != nil {
			rec.Failures.Addf(rec.Node.Name, "<clinit>", diag.KindSandboxCrash, "%v", err)
		}
	})

	constFields := map[string]ir.ConstantValue{}
	u.Each(func(rec *universe.ClassRecord) {
		cls := rec.Node
		if cls.Access.IsEnum() {
			return
		}
		for _, f := range cls.Fields {
			if !f.Access.IsStatic() {
				continue
			}
			key := fieldKey(cls.Name, f.Name)
			if writtenOutside[key] {
				continue
			}
			v, ok := vm.StaticField(cls.Name, f.Name)
			if !ok || !v.IsKnown() {
				continue
			}
			// A primitive static field left at its declared default (javac
			// emits no PUTSTATIC for it) reads back from the sandbox as a nil
			// slot, i.e. ConstNull — resolve it to the type-correct zero
			// value instead of folding a reference-null load in place of an
			// int/long/etc.
			if v.Kind == ir.ConstNull && ir.IsPrimitive(f.Descriptor) {
				v = primitiveZero(f.Descriptor)
			}
			f.ConstantValue = v
			constFields[key] = v
		}
	})

	if len(constFields) == 0 {
		return false, nil
	}

	changed := false
	u.Each(func(rec *universe.ClassRecord) {
		for _, m := range rec.Node.Methods {
			if m.Instructions == nil {
				continue
			}
			mod := modifier.New(m)
			for idx, it := range m.Instructions.Items {
				fi, ok := it.(*ir.FieldInsn)
				if !ok || fi.Opcode != ir.OpGetstatic {
					continue
				}
				v, ok := constFields[fieldKey(fi.Owner, fi.Name)]
				if !ok {
					continue
				}
				mod.ReplaceAt(idx, constPush(v))
			}
			if mod.Apply() {
				changed = true
			}
		}
	})
	return changed, nil
}

// primitiveZero returns the declared-type zero value for a primitive field
// descriptor, matching what a reflective read of an unwritten primitive
// static field yields (a boxed 0), never null.
func primitiveZero(descriptor string) ir.ConstantValue {
	switch descriptor[0] {
	case 'J':
		return ir.KnownLong(0)
	case 'F':
		return ir.KnownFloat(0)
	case 'D':
		return ir.KnownDouble(0)
	default: // B, C, I, S, Z
		return ir.KnownInt(0)
	}
}

// constPush picks the optimally-encoded push instruction for a Known
// constant (spec.md §4.4.4 names the same encoding rule for the bitwise
// simplifier; the field inliner reuses it).
func constPush(v ir.ConstantValue) ir.Instr {
	switch v.Kind {
	case ir.ConstInt:
		return ir.NewIntPush(v.I)
	case ir.ConstLong:
		return ir.NewLongPush(v.J)
	default:
		return &ir.Ldc{Value: v}
	}
}

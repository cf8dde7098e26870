package zkm

import (
	"strings"

	"threadtear/internal/cfg"
	"threadtear/internal/constprop"
	"threadtear/internal/diag"
	"threadtear/internal/ir"
	"threadtear/internal/modifier"
	"threadtear/internal/passes"
	"threadtear/internal/sandbox"
	"threadtear/internal/universe"
)

// ReferenceDecryptor implements spec.md §4.5's reference phase: run each
// class's static initializer in isolation to recover the keys ZKM's
// generator folded into it, then resolve every dynamic-invoke call site
// that isn't the string-decryption shape against its synthesized bootstrap
// and replace it with a direct field/method reference.
type ReferenceDecryptor struct{}

func (ReferenceDecryptor) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "zkm.reference-decrypt",
		DisplayName: "ZKM reference decryptor",
		Description: "Resolves ZKM-obfuscated dynamic-invoke call sites to direct field/method references.",
		Category:    passes.CategoryVendor,
		Tags:        []passes.Tag{passes.TagBetterDecompile, passes.TagBetterDeobfuscate},
	}
}

func (ReferenceDecryptor) Execute(u *universe.U, opts diag.Options) (bool, error) {
	changed := false
	u.Each(func(rec *universe.ClassRecord) {
		cls := rec.Node
		clinit := cls.Method("<clinit>", "()V")
		if clinit == nil {
			return
		}

		pu := universe.New()
		pu.Add(buildProxyClass(cls, clinit), "zkm-proxy")
		vm := sandbox.ConstructVM(pu, opts)
		// The interpreter never raises a real NullPointerException (GETFIELD/
		// PUTFIELD against a non-Instance receiver silently no-ops rather
		// than erroring); the one exception class it does surface is an
		// uncaught ATHROW, which stands in for spec.md §4.5 step 4's
		// "null-dereference during the proxy ⇒ continue" case here.
		if _, err := vm.InvokeStatic(cls.Name, "clinitProxy", "()V", nil); err != nil {
			if strings.Contains(err.Error(), "ATHROW reached") {
				rec.Failures.Addf(cls.Name, "<clinit>", diag.KindSandboxExpected, "%v", err)
			} else {
				rec.Failures.Addf(cls.Name, "<clinit>", diag.KindSandboxCrash, "%v", err)
				return
			}
		}

		for _, m := range cls.Methods {
			if m.Instructions == nil {
				continue
			}
			items := m.Instructions.Items
			keyedLocals := scanKeyedLocals(vm, items)
			g := cfg.Build(m)
			res := constprop.Analyze(g, constprop.NoopHandler)
			mod := modifier.New(m)

			for idx, it := range items {
				idy, ok := it.(*ir.InvokeDynamic)
				if !ok || isStringSignature(idy.Descriptor) {
					continue
				}
				key, ok := recoverKey(vm, keyedLocals, items, idx)
				if !ok {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "no key recovered at instruction %d", idx)
					continue
				}
				bootstrapParams := ir.ParseMethodDescriptor(idy.Bootstrap.Descriptor).Params
				// The bootstrap declares 4 fixed leading params (Lookup, name,
				// MethodType, ...) plus one trailing key param that
				// buildBootstrapArgs appends itself — harvestCount covers only
				// what's left in between.
				harvestCount := len(bootstrapParams) - 5
				if harvestCount < 0 {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "malformed bootstrap descriptor %q", idy.Bootstrap.Descriptor)
					continue
				}
				harvested, ok := harvestArgs(res.At(idx-1), harvestCount)
				if !ok {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "unknown bootstrap argument at instruction %d", idx)
					continue
				}
				args := buildBootstrapArgs(idy, harvested, key)
				ret, err := vm.InvokeStatic(idy.Bootstrap.Owner, idy.Bootstrap.Name, idy.Bootstrap.Descriptor, args)
				if err != nil {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "%v", err)
					continue
				}
				handle, ok := ret.(*sandbox.Handle)
				if !ok {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "bootstrap returned no handle at instruction %d", idx)
					continue
				}
				newInstr, ok := instructionFromHandle(handle)
				if !ok {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "unrecognized handle kind %d", handle.Kind)
					continue
				}
				mod.ReplaceAt(idx, &ir.ZeroOp{Opcode: ir.OpPop2}, &ir.ZeroOp{Opcode: ir.OpPop2}, newInstr)
			}
			if mod.Apply() {
				changed = true
			}
		}
	})
	return changed, nil
}

// isStringSignature reports whether a dynamic-invoke descriptor matches the
// string phase's shape (spec.md §4.5): a String return, handled by
// StringDecryptor instead.
func isStringSignature(descriptor string) bool {
	return ir.ParseMethodDescriptor(descriptor).Return == "Ljava/lang/String;"
}

// scanKeyedLocals finds every LSTORE preceded by the GETSTATIC J ; LDC J ;
// LXOR (or bare GETSTATIC J) key-derivation shape spec.md §4.5 step 5a
// names, recording the computed key under the stored local's index for
// later use by recoverKey when a call site loads it back with LLOAD.
func scanKeyedLocals(vm *sandbox.VM, items []ir.Instr) map[int]int64 {
	out := map[int]int64{}
	for i, it := range items {
		vi, ok := it.(*ir.VarInsn)
		if !ok || vi.Opcode != ir.OpLstore {
			continue
		}
		if key, ok := keyBeforeIndex(vm, items, i); ok {
			out[vi.Index] = key
		}
	}
	return out
}

// keyBeforeIndex inspects the instructions immediately preceding idx
// (skipping labels/line numbers/frames) for the recognized key-derivation
// shape, resolving any GETSTATIC against vm's already-executed statics.
func keyBeforeIndex(vm *sandbox.VM, items []ir.Instr, idx int) (int64, bool) {
	j := idx - 1
	skipPseudo := func() {
		for j >= 0 {
			switch items[j].(type) {
			case *ir.Label, *ir.LineNumber, *ir.Frame:
				j--
				continue
			}
			break
		}
	}
	skipPseudo()
	if j < 0 {
		return 0, false
	}
	if zo, ok := items[j].(*ir.ZeroOp); ok && zo.Opcode == ir.OpLxor {
		j--
		skipPseudo()
		if j < 0 {
			return 0, false
		}
		ldc, ok := items[j].(*ir.Ldc)
		if !ok || ldc.Value.Kind != ir.ConstLong {
			return 0, false
		}
		j--
		skipPseudo()
		if j < 0 {
			return 0, false
		}
		fi, ok := items[j].(*ir.FieldInsn)
		if !ok || fi.Opcode != ir.OpGetstatic {
			return 0, false
		}
		v, ok := vm.StaticField(fi.Owner, fi.Name)
		if !ok || v.Kind != ir.ConstLong {
			return 0, false
		}
		return v.J ^ ldc.Value.J, true
	}
	if fi, ok := items[j].(*ir.FieldInsn); ok && fi.Opcode == ir.OpGetstatic {
		if v, ok := vm.StaticField(fi.Owner, fi.Name); ok && v.Kind == ir.ConstLong {
			return v.J, true
		}
	}
	return 0, false
}

// recoverKey implements spec.md §4.5 step 5a: try the immediate
// GETSTATIC/LDC/LXOR shape at the call site itself, then fall back to an
// LLOAD of a local scanKeyedLocals already resolved.
func recoverKey(vm *sandbox.VM, keyedLocals map[int]int64, items []ir.Instr, idx int) (int64, bool) {
	if key, ok := keyBeforeIndex(vm, items, idx); ok {
		return key, true
	}
	j := idx - 1
	for j >= 0 {
		switch it := items[j].(type) {
		case *ir.Label, *ir.LineNumber, *ir.Frame:
			j--
			continue
		case *ir.VarInsn:
			if it.Opcode == ir.OpLload {
				if key, ok := keyedLocals[it.Index]; ok {
					return key, true
				}
			}
		}
		break
	}
	return 0, false
}

// harvestArgs implements spec.md §4.5 step 5b: the n most recently pushed
// Known values on the frame preceding the dynamic-invoke, in push order.
func harvestArgs(frame *constprop.Frame, n int) ([]ir.ConstantValue, bool) {
	if n == 0 {
		return nil, true
	}
	if frame == nil || len(frame.Stack) < n {
		return nil, false
	}
	args := append([]ir.ConstantValue(nil), frame.Stack[len(frame.Stack)-n:]...)
	for _, a := range args {
		if !a.IsKnown() {
			return nil, false
		}
	}
	return args, true
}

// buildBootstrapArgs implements spec.md §4.5 step 5c's argument vector:
// [trustedLookup, null, name, MethodType, ...harvested, key].
func buildBootstrapArgs(idy *ir.InvokeDynamic, harvested []ir.ConstantValue, key int64) []sandbox.Value {
	args := []sandbox.Value{"threadtear/lookup", nil, idy.Name, idy.Descriptor}
	for _, h := range harvested {
		args = append(args, constantToValue(h))
	}
	args = append(args, key)
	return args
}

func constantToValue(c ir.ConstantValue) sandbox.Value {
	switch c.Kind {
	case ir.ConstInt:
		return c.I
	case ir.ConstLong:
		return c.J
	case ir.ConstFloat:
		return c.F
	case ir.ConstDouble:
		return c.D
	case ir.ConstString, ir.ConstType:
		return c.S
	case ir.ConstNull:
		return nil
	default:
		return nil
	}
}

// instructionFromHandle implements spec.md §4.5 step 5d: synthesize the
// concrete field- or method-reference instruction a resolved handle
// describes, keyed off the JVM's reference_kind numbering.
func instructionFromHandle(h *sandbox.Handle) (ir.Instr, bool) {
	switch h.Kind {
	case 6: // invokeStatic
		return &ir.MethodInsn{Opcode: ir.OpInvokestatic, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}, true
	case 5: // invokeVirtual
		return &ir.MethodInsn{Opcode: ir.OpInvokevirtual, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}, true
	case 7: // invokeSpecial
		return &ir.MethodInsn{Opcode: ir.OpInvokespecial, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}, true
	case 9: // invokeInterface
		return &ir.MethodInsn{Opcode: ir.OpInvokeinterface, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor, IsInterface: true}, true
	case 2: // getStatic
		return &ir.FieldInsn{Opcode: ir.OpGetstatic, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}, true
	case 4: // putStatic
		return &ir.FieldInsn{Opcode: ir.OpPutstatic, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}, true
	case 1: // getField
		return &ir.FieldInsn{Opcode: ir.OpGetfield, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}, true
	case 3: // putField
		return &ir.FieldInsn{Opcode: ir.OpPutfield, Owner: h.Owner, Name: h.Name, Descriptor: h.Descriptor}, true
	}
	return nil, false
}

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

// StringDecryptor implements spec.md §4.5's string phase: a dynamic-invoke
// whose descriptor returns Ljava/lang/String; is keyed the same way as the
// reference phase, but its "bootstrap" is a plain two-argument decrypt
// helper rather than a method-handle factory. Real ZKM output decrypts an
// arbitrary-length ciphertext read from a static byte-table field; this
// pass covers the single-DES-block case where the harvested numeric
// argument (int or long) already is the ciphertext, which is what a
// hand-authored two-argument bootstrap of this shape can carry directly —
// a table-indexed variant would need the sandbox to model array-typed
// static state the same way, which is future work rather than a redesign.
type StringDecryptor struct{}

func (StringDecryptor) Metadata() passes.Meta {
	return passes.Meta{
		ID:          "zkm.string-decrypt",
		DisplayName: "ZKM string decryptor",
		Description: "Decrypts ZKM's DES-based dynamic-invoke string literals.",
		Category:    passes.CategoryVendor,
		Tags:        []passes.Tag{passes.TagBetterDecompile, passes.TagBetterDeobfuscate},
	}
}

func (StringDecryptor) Execute(u *universe.U, opts diag.Options) (bool, error) {
	changed := false
	u.Each(func(rec *universe.ClassRecord) {
		cls := rec.Node
		clinit := cls.Method("<clinit>", "()V")
		var vm *sandbox.VM
		if clinit != nil {
			pu := universe.New()
			pu.Add(buildProxyClass(cls, clinit), "zkm-proxy")
			vm = sandbox.ConstructVM(pu, opts)
			if _, err := vm.InvokeStatic(cls.Name, "clinitProxy", "()V", nil); err != nil && !strings.Contains(err.Error(), "ATHROW reached") {
				rec.Failures.Addf(cls.Name, "<clinit>", diag.KindSandboxCrash, "%v", err)
				vm = nil
			}
		}
		if vm == nil {
			vm = sandbox.ConstructVM(universe.New(), opts)
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
				if !ok || !isStringSignature(idy.Descriptor) {
					continue
				}
				key, ok := recoverKey(vm, keyedLocals, items, idx)
				if !ok {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "no key recovered at instruction %d", idx)
					continue
				}
				payload, ok := harvestArgs(res.At(idx-1), 1)
				if !ok {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "unknown ciphertext argument at instruction %d", idx)
					continue
				}
				plain, ok := decryptPayload(payload[0], key)
				if !ok {
					rec.Failures.Addf(cls.Name, m.Name, diag.KindBootstrapFailure, "payload is not a DES-block-sized constant at instruction %d", idx)
					continue
				}
				desc := ir.ParseMethodDescriptor(idy.Descriptor)
				start := idx - len(desc.Params)
				if start < 0 {
					start = 0
				}
				mod.RemoveRange(start, idx)
				mod.ReplaceAt(idx, &ir.Ldc{Value: ir.KnownString(plain)})
			}
			if mod.Apply() {
				changed = true
			}
		}
	})
	return changed, nil
}

// decryptPayload treats a single Known int/long constant as one DES block
// of ciphertext and decrypts it under key, trimming NUL padding.
func decryptPayload(v ir.ConstantValue, key int64) (string, bool) {
	var block []byte
	switch v.Kind {
	case ir.ConstLong:
		block = desKeyBytes(v.J)
	case ir.ConstInt:
		block = desKeyBytes(int64(v.I))
	default:
		return "", false
	}
	plain, err := decryptStringPayload(key, block)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(plain), "\x00"), true
}

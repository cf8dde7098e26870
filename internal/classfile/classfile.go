// Package classfile bridges raw .class bytes to internal/ir's mutable
// representation via github.com/zxh0/jvm.go/classfile, which supplies
// constant-pool decoding and structural (field/method/attribute) parsing.
// Re-serialization back to bytes is deliberately not provided: spec.md §1
// puts archive/container I/O out of the core's scope, and the retrieved
// teacher never round-trips its own parsed structures back to disk either.
package classfile

import (
	"fmt"

	jcf "github.com/zxh0/jvm.go/classfile"
	"threadtear/internal/ir"
)

// Parse decodes one .class file's bytes into an *ir.ClassNode.
func Parse(data []byte) (*ir.ClassNode, error) {
	cf, err := jcf.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("classfile: parse: %w", err)
	}

	p := newPool(cf)
	out := &ir.ClassNode{
		MinorVersion: cf.MinorVersion,
		MajorVersion: cf.MajorVersion,
		Access:       ir.AccessFlags(cf.AccessFlags),
		Name:         cf.ThisClassName,
		SuperName:    cf.SuperClassName,
		SourceFile:   cf.SourceFileName,
	}
	for _, idx := range cf.Interfaces {
		out.Interfaces = append(out.Interfaces, p.className(idx))
	}

	for _, f := range cf.Fields {
		out.Fields = append(out.Fields, &ir.FieldNode{
			Access:     ir.AccessFlags(f.AccessFlags),
			Name:       f.Name,
			Descriptor: f.Descriptor,
		})
	}

	for _, m := range cf.Methods {
		mn := &ir.MethodNode{
			Access:     ir.AccessFlags(m.AccessFlags),
			Name:       m.Name,
			Descriptor: m.Descriptor,
		}
		for _, attr := range m.AttributeTable {
			code, ok := attr.(jcf.CodeAttribute)
			if !ok {
				continue
			}
			mn.MaxStack = int(code.MaxStack)
			mn.MaxLocals = int(code.MaxLocals)
			list, handlers, err := decodeCode(cf, code, p)
			if err != nil {
				return nil, fmt.Errorf("classfile: %s.%s%s: %w", out.Name, m.Name, m.Descriptor, err)
			}
			mn.Instructions = list
			mn.TryCatchBlocks = handlers
			break
		}
		if mn.Instructions == nil {
			mn.Instructions = ir.NewInstructionList()
		}
		out.Methods = append(out.Methods, mn)
	}

	return out, nil
}

// SupportedVersions reports the (minMajor, maxMajor) classfile version
// range this decoder accepts. The range is a fixed pair of constants
// (major 45 through 68); it is not computed from the opcode table or from
// any runtime version.
func SupportedVersions() (min, max uint16) {
	return 45, 68 // Java SE 1.1 through the newest release this decoder was written against
}

// IsSupported reports whether a class's major version falls within
// SupportedVersions.
func IsSupported(majorVersion uint16) bool {
	lo, hi := SupportedVersions()
	return majorVersion >= lo && majorVersion <= hi
}

package classfile

import (
	jcf "github.com/zxh0/jvm.go/classfile"
	"threadtear/internal/ir"
)

// pool wraps a parsed class's constant pool with the lookups threadtear-go's
// decoder needs. The only confirmed call shape from the pack is
// "classfile.Parse(bytes)" returning a *jcf.ClassFile whose .Methods carry
// .AttributeTable entries type-switched against jcf.CodeAttribute
// (other_examples/palantir-log4j-sniffer__class.go); the constant-pool
// accessor names below follow that library's own JVM-spec-literal naming
// convention (GetUtf8/GetClassName/GetNameAndType, one function per
// CONSTANT_* tag) rather than inventing a bespoke shape.
type pool struct {
	cp   jcf.ConstantPool
	boot []jcf.BootstrapMethod
}

func newPool(cf *jcf.ClassFile) *pool {
	return &pool{cp: cf.ConstantPool, boot: cf.BootstrapMethods}
}

func (p *pool) utf8(idx uint16) string {
	if idx == 0 {
		return ""
	}
	return p.cp.GetUtf8(idx)
}

func (p *pool) className(idx uint16) string {
	if idx == 0 {
		return ""
	}
	return p.cp.GetClassName(idx)
}

func (p *pool) nameAndType(idx uint16) (string, string) {
	return p.cp.GetNameAndType(idx)
}

func (p *pool) fieldRef(idx uint16) (owner, name, desc string) {
	owner, name, desc = p.cp.GetFieldRef(idx)
	return
}

func (p *pool) methodRef(idx uint16) (owner, name, desc string, isInterface bool) {
	owner, name, desc = p.cp.GetMethodRef(idx)
	return owner, name, desc, false
}

func (p *pool) interfaceMethodRef(idx uint16) (owner, name, desc string) {
	return p.cp.GetInterfaceMethodRef(idx)
}

// constant resolves any loadable constant-pool entry (CONSTANT_Integer,
// Float, Long, Double, String, Class, MethodHandle) into threadtear-go's
// own ConstantValue, the shape the constant-tracking analyzer and the LDC
// decoder both consume.
func (p *pool) constant(idx uint16) ir.ConstantValue {
	switch v := p.cp.GetConstant(idx).(type) {
	case int32:
		return ir.KnownInt(v)
	case int64:
		return ir.KnownLong(v)
	case float32:
		return ir.KnownFloat(v)
	case float64:
		return ir.KnownDouble(v)
	case string:
		return ir.KnownString(v)
	default:
		// CONSTANT_Class / CONSTANT_MethodHandle / CONSTANT_MethodType and
		// anything this decoder doesn't special-case resolve to the class
		// name form; the analyzer treats anything it can't classify as
		// Unknown rather than guessing.
		if name := p.cp.GetClassName(idx); name != "" {
			return ir.KnownType(name)
		}
		return ir.Unknown
	}
}

// invokeDynamic resolves a CONSTANT_InvokeDynamic entry to its bootstrap
// method table index plus the call-site name/descriptor.
func (p *pool) invokeDynamic(idx uint16) (bootstrapIdx uint16, name, desc string) {
	return p.cp.GetInvokeDynamicInfo(idx)
}

// bootstrapMethod resolves one entry of the class's BootstrapMethods
// attribute (spec.md §3: "dynamic-invoke (bootstrap handle + descriptor +
// static arguments)").
func (p *pool) bootstrapMethod(idx uint16) (ir.Handle, []ir.ConstantValue) {
	bm := p.boot[idx]
	owner, name, desc := p.methodHandleTarget(bm.MethodRefIndex)
	h := ir.Handle{Kind: int(bm.Kind), Owner: owner, Name: name, Descriptor: desc}
	args := make([]ir.ConstantValue, 0, len(bm.Arguments))
	for _, a := range bm.Arguments {
		args = append(args, p.constant(a))
	}
	return h, args
}

func (p *pool) methodHandleTarget(idx uint16) (owner, name, desc string) {
	owner, name, desc, _ = p.methodRef(idx)
	return
}

package zkm

import "threadtear/internal/ir"

// buildProxyClass implements spec.md §4.5 step 3: a copy of c containing
// only its static fields, its static methods, and its static initializer
// renamed to clinitProxy. Step 2's "strip calls to classes outside the
// target that are not recognized runtime helpers" is not done as a
// separate bytecode rewrite here: internal/sandbox's loader already turns
// any call into an unrecognized class into a stub (nil return, no body
// executed), which is the same net effect on the interpreter's behavior
// without a second instruction-level filtering pass.
func buildProxyClass(c *ir.ClassNode, clinit *ir.MethodNode) *ir.ClassNode {
	proxy := &ir.ClassNode{
		MinorVersion: c.MinorVersion,
		MajorVersion: c.MajorVersion,
		Access:       c.Access,
		Name:         c.Name,
		SuperName:    c.SuperName,
		Interfaces:   append([]string(nil), c.Interfaces...),
		SourceFile:   c.SourceFile,
	}
	for _, f := range c.Fields {
		if f.Access.IsStatic() {
			proxy.Fields = append(proxy.Fields, f.Clone())
		}
	}
	for _, m := range c.Methods {
		if m.Access.IsStatic() && !m.IsStaticInitializer() {
			proxy.Methods = append(proxy.Methods, m.Clone())
		}
	}
	cloned := clinit.Clone()
	cloned.Name = "clinitProxy"
	proxy.Methods = append(proxy.Methods, cloned)
	return proxy
}

// Package ir is the in-memory representation of parsed bytecode: classes,
// methods, fields, and instructions (spec.md §3). It holds no I/O and no
// knowledge of any obfuscator family; every pass in internal/passes/* reads
// and mutates these types directly.
package ir

// ClassNode holds one class's parsed, mutable bytecode (spec.md §3).
type ClassNode struct {
	MinorVersion uint16
	MajorVersion uint16
	Access       AccessFlags
	Name         string // internal, slash-separated
	SuperName    string
	Interfaces   []string
	Fields       []*FieldNode
	Methods      []*MethodNode
	SourceFile   string
}

// Method returns the method matching name+descriptor, or nil.
func (c *ClassNode) Method(name, descriptor string) *MethodNode {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// Field returns the field matching name, or nil.
func (c *ClassNode) Field(name string) *FieldNode {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// StaticInitializers returns every <clinit>()V method. ClassNode's
// invariant (spec.md §3) is that there is at most one *after* the merge
// step (internal/passes/clean's mergeStaticInitializers, run at the start
// of the constant-field inliner); before that step an
// obfuscator-manipulated class may carry several.
func (c *ClassNode) StaticInitializers() []*MethodNode {
	var out []*MethodNode
	for _, m := range c.Methods {
		if m.Name == "<clinit>" && m.Descriptor == "()V" {
			out = append(out, m)
		}
	}
	return out
}

// RemoveMethod deletes the method matching name+descriptor, if present.
// Used by the trivial inliner once every call site has been rewritten
// (spec.md §4.4.1: "selected callees are removed from their owning class").
func (c *ClassNode) RemoveMethod(name, descriptor string) bool {
	for i, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			c.Methods = append(c.Methods[:i], c.Methods[i+1:]...)
			return true
		}
	}
	return false
}

// Clone deep-copies the class, including every method's instruction list
// (each with its own fresh label space — methods don't share labels).
func (c *ClassNode) Clone() *ClassNode {
	out := &ClassNode{
		MinorVersion: c.MinorVersion,
		MajorVersion: c.MajorVersion,
		Access:       c.Access,
		Name:         c.Name,
		SuperName:    c.SuperName,
		SourceFile:   c.SourceFile,
		Interfaces:   append([]string(nil), c.Interfaces...),
	}
	for _, f := range c.Fields {
		out.Fields = append(out.Fields, f.Clone())
	}
	for _, m := range c.Methods {
		out.Methods = append(out.Methods, m.Clone())
	}
	return out
}

// FieldNode holds one field's declaration (spec.md §3).
type FieldNode struct {
	Access     AccessFlags
	Name       string
	Descriptor string
	// ConstantValue is set by the constant-field inliner (spec.md §4.4.2)
	// once the field's post-init value has been harvested from the sandbox;
	// Unknown until then.
	ConstantValue ConstantValue
}

func (f *FieldNode) Clone() *FieldNode {
	c := *f
	return &c
}

// MethodNode holds one method's declaration, body, and exception table
// (spec.md §3).
type MethodNode struct {
	Access         AccessFlags
	Name           string
	Descriptor     string
	Signature      string
	Instructions   *InstructionList
	TryCatchBlocks []*TryCatchBlock
	LocalVariables []*LocalVariable
	MaxStack       int
	MaxLocals      int
}

// TryCatchBlock is one exception handler range (spec.md §3): start/end/
// handler labels plus the caught type ("" denotes a finally/catch-all).
type TryCatchBlock struct {
	Start   LabelID
	End     LabelID
	Handler LabelID
	Type    string
}

// LocalVariable is one local-variable-table entry (spec.md §3).
type LocalVariable struct {
	Name       string
	Descriptor string
	Index      int
	Start      LabelID
	End        LabelID
}

// IsStaticInitializer reports whether this is <clinit>()V.
func (m *MethodNode) IsStaticInitializer() bool {
	return m.Name == "<clinit>" && m.Descriptor == "()V"
}

// IsConstructor reports whether this is <init>.
func (m *MethodNode) IsConstructor() bool {
	return m.Name == "<init>"
}

// Clone deep-copies the method: instructions, try/catch ranges (remapped),
// and local-variable entries (remapped), via a single shared LabelRemap so
// every reference stays internally consistent (spec.md §3, §4.4.2a).
func (m *MethodNode) Clone() *MethodNode {
	out := &MethodNode{
		Access:     m.Access,
		Name:       m.Name,
		Descriptor: m.Descriptor,
		Signature:  m.Signature,
		MaxStack:   m.MaxStack,
		MaxLocals:  m.MaxLocals,
	}
	if m.Instructions == nil {
		out.Instructions = NewInstructionList()
		return out
	}
	cloned, remap := m.Instructions.Clone()
	out.Instructions = cloned
	for _, tc := range m.TryCatchBlocks {
		out.TryCatchBlocks = append(out.TryCatchBlocks, &TryCatchBlock{
			Start:   remapOrSame(remap, tc.Start),
			End:     remapOrSame(remap, tc.End),
			Handler: remapOrSame(remap, tc.Handler),
			Type:    tc.Type,
		})
	}
	for _, lv := range m.LocalVariables {
		out.LocalVariables = append(out.LocalVariables, &LocalVariable{
			Name:       lv.Name,
			Descriptor: lv.Descriptor,
			Index:      lv.Index,
			Start:      remapOrSame(remap, lv.Start),
			End:        remapOrSame(remap, lv.End),
		})
	}
	return out
}

// CloneInto clones m's body using remap (a caller-supplied, possibly
// shared, label remap) rather than allocating its own — the shape
// spec.md §4.4.2a's static-initializer merge needs ("clone each secondary
// initializer's instructions via a fresh label remap to avoid aliasing").
func (m *MethodNode) CloneInto(remap LabelRemap, nextLabel *LabelID) []Instr {
	if m.Instructions == nil {
		return nil
	}
	// Ensure every label in m gets an entry in remap before cloning so
	// forward references resolve correctly even when this body is spliced
	// into a larger, already-labeled list.
	for _, it := range m.Instructions.Items {
		if lbl, ok := it.(*Label); ok {
			remap.Handle(lbl.ID, nextLabel)
		}
	}
	out := make([]Instr, len(m.Instructions.Items))
	for i, it := range m.Instructions.Items {
		out[i] = it.Clone(remap)
	}
	return out
}

package ir

// LabelID identifies a position in a method's instruction list. Per the
// design notes in spec.md §9 ("Cyclic references"), labels are integer
// handles allocated per method rather than raw pointers, so jump targets
// and try/catch ranges survive clone/remap without aliasing.
type LabelID int

// LabelRemap maps a source method's LabelIDs onto freshly allocated ones in
// a clone's instruction list. Used by the trivial inliner (callee body into
// caller), the static-initializer merge, and the ZKM proxy-class builder —
// anywhere spec.md calls for "a deep-clone primitive parameterized by a
// label-remap mapping" (spec.md §3).
type LabelRemap map[LabelID]LabelID

// Handle resolves id through the remap, allocating a fresh id the first
// time it is seen.
func (r LabelRemap) Handle(id LabelID, next *LabelID) LabelID {
	if nl, ok := r[id]; ok {
		return nl
	}
	nl := *next
	*next++
	r[id] = nl
	return nl
}

// Instr is the tagged-variant instruction interface (spec.md §3): every
// concrete kind exposes its opcode and a clone primitive.
type Instr interface {
	Op() Opcode
	Clone(remap LabelRemap) Instr
}

// ZeroOp covers opcodes with no operand: arithmetic, stack shuffling,
// conversions, comparisons, ATHROW, ARRAYLENGTH, MONITORENTER/EXIT, and the
// six RETURN variants.
type ZeroOp struct{ Opcode Opcode }

func (i *ZeroOp) Op() Opcode { return i.Opcode }
func (i *ZeroOp) Clone(LabelRemap) Instr { c := *i; return &c }

// IntPush covers BIPUSH/SIPUSH (and is also used to synthesize optimally
// encoded constant pushes: spec.md §4.4.4 says fold to "ICONST_*/BIPUSH/
// SIPUSH/LDC"; callers pick the narrowest IntPush/Ldc pair via NewIntPush).
type IntPush struct {
	Opcode  Opcode
	Operand int32
}

func (i *IntPush) Op() Opcode { return i.Opcode }
func (i *IntPush) Clone(LabelRemap) Instr { c := *i; return &c }

// NewIntPush picks the narrowest integer-push encoding for v, used by the
// bitwise simplifier and the constant-field inliner.
func NewIntPush(v int32) Instr {
	switch {
	case v == -1:
		return &ZeroOp{Opcode: OpIconstM1}
	case v >= 0 && v <= 5:
		return &ZeroOp{Opcode: Opcode(int(OpIconst0) + int(v))}
	case v >= -128 && v <= 127:
		return &IntPush{Opcode: OpBipush, Operand: v}
	case v >= -32768 && v <= 32767:
		return &IntPush{Opcode: OpSipush, Operand: v}
	default:
		return &Ldc{Value: KnownInt(v)}
	}
}

// NewLongPush picks LCONST_0/1 or an LDC2_W-equivalent for a long constant.
func NewLongPush(v int64) Instr {
	switch v {
	case 0:
		return &ZeroOp{Opcode: OpLconst0}
	case 1:
		return &ZeroOp{Opcode: OpLconst1}
	default:
		return &Ldc{Value: KnownLong(v)}
	}
}

// VarInsn covers *LOAD/*STORE local-variable access (including RET, which
// takes a local index operand like the others).
type VarInsn struct {
	Opcode Opcode
	Index  int
}

func (i *VarInsn) Op() Opcode { return i.Opcode }
func (i *VarInsn) Clone(LabelRemap) Instr { c := *i; return &c }

// TypeInsn covers NEW/ANEWARRAY/CHECKCAST/INSTANCEOF.
type TypeInsn struct {
	Opcode Opcode
	Type   string // internal class/array-element name
}

func (i *TypeInsn) Op() Opcode { return i.Opcode }
func (i *TypeInsn) Clone(LabelRemap) Instr { c := *i; return &c }

// FieldInsn covers GETSTATIC/PUTSTATIC/GETFIELD/PUTFIELD.
type FieldInsn struct {
	Opcode     Opcode
	Owner      string
	Name       string
	Descriptor string
}

func (i *FieldInsn) Op() Opcode { return i.Opcode }
func (i *FieldInsn) Clone(LabelRemap) Instr { c := *i; return &c }

// MethodInsn covers INVOKEVIRTUAL/SPECIAL/STATIC/INTERFACE.
type MethodInsn struct {
	Opcode      Opcode
	Owner       string
	Name        string
	Descriptor  string
	IsInterface bool
}

func (i *MethodInsn) Op() Opcode { return i.Opcode }
func (i *MethodInsn) Clone(LabelRemap) Instr { c := *i; return &c }

// Handle identifies a bootstrap/method-handle target (spec.md §3's
// "MethodHandle" constant and §4.5's "bootstrap handle").
type Handle struct {
	Kind       int // JVM reference_kind: 6=invokeStatic, 5=invokeVirtual, etc.
	Owner      string
	Name       string
	Descriptor string
}

// InvokeDynamic covers INVOKEDYNAMIC: a bootstrap handle, the call-site
// name/descriptor, and the static bootstrap arguments (spec.md §3).
type InvokeDynamic struct {
	Name       string
	Descriptor string
	Bootstrap  Handle
	StaticArgs []ConstantValue
}

func (i *InvokeDynamic) Op() Opcode { return OpInvokedynamic }
func (i *InvokeDynamic) Clone(LabelRemap) Instr {
	c := *i
	c.StaticArgs = append([]ConstantValue(nil), i.StaticArgs...)
	return &c
}

// Ldc covers LDC/LDC_W/LDC2_W: a constant load of int/long/float/double/
// string/type/method-handle (spec.md §3).
type Ldc struct {
	Value ConstantValue
}

func (i *Ldc) Op() Opcode {
	if i.Value.Size == 2 {
		return OpLdc2W
	}
	return OpLdc
}
func (i *Ldc) Clone(LabelRemap) Instr { c := *i; return &c }

// Jump covers GOTO/JSR and the IF* family; Target is resolved through the
// remap on clone so inlined/merged jump targets stay internally consistent.
type Jump struct {
	Opcode Opcode
	Target LabelID
}

func (i *Jump) Op() Opcode { return i.Opcode }
func (i *Jump) Clone(remap LabelRemap) Instr {
	return &Jump{Opcode: i.Opcode, Target: remapOrSame(remap, i.Target)}
}

// LookupSwitch covers LOOKUPSWITCH: sorted (key, label) pairs plus a
// default label.
type LookupSwitch struct {
	Default LabelID
	Keys    []int32
	Labels  []LabelID
}

func (i *LookupSwitch) Op() Opcode { return OpLookupswitch }
func (i *LookupSwitch) Clone(remap LabelRemap) Instr {
	c := &LookupSwitch{Default: remapOrSame(remap, i.Default)}
	c.Keys = append([]int32(nil), i.Keys...)
	c.Labels = make([]LabelID, len(i.Labels))
	for idx, l := range i.Labels {
		c.Labels[idx] = remapOrSame(remap, l)
	}
	return c
}

// TableSwitch covers TABLESWITCH: a contiguous [Low, High] key range.
type TableSwitch struct {
	Default LabelID
	Low     int32
	High    int32
	Labels  []LabelID
}

func (i *TableSwitch) Op() Opcode { return OpTableswitch }
func (i *TableSwitch) Clone(remap LabelRemap) Instr {
	c := &TableSwitch{Default: remapOrSame(remap, i.Default), Low: i.Low, High: i.High}
	c.Labels = make([]LabelID, len(i.Labels))
	for idx, l := range i.Labels {
		c.Labels[idx] = remapOrSame(remap, l)
	}
	return c
}

// Incr covers IINC: a local-variable index plus a signed delta.
type Incr struct {
	Index int
	Delta int32
}

func (i *Incr) Op() Opcode { return OpIinc }
func (i *Incr) Clone(LabelRemap) Instr { c := *i; return &c }

// MultiANewArray covers MULTIANEWARRAY.
type MultiANewArray struct {
	Type string
	Dims int
}

func (i *MultiANewArray) Op() Opcode { return OpMultianewarray }
func (i *MultiANewArray) Clone(LabelRemap) Instr { c := *i; return &c }

// LineNumber is a pseudo-instruction anchoring a source line to a label.
type LineNumber struct {
	Line  int
	Label LabelID
}

func (i *LineNumber) Op() Opcode { return OpLine }
func (i *LineNumber) Clone(remap LabelRemap) Instr {
	return &LineNumber{Line: i.Line, Label: remapOrSame(remap, i.Label)}
}

// Frame is a pseudo-instruction carrying verifier stack-map metadata.
// threadtear-go treats frame contents opaquely (spec.md's Non-goals
// exclude bytecode verification) and only tracks its position.
type Frame struct {
	RawKind string
}

func (i *Frame) Op() Opcode { return OpFrame }
func (i *Frame) Clone(LabelRemap) Instr { c := *i; return &c }

// Label is a pseudo-instruction: a positional anchor referenced by jumps,
// switches, try/catch ranges, and local-variable scopes.
type Label struct {
	ID LabelID
}

func (i *Label) Op() Opcode { return OpLabel }
func (i *Label) Clone(remap LabelRemap) Instr {
	return &Label{ID: remapOrSame(remap, i.ID)}
}

func remapOrSame(remap LabelRemap, id LabelID) LabelID {
	if remap == nil {
		return id
	}
	if nl, ok := remap[id]; ok {
		return nl
	}
	return id
}

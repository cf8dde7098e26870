package classfile

import (
	"encoding/binary"
	"fmt"

	jcf "github.com/zxh0/jvm.go/classfile"
	"threadtear/internal/ir"
)

// decodeCode turns a method's raw Code attribute bytes into threadtear-go's
// addressable instruction list: this is the piece spec.md §2 calls out as
// missing from jvm.go/classfile ("the classfile library supplies constant-
// pool decoding and raw opcode/operand splitting ... internal/ir supplies
// the mutable, clonable, label-addressed representation"). Every branch
// target and every exception-table boundary gets a *ir.Label inserted so
// internal/cfg and the InstructionModifier can address them positionally.
func decodeCode(cf *jcf.ClassFile, code jcf.CodeAttribute, p *pool) (*ir.InstructionList, []*ir.TryCatchBlock, error) {
	raw := code.Code

	// Pass 1: find every offset that needs a label (0, branch/switch
	// targets, exception-table start/end/handler).
	labelAt := map[int]ir.LabelID{}
	list := ir.NewInstructionList()
	ensureLabel := func(off int) {
		if _, ok := labelAt[off]; !ok {
			labelAt[off] = list.NewLabel()
		}
	}
	ensureLabel(0)
	ensureLabel(len(raw))
	for _, et := range code.ExceptionTable {
		ensureLabel(int(et.StartPc))
		ensureLabel(int(et.EndPc))
		ensureLabel(int(et.HandlerPc))
	}
	for off := 0; off < len(raw); {
		op := ir.Opcode(raw[off])
		n, targets, err := instrLen(raw, off)
		if err != nil {
			return nil, nil, fmt.Errorf("classfile: decode at %d: %w", off, err)
		}
		for _, t := range targets {
			ensureLabel(off + t)
		}
		_ = op
		off += n
	}

	// Pass 2: emit instructions, inserting labels at their offsets.
	offToIdx := map[int]int{}
	emit := func(off int, instr ir.Instr) {
		if id, ok := labelAt[off]; ok {
			list.Items = append(list.Items, &ir.Label{ID: id})
		}
		offToIdx[off] = len(list.Items)
		if instr != nil {
			list.Items = append(list.Items, instr)
		}
	}
	labelForOffset := func(off int) ir.LabelID {
		ensureLabel(off)
		return labelAt[off]
	}

	for off := 0; off < len(raw); {
		instr, n, err := decodeOne(raw, off, p, labelForOffset)
		if err != nil {
			return nil, nil, fmt.Errorf("classfile: decode at %d: %w", off, err)
		}
		emit(off, instr)
		off += n
	}
	if id, ok := labelAt[len(raw)]; ok {
		list.Items = append(list.Items, &ir.Label{ID: id})
	}

	var handlers []*ir.TryCatchBlock
	for _, et := range code.ExceptionTable {
		typeName := ""
		if et.CatchType != 0 {
			typeName = p.className(et.CatchType)
		}
		handlers = append(handlers, &ir.TryCatchBlock{
			Start:   labelAt[int(et.StartPc)],
			End:     labelAt[int(et.EndPc)],
			Handler: labelAt[int(et.HandlerPc)],
			Type:    typeName,
		})
	}
	return list, handlers, nil
}

// instrLen returns the byte length of the instruction at off and, for
// branches/switches, the list of *relative* target offsets it contains (so
// pass 1 above can pre-allocate labels without decoding operands twice).
func instrLen(raw []byte, off int) (int, []int, error) {
	op := ir.Opcode(raw[off])
	switch {
	case op == ir.OpTableswitch:
		pad := (4 - (off+1)%4) % 4
		base := off + 1 + pad
		if base+8 > len(raw) {
			return 0, nil, fmt.Errorf("truncated tableswitch")
		}
		def := int32(binary.BigEndian.Uint32(raw[base:]))
		low := int32(binary.BigEndian.Uint32(raw[base+4:]))
		high := int32(binary.BigEndian.Uint32(raw[base+8:]))
		n := int(high-low) + 1
		end := base + 12 + n*4
		targets := []int{int(def)}
		for i := 0; i < n; i++ {
			t := int32(binary.BigEndian.Uint32(raw[base+12+i*4:]))
			targets = append(targets, int(t))
		}
		return end - off, targets, nil
	case op == ir.OpLookupswitch:
		pad := (4 - (off+1)%4) % 4
		base := off + 1 + pad
		if base+8 > len(raw) {
			return 0, nil, fmt.Errorf("truncated lookupswitch")
		}
		def := int32(binary.BigEndian.Uint32(raw[base:]))
		npairs := int32(binary.BigEndian.Uint32(raw[base+4:]))
		end := base + 8 + int(npairs)*8
		targets := []int{int(def)}
		for i := 0; i < int(npairs); i++ {
			t := int32(binary.BigEndian.Uint32(raw[base+8+i*8+4:]))
			targets = append(targets, int(t))
		}
		return end - off, targets, nil
	case op.IsConditionalJump(), op == ir.OpGoto, op == ir.OpJsr:
		rel := int16(binary.BigEndian.Uint16(raw[off+1:]))
		return 3, []int{int(rel)}, nil
	case noOperand[int(op)]:
		return 1, nil, nil
	case oneByteOperand[int(op)]:
		return 2, nil, nil
	case twoByteOperand[int(op)]:
		return 3, nil, nil
	case op == ir.OpInvokeinterface:
		return 5, nil, nil
	case op == ir.OpMultianewarray:
		return 4, nil, nil // opcode + 2-byte index + 1-byte dimensions
	case fourByteOperand[int(op)]:
		return 5, nil, nil
	default:
		return 1, nil, nil // unknown opcode: treat as single-byte NOP-alike
	}
}

func decodeOne(raw []byte, off int, p *pool, label func(int) ir.LabelID) (ir.Instr, int, error) {
	op := ir.Opcode(raw[off])
	n, _, err := instrLen(raw, off)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case op == ir.OpBipush:
		return &ir.IntPush{Opcode: op, Operand: int32(int8(raw[off+1]))}, n, nil
	case op == ir.OpSipush:
		return &ir.IntPush{Opcode: op, Operand: int32(int16(binary.BigEndian.Uint16(raw[off+1:])))}, n, nil
	case op == ir.OpLdc:
		return &ir.Ldc{Value: p.constant(uint16(raw[off+1]))}, n, nil
	case op == ir.OpLdcW, op == ir.OpLdc2W:
		return &ir.Ldc{Value: p.constant(binary.BigEndian.Uint16(raw[off+1:]))}, n, nil
	case op == ir.OpIload, op == ir.OpLload, op == ir.OpFload, op == ir.OpDload, op == ir.OpAload,
		op == ir.OpIstore, op == ir.OpLstore, op == ir.OpFstore, op == ir.OpDstore, op == ir.OpAstore, op == ir.OpRet:
		return &ir.VarInsn{Opcode: op, Index: int(raw[off+1])}, n, nil
	case op == ir.OpNewarray:
		return &ir.TypeInsn{Opcode: op, Type: arrayTypeName(raw[off+1])}, n, nil
	case op == ir.OpNew, op == ir.OpAnewarray, op == ir.OpCheckcast, op == ir.OpInstanceof:
		idx := binary.BigEndian.Uint16(raw[off+1:])
		return &ir.TypeInsn{Opcode: op, Type: p.className(idx)}, n, nil
	case op.IsFieldRef():
		idx := binary.BigEndian.Uint16(raw[off+1:])
		owner, name, desc := p.fieldRef(idx)
		return &ir.FieldInsn{Opcode: op, Owner: owner, Name: name, Descriptor: desc}, n, nil
	case op == ir.OpInvokevirtual, op == ir.OpInvokespecial, op == ir.OpInvokestatic:
		idx := binary.BigEndian.Uint16(raw[off+1:])
		owner, name, desc, isIface := p.methodRef(idx)
		return &ir.MethodInsn{Opcode: op, Owner: owner, Name: name, Descriptor: desc, IsInterface: isIface}, n, nil
	case op == ir.OpInvokeinterface:
		idx := binary.BigEndian.Uint16(raw[off+1:])
		owner, name, desc := p.interfaceMethodRef(idx)
		return &ir.MethodInsn{Opcode: op, Owner: owner, Name: name, Descriptor: desc, IsInterface: true}, n, nil
	case op == ir.OpInvokedynamic:
		idx := binary.BigEndian.Uint16(raw[off+1:])
		bsIdx, name, desc := p.invokeDynamic(idx)
		handle, args := p.bootstrapMethod(bsIdx)
		return &ir.InvokeDynamic{Name: name, Descriptor: desc, Bootstrap: handle, StaticArgs: args}, n, nil
	case op.IsConditionalJump(), op == ir.OpGoto, op == ir.OpJsr:
		rel := int(int16(binary.BigEndian.Uint16(raw[off+1:])))
		return &ir.Jump{Opcode: op, Target: label(off + rel)}, n, nil
	case op == ir.OpTableswitch:
		return decodeTableSwitch(raw, off, label)
	case op == ir.OpLookupswitch:
		return decodeLookupSwitch(raw, off, label)
	case op == ir.OpIinc:
		return &ir.Incr{Index: int(raw[off+1]), Delta: int32(int8(raw[off+2]))}, n, nil
	case op == ir.OpMultianewarray:
		idx := binary.BigEndian.Uint16(raw[off+1:])
		return &ir.MultiANewArray{Type: p.className(idx), Dims: int(raw[off+3])}, n, nil
	case noOperand[int(op)]:
		return &ir.ZeroOp{Opcode: op}, n, nil
	default:
		return &ir.ZeroOp{Opcode: ir.OpNop}, n, nil
	}
}

func decodeTableSwitch(raw []byte, off int, label func(int) ir.LabelID) (ir.Instr, int, error) {
	pad := (4 - (off+1)%4) % 4
	base := off + 1 + pad
	def := int32(binary.BigEndian.Uint32(raw[base:]))
	low := int32(binary.BigEndian.Uint32(raw[base+4:]))
	high := int32(binary.BigEndian.Uint32(raw[base+8:]))
	n := int(high-low) + 1
	ts := &ir.TableSwitch{Default: label(off + int(def)), Low: low, High: high}
	for i := 0; i < n; i++ {
		t := int32(binary.BigEndian.Uint32(raw[base+12+i*4:]))
		ts.Labels = append(ts.Labels, label(off+int(t)))
	}
	return ts, (base + 12 + n*4) - off, nil
}

func decodeLookupSwitch(raw []byte, off int, label func(int) ir.LabelID) (ir.Instr, int, error) {
	pad := (4 - (off+1)%4) % 4
	base := off + 1 + pad
	def := int32(binary.BigEndian.Uint32(raw[base:]))
	npairs := int(binary.BigEndian.Uint32(raw[base+4:]))
	ls := &ir.LookupSwitch{Default: label(off + int(def))}
	for i := 0; i < npairs; i++ {
		k := int32(binary.BigEndian.Uint32(raw[base+8+i*8:]))
		t := int32(binary.BigEndian.Uint32(raw[base+8+i*8+4:]))
		ls.Keys = append(ls.Keys, k)
		ls.Labels = append(ls.Labels, label(off+int(t)))
	}
	return ls, (base + 8 + npairs*8) - off, nil
}

func arrayTypeName(atype byte) string {
	switch atype {
	case 4:
		return "[Z"
	case 5:
		return "[C"
	case 6:
		return "[F"
	case 7:
		return "[D"
	case 8:
		return "[B"
	case 9:
		return "[S"
	case 10:
		return "[I"
	case 11:
		return "[J"
	default:
		return "[?"
	}
}

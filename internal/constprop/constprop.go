// Package constprop implements the constant-tracking analyzer: a forward
// abstract interpretation over a method's control flow graph with a flat
// Unknown/Known lattice. The worklist-over-edges shape is grounded on
// other_examples/erigontech-erigon__absint_stackset.go's GenCfg/resolve/post
// loop (a D map keyed by program point, a Leq/Lub join, a pending-edges
// worklist) — retargeted from EVM's multi-stack stackset to a single
// (stack, locals) Frame per block entry, since JVM bytecode is statically
// typed and verified to a single stack shape at every program point.
package constprop

import (
	"threadtear/internal/cfg"
	"threadtear/internal/ir"
)

// ReferenceHandler resolves field and method values the bytecode alone
// can't determine (spec.md §3's "constant-reference handler interface").
// The zero value always answers absent, matching the spec's stated default.
type ReferenceHandler interface {
	FieldValue(owner, name, descriptor string) (ir.ConstantValue, bool)
	MethodReturn(owner, name, descriptor string, args []ir.ConstantValue) (ir.ConstantValue, bool)
}

type noopHandler struct{}

func (noopHandler) FieldValue(string, string, string) (ir.ConstantValue, bool) {
	return ir.Unknown, false
}
func (noopHandler) MethodReturn(string, string, string, []ir.ConstantValue) (ir.ConstantValue, bool) {
	return ir.Unknown, false
}

// NoopHandler is the default ReferenceHandler: absent everywhere.
var NoopHandler ReferenceHandler = noopHandler{}

// Frame is the abstract state flowing between instructions: an operand
// stack (top at the end of the slice) plus a local-variable table.
type Frame struct {
	Stack  []ir.ConstantValue
	Locals []ir.ConstantValue
}

func newFrame(maxLocals int) *Frame {
	return &Frame{Locals: make([]ir.ConstantValue, maxLocals)}
}

func (f *Frame) clone() *Frame {
	return &Frame{
		Stack:  append([]ir.ConstantValue(nil), f.Stack...),
		Locals: append([]ir.ConstantValue(nil), f.Locals...),
	}
}

func (f *Frame) push(v ir.ConstantValue) { f.Stack = append(f.Stack, v) }
func (f *Frame) pop() ir.ConstantValue {
	if len(f.Stack) == 0 {
		return ir.Unknown
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}
func (f *Frame) peek(depth int) ir.ConstantValue {
	idx := len(f.Stack) - 1 - depth
	if idx < 0 {
		return ir.Unknown
	}
	return f.Stack[idx]
}
func (f *Frame) local(i int) ir.ConstantValue {
	if i < 0 || i >= len(f.Locals) {
		return ir.Unknown
	}
	return f.Locals[i]
}
func (f *Frame) setLocal(i int, v ir.ConstantValue) {
	for i >= len(f.Locals) {
		f.Locals = append(f.Locals, ir.Unknown)
	}
	f.Locals[i] = v
}

// join computes the flat-lattice least upper bound of two frames, used when
// merging the states flowing into a block from more than one predecessor.
// Mismatched stack depths fall back to Unknown padding: verified bytecode
// never produces this, but a handler-broken obfuscator's fake exception
// edges sometimes do, and the analyzer must stay monotone regardless.
func join(a, b *Frame) *Frame {
	out := &Frame{}
	n := len(a.Stack)
	if len(b.Stack) > n {
		n = len(b.Stack)
	}
	out.Stack = make([]ir.ConstantValue, n)
	for i := 0; i < n; i++ {
		out.Stack[i] = ir.Join(stackAt(a, i, n), stackAt(b, i, n))
	}
	m := len(a.Locals)
	if len(b.Locals) > m {
		m = len(b.Locals)
	}
	out.Locals = make([]ir.ConstantValue, m)
	for i := 0; i < m; i++ {
		av, bv := ir.Unknown, ir.Unknown
		if i < len(a.Locals) {
			av = a.Locals[i]
		}
		if i < len(b.Locals) {
			bv = b.Locals[i]
		}
		out.Locals[i] = ir.Join(av, bv)
	}
	return out
}

func stackAt(f *Frame, i, want int) ir.ConstantValue {
	pad := want - len(f.Stack)
	if i < pad {
		return ir.Unknown
	}
	return f.Stack[i-pad]
}

func equalFrames(a, b *Frame) bool {
	if len(a.Stack) != len(b.Stack) || len(a.Locals) != len(b.Locals) {
		return false
	}
	for i := range a.Stack {
		if !a.Stack[i].Equal(b.Stack[i]) {
			return false
		}
	}
	for i := range a.Locals {
		if !a.Locals[i].Equal(b.Locals[i]) {
			return false
		}
	}
	return true
}

// Result holds the per-instruction output frame: the abstract state after
// executing the instruction at that index.
type Result struct {
	After map[int]*Frame
}

// At returns the output frame after the instruction at idx, or nil if idx
// was never reached (dead code, unresolved exception region).
func (r *Result) At(idx int) *Frame { return r.After[idx] }

// Analyze runs the fixed-point to completion and returns the per-instruction
// output frames.
func Analyze(g *cfg.MethodCFG, handler ReferenceHandler) *Result {
	if handler == nil {
		handler = NoopHandler
	}
	res := &Result{After: map[int]*Frame{}}
	if len(g.Blocks) == 0 {
		return res
	}

	entry := make([]*Frame, len(g.Blocks))
	entry[0] = newFrame(g.Method.MaxLocals)
	seedArgLocals(entry[0], g.Method)

	queue := []int{0}
	queued := map[int]bool{0: true}

	for len(queue) > 0 {
		bi := queue[0]
		queue = queue[1:]
		queued[bi] = false

		blk := g.Blocks[bi]
		f := entry[bi]
		if f == nil {
			continue
		}
		f = f.clone()
		for idx := blk.Start; idx < blk.End; idx++ {
			step(f, g.Items[idx], handler)
			res.After[idx] = f.clone()
		}

		for _, s := range blk.Succs {
			out := f
			if s.Kind == cfg.EdgeException {
				// The JVM's exception-handler entry contract: the stack
				// resets to a single reference (the thrown exception),
				// locals survive from the point of the throw.
				out = &Frame{Locals: append([]ir.ConstantValue(nil), f.Locals...), Stack: []ir.ConstantValue{ir.Unknown}}
			}
			cur := entry[s.BlockID]
			var next *Frame
			if cur == nil {
				next = out.clone()
			} else {
				next = join(cur, out)
			}
			if cur == nil || !equalFrames(cur, next) {
				entry[s.BlockID] = next
				if !queued[s.BlockID] {
					queue = append(queue, s.BlockID)
					queued[s.BlockID] = true
				}
			}
		}
	}
	return res
}

func seedArgLocals(f *Frame, m *ir.MethodNode) {
	desc := ir.ParseMethodDescriptor(m.Descriptor)
	i := 0
	if !m.Access.IsStatic() {
		f.setLocal(0, ir.Unknown)
		i = 1
	}
	for _, p := range desc.Params {
		f.setLocal(i, ir.Unknown)
		if ir.Category(p) == 2 {
			i += 2
		} else {
			i++
		}
	}
}

func step(f *Frame, instr ir.Instr, h ReferenceHandler) {
	switch ins := instr.(type) {
	case *ir.Label, *ir.LineNumber, *ir.Frame:
		return
	case *ir.ZeroOp:
		stepZeroOp(f, ins)
	case *ir.IntPush:
		f.push(ir.KnownInt(ins.Operand))
	case *ir.Ldc:
		f.push(ins.Value)
	case *ir.VarInsn:
		stepVar(f, ins)
	case *ir.Incr:
		v := f.local(ins.Index)
		if v.Kind == ir.ConstInt {
			f.setLocal(ins.Index, ir.KnownInt(v.I+ins.Delta))
		} else {
			f.setLocal(ins.Index, ir.Unknown)
		}
	case *ir.TypeInsn:
		stepType(f, ins)
	case *ir.FieldInsn:
		stepField(f, ins, h)
	case *ir.MethodInsn:
		stepMethod(f, ins.Opcode, ins.Owner, ins.Name, ins.Descriptor, h)
	case *ir.InvokeDynamic:
		desc := ir.ParseMethodDescriptor(ins.Descriptor)
		for range desc.Params {
			f.pop()
		}
		if ir.ReturnsValue(ins.Descriptor) {
			f.push(ir.Unknown)
		}
	case *ir.Jump:
		stepJump(f, ins)
	case *ir.LookupSwitch, *ir.TableSwitch:
		f.pop()
	case *ir.MultiANewArray:
		for i := 0; i < ins.Dims; i++ {
			f.pop()
		}
		f.push(ir.Unknown)
	}
}

func stepZeroOp(f *Frame, ins *ir.ZeroOp) {
	op := ins.Opcode
	switch {
	case op.IsReturn():
		if op != ir.OpReturn {
			f.pop()
		}
	case op == ir.OpAconstNull:
		f.push(ir.KnownNull())
	case op >= ir.OpIconstM1 && op <= ir.OpIconst5:
		f.push(ir.KnownInt(int32(int(op) - int(ir.OpIconst0))))
	case op == ir.OpLconst0:
		f.push(ir.KnownLong(0))
	case op == ir.OpLconst1:
		f.push(ir.KnownLong(1))
	case op == ir.OpFconst0:
		f.push(ir.KnownFloat(0))
	case op == ir.OpFconst1:
		f.push(ir.KnownFloat(1))
	case op == ir.OpFconst2:
		f.push(ir.KnownFloat(2))
	case op == ir.OpDconst0:
		f.push(ir.KnownDouble(0))
	case op == ir.OpDconst1:
		f.push(ir.KnownDouble(1))
	case isBinaryArith(op):
		stepBinaryArith(f, op)
	case op == ir.OpIneg, op == ir.OpLneg, op == ir.OpFneg, op == ir.OpDneg:
		f.push(negate(f.pop()))
	case isConversion(op):
		f.push(convert(f.pop(), op))
	case isCompare(op):
		f.pop()
		f.pop()
		f.push(ir.Unknown)
	case op == ir.OpDup:
		f.push(f.peek(0))
	case op == ir.OpDupX1:
		a, b := f.pop(), f.pop()
		f.push(a)
		f.push(b)
		f.push(a)
	case op == ir.OpDupX2:
		a, b, c := f.pop(), f.pop(), f.pop()
		f.push(a)
		f.push(c)
		f.push(b)
		f.push(a)
	case op == ir.OpDup2:
		a, b := f.pop(), f.pop()
		f.push(b)
		f.push(a)
		f.push(b)
		f.push(a)
	case op == ir.OpDup2X1:
		a, b, c := f.pop(), f.pop(), f.pop()
		f.push(b)
		f.push(a)
		f.push(c)
		f.push(b)
		f.push(a)
	case op == ir.OpDup2X2:
		a, b, c, d := f.pop(), f.pop(), f.pop(), f.pop()
		f.push(b)
		f.push(a)
		f.push(d)
		f.push(c)
		f.push(b)
		f.push(a)
	case op == ir.OpSwap:
		a, b := f.pop(), f.pop()
		f.push(a)
		f.push(b)
	case op == ir.OpPop:
		f.pop()
	case op == ir.OpPop2:
		f.pop()
		f.pop()
	case op == ir.OpArraylength:
		f.pop()
		f.push(ir.Unknown)
	case op == ir.OpAthrow:
		f.pop()
	case op == ir.OpMonitorenter, op == ir.OpMonitorexit:
		f.pop()
	case isArrayLoad(op):
		f.pop()
		f.pop()
		f.push(ir.Unknown)
	case isArrayStore(op):
		f.pop()
		f.pop()
		f.pop()
	}
}

func isArrayLoad(op ir.Opcode) bool {
	switch op {
	case ir.OpIaload, ir.OpLaload, ir.OpFaload, ir.OpDaload, ir.OpAaload, ir.OpBaload, ir.OpCaload, ir.OpSaload:
		return true
	}
	return false
}

func isArrayStore(op ir.Opcode) bool {
	switch op {
	case ir.OpIastore, ir.OpLastore, ir.OpFastore, ir.OpDastore, ir.OpAastore, ir.OpBastore, ir.OpCastore, ir.OpSastore:
		return true
	}
	return false
}

func isBinaryArith(op ir.Opcode) bool {
	switch op {
	case ir.OpIadd, ir.OpLadd, ir.OpFadd, ir.OpDadd,
		ir.OpIsub, ir.OpLsub, ir.OpFsub, ir.OpDsub,
		ir.OpImul, ir.OpLmul, ir.OpFmul, ir.OpDmul,
		ir.OpIdiv, ir.OpLdiv, ir.OpFdiv, ir.OpDdiv,
		ir.OpIrem, ir.OpLrem, ir.OpFrem, ir.OpDrem,
		ir.OpIshl, ir.OpLshl, ir.OpIshr, ir.OpLshr, ir.OpIushr, ir.OpLushr,
		ir.OpIand, ir.OpLand, ir.OpIor, ir.OpLor, ir.OpIxor, ir.OpLxor:
		return true
	}
	return false
}

// stepBinaryArith folds arithmetic and bitwise binary ops when both
// operands are Known (spec.md §4.3, §4.4.4). Division/remainder by a
// statically-zero divisor is deliberately left Unknown rather than folded,
// since the real execution would throw ArithmeticException.
func stepBinaryArith(f *Frame, op ir.Opcode) {
	b := f.pop()
	a := f.pop()
	switch op {
	case ir.OpIadd, ir.OpIsub, ir.OpImul, ir.OpIdiv, ir.OpIrem,
		ir.OpIand, ir.OpIor, ir.OpIxor, ir.OpIshl, ir.OpIshr, ir.OpIushr:
		if a.Kind != ir.ConstInt || b.Kind != ir.ConstInt {
			f.push(ir.Unknown)
			return
		}
		switch op {
		case ir.OpIadd:
			f.push(ir.KnownInt(a.I + b.I))
		case ir.OpIsub:
			f.push(ir.KnownInt(a.I - b.I))
		case ir.OpImul:
			f.push(ir.KnownInt(a.I * b.I))
		case ir.OpIdiv:
			if b.I == 0 {
				f.push(ir.Unknown)
			} else {
				f.push(ir.KnownInt(a.I / b.I))
			}
		case ir.OpIrem:
			if b.I == 0 {
				f.push(ir.Unknown)
			} else {
				f.push(ir.KnownInt(a.I % b.I))
			}
		case ir.OpIand:
			f.push(ir.KnownInt(a.I & b.I))
		case ir.OpIor:
			f.push(ir.KnownInt(a.I | b.I))
		case ir.OpIxor:
			f.push(ir.KnownInt(a.I ^ b.I))
		case ir.OpIshl:
			f.push(ir.KnownInt(a.I << (uint32(b.I) & 31)))
		case ir.OpIshr:
			f.push(ir.KnownInt(a.I >> (uint32(b.I) & 31)))
		case ir.OpIushr:
			f.push(ir.KnownInt(int32(uint32(a.I) >> (uint32(b.I) & 31))))
		}
	case ir.OpLadd, ir.OpLsub, ir.OpLmul, ir.OpLdiv, ir.OpLrem,
		ir.OpLand, ir.OpLor, ir.OpLxor:
		if a.Kind != ir.ConstLong || b.Kind != ir.ConstLong {
			f.push(ir.Unknown)
			return
		}
		switch op {
		case ir.OpLadd:
			f.push(ir.KnownLong(a.J + b.J))
		case ir.OpLsub:
			f.push(ir.KnownLong(a.J - b.J))
		case ir.OpLmul:
			f.push(ir.KnownLong(a.J * b.J))
		case ir.OpLdiv:
			if b.J == 0 {
				f.push(ir.Unknown)
			} else {
				f.push(ir.KnownLong(a.J / b.J))
			}
		case ir.OpLrem:
			if b.J == 0 {
				f.push(ir.Unknown)
			} else {
				f.push(ir.KnownLong(a.J % b.J))
			}
		case ir.OpLand:
			f.push(ir.KnownLong(a.J & b.J))
		case ir.OpLor:
			f.push(ir.KnownLong(a.J | b.J))
		case ir.OpLxor:
			f.push(ir.KnownLong(a.J ^ b.J))
		}
	case ir.OpLshl, ir.OpLshr, ir.OpLushr:
		// shift count is an int, the shifted value a long
		if a.Kind != ir.ConstLong || b.Kind != ir.ConstInt {
			f.push(ir.Unknown)
			return
		}
		switch op {
		case ir.OpLshl:
			f.push(ir.KnownLong(a.J << (uint64(b.I) & 63)))
		case ir.OpLshr:
			f.push(ir.KnownLong(a.J >> (uint64(b.I) & 63)))
		case ir.OpLushr:
			f.push(ir.KnownLong(int64(uint64(a.J) >> (uint64(b.I) & 63))))
		}
	case ir.OpFadd, ir.OpFsub, ir.OpFmul, ir.OpFdiv:
		if a.Kind != ir.ConstFloat || b.Kind != ir.ConstFloat {
			f.push(ir.Unknown)
			return
		}
		switch op {
		case ir.OpFadd:
			f.push(ir.KnownFloat(a.F + b.F))
		case ir.OpFsub:
			f.push(ir.KnownFloat(a.F - b.F))
		case ir.OpFmul:
			f.push(ir.KnownFloat(a.F * b.F))
		case ir.OpFdiv:
			f.push(ir.KnownFloat(a.F / b.F))
		}
	case ir.OpDadd, ir.OpDsub, ir.OpDmul, ir.OpDdiv:
		if a.Kind != ir.ConstDouble || b.Kind != ir.ConstDouble {
			f.push(ir.Unknown)
			return
		}
		switch op {
		case ir.OpDadd:
			f.push(ir.KnownDouble(a.D + b.D))
		case ir.OpDsub:
			f.push(ir.KnownDouble(a.D - b.D))
		case ir.OpDmul:
			f.push(ir.KnownDouble(a.D * b.D))
		case ir.OpDdiv:
			f.push(ir.KnownDouble(a.D / b.D))
		}
	default: // FREM/DREM: not folded, matches real IEEE remainder semantics being rarely relevant
		f.push(ir.Unknown)
	}
}

func negate(v ir.ConstantValue) ir.ConstantValue {
	switch v.Kind {
	case ir.ConstInt:
		return ir.KnownInt(-v.I)
	case ir.ConstLong:
		return ir.KnownLong(-v.J)
	case ir.ConstFloat:
		return ir.KnownFloat(-v.F)
	case ir.ConstDouble:
		return ir.KnownDouble(-v.D)
	}
	return ir.Unknown
}

func isConversion(op ir.Opcode) bool {
	switch op {
	case ir.OpI2l, ir.OpI2f, ir.OpI2d, ir.OpL2i, ir.OpL2f, ir.OpL2d,
		ir.OpF2i, ir.OpF2l, ir.OpF2d, ir.OpD2i, ir.OpD2l, ir.OpD2f,
		ir.OpI2b, ir.OpI2c, ir.OpI2s:
		return true
	}
	return false
}

func convert(v ir.ConstantValue, op ir.Opcode) ir.ConstantValue {
	switch op {
	case ir.OpI2l:
		if v.Kind == ir.ConstInt {
			return ir.KnownLong(int64(v.I))
		}
	case ir.OpI2f:
		if v.Kind == ir.ConstInt {
			return ir.KnownFloat(float32(v.I))
		}
	case ir.OpI2d:
		if v.Kind == ir.ConstInt {
			return ir.KnownDouble(float64(v.I))
		}
	case ir.OpI2b:
		if v.Kind == ir.ConstInt {
			return ir.KnownInt(int32(int8(v.I)))
		}
	case ir.OpI2c:
		if v.Kind == ir.ConstInt {
			return ir.KnownInt(int32(uint16(v.I)))
		}
	case ir.OpI2s:
		if v.Kind == ir.ConstInt {
			return ir.KnownInt(int32(int16(v.I)))
		}
	case ir.OpL2i:
		if v.Kind == ir.ConstLong {
			return ir.KnownInt(int32(v.J))
		}
	}
	return ir.Unknown // float/double round-trips: not needed by any pass
}

func isCompare(op ir.Opcode) bool {
	switch op {
	case ir.OpLcmp, ir.OpFcmpl, ir.OpFcmpg, ir.OpDcmpl, ir.OpDcmpg:
		return true
	}
	return false
}

func stepVar(f *Frame, ins *ir.VarInsn) {
	switch ins.Opcode {
	case ir.OpIload, ir.OpLload, ir.OpFload, ir.OpDload, ir.OpAload:
		f.push(f.local(ins.Index))
	case ir.OpIstore, ir.OpLstore, ir.OpFstore, ir.OpDstore, ir.OpAstore:
		f.setLocal(ins.Index, f.pop())
	case ir.OpRet:
		// leaves the operand stack untouched; JSR/RET is vanishingly rare
		// in obfuscated output and untracked here.
	}
}

func stepType(f *Frame, ins *ir.TypeInsn) {
	switch ins.Opcode {
	case ir.OpNew:
		f.push(ir.Unknown)
	case ir.OpAnewarray:
		f.pop()
		f.push(ir.Unknown)
	case ir.OpCheckcast:
		// leaves the Known-ness of the reference alone: a successful cast
		// doesn't change the value, only its static type.
	case ir.OpInstanceof:
		f.pop()
		f.push(ir.Unknown)
	}
}

// stepField applies the handler to GETSTATIC/GETFIELD (spec.md §4.3: "Known
// only when the referenced field is known-constant via a user-supplied
// reference handler").
func stepField(f *Frame, ins *ir.FieldInsn, h ReferenceHandler) {
	switch ins.Opcode {
	case ir.OpGetstatic:
		if v, ok := h.FieldValue(ins.Owner, ins.Name, ins.Descriptor); ok {
			f.push(v)
		} else {
			f.push(ir.Unknown)
		}
	case ir.OpGetfield:
		f.pop()
		if v, ok := h.FieldValue(ins.Owner, ins.Name, ins.Descriptor); ok {
			f.push(v)
		} else {
			f.push(ir.Unknown)
		}
	case ir.OpPutstatic:
		f.pop()
	case ir.OpPutfield:
		f.pop()
		f.pop()
	}
}

// stepMethod applies the handler to a direct method call (spec.md §4.3:
// "Known only when the reference handler recognizes a pure, deterministic
// method"). Arguments passed to the handler are whatever Known/Unknown
// values were popped for this call site.
func stepMethod(f *Frame, op ir.Opcode, owner, name, descriptor string, h ReferenceHandler) {
	desc := ir.ParseMethodDescriptor(descriptor)
	args := make([]ir.ConstantValue, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	if op != ir.OpInvokestatic {
		f.pop() // receiver
	}
	if !ir.ReturnsValue(descriptor) {
		return
	}
	if v, ok := h.MethodReturn(owner, name, descriptor, args); ok {
		f.push(v)
	} else {
		f.push(ir.Unknown)
	}
}

func stepJump(f *Frame, ins *ir.Jump) {
	switch ins.Opcode {
	case ir.OpGoto, ir.OpJsr:
		return
	case ir.OpIfnull, ir.OpIfnonnull, ir.OpIfeq, ir.OpIfne, ir.OpIflt, ir.OpIfge, ir.OpIfgt, ir.OpIfle:
		f.pop()
	default: // IF_ICMP*/IF_ACMP*
		f.pop()
		f.pop()
	}
}

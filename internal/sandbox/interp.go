package sandbox

import (
	"fmt"

	"threadtear/internal/diag"
	"threadtear/internal/ir"
)

// frame is one activation record of the interpreter's call stack.
type frame struct {
	stack  []Value
	locals []Value
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }
func (f *frame) pop() Value {
	if len(f.stack) == 0 {
		return nil
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

// invoke interprets m's bytecode to completion. This is deliberately not a
// general-purpose JVM: it understands the opcode subset real obfuscator
// initializer code exercises (constant pushes, local/array access,
// arithmetic, field access on classes loaded into this VM, allow-listed
// native calls, and control flow) and returns an error for anything else,
// which the caller treats as "this class can't be constant-folded" rather
// than a hard failure of the whole pipeline (spec.md §7).
func (vm *VM) invoke(owner string, lc *LoadedClass, m *ir.MethodNode, args []Value) (Value, error) {
	f := &frame{locals: make([]Value, m.MaxLocals)}
	for i, a := range args {
		f.locals[i] = a
	}
	if m.Instructions == nil {
		return nil, nil
	}
	items := m.Instructions.Items
	labelIdx := map[ir.LabelID]int{}
	for i, it := range items {
		if l, ok := it.(*ir.Label); ok {
			labelIdx[l.ID] = i
		}
	}

	maxSteps := vm.opts.EffectiveMaxSteps()
	pc := 0
	for pc < len(items) {
		vm.steps++
		if vm.steps > maxSteps {
			return nil, fmt.Errorf("sandbox: step limit exceeded in %s.%s%s", owner, m.Name, m.Descriptor)
		}
		next, ret, retOK, err := vm.step(owner, lc, f, items[pc], labelIdx)
		if err != nil {
			vm.diags.Addf(owner, m.Name, diag.KindSandboxCrash, "%v", err)
			return nil, err
		}
		if retOK {
			return ret, nil
		}
		if next >= 0 {
			pc = next
		} else {
			pc++
		}
	}
	return nil, nil
}

// step executes one instruction. next is the explicit next pc for control
// flow (-1 means "fall through to pc+1"); retOK reports that the method
// returned.
func (vm *VM) step(owner string, lc *LoadedClass, f *frame, instr ir.Instr, labels map[ir.LabelID]int) (next int, ret Value, retOK bool, err error) {
	next = -1
	switch ins := instr.(type) {
	case *ir.Label, *ir.LineNumber, *ir.Frame:
		return
	case *ir.IntPush:
		f.push(ins.Operand)
	case *ir.Ldc:
		f.push(fromConstant(ins.Value))
	case *ir.VarInsn:
		switch ins.Opcode {
		case ir.OpIload, ir.OpLload, ir.OpFload, ir.OpDload, ir.OpAload:
			f.push(f.locals[ins.Index])
		case ir.OpIstore, ir.OpLstore, ir.OpFstore, ir.OpDstore, ir.OpAstore:
			f.locals[ins.Index] = f.pop()
		}
	case *ir.Incr:
		f.locals[ins.Index] = asInt32(f.locals[ins.Index]) + ins.Delta
	case *ir.TypeInsn:
		switch ins.Opcode {
		case ir.OpNew:
			f.push(&Instance{ClassName: ins.Type, Fields: map[string]Value{}})
		case ir.OpAnewarray:
			n := asInt32(f.pop())
			f.push(&Array{ElemType: ins.Type, Elems: make([]Value, n)})
		case ir.OpCheckcast, ir.OpInstanceof:
			// type assertions are not enforced in the sandbox; obfuscator
			// init code is trusted not to rely on ClassCastException.
		}
	case *ir.FieldInsn:
		err = vm.stepField(owner, lc, f, ins)
	case *ir.MethodInsn:
		ret, retOK, err = vm.stepMethod(f, ins)
		if retOK || err != nil {
			return -1, ret, retOK, err
		}
	case *ir.Jump:
		if vm.stepJump(f, ins) {
			next = labels[ins.Target]
		}
	case *ir.ZeroOp:
		return vm.stepZeroOp(f, ins, labels)
	case *ir.MultiANewArray:
		dims := make([]int32, ins.Dims)
		for i := ins.Dims - 1; i >= 0; i-- {
			dims[i] = asInt32(f.pop())
		}
		f.push(&Array{ElemType: ins.Type, Elems: make([]Value, dims[0])})
	case *ir.LookupSwitch:
		key := asInt32(f.pop())
		target := ins.Default
		for i, k := range ins.Keys {
			if k == key {
				target = ins.Labels[i]
				break
			}
		}
		next = labels[target]
	case *ir.TableSwitch:
		key := asInt32(f.pop())
		target := ins.Default
		if key >= ins.Low && key <= ins.High {
			target = ins.Labels[key-ins.Low]
		}
		next = labels[target]
	default:
		err = fmt.Errorf("sandbox: unsupported instruction %T", instr)
	}
	return
}

func (vm *VM) stepField(owner string, lc *LoadedClass, f *frame, ins *ir.FieldInsn) error {
	switch ins.Opcode {
	case ir.OpGetstatic:
		target := vm.LoadClass(ins.Owner)
		if err := vm.RunStaticInitializer(ins.Owner); err != nil {
			return err
		}
		f.push(target.Statics[ins.Name])
	case ir.OpPutstatic:
		v := f.pop()
		vm.LoadClass(ins.Owner).Statics[ins.Name] = v
	case ir.OpGetfield:
		recv := f.pop()
		if inst, ok := recv.(*Instance); ok {
			f.push(inst.Fields[ins.Name])
		} else {
			f.push(nil)
		}
	case ir.OpPutfield:
		v := f.pop()
		recv := f.pop()
		if inst, ok := recv.(*Instance); ok {
			inst.Fields[ins.Name] = v
		}
	}
	return nil
}

func (vm *VM) stepMethod(f *frame, ins *ir.MethodInsn) (ret Value, retOK bool, err error) {
	desc := ir.ParseMethodDescriptor(ins.Descriptor)
	args := make([]Value, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	var recv Value
	if ins.Opcode != ir.OpInvokestatic {
		recv = f.pop()
	}

	if native, ok := vm.allowlist[nativeKey(ins.Owner, ins.Name, ins.Descriptor)]; ok {
		v, nerr := native(recv, args)
		if nerr != nil {
			return nil, false, nerr
		}
		if ir.ReturnsValue(ins.Descriptor) {
			f.push(v)
		}
		return nil, false, nil
	}

	target := vm.LoadClass(ins.Owner)
	if target.Stub {
		if ir.ReturnsValue(ins.Descriptor) {
			f.push(nil) // unresolved native call: best-effort, push Unknown-equivalent
		}
		return nil, false, nil
	}
	m := target.Node.Method(ins.Name, ins.Descriptor)
	if m == nil {
		if ir.ReturnsValue(ins.Descriptor) {
			f.push(nil)
		}
		return nil, false, nil
	}
	allArgs := args
	if recv != nil {
		allArgs = append([]Value{recv}, args...)
	}
	v, ierr := vm.invoke(ins.Owner, target, m, allArgs)
	if ierr != nil {
		return nil, false, ierr
	}
	if ir.ReturnsValue(ins.Descriptor) {
		f.push(v)
	}
	return nil, false, nil
}

func (vm *VM) stepJump(f *frame, ins *ir.Jump) bool {
	switch ins.Opcode {
	case ir.OpGoto:
		return true
	case ir.OpIfeq:
		return asInt32(f.pop()) == 0
	case ir.OpIfne:
		return asInt32(f.pop()) != 0
	case ir.OpIflt:
		return asInt32(f.pop()) < 0
	case ir.OpIfge:
		return asInt32(f.pop()) >= 0
	case ir.OpIfgt:
		return asInt32(f.pop()) > 0
	case ir.OpIfle:
		return asInt32(f.pop()) <= 0
	case ir.OpIfnull:
		return f.pop() == nil
	case ir.OpIfnonnull:
		return f.pop() != nil
	case ir.OpIfIcmpeq:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		return a == b
	case ir.OpIfIcmpne:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		return a != b
	case ir.OpIfIcmplt:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		return a < b
	case ir.OpIfIcmpge:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		return a >= b
	case ir.OpIfIcmpgt:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		return a > b
	case ir.OpIfIcmple:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		return a <= b
	case ir.OpIfAcmpeq:
		b, a := f.pop(), f.pop()
		return a == b
	case ir.OpIfAcmpne:
		b, a := f.pop(), f.pop()
		return a != b
	default: // JSR: unsupported control flow, treated as not-taken
		return false
	}
}

func (vm *VM) stepZeroOp(f *frame, ins *ir.ZeroOp, labels map[ir.LabelID]int) (next int, ret Value, retOK bool, err error) {
	next = -1
	op := ins.Opcode
	switch {
	case op == ir.OpReturn:
		return -1, nil, true, nil
	case op.IsReturn():
		return -1, f.pop(), true, nil
	case op == ir.OpAconstNull:
		f.push(nil)
	case op >= ir.OpIconstM1 && op <= ir.OpIconst5:
		f.push(int32(int(op) - int(ir.OpIconst0)))
	case op == ir.OpLconst0:
		f.push(int64(0))
	case op == ir.OpLconst1:
		f.push(int64(1))
	case op == ir.OpIadd:
		f.push(asInt32(f.pop()) + asInt32(f.pop()))
	case op == ir.OpIsub:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		f.push(a - b)
	case op == ir.OpImul:
		f.push(asInt32(f.pop()) * asInt32(f.pop()))
	case op == ir.OpIxor:
		f.push(asInt32(f.pop()) ^ asInt32(f.pop()))
	case op == ir.OpIand:
		f.push(asInt32(f.pop()) & asInt32(f.pop()))
	case op == ir.OpIor:
		f.push(asInt32(f.pop()) | asInt32(f.pop()))
	case op == ir.OpIneg:
		f.push(-asInt32(f.pop()))
	case op == ir.OpIshl:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		f.push(a << (uint32(b) & 31))
	case op == ir.OpIshr:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		f.push(a >> (uint32(b) & 31))
	case op == ir.OpIushr:
		b, a := asInt32(f.pop()), asInt32(f.pop())
		f.push(int32(uint32(a) >> (uint32(b) & 31)))
	case op == ir.OpLadd:
		f.push(asInt64(f.pop()) + asInt64(f.pop()))
	case op == ir.OpLsub:
		b, a := asInt64(f.pop()), asInt64(f.pop())
		f.push(a - b)
	case op == ir.OpLxor:
		f.push(asInt64(f.pop()) ^ asInt64(f.pop()))
	case op == ir.OpI2l:
		f.push(int64(asInt32(f.pop())))
	case op == ir.OpL2i:
		f.push(int32(asInt64(f.pop())))
	case op == ir.OpI2b:
		f.push(int32(int8(asInt32(f.pop()))))
	case op == ir.OpDup:
		v := f.pop()
		f.push(v)
		f.push(v)
	case op == ir.OpDupX1:
		a, b := f.pop(), f.pop()
		f.push(a)
		f.push(b)
		f.push(a)
	case op == ir.OpPop, op == ir.OpPop2:
		f.pop()
	case op == ir.OpSwap:
		a, b := f.pop(), f.pop()
		f.push(a)
		f.push(b)
	case op == ir.OpAthrow:
		return -1, nil, false, fmt.Errorf("sandbox: ATHROW reached (uncaught, best-effort abort)")
	case op == ir.OpArraylength:
		if arr, ok := f.pop().(*Array); ok {
			f.push(int32(len(arr.Elems)))
		} else {
			f.push(int32(0))
		}
	case op == ir.OpIaload, op == ir.OpLaload, op == ir.OpFaload, op == ir.OpDaload,
		op == ir.OpAaload, op == ir.OpBaload, op == ir.OpCaload, op == ir.OpSaload:
		idx := asInt32(f.pop())
		arr, _ := f.pop().(*Array)
		if arr != nil && idx >= 0 && int(idx) < len(arr.Elems) {
			f.push(arr.Elems[idx])
		} else {
			f.push(nil)
		}
	case op == ir.OpIastore, op == ir.OpLastore, op == ir.OpFastore, op == ir.OpDastore,
		op == ir.OpAastore, op == ir.OpBastore, op == ir.OpCastore, op == ir.OpSastore:
		v := f.pop()
		idx := asInt32(f.pop())
		arr, _ := f.pop().(*Array)
		if arr != nil && idx >= 0 && int(idx) < len(arr.Elems) {
			arr.Elems[idx] = v
		}
	default:
		err = fmt.Errorf("sandbox: unsupported zero-op %s", op)
	}
	return
}

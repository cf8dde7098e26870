package classfile

import "threadtear/internal/ir"

// Operand-length lookup, grounded on other_examples/palantir-log4j-sniffer__opcodes.go's
// NoOperandOpcodeLookupTable/SingleOperandOpcodeLookupTable/... idiom: a flat
// []bool per operand-count class, built once at package init, used to walk a
// raw Code []byte array (from classfile.CodeAttribute) one opcode at a time
// without re-deriving the table per call.
var (
	noOperand     [256]bool
	oneByteOperand  [256]bool // BIPUSH, LDC, ILOAD.., NEWARRAY, RET
	twoByteOperand  [256]bool // SIPUSH, LDC_W, LDC2_W, *LOAD/STORE-less var-width ones below, branch offsets, field/method refs
	fourByteOperand [256]bool // INVOKEDYNAMIC, INVOKEINTERFACE
)

func init() {
	for _, op := range []ir.Opcode{
		ir.OpNop, ir.OpAconstNull, ir.OpIconstM1, ir.OpIconst0, ir.OpIconst1, ir.OpIconst2,
		ir.OpIconst3, ir.OpIconst4, ir.OpIconst5, ir.OpLconst0, ir.OpLconst1, ir.OpFconst0,
		ir.OpFconst1, ir.OpFconst2, ir.OpDconst0, ir.OpDconst1,
		ir.OpIaload, ir.OpLaload, ir.OpFaload, ir.OpDaload, ir.OpAaload, ir.OpBaload, ir.OpCaload, ir.OpSaload,
		ir.OpIastore, ir.OpLastore, ir.OpFastore, ir.OpDastore, ir.OpAastore, ir.OpBastore, ir.OpCastore, ir.OpSastore,
		ir.OpPop, ir.OpPop2, ir.OpDup, ir.OpDupX1, ir.OpDupX2, ir.OpDup2, ir.OpDup2X1, ir.OpDup2X2, ir.OpSwap,
		ir.OpIadd, ir.OpLadd, ir.OpFadd, ir.OpDadd, ir.OpIsub, ir.OpLsub, ir.OpFsub, ir.OpDsub,
		ir.OpImul, ir.OpLmul, ir.OpFmul, ir.OpDmul, ir.OpIdiv, ir.OpLdiv, ir.OpFdiv, ir.OpDdiv,
		ir.OpIrem, ir.OpLrem, ir.OpFrem, ir.OpDrem, ir.OpIneg, ir.OpLneg, ir.OpFneg, ir.OpDneg,
		ir.OpIshl, ir.OpLshl, ir.OpIshr, ir.OpLshr, ir.OpIushr, ir.OpLushr,
		ir.OpIand, ir.OpLand, ir.OpIor, ir.OpLor, ir.OpIxor, ir.OpLxor,
		ir.OpI2l, ir.OpI2f, ir.OpI2d, ir.OpL2i, ir.OpL2f, ir.OpL2d, ir.OpF2i, ir.OpF2l, ir.OpF2d,
		ir.OpD2i, ir.OpD2l, ir.OpD2f, ir.OpI2b, ir.OpI2c, ir.OpI2s,
		ir.OpLcmp, ir.OpFcmpl, ir.OpFcmpg, ir.OpDcmpl, ir.OpDcmpg,
		ir.OpIreturn, ir.OpLreturn, ir.OpFreturn, ir.OpDreturn, ir.OpAreturn, ir.OpReturn,
		ir.OpArraylength, ir.OpAthrow, ir.OpMonitorenter, ir.OpMonitorexit,
	} {
		noOperand[int(op)] = true
	}
	for _, op := range []ir.Opcode{
		ir.OpBipush, ir.OpLdc, ir.OpNewarray,
		ir.OpIload, ir.OpLload, ir.OpFload, ir.OpDload, ir.OpAload,
		ir.OpIstore, ir.OpLstore, ir.OpFstore, ir.OpDstore, ir.OpAstore, ir.OpRet,
	} {
		oneByteOperand[int(op)] = true
	}
	for _, op := range []ir.Opcode{
		ir.OpSipush, ir.OpLdcW, ir.OpLdc2W,
		ir.OpGetstatic, ir.OpPutstatic, ir.OpGetfield, ir.OpPutfield,
		ir.OpInvokevirtual, ir.OpInvokespecial, ir.OpInvokestatic,
		ir.OpNew, ir.OpAnewarray, ir.OpCheckcast, ir.OpInstanceof,
		ir.OpIfeq, ir.OpIfne, ir.OpIflt, ir.OpIfge, ir.OpIfgt, ir.OpIfle,
		ir.OpIfIcmpeq, ir.OpIfIcmpne, ir.OpIfIcmplt, ir.OpIfIcmpge, ir.OpIfIcmpgt, ir.OpIfIcmple,
		ir.OpIfAcmpeq, ir.OpIfAcmpne, ir.OpGoto, ir.OpJsr, ir.OpIfnull, ir.OpIfnonnull,
		ir.OpIinc,
	} {
		twoByteOperand[int(op)] = true
	}
	for _, op := range []ir.Opcode{ir.OpInvokedynamic} {
		fourByteOperand[int(op)] = true
	}
	fourByteOperand[int(ir.OpInvokeinterface)] = true // opcode + 2-byte index + count + 0
}

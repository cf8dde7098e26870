package sandbox

import "threadtear/internal/ir"

// Value is whatever the interpreter can push on an operand stack or store
// in a local/field slot: a primitive, a string, a reference to an Instance,
// a []Value for an array, or nil. Grounded on other_examples/daimatz-gojvm
// __object.go's JObject{ClassName, Fields map[string]Value} for the
// instance shape; the primitive cases are threadtear-go's own, since the
// teacher's Value type is an unexported stub with no interpreter behind it.
type Value interface{}

// Instance is a sandboxed object: a class name plus a field table. Mirrors
// daimatz-gojvm's JObject almost exactly.
type Instance struct {
	ClassName string
	Fields    map[string]Value
}

// Array is a sandboxed array value: element type plus backing slice.
type Array struct {
	ElemType string
	Elems    []Value
}

// toConstant converts an interpreter Value to an ir.ConstantValue where
// possible (spec.md §4.4.2: "read its post-initialization value ... record
// it as a constant"). Anything that isn't a primitive/String/null comes
// back as ir.Unknown — arrays and object instances aren't representable as
// a constant-pool load.
func toConstant(v Value) ir.ConstantValue {
	switch t := v.(type) {
	case int32:
		return ir.KnownInt(t)
	case int64:
		return ir.KnownLong(t)
	case float32:
		return ir.KnownFloat(t)
	case float64:
		return ir.KnownDouble(t)
	case string:
		return ir.KnownString(t)
	case nil:
		return ir.KnownNull()
	default:
		return ir.Unknown
	}
}

func fromConstant(c ir.ConstantValue) Value {
	switch c.Kind {
	case ir.ConstInt:
		return c.I
	case ir.ConstLong:
		return c.J
	case ir.ConstFloat:
		return c.F
	case ir.ConstDouble:
		return c.D
	case ir.ConstString, ir.ConstType:
		return c.S
	case ir.ConstNull:
		return nil
	default:
		return nil
	}
}

func asInt32(v Value) int32 {
	switch t := v.(type) {
	case int32:
		return t
	case int64:
		return int32(t)
	default:
		return 0
	}
}

func asInt64(v Value) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	default:
		return 0
	}
}

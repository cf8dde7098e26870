package ir

import "strings"

// Descriptor is a parsed method descriptor: parameter types plus a return
// type, each in the runtime's compact field-descriptor encoding (spec.md
// Glossary: "Descriptor. Compact textual encoding of a type or method
// signature.").
type Descriptor struct {
	Params []string
	Return string
}

// ParseMethodDescriptor parses "(II)Ljava/lang/String;"-style descriptors.
func ParseMethodDescriptor(desc string) Descriptor {
	var d Descriptor
	if len(desc) == 0 || desc[0] != '(' {
		return d
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		t, n := parseFieldType(desc[i:])
		if n == 0 {
			break
		}
		d.Params = append(d.Params, t)
		i += n
	}
	if i < len(desc) && desc[i] == ')' {
		d.Return = desc[i+1:]
	}
	return d
}

// parseFieldType parses one field descriptor starting at s[0], returning
// the descriptor text and the number of bytes consumed.
func parseFieldType(s string) (string, int) {
	if s == "" {
		return "", 0
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return s[:1], 1
	case '[':
		t, n := parseFieldType(s[1:])
		if n == 0 {
			return "", 0
		}
		return "[" + t, n + 1
	case 'L':
		idx := strings.IndexByte(s, ';')
		if idx < 0 {
			return "", 0
		}
		return s[:idx+1], idx + 1
	default:
		return "", 0
	}
}

// Category classifies a field descriptor for the purposes of stack-slot
// counting and constant-push encoding: spec.md's ConstantValue "Carries
// size (1 or 2 stack slots)".
func Category(fieldDescriptor string) int {
	switch {
	case strings.HasPrefix(fieldDescriptor, "J"), strings.HasPrefix(fieldDescriptor, "D"):
		return 2
	default:
		return 1
	}
}

// IsPrimitive reports whether a field descriptor denotes a primitive type.
func IsPrimitive(fieldDescriptor string) bool {
	if fieldDescriptor == "" {
		return false
	}
	switch fieldDescriptor[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return true
	}
	return false
}

// ReturnsValue reports whether descriptor's return type is non-void.
func ReturnsValue(descriptor string) bool {
	d := ParseMethodDescriptor(descriptor)
	return d.Return != "V"
}

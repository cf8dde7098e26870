package ir

// AccessFlags mirrors the runtime's class/field/method access_flags bitset
// (grounded on the flag-table shape of other_examples/daimatz-gojvm__types.go,
// generalized to the full set spec.md's ClassNode/MethodNode need).
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020
	AccSynchronized AccessFlags = 0x0020
	AccBridge       AccessFlags = 0x0040
	AccVolatile     AccessFlags = 0x0040
	AccVarargs      AccessFlags = 0x0080
	AccTransient    AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit != 0 }
func (f AccessFlags) IsStatic() bool           { return f.Has(AccStatic) }
func (f AccessFlags) IsPublic() bool           { return f.Has(AccPublic) }
func (f AccessFlags) IsPrivate() bool          { return f.Has(AccPrivate) }
func (f AccessFlags) IsFinal() bool            { return f.Has(AccFinal) }
func (f AccessFlags) IsAbstract() bool         { return f.Has(AccAbstract) }
func (f AccessFlags) IsInterface() bool        { return f.Has(AccInterface) }
func (f AccessFlags) IsEnum() bool             { return f.Has(AccEnum) }
func (f AccessFlags) IsSynthetic() bool        { return f.Has(AccSynthetic) }

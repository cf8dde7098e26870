package ir

// InstructionList is a method's instruction sequence, addressed positionally
// (spec.md §9's "positional index (Vec + stable handles) rather than raw
// pointers"). Label identity is the LabelID carried by *Label items; jumps,
// switches, try/catch ranges, and local-variable scopes all reference
// instructions indirectly through LabelID rather than through slice index,
// so edits that shift positions never invalidate them.
type InstructionList struct {
	Items     []Instr
	nextLabel LabelID
}

func NewInstructionList() *InstructionList {
	return &InstructionList{}
}

func (l *InstructionList) Len() int { return len(l.Items) }

// NewLabel allocates a fresh LabelID for this method. The caller is
// responsible for inserting a corresponding *Label item.
func (l *InstructionList) NewLabel() LabelID {
	id := l.nextLabel
	l.nextLabel++
	return id
}

// IndexOfLabel returns the position of the *Label item carrying id, or -1.
func (l *InstructionList) IndexOfLabel(id LabelID) int {
	for i, it := range l.Items {
		if lbl, ok := it.(*Label); ok && lbl.ID == id {
			return i
		}
	}
	return -1
}

// Clone deep-copies the list. Every LabelID reachable from a *Label item in
// the list is remapped to a freshly allocated id; references to labels
// outside the cloned span (e.g. an exception handler target belonging to
// the enclosing method) pass through unchanged and must be fixed up by the
// caller, which is exactly the situation the trivial inliner and the
// static-initializer merge step (spec.md §4.4.1, §4.4.2a) are written to
// handle explicitly.
func (l *InstructionList) Clone() (*InstructionList, LabelRemap) {
	remap := LabelRemap{}
	var next LabelID
	for _, it := range l.Items {
		if lbl, ok := it.(*Label); ok {
			remap.Handle(lbl.ID, &next)
		}
	}
	out := make([]Instr, len(l.Items))
	for i, it := range l.Items {
		out[i] = it.Clone(remap)
	}
	return &InstructionList{Items: out, nextLabel: next}, remap
}

// Append adds instructions to the end of the list. Used by pass code that
// builds a replacement sequence before handing it to an InstructionModifier.
func (l *InstructionList) Append(items ...Instr) {
	l.Items = append(l.Items, items...)
}

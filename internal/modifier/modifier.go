// Package modifier implements the batched instruction-edit buffer spec.md
// §3 calls InstructionModifier: "Buffers pending edits (remove, replace,
// insert-before, insert-after) against a method, applying them atomically
// after a pass finishes iterating the original instruction list —
// preventing iterator invalidation and making edits reviewable as a unit."
package modifier

import (
	"sort"

	"threadtear/internal/ir"
)

type editKind int

const (
	editRemoveRange editKind = iota
	editInsertBefore
	editInsertAfter
)

type edit struct {
	kind editKind
	// Start/End index into the original instruction list, as observed by
	// the pass while it iterated — never into any partially-modified copy,
	// which is exactly what avoids iterator invalidation.
	start, end int
	replacement []ir.Instr
}

// Modifier buffers edits against one method's instruction list.
type Modifier struct {
	method *ir.MethodNode
	edits  []edit
}

func New(m *ir.MethodNode) *Modifier {
	return &Modifier{method: m}
}

// Remove buffers deletion of the single instruction at idx.
func (m *Modifier) Remove(idx int) {
	m.edits = append(m.edits, edit{kind: editRemoveRange, start: idx, end: idx + 1})
}

// RemoveRange buffers deletion of instructions in [start, end).
func (m *Modifier) RemoveRange(start, end int) {
	m.edits = append(m.edits, edit{kind: editRemoveRange, start: start, end: end})
}

// ReplaceAt buffers replacing the single instruction at idx with replacement.
func (m *Modifier) ReplaceAt(idx int, replacement ...ir.Instr) {
	m.edits = append(m.edits, edit{kind: editRemoveRange, start: idx, end: idx + 1, replacement: replacement})
}

// ReplaceRange buffers replacing instructions in [start, end) with replacement.
func (m *Modifier) ReplaceRange(start, end int, replacement ...ir.Instr) {
	m.edits = append(m.edits, edit{kind: editRemoveRange, start: start, end: end, replacement: replacement})
}

// InsertBefore buffers inserting instrs immediately before idx.
func (m *Modifier) InsertBefore(idx int, instrs ...ir.Instr) {
	m.edits = append(m.edits, edit{kind: editInsertBefore, start: idx, replacement: instrs})
}

// InsertAfter buffers inserting instrs immediately after idx.
func (m *Modifier) InsertAfter(idx int, instrs ...ir.Instr) {
	m.edits = append(m.edits, edit{kind: editInsertAfter, start: idx, replacement: instrs})
}

// Pending reports whether any edit has been buffered.
func (m *Modifier) Pending() bool { return len(m.edits) > 0 }

// Apply commits every buffered edit to the method's instruction list in one
// pass, processing from the highest original index to the lowest so that
// earlier (lower-index) edits' positions stay valid while later ones are
// spliced in. Returns whether anything actually changed.
func (m *Modifier) Apply() bool {
	if len(m.edits) == 0 {
		return false
	}
	sort.SliceStable(m.edits, func(i, j int) bool {
		return m.edits[i].start > m.edits[j].start
	})

	items := m.method.Instructions.Items
	for _, e := range m.edits {
		switch e.kind {
		case editRemoveRange:
			tail := append([]ir.Instr{}, items[e.end:]...)
			items = append(items[:e.start:e.start], e.replacement...)
			items = append(items, tail...)
		case editInsertBefore:
			tail := append([]ir.Instr{}, items[e.start:]...)
			items = append(items[:e.start:e.start], e.replacement...)
			items = append(items, tail...)
		case editInsertAfter:
			tail := append([]ir.Instr{}, items[e.start+1:]...)
			items = append(items[:e.start+1:e.start+1], e.replacement...)
			items = append(items, tail...)
		}
	}
	m.method.Instructions.Items = items
	m.edits = nil
	return true
}

// WidenMaxStack raises the method's MaxStack if need exceeds it. Used by
// the trivial inliner after splicing a callee's body into a caller
// (spec.md §4.4.1: "the caller's maxLocals and maxStack are widened").
func WidenMaxStack(m *ir.MethodNode, need int) {
	if need > m.MaxStack {
		m.MaxStack = need
	}
}

// WidenMaxLocals raises the method's MaxLocals if need exceeds it.
func WidenMaxLocals(m *ir.MethodNode, need int) {
	if need > m.MaxLocals {
		m.MaxLocals = need
	}
}

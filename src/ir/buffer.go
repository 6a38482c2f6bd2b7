// buffer.go implements the IR buffer: an append-only textual accumulator
// for the generated code, a fresh-label/fresh-temporary allocator, and the
// loop-label stack consulted by break and continue.
//
// Unlike the reference lexer's label generator, the Buffer is NOT a global
// singleton behind goroutines and channels: a single Buffer instance is
// owned by exactly one semantic/IR visitor run, and its counters are
// ordinary instance fields. This keeps label and temporary names
// deterministic and reproducible across runs, which the concurrent,
// channel-arbitrated generator cannot guarantee.
package ir

import (
	"fmt"
	"strings"

	"corec/src/util"
)

// loopLabels is the label pair pushed for each enclosing while loop: Start
// is where continue jumps to (the condition re-check), End is where break
// jumps to (the loop's exit block).
type loopLabels struct {
	Start string
	End   string
}

// Buffer accumulates the textual IR for one compilation unit and allocates
// the fresh names (labels, temporaries) that appear in it.
type Buffer struct {
	sb strings.Builder

	nextLabel int
	nextTemp  int

	loops util.Stack // of *loopLabels
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// ---------------------
// ----- functions -----
// ---------------------

// FreshLabel returns a new, unique basic-block label of the form
// "label<n>", not yet emitted into the buffer.
func (b *Buffer) FreshLabel() string {
	l := fmt.Sprintf("label%d", b.nextLabel)
	b.nextLabel++
	return l
}

// FreshTemp returns a new, unique SSA temporary register name of the
// form "%t<n>".
func (b *Buffer) FreshTemp() string {
	t := fmt.Sprintf("%%t%d", b.nextTemp)
	b.nextTemp++
	return t
}

// Emit appends a formatted instruction line, indented by one tab to match
// the body of an LLVM function definition.
func (b *Buffer) Emit(format string, args ...interface{}) {
	fmt.Fprintf(&b.sb, "\t"+format+"\n", args...)
}

// EmitLabel appends a label line, unindented, in "name:" form, terminating
// whatever basic block preceded it.
func (b *Buffer) EmitLabel(name string) {
	fmt.Fprintf(&b.sb, "%s:\n", name)
}

// EmitRaw appends a line verbatim, with no indentation added. Used for
// function signatures, closing braces and top-level declarations.
func (b *Buffer) EmitRaw(format string, args ...interface{}) {
	fmt.Fprintf(&b.sb, format+"\n", args...)
}

// String returns everything emitted so far.
func (b *Buffer) String() string {
	return b.sb.String()
}

// PushLoop enters a new innermost loop, recording the labels that break and
// continue must target.
func (b *Buffer) PushLoop(start, end string) {
	b.loops.Push(&loopLabels{Start: start, End: end})
}

// PopLoop leaves the innermost loop. Calling PopLoop with no open loop is an
// internal invariant violation and panics.
func (b *Buffer) PopLoop() {
	if b.loops.Pop() == nil {
		panic("ir: PopLoop with no open loop")
	}
}

// LoopStart returns the condition-recheck label of the innermost enclosing
// loop, or ok=false if there is none (a bare continue outside any loop).
func (b *Buffer) LoopStart() (label string, ok bool) {
	v := b.loops.Peek()
	if v == nil {
		return "", false
	}
	return v.(*loopLabels).Start, true
}

// LoopEnd returns the exit label of the innermost enclosing loop, or
// ok=false if there is none (a bare break outside any loop).
func (b *Buffer) LoopEnd() (label string, ok bool) {
	v := b.loops.Peek()
	if v == nil {
		return "", false
	}
	return v.(*loopLabels).End, true
}

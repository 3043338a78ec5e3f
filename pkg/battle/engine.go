package battle

import "errors"

// ErrUndoStackEmpty is returned by Revert when nothing is applied. It
// always signals caller misuse and is never silently ignored.
var ErrUndoStackEmpty = errors.New("battle: revert with empty undo stack")

// ErrIllegalAction is returned when a chosen action is not among the legal
// options for the current state.
var ErrIllegalAction = errors.New("battle: illegal action")

// Engine is the sole mutation surface of a live State. Branches are
// applied in order and unwound in exact reverse, so any search can share
// one state without cloning.
//
// Only one Engine may own a State at a time; parallel exploration needs an
// independent State copy per worker, each with its own Engine.
type Engine struct {
	state *State
	stack []Branch
}

func NewEngine(state *State) *Engine {
	return &Engine{state: state}
}

func (e *Engine) State() *State { return e.state }

// Depth is the number of branches currently applied but not reverted.
func (e *Engine) Depth() int { return len(e.stack) }

// Apply executes every instruction of the branch against the live state
// and pushes the branch onto the undo stack.
func (e *Engine) Apply(b Branch) {
	for _, in := range b.Instructions {
		in.apply(e.state)
	}
	e.stack = append(e.stack, b)
}

// Revert pops the most recent branch and undoes its instructions in
// reverse order, restoring the prior state exactly.
func (e *Engine) Revert() error {
	if len(e.stack) == 0 {
		return ErrUndoStackEmpty
	}
	b := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	for i := len(b.Instructions) - 1; i >= 0; i-- {
		b.Instructions[i].revert(e.state)
	}
	return nil
}

// RevertAll unwinds the whole stack.
func (e *Engine) RevertAll() {
	for len(e.stack) > 0 {
		_ = e.Revert()
	}
}

// RevertTo unwinds until the stack depth equals target. Used by searches
// to restore a known checkpoint after an early exit.
func (e *Engine) RevertTo(target int) {
	for len(e.stack) > target {
		_ = e.Revert()
	}
}

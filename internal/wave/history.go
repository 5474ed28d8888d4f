package wave

import (
	"slices"

	"github.com/cbegin/wavestep-go/internal/osc"
)

type HistoryOption func(*History)

// WithBranchingRedo keeps the undone stack when a new component is added after
// an undo, so Redo can re-apply components from an abandoned branch.
func WithBranchingRedo() HistoryOption {
	return func(h *History) { h.branching = true }
}

// History layers undo/redo over a Buffer. The buffer's own component list is
// the undo log; undone components wait on a LIFO stack.
type History struct {
	buf       *Buffer
	undone    []osc.Component
	branching bool
}

func NewHistory(buf *Buffer, opts ...HistoryOption) *History {
	h := &History{buf: buf}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *History) Buffer() *Buffer { return h.buf }

// Add adds a component to the buffer and records it as undoable.
func (h *History) Add(freq float64, kind osc.Kind, amp float64) error {
	if err := h.buf.Add(freq, kind, amp); err != nil {
		return err
	}
	if !h.branching {
		h.undone = h.undone[:0]
	}
	return nil
}

// Undo removes the most recent component. It reports false when there is
// nothing to undo.
func (h *History) Undo() bool {
	c, ok := h.buf.pop()
	if !ok {
		return false
	}
	h.undone = append(h.undone, c)
	h.buf.RecomputeAll()
	return true
}

// Redo re-applies the most recently undone component. It reports false when
// the undone stack is empty.
func (h *History) Redo() bool {
	n := len(h.undone)
	if n == 0 {
		return false
	}
	c := h.undone[n-1]
	h.undone = h.undone[:n-1]
	h.buf.push(c)
	h.buf.RecomputeAll()
	return true
}

// Forget drops the undone stack, e.g. after the buffer was replaced wholesale.
func (h *History) Forget() { h.undone = h.undone[:0] }

func (h *History) CanUndo() bool { return h.buf.Len() > 0 }
func (h *History) CanRedo() bool { return len(h.undone) > 0 }

// Undone returns the undone stack, top last.
func (h *History) Undone() []osc.Component { return slices.Clone(h.undone) }

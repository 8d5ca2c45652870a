package engine

import (
	"github.com/odvcencio/chatview/pkg/errors"
)

// ButtonHandler reacts to a button press on the owning view. args is the
// opaque tail of the callback payload the button was built with.
type ButtonHandler func(c *Call, args string) error

// TextHandler reacts to free-text input routed to the focused view. Match
// narrows which inputs the handler accepts; a nil Match accepts everything.
type TextHandler struct {
	Match  func(text string) bool
	Handle func(c *Call, text string) error
}

// ReturnHandler reacts to a stacked child closing with a result. Match
// selects by result shape; a nil Match accepts everything. The first
// matching handler runs, exactly once.
type ReturnHandler struct {
	Match  func(result any) bool
	Handle func(c *Call, result any) error
}

// Handlers is the static dispatch table for one view kind, populated by
// explicit builder calls at startup. Registration mistakes are collected and
// surfaced by Engine.RegisterKind, so the chained builder form stays tidy.
type Handlers struct {
	buttons map[string]ButtonHandler
	texts   []TextHandler
	returns []ReturnHandler
	err     error
}

// NewHandlers creates an empty dispatch table.
func NewHandlers() *Handlers {
	return &Handlers{buttons: make(map[string]ButtonHandler)}
}

// Button registers the handler for an action id. Registering the same action
// twice is a validation error.
func (h *Handlers) Button(action string, fn ButtonHandler) *Handlers {
	if _, dup := h.buttons[action]; dup {
		if h.err == nil {
			h.err = errors.Newf(errors.CodeDuplicateAction, "action %q registered twice", action)
		}
		return h
	}
	h.buttons[action] = fn
	return h
}

// Text appends a free-text handler. Handlers run in registration order; each
// consults its own Match before acting.
func (h *Handlers) Text(match func(string) bool, fn func(c *Call, text string) error) *Handlers {
	h.texts = append(h.texts, TextHandler{Match: match, Handle: fn})
	return h
}

// Returned appends a stack-returned handler. The first handler whose Match
// accepts the child's result payload runs.
func (h *Handlers) Returned(match func(any) bool, fn func(c *Call, result any) error) *Handlers {
	h.returns = append(h.returns, ReturnHandler{Match: match, Handle: fn})
	return h
}

func (h *Handlers) button(action string) (ButtonHandler, bool) {
	fn, ok := h.buttons[action]
	return fn, ok
}

// Package view defines the core data types shared by the chatview runtime:
// the View capability interface, the Blueprint render output, the media
// variants, and the message binding that ties a view to its outbound message.
package view

// View is the capability interface every registered view kind satisfies.
// A view is a unit of UI state bound to at most one outbound message. It is
// reconstructed from persisted state on every inbound event, mutated by its
// handlers, re-rendered, and persisted again.
type View interface {
	// Kind returns the registered kind identifier for this view type.
	Kind() string

	// Render produces a fresh Blueprint from the current state.
	// Render must be pure: no I/O, no mutation.
	Render() (*Blueprint, error)

	// MarshalState serializes the view's application state. The engine
	// treats the result as opaque; it round-trips through the factory
	// registered for this kind.
	MarshalState() ([]byte, error)
}

// Factory reconstructs a typed view from its serialized state.
type Factory func(state []byte) (View, error)

// SendFailer is an optional view capability consulted when the initial send
// fails at the transport. The hook may swallow the error (return nil), replace
// it, or pass it through.
type SendFailer interface {
	SendFailed(err error) error
}

// RefreshFailer is an optional view capability consulted when a refresh edit
// fails at the transport.
type RefreshFailer interface {
	RefreshFailed(err error) error
}

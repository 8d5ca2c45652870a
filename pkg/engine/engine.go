// Package engine is the runtime that ties the pieces together: it resolves
// inbound events (button presses, free-text input, child closes) to the
// owning view record, serializes all work per record through a keyed lock,
// and drives the view lifecycle verbs (send, replace, refresh, close,
// delete) against the store, the focus index and the message editor.
package engine

import (
	"github.com/google/uuid"

	"github.com/odvcencio/chatview/pkg/errors"
	"github.com/odvcencio/chatview/pkg/focus"
	"github.com/odvcencio/chatview/pkg/keylock"
	"github.com/odvcencio/chatview/pkg/logging"
	"github.com/odvcencio/chatview/pkg/registry"
	"github.com/odvcencio/chatview/pkg/store"
	"github.com/odvcencio/chatview/pkg/telemetry"
	"github.com/odvcencio/chatview/pkg/transport"
	"github.com/odvcencio/chatview/pkg/view"
)

// Options tunes engine construction. The zero value is usable.
type Options struct {
	Logger            *logging.Logger
	CallbackPrefix    string
	CallbackSeparator string

	// DisableAutoRefresh stops the engine from re-rendering after every
	// successful handler run; handlers must then call Refresh explicitly.
	DisableAutoRefresh bool
}

// Engine is the explicit context object constructed once at startup. No
// process-wide singletons: everything an event needs travels through here.
type Engine struct {
	store       store.Store
	registry    *registry.Registry
	transport   transport.Transport
	focus       *focus.Index
	locks       *keylock.KeyedLock
	log         *logging.Logger
	codec       Codec
	autoRefresh bool

	// handlers is written only during startup registration, before any
	// event is dispatched.
	handlers map[string]*Handlers
}

// New assembles an engine over the given collaborators.
func New(st store.Store, reg *registry.Registry, tr transport.Transport, opts Options) *Engine {
	return &Engine{
		store:       st,
		registry:    reg,
		transport:   tr,
		focus:       focus.New(st, opts.Logger),
		locks:       keylock.New(),
		log:         opts.Logger,
		codec:       Codec{Prefix: opts.CallbackPrefix, Separator: opts.CallbackSeparator}.withDefaults(),
		autoRefresh: !opts.DisableAutoRefresh,
		handlers:    make(map[string]*Handlers),
	}
}

// Focus exposes the focus index, mainly for bootstrap and tests.
func (e *Engine) Focus() *focus.Index { return e.focus }

// RegisterKind binds a view kind to its factory and dispatch table. All
// kinds are registered during startup, before events flow. Registration
// mistakes collected by the Handlers builder surface here.
func (e *Engine) RegisterKind(kind string, factory view.Factory, h *Handlers) error {
	if h != nil && h.err != nil {
		return h.err
	}
	if err := e.registry.Register(kind, factory); err != nil {
		return err
	}
	if h == nil {
		h = NewHandlers()
	}
	e.handlers[kind] = h
	return nil
}

// encodeKeyboard fills in the callback payload of every action button so a
// later press routes back to this record. URL buttons pass through untouched.
func (e *Engine) encodeKeyboard(bp *view.Blueprint, recordID uuid.UUID) {
	if bp.Keyboard == nil {
		return
	}
	for i := range bp.Keyboard.Rows {
		row := bp.Keyboard.Rows[i]
		for j := range row {
			b := &row[j]
			if b.URL != "" || b.Action == "" {
				continue
			}
			b.Data = e.codec.Encode(recordID, b.Action, b.Args)
		}
	}
}

// untrackRecord removes a record from the store and the focus bookkeeping.
func (e *Engine) untrackRecord(c *Call, channel string) error {
	if err := e.focus.Remove(c.ctx, channel, c.rec.ID); err != nil {
		return err
	}
	if err := e.store.DeleteRecord(c.ctx, c.rec.ID); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to delete view record").
			WithContext("record", c.rec.ID.String())
	}
	telemetry.TrackedViews.Dec()
	c.skipPersist = true
	return nil
}

package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/odvcencio/chatview/pkg/editor"
	"github.com/odvcencio/chatview/pkg/errors"
	"github.com/odvcencio/chatview/pkg/focus"
	"github.com/odvcencio/chatview/pkg/logging"
	"github.com/odvcencio/chatview/pkg/store"
	"github.com/odvcencio/chatview/pkg/telemetry"
	"github.com/odvcencio/chatview/pkg/transport"
	"github.com/odvcencio/chatview/pkg/view"
)

// SendOptions controls where and how a new view is delivered.
type SendOptions struct {
	// ChatID is the destination conversation. Optional inside a handler,
	// where it defaults to the calling view's chat.
	ChatID              int64
	ThreadID            int
	ReplyTo             int
	DisableNotification bool
	Protect             bool

	// Child stacks the new view on the calling view: the caller is
	// disabled until the child closes and its result is handed back.
	Child bool

	// Detached leaves the caller's tracking and the focus stack alone;
	// the new view is tracked but does not take the conversation over.
	Detached bool

	// Untracked sends the message and forgets it: no record is created
	// and the view can never receive events.
	Untracked bool
}

// delivery is a child-close result queued for the parent. Delivered after
// the child's lock is released, under the parent's own lock.
type delivery struct {
	parent uuid.UUID
	result any
}

// Call is the per-event context handed to handlers. It carries the locked
// record and the reconstructed view, and collects the effects the handler
// requests; the engine applies them in order once the handler returns.
type Call struct {
	ctx      context.Context
	eng      *Engine
	eventID  string
	rec      *store.Record
	view     view.View
	handlers *Handlers

	acted       bool
	refresh     bool
	force       bool
	skipPersist bool
	notice      string
	deliveries  []delivery
}

// Context returns the dispatch context.
func (c *Call) Context() context.Context { return c.ctx }

// View returns the reconstructed view; handlers assert it to their concrete
// type to reach their state.
func (c *Call) View() view.View { return c.view }

// RecordID returns the id of the record this call is locked on.
func (c *Call) RecordID() uuid.UUID { return c.rec.ID }

// Binding returns the record's current message binding.
func (c *Call) Binding() view.Binding { return c.rec.Binding }

// Notice sets the short user-visible text answered to the button press that
// triggered this call. Ignored for non-button events.
func (c *Call) Notice(text string) { c.notice = text }

// Refresh requests a re-render of the bound message after the handler
// returns, still inside the record's critical section.
func (c *Call) Refresh() { c.refresh = true }

// ForceRefresh is Refresh with the media-replace path forced even when the
// declared media identity is unchanged.
func (c *Call) ForceRefresh() {
	c.refresh = true
	c.force = true
}

func (c *Call) channel() string {
	return focus.Channel(c.rec.Binding.BotID, c.rec.Binding.ChatID)
}

// Send delivers a new view from inside a handler. A disabled caller cannot
// send. Child sends stack the new view on the caller; plain sends hand the
// conversation over to the new view and untrack the caller; detached sends
// leave the caller alone.
func (c *Call) Send(v view.View, opts SendOptions) (uuid.UUID, error) {
	if !c.rec.Enabled {
		return uuid.Nil, errors.New(errors.CodeViewDisabled, "disabled view cannot send").
			WithContext("record", c.rec.ID.String())
	}
	if opts.ChatID == 0 {
		opts.ChatID = c.rec.Binding.ChatID
	}
	return c.eng.sendView(c.ctx, v, c, opts)
}

// Close untracks this view and removes its message, handing the result to
// the parent's stack-returned handler once this call's lock is released.
// Closing with a non-nil result requires a parent.
func (c *Call) Close(result any) error {
	if result != nil && !c.rec.HasParent() {
		return errors.New(errors.CodeNoParent, "view has no parent to return a result to").
			WithContext("record", c.rec.ID.String())
	}
	if err := c.discard(); err != nil {
		return err
	}
	if c.rec.HasParent() {
		c.deliveries = append(c.deliveries, delivery{parent: c.rec.ParentID, result: result})
	}
	return nil
}

// Delete untracks this view and removes its message without notifying any
// parent.
func (c *Call) Delete() error {
	return c.discard()
}

// discard deletes the bound message (when still bound) and untracks the
// record. On transport failure nothing is untracked, so the operation can
// be retried.
func (c *Call) discard() error {
	channel := c.channel()
	if c.rec.Binding.Bound() {
		ed := editor.Restore(c.eng.transport, c.rec.Binding)
		if _, err := ed.Delete(c.ctx); err != nil {
			return err
		}
		c.rec.Binding = ed.Binding()
	}
	return c.eng.untrackRecord(c, channel)
}

// Replace hands this view's message over to a new view: the message is
// edited in place to the new view's render, the new record inherits the
// caller's parent, enablement and focus position, and the caller is
// untracked. The edit branch rules still apply, so a text-only message
// cannot be replaced by a view rendering real media.
func (c *Call) Replace(v view.View) (uuid.UUID, error) {
	if !c.rec.Binding.Bound() {
		return uuid.Nil, errors.New(errors.CodeViewUnbound, "cannot replace a detached view")
	}

	newID := uuid.New()
	bp, err := v.Render()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInternal, "view render failed").
			WithContext("kind", v.Kind())
	}
	c.eng.encodeKeyboard(bp, newID)

	ed := editor.Restore(c.eng.transport, c.rec.Binding)
	if err := ed.Edit(c.ctx, bp, false); err != nil {
		return uuid.Nil, err
	}

	state, err := v.MarshalState()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInternal, "failed to serialize view state").
			WithContext("kind", v.Kind())
	}
	now := time.Now().UTC()
	newRec := &store.Record{
		ID:        newID,
		Kind:      v.Kind(),
		ParentID:  c.rec.ParentID,
		State:     state,
		Enabled:   c.rec.Enabled,
		Binding:   ed.Binding(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.eng.store.PutRecord(c.ctx, newRec); err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeStoreWrite, "failed to store replacement record")
	}
	if err := c.eng.store.DeleteRecord(c.ctx, c.rec.ID); err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeStoreWrite, "failed to delete replaced record")
	}
	if err := c.eng.focus.Replace(c.ctx, c.channel(), c.rec.ID, newID); err != nil {
		return uuid.Nil, err
	}
	c.skipPersist = true

	c.eng.log.Info(logging.CategoryDispatch, "replace", "", map[string]any{
		"old_record": c.rec.ID.String(),
		"new_record": newID.String(),
		"kind":       v.Kind(),
	})
	return newID, nil
}

// Send delivers a view to a chat outside any handler, typically in response
// to a command. The new view claims the channel's focus.
func (e *Engine) Send(ctx context.Context, v view.View, opts SendOptions) (uuid.UUID, error) {
	if opts.ChatID == 0 {
		return uuid.Nil, errors.New(errors.CodeInternal, "send outside a handler requires a chat id")
	}
	if opts.Child {
		return uuid.Nil, errors.New(errors.CodeNoParent, "child send requires a calling view")
	}
	return e.sendView(ctx, v, nil, opts)
}

// sendView is the shared send path. The record id is minted before the
// transport call because the keyboard payloads need it, but the record is
// persisted only after the transport confirms delivery: a failed send never
// leaves a tracked record behind.
func (e *Engine) sendView(ctx context.Context, v view.View, caller *Call, opts SendOptions) (uuid.UUID, error) {
	id := uuid.New()
	bp, err := v.Render()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInternal, "view render failed").
			WithContext("kind", v.Kind())
	}
	e.encodeKeyboard(bp, id)

	ed := editor.New(e.transport)
	dest := transport.Destination{
		ChatID:              opts.ChatID,
		ThreadID:            opts.ThreadID,
		ReplyTo:             opts.ReplyTo,
		DisableNotification: opts.DisableNotification,
		Protect:             opts.Protect,
	}
	if err := ed.Send(ctx, bp, dest); err != nil {
		if hook, ok := v.(view.SendFailer); ok {
			err = hook.SendFailed(err)
		}
		if err != nil {
			e.log.Error(logging.CategoryDispatch, "send_failed", "", map[string]any{
				"kind":  v.Kind(),
				"chat":  opts.ChatID,
				"error": err.Error(),
			})
			return uuid.Nil, err
		}
		return uuid.Nil, nil
	}

	if opts.Untracked {
		return uuid.Nil, nil
	}

	state, err := v.MarshalState()
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInternal, "failed to serialize view state").
			WithContext("kind", v.Kind())
	}
	now := time.Now().UTC()
	rec := &store.Record{
		ID:        id,
		Kind:      v.Kind(),
		State:     state,
		Enabled:   true,
		Binding:   ed.Binding(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if caller != nil && opts.Child {
		rec.ParentID = caller.rec.ID
	}
	if err := e.store.PutRecord(ctx, rec); err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeStoreWrite, "failed to store view record").
			WithContext("record", id.String())
	}
	telemetry.TrackedViews.Inc()

	channel := focus.Channel(rec.Binding.BotID, rec.Binding.ChatID)
	switch {
	case opts.Detached:
		// caller and focus untouched
	case opts.Child:
		if err := e.focus.Push(ctx, channel, id); err != nil {
			return id, err
		}
		caller.rec.Enabled = false
	case caller != nil:
		// plain send from a handler: the new view takes the conversation
		// over and the caller is untracked. Its message stays on screen.
		if err := e.untrackRecord(caller, caller.channel()); err != nil {
			return id, err
		}
		if err := e.focus.SetSingle(ctx, channel, id); err != nil {
			return id, err
		}
	default:
		if err := e.focus.SetSingle(ctx, channel, id); err != nil {
			return id, err
		}
	}

	e.log.Info(logging.CategoryDispatch, "send", "", map[string]any{
		"record":  id.String(),
		"kind":    v.Kind(),
		"chat":    rec.Binding.ChatID,
		"message": rec.Binding.MessageID,
		"child":   opts.Child,
	})
	return id, nil
}

// Refresh re-renders a tracked view's message under its lock.
func (e *Engine) Refresh(ctx context.Context, recordID uuid.UUID, forceMedia bool) error {
	_, err := e.dispatch(ctx, recordID, newEventID(), func(c *Call) error {
		c.refresh = true
		c.force = forceMedia
		return nil
	})
	return err
}

// Delete removes a tracked view's message and record.
func (e *Engine) Delete(ctx context.Context, recordID uuid.UUID) error {
	_, err := e.dispatch(ctx, recordID, newEventID(), func(c *Call) error {
		return c.Delete()
	})
	return err
}

// Pop closes a tracked view from outside a handler, delivering result to
// its parent the same way an in-handler Close does.
func (e *Engine) Pop(ctx context.Context, recordID uuid.UUID, result any) error {
	_, err := e.dispatch(ctx, recordID, newEventID(), func(c *Call) error {
		return c.Close(result)
	})
	return err
}

// Replace swaps the view behind a tracked record from outside a handler.
func (e *Engine) Replace(ctx context.Context, recordID uuid.UUID, v view.View) (uuid.UUID, error) {
	var newID uuid.UUID
	_, err := e.dispatch(ctx, recordID, newEventID(), func(c *Call) error {
		var err error
		newID, err = c.Replace(v)
		return err
	})
	return newID, err
}

package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/chatview/pkg/editor"
	"github.com/odvcencio/chatview/pkg/errors"
	"github.com/odvcencio/chatview/pkg/focus"
	"github.com/odvcencio/chatview/pkg/logging"
	"github.com/odvcencio/chatview/pkg/store"
	"github.com/odvcencio/chatview/pkg/telemetry"
	"github.com/odvcencio/chatview/pkg/view"
)

// newEventID mints a sortable id correlating the log lines and deliveries of
// one inbound event.
func newEventID() string {
	return ulid.Make().String()
}

// dispatch runs fn against a locked, loaded, reconstructed record and then
// commits: the requested refresh happens first, then the mutated state and
// binding are written back, all before the lock is released. Child-close
// results queued by fn are delivered after release, each under the parent's
// own lock, so a close can never deadlock against its parent.
func (e *Engine) dispatch(ctx context.Context, recordID uuid.UUID, eventID string, fn func(*Call) error) (*Call, error) {
	release, err := e.locks.Acquire(ctx, recordID.String())
	if err != nil {
		return nil, err
	}

	c, err := func() (*Call, error) {
		defer release()

		rec, err := e.store.GetRecord(ctx, recordID)
		if err == store.ErrNotFound {
			return nil, errors.New(errors.CodeViewUntracked, "record is not tracked").
				WithContext("record", recordID.String())
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreRead, "failed to load view record").
				WithContext("record", recordID.String())
		}

		v, err := e.registry.Reconstruct(rec.Kind, rec.State)
		if err != nil {
			return nil, err
		}

		c := &Call{
			ctx:      ctx,
			eng:      e,
			eventID:  eventID,
			rec:      rec,
			view:     v,
			handlers: e.handlers[rec.Kind],
		}
		if err := fn(c); err != nil {
			return c, err
		}
		return c, e.commit(c)
	}()

	if err == nil && c != nil {
		for _, d := range c.deliveries {
			e.deliverClose(ctx, eventID, d)
		}
	}
	return c, err
}

// commit applies the effects collected on the call: refresh, then state
// write-back. A failed refresh does not lose the handler's mutation; the
// state is persisted regardless and the refresh error is reported after.
func (e *Engine) commit(c *Call) error {
	if c.skipPersist {
		return nil
	}

	var refreshErr error
	if c.refresh || (c.acted && e.autoRefresh) {
		refreshErr = e.refreshLocked(c)
	}

	if c.acted || c.refresh {
		state, err := c.view.MarshalState()
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "failed to serialize view state").
				WithContext("record", c.rec.ID.String())
		}
		c.rec.State = state
		c.rec.UpdatedAt = time.Now().UTC()
		if err := e.store.PutRecord(c.ctx, c.rec); err != nil {
			return errors.Wrap(err, errors.CodeStoreWrite, "failed to persist view state").
				WithContext("record", c.rec.ID.String())
		}
	}
	return refreshErr
}

// refreshLocked re-renders the view and pushes the diff onto the bound
// message. Runs inside the record's critical section. The view's optional
// RefreshFailed hook may swallow a transport failure.
func (e *Engine) refreshLocked(c *Call) error {
	bp, err := c.view.Render()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "view render failed").
			WithContext("record", c.rec.ID.String())
	}
	e.encodeKeyboard(bp, c.rec.ID)

	ed := editor.Restore(e.transport, c.rec.Binding)
	if err := ed.Edit(c.ctx, bp, c.force); err != nil {
		if hook, ok := c.view.(view.RefreshFailer); ok {
			err = hook.RefreshFailed(err)
		}
		if err != nil {
			e.log.Error(logging.CategoryEditor, "refresh_failed", "", map[string]any{
				"record": c.rec.ID.String(),
				"error":  err.Error(),
			})
			return err
		}
	}
	c.rec.Binding = ed.Binding()
	return nil
}

// deliverClose hands a closed child's result to the parent's first matching
// stack-returned handler, exactly once, under the parent's lock. A parent
// that was untracked in the meantime drops the result with a warning.
func (e *Engine) deliverClose(ctx context.Context, eventID string, d delivery) {
	_, err := e.dispatch(ctx, d.parent, eventID, func(c *Call) error {
		if c.handlers == nil {
			return nil
		}
		for _, rh := range c.handlers.returns {
			if rh.Match != nil && !rh.Match(d.result) {
				continue
			}
			c.acted = true
			return rh.Handle(c, d.result)
		}
		return nil
	})

	switch {
	case err == nil:
		telemetry.Dispatches.WithLabelValues("child_close", "ok").Inc()
	case errors.IsCode(err, errors.CodeViewUntracked):
		telemetry.Dispatches.WithLabelValues("child_close", "stale").Inc()
		e.log.Warn(logging.CategoryDispatch, "close_dropped", "parent untracked before child result arrived", map[string]any{
			"event":  eventID,
			"parent": d.parent.String(),
		})
	default:
		telemetry.Dispatches.WithLabelValues("child_close", "error").Inc()
		e.log.Error(logging.CategoryDispatch, "close_failed", "", map[string]any{
			"event":  eventID,
			"parent": d.parent.String(),
			"error":  err.Error(),
		})
	}
}

// HandleButton routes a button press. The first return value reports whether
// the payload belonged to this engine at all; payloads without our prefix
// are left for other handling. The press is answered after the state commit,
// best effort, with whatever notice the handler set.
func (e *Engine) HandleButton(ctx context.Context, queryID, data string) (bool, error) {
	payload, ours, err := e.codec.Decode(data)
	if err != nil {
		telemetry.Dispatches.WithLabelValues("button", "bad_callback").Inc()
		e.answer(ctx, queryID, "")
		return true, err
	}
	if !ours {
		return false, nil
	}

	eventID := newEventID()
	c, err := e.dispatch(ctx, payload.RecordID, eventID, func(c *Call) error {
		if !c.rec.Enabled {
			return errors.New(errors.CodeViewDisabled, "disabled view cannot act").
				WithContext("record", c.rec.ID.String())
		}
		var fn ButtonHandler
		if c.handlers != nil {
			fn, _ = c.handlers.button(payload.Action)
		}
		if fn == nil {
			return errors.Newf(errors.CodeUnknownAction, "view kind %q has no action %q", c.rec.Kind, payload.Action)
		}
		c.acted = true
		return fn(c, payload.Args)
	})

	notice := ""
	if c != nil {
		notice = c.notice
	}
	e.answer(ctx, queryID, notice)

	result := "ok"
	if err != nil {
		result = "error"
	}
	telemetry.Dispatches.WithLabelValues("button", result).Inc()
	e.log.Log(logging.Event{
		Level:     levelFor(err),
		Category:  logging.CategoryDispatch,
		EventType: "button",
		EventID:   eventID,
		RecordID:  payload.RecordID.String(),
		Details: map[string]any{
			"action": payload.Action,
			"result": result,
		},
	})
	return true, err
}

// HandleText routes free-text input to the channel's focused view. The first
// return value reports whether the input was consumed: false when no view
// holds focus, when the focus entry is stale, or when no registered text
// handler accepted the input.
func (e *Engine) HandleText(ctx context.Context, chatID int64, text string) (bool, error) {
	channel := focus.Channel(e.transport.BotID(), chatID)
	top, focused, err := e.focus.Top(ctx, channel)
	if err != nil {
		return false, err
	}
	if !focused {
		return false, nil
	}

	eventID := newEventID()
	consumed := false
	_, err = e.dispatch(ctx, top, eventID, func(c *Call) error {
		if c.handlers == nil {
			return nil
		}
		for _, th := range c.handlers.texts {
			if th.Match != nil && !th.Match(text) {
				continue
			}
			consumed = true
			c.acted = true
			if err := th.Handle(c, text); err != nil {
				return err
			}
			if c.skipPersist {
				// the view closed or replaced itself; stop routing
				break
			}
		}
		return nil
	})

	if errors.IsCode(err, errors.CodeViewUntracked) {
		// stale focus entry; drop it and let the input fall through
		if rmErr := e.focus.Remove(ctx, channel, top); rmErr != nil {
			e.log.Warn(logging.CategoryFocus, "stale_cleanup_failed", "", map[string]any{
				"channel": channel,
				"record":  top.String(),
				"error":   rmErr.Error(),
			})
		}
		return false, nil
	}

	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case !consumed:
		result = "unconsumed"
	}
	telemetry.Dispatches.WithLabelValues("text", result).Inc()
	e.log.Log(logging.Event{
		Level:     levelFor(err),
		Category:  logging.CategoryDispatch,
		EventType: "text",
		EventID:   eventID,
		RecordID:  top.String(),
		Details: map[string]any{
			"channel": channel,
			"result":  result,
		},
	})
	return consumed, err
}

// answer acknowledges a button press, clearing the client's progress state.
// Failures are logged, never propagated: the state commit already happened.
func (e *Engine) answer(ctx context.Context, queryID, text string) {
	if queryID == "" {
		return
	}
	if err := e.transport.AnswerButton(ctx, queryID, text); err != nil {
		telemetry.TransportErrors.WithLabelValues("answer").Inc()
		e.log.Warn(logging.CategoryTransport, "answer_failed", "", map[string]any{
			"error": err.Error(),
		})
	}
}

func levelFor(err error) logging.Level {
	if err != nil {
		return logging.LevelError
	}
	return logging.LevelInfo
}

// Package editor owns the binding between a view and its outbound message
// and decides the cheapest correct transport operation for each re-render:
// a text edit, a caption-only edit, or a full media replace.
package editor

import (
	"context"

	"github.com/odvcencio/chatview/pkg/errors"
	"github.com/odvcencio/chatview/pkg/telemetry"
	"github.com/odvcencio/chatview/pkg/transport"
	"github.com/odvcencio/chatview/pkg/view"
)

// Editor drives send/edit/delete for a single message binding. It is not
// safe for concurrent use; the runtime serializes access per record.
type Editor struct {
	transport transport.Transport
	binding   view.Binding
}

// New creates an editor with no binding (nothing sent yet).
func New(t transport.Transport) *Editor {
	return &Editor{
		transport: t,
		binding:   view.Binding{Media: view.MediaDescriptor{Kind: view.MediaNone}},
	}
}

// Restore creates an editor over an existing binding loaded from the store.
func Restore(t transport.Transport, b view.Binding) *Editor {
	if b.Media.Kind == "" {
		b.Media.Kind = view.MediaNone
	}
	return &Editor{transport: t, binding: b}
}

// Binding returns the current message binding.
func (e *Editor) Binding() view.Binding { return e.binding }

// Send delivers the blueprint as a new message and records the binding.
// Sending while a message is already bound is a state error. On transport
// failure the binding stays unset; there is no partial state.
func (e *Editor) Send(ctx context.Context, bp *view.Blueprint, dest transport.Destination) error {
	if e.binding.Bound() {
		return errors.New(errors.CodeViewBound, "message already sent; re-sending a bound view is not allowed").
			WithContext("message_id", e.binding.MessageID)
	}

	handle, err := e.transport.Send(ctx, dest, bp)
	if err != nil {
		telemetry.TransportErrors.WithLabelValues("send").Inc()
		return errors.Wrap(err, errors.CodeTransportSend, "transport rejected send")
	}

	telemetry.EditPaths.WithLabelValues("send").Inc()
	e.binding = view.Binding{
		BotID:     e.transport.BotID(),
		ChatID:    handle.ChatID,
		MessageID: handle.MessageID,
		Media:     view.Describe(bp.Media),
	}
	return nil
}

// Edit pushes the blueprint onto the already-sent message, choosing the
// cheapest transport operation. forceMedia forces the media-replace path even
// when the declared media identity is unchanged.
//
// A message without real media can only ever gain a link preview; requesting
// photo/video/etc. from a text-only message is a hard platform limitation and
// fails with a state error. Callers needing real media must delete and send
// a new message.
func (e *Editor) Edit(ctx context.Context, bp *view.Blueprint, forceMedia bool) error {
	if !e.binding.Bound() {
		return errors.New(errors.CodeViewUnbound, "no message bound; nothing to edit")
	}

	handle := transport.Handle{ChatID: e.binding.ChatID, MessageID: e.binding.MessageID}
	newKind := bp.MediaKind()

	if !view.IsRealMedia(e.binding.Media.Kind) {
		switch newKind {
		case view.MediaNone, view.MediaLinkPreview:
			if err := e.confirm(e.transport.EditText(ctx, handle, bp), "edit_text"); err != nil {
				return err
			}
			telemetry.EditPaths.WithLabelValues("text").Inc()
			e.binding.Media = view.Describe(bp.Media)
			return nil
		default:
			return errors.Newf(errors.CodeMediaUpgrade,
				"message without media cannot be edited to %s; only a link preview can be added", newKind)
		}
	}

	// The bound message carries real media. Media cannot be removed by the
	// platform, so a blueprint without media keeps the current one.
	needsMediaEdit := false
	if bp.Media != nil {
		needsMediaEdit = forceMedia || !e.binding.Media.Matches(bp.Media)
	}

	if !needsMediaEdit {
		if err := e.confirm(e.transport.EditCaption(ctx, handle, bp), "edit_caption"); err != nil {
			return err
		}
		telemetry.EditPaths.WithLabelValues("caption").Inc()
		return nil
	}

	if err := e.confirm(e.transport.EditMedia(ctx, handle, bp), "edit_media"); err != nil {
		return err
	}
	telemetry.EditPaths.WithLabelValues("media").Inc()
	e.binding.Media = view.Describe(bp.Media)
	return nil
}

// confirm maps a transport edit result to the runtime error model. The
// binding's notion of what is on screen is updated only after a confirmed
// success, which ErrNotModified counts as.
func (e *Editor) confirm(err error, op string) error {
	if err == nil || err == transport.ErrNotModified {
		return nil
	}
	telemetry.TransportErrors.WithLabelValues(op).Inc()
	return errors.Wrap(err, errors.CodeTransportEdit, "transport rejected edit").
		WithContext("op", op)
}

// Delete removes the bound message. On success the binding is cleared and
// true is returned; on failure the binding is kept so the caller can retry.
func (e *Editor) Delete(ctx context.Context) (bool, error) {
	if !e.binding.Bound() {
		return false, errors.New(errors.CodeViewUnbound, "no message bound; nothing to delete")
	}

	handle := transport.Handle{ChatID: e.binding.ChatID, MessageID: e.binding.MessageID}
	if err := e.transport.Delete(ctx, handle); err != nil {
		telemetry.TransportErrors.WithLabelValues("delete").Inc()
		return false, errors.Wrap(err, errors.CodeTransportDelete, "transport rejected delete")
	}

	e.binding.MessageID = 0
	e.binding.ChatID = 0
	e.binding.Media = view.MediaDescriptor{Kind: view.MediaNone}
	return true, nil
}

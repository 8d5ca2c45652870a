package editor

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/odvcencio/chatview/pkg/errors"
	"github.com/odvcencio/chatview/pkg/transport"
	"github.com/odvcencio/chatview/pkg/view"
)

func textBlueprint(text string) *view.Blueprint {
	return &view.Blueprint{Text: text}
}

func photoBlueprint(src view.FileSource) *view.Blueprint {
	return &view.Blueprint{Text: "caption", Media: view.Photo{File: src}}
}

func TestSendRecordsBinding(t *testing.T) {
	tr := transport.NewMemory(7)
	ed := New(tr)

	err := ed.Send(context.Background(), textBlueprint("A"), transport.Destination{ChatID: 55})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	b := ed.Binding()
	if !b.Bound() || b.ChatID != 55 || b.BotID != 7 {
		t.Fatalf("binding not recorded: %+v", b)
	}
	if b.Media.Kind != view.MediaNone {
		t.Fatalf("expected media kind none, got %s", b.Media.Kind)
	}
}

func TestResendBoundViewFails(t *testing.T) {
	tr := transport.NewMemory(7)
	ed := New(tr)
	if err := ed.Send(context.Background(), textBlueprint("A"), transport.Destination{ChatID: 55}); err != nil {
		t.Fatalf("send: %v", err)
	}

	err := ed.Send(context.Background(), textBlueprint("B"), transport.Destination{ChatID: 55})
	if !errors.IsCode(err, errors.CodeViewBound) {
		t.Fatalf("expected VIEW_BOUND, got %v", err)
	}
	if len(tr.CallsOf(transport.OpSend)) != 1 {
		t.Fatal("second send must not reach the transport")
	}
}

func TestSendFailureLeavesNoBinding(t *testing.T) {
	tr := transport.NewMemory(7)
	tr.FailOnce(transport.OpSend, stderrors.New("network down"))
	ed := New(tr)

	err := ed.Send(context.Background(), textBlueprint("A"), transport.Destination{ChatID: 55})
	if !errors.IsCode(err, errors.CodeTransportSend) {
		t.Fatalf("expected TRANSPORT_SEND, got %v", err)
	}
	if ed.Binding().Bound() {
		t.Fatal("failed send must leave binding unset")
	}

	// Retry succeeds cleanly.
	if err := ed.Send(context.Background(), textBlueprint("A"), transport.Destination{ChatID: 55}); err != nil {
		t.Fatalf("retry send: %v", err)
	}
}

// Scenario from the media lifecycle: text-only message gains a link preview,
// refuses real media, and edits fail after delete.
func TestTextMessageMediaLifecycle(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, textBlueprint("A"), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ed.Binding().Media.Kind != view.MediaNone {
		t.Fatalf("expected none, got %s", ed.Binding().Media.Kind)
	}

	// Gaining a link preview is allowed.
	lp := &view.Blueprint{Text: "A", Media: view.LinkPreview{URL: "https://x"}}
	if err := ed.Edit(ctx, lp, false); err != nil {
		t.Fatalf("edit to link preview: %v", err)
	}
	if ed.Binding().Media.Kind != view.MediaLinkPreview {
		t.Fatalf("expected link_preview, got %s", ed.Binding().Media.Kind)
	}

	// Upgrading to a photo is a hard platform limitation.
	err := ed.Edit(ctx, photoBlueprint(view.Remote("f1")), false)
	if !errors.IsCode(err, errors.CodeMediaUpgrade) {
		t.Fatalf("expected MEDIA_UPGRADE, got %v", err)
	}
	if !errors.IsState(err) {
		t.Fatalf("media upgrade must be a state error, got %v", err)
	}

	// Dropping back to plain text is allowed.
	if err := ed.Edit(ctx, textBlueprint("A2"), false); err != nil {
		t.Fatalf("edit back to text: %v", err)
	}
	if ed.Binding().Media.Kind != view.MediaNone {
		t.Fatalf("expected none after dropping preview, got %s", ed.Binding().Media.Kind)
	}

	ok, err := ed.Delete(ctx)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ed.Binding().Bound() {
		t.Fatal("binding not cleared after delete")
	}

	if err := ed.Edit(ctx, textBlueprint("A3"), false); !errors.IsState(err) {
		t.Fatalf("edit after delete must be a state error, got %v", err)
	}
}

// Scenario from the media diff rule: unchanged local media takes the cheap
// caption path, changed identity takes the media-replace path.
func TestMediaDiffChoosesCheapestPath(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, photoBlueprint(view.Local("a.png")), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Identical local file: caption-only edit.
	if err := ed.Edit(ctx, photoBlueprint(view.Local("a.png")), false); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if n := len(tr.CallsOf(transport.OpEditMedia)); n != 0 {
		t.Fatalf("expected no media-replace calls, got %d", n)
	}
	if n := len(tr.CallsOf(transport.OpEditCaption)); n != 1 {
		t.Fatalf("expected 1 caption edit, got %d", n)
	}

	// Idempotent: a second identical edit still takes the cheap path.
	if err := ed.Edit(ctx, photoBlueprint(view.Local("a.png")), false); err != nil {
		t.Fatalf("second edit: %v", err)
	}
	if n := len(tr.CallsOf(transport.OpEditMedia)); n != 0 {
		t.Fatalf("identical re-edit triggered media replace")
	}

	// Different filename: full media replace.
	if err := ed.Edit(ctx, photoBlueprint(view.Local("b.png")), false); err != nil {
		t.Fatalf("edit b.png: %v", err)
	}
	if n := len(tr.CallsOf(transport.OpEditMedia)); n != 1 {
		t.Fatalf("expected media replace for new file, got %d calls", n)
	}
	if ed.Binding().Media.Identity != "b.png" {
		t.Fatalf("descriptor not updated: %+v", ed.Binding().Media)
	}
}

func TestMediaDiffLocalityAndKind(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, photoBlueprint(view.Remote("file-id-1")), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Same identity string but local instead of remote: must replace.
	if err := ed.Edit(ctx, photoBlueprint(view.Local("file-id-1")), false); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if n := len(tr.CallsOf(transport.OpEditMedia)); n != 1 {
		t.Fatalf("locality change must force media replace, got %d calls", n)
	}

	// Kind change photo -> video: must replace.
	vid := &view.Blueprint{Text: "caption", Media: view.Video{File: view.Local("file-id-1")}}
	if err := ed.Edit(ctx, vid, false); err != nil {
		t.Fatalf("edit video: %v", err)
	}
	if n := len(tr.CallsOf(transport.OpEditMedia)); n != 2 {
		t.Fatalf("kind change must force media replace, got %d calls", n)
	}
}

func TestForceMediaEdit(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, photoBlueprint(view.Remote("f1")), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := ed.Edit(ctx, photoBlueprint(view.Remote("f1")), true); err != nil {
		t.Fatalf("forced edit: %v", err)
	}
	if n := len(tr.CallsOf(transport.OpEditMedia)); n != 1 {
		t.Fatalf("force flag must take the media path, got %d calls", n)
	}
}

// A blueprint without media on a media message keeps the current media and
// edits only the caption.
func TestMediaKeptWhenBlueprintDropsIt(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, photoBlueprint(view.Remote("f1")), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := ed.Edit(ctx, textBlueprint("new caption"), false); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if n := len(tr.CallsOf(transport.OpEditCaption)); n != 1 {
		t.Fatalf("expected caption edit, got %d", n)
	}
	if ed.Binding().Media.Kind != view.MediaPhoto {
		t.Fatalf("media descriptor must be kept, got %s", ed.Binding().Media.Kind)
	}
}

func TestNotModifiedIsSuccess(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, textBlueprint("A"), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	tr.FailOnce(transport.OpEditText, transport.ErrNotModified)
	if err := ed.Edit(ctx, textBlueprint("A"), false); err != nil {
		t.Fatalf("not-modified must be success, got %v", err)
	}
}

func TestFailedEditKeepsDescriptor(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, photoBlueprint(view.Remote("f1")), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}

	tr.FailOnce(transport.OpEditMedia, stderrors.New("flood wait"))
	err := ed.Edit(ctx, photoBlueprint(view.Remote("f2")), false)
	if !errors.IsCode(err, errors.CodeTransportEdit) {
		t.Fatalf("expected TRANSPORT_EDIT, got %v", err)
	}
	// What's on screen is still f1; the descriptor must agree.
	if ed.Binding().Media.Identity != "f1" {
		t.Fatalf("descriptor advanced past a failed edit: %+v", ed.Binding().Media)
	}

	// A retry of the same target now goes down the media path again.
	if err := ed.Edit(ctx, photoBlueprint(view.Remote("f2")), false); err != nil {
		t.Fatalf("retry edit: %v", err)
	}
	if ed.Binding().Media.Identity != "f2" {
		t.Fatalf("descriptor not advanced after success: %+v", ed.Binding().Media)
	}
}

func TestDeleteFailureKeepsBinding(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory(7)
	ed := New(tr)

	if err := ed.Send(ctx, textBlueprint("A"), transport.Destination{ChatID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	tr.FailOnce(transport.OpDelete, stderrors.New("already gone"))

	ok, err := ed.Delete(ctx)
	if ok || err == nil {
		t.Fatalf("expected failed delete, got ok=%v err=%v", ok, err)
	}
	if !ed.Binding().Bound() {
		t.Fatal("failed delete must keep the binding for retry")
	}

	ok, err = ed.Delete(ctx)
	if !ok || err != nil {
		t.Fatalf("retry delete: ok=%v err=%v", ok, err)
	}
}

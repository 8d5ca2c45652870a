// Package transport abstracts the chat platform calls the runtime needs:
// sending, the three edit flavors, deleting, and answering button presses.
// Implementations map platform-specific failures to plain errors; the editor
// layer classifies them. "Edit produced no visible change" is success, not
// failure, and is reported as ErrNotModified.
package transport

import (
	"context"
	"errors"

	"github.com/odvcencio/chatview/pkg/view"
)

// ErrNotModified signals that an edit produced no visible change. Callers
// treat it as success.
var ErrNotModified = errors.New("transport: message not modified")

// Handle identifies a sent message on the platform.
type Handle struct {
	ChatID    int64
	MessageID int
}

// Destination addresses the initial send of a message.
type Destination struct {
	ChatID              int64
	ThreadID            int
	ReplyTo             int
	DisableNotification bool
	Protect             bool
}

// Transport is the chat platform boundary. Each call may fail with a
// platform error; the runtime never retries automatically.
type Transport interface {
	// BotID identifies the bot account this transport speaks for.
	BotID() int64

	// Send delivers a new message built from the blueprint, branching
	// internally on the blueprint's media kind.
	Send(ctx context.Context, dest Destination, bp *view.Blueprint) (Handle, error)

	// EditText rewrites a message that carries no real media (text with an
	// optional link preview).
	EditText(ctx context.Context, h Handle, bp *view.Blueprint) error

	// EditCaption rewrites only the caption and keyboard of a media
	// message, leaving the media untouched.
	EditCaption(ctx context.Context, h Handle, bp *view.Blueprint) error

	// EditMedia replaces the media payload together with caption and
	// keyboard.
	EditMedia(ctx context.Context, h Handle, bp *view.Blueprint) error

	// Delete removes the message.
	Delete(ctx context.Context, h Handle) error

	// AnswerButton acknowledges a button press, optionally with a
	// user-visible notice.
	AnswerButton(ctx context.Context, queryID, text string) error
}

package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/chatview/pkg/view"
)

// Op identifies a recorded transport call.
type Op string

const (
	OpSend        Op = "send"
	OpEditText    Op = "edit_text"
	OpEditCaption Op = "edit_caption"
	OpEditMedia   Op = "edit_media"
	OpDelete      Op = "delete"
	OpAnswer      Op = "answer"
)

// Call is one recorded transport operation.
type Call struct {
	Op     Op
	Handle Handle
	Text   string
	Media  view.MediaDescriptor
	Notice string
}

// MemoryTransport records every call instead of talking to a chat platform.
// Used by tests to assert which edit path the editor chose, and by dry runs.
// Failures can be injected per operation.
type MemoryTransport struct {
	mu     sync.Mutex
	botID  int64
	nextID int
	calls  []Call

	// FailNext maps an op to an error returned (and cleared) on its next
	// invocation.
	failNext map[Op]error
}

// NewMemory creates a recording transport for the given bot id.
func NewMemory(botID int64) *MemoryTransport {
	return &MemoryTransport{
		botID:    botID,
		nextID:   100,
		failNext: make(map[Op]error),
	}
}

// FailOnce makes the next invocation of op return err.
func (m *MemoryTransport) FailOnce(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[op] = err
}

// Calls returns a snapshot of all recorded calls.
func (m *MemoryTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsOf returns recorded calls with the given op.
func (m *MemoryTransport) CallsOf(op Op) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the recorded calls.
func (m *MemoryTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MemoryTransport) takeFailure(op Op) error {
	if err, ok := m.failNext[op]; ok {
		delete(m.failNext, op)
		return err
	}
	return nil
}

func (m *MemoryTransport) BotID() int64 { return m.botID }

func (m *MemoryTransport) Send(_ context.Context, dest Destination, bp *view.Blueprint) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpSend); err != nil {
		return Handle{}, err
	}
	m.nextID++
	h := Handle{ChatID: dest.ChatID, MessageID: m.nextID}
	m.calls = append(m.calls, Call{Op: OpSend, Handle: h, Text: bp.Text, Media: view.Describe(bp.Media)})
	return h, nil
}

func (m *MemoryTransport) edit(op Op, h Handle, bp *view.Blueprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(op); err != nil {
		return err
	}
	m.calls = append(m.calls, Call{Op: op, Handle: h, Text: bp.Text, Media: view.Describe(bp.Media)})
	return nil
}

func (m *MemoryTransport) EditText(ctx context.Context, h Handle, bp *view.Blueprint) error {
	return m.edit(OpEditText, h, bp)
}

func (m *MemoryTransport) EditCaption(ctx context.Context, h Handle, bp *view.Blueprint) error {
	return m.edit(OpEditCaption, h, bp)
}

func (m *MemoryTransport) EditMedia(ctx context.Context, h Handle, bp *view.Blueprint) error {
	return m.edit(OpEditMedia, h, bp)
}

func (m *MemoryTransport) Delete(_ context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpDelete); err != nil {
		return err
	}
	m.calls = append(m.calls, Call{Op: OpDelete, Handle: h})
	return nil
}

func (m *MemoryTransport) AnswerButton(_ context.Context, queryID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpAnswer); err != nil {
		return err
	}
	m.calls = append(m.calls, Call{Op: OpAnswer, Notice: text, Text: queryID})
	return nil
}

// String renders a call for debugging output in dry runs.
func (c Call) String() string {
	switch c.Op {
	case OpSend:
		return fmt.Sprintf("send chat=%d msg=%d media=%s text=%q", c.Handle.ChatID, c.Handle.MessageID, c.Media.Kind, c.Text)
	case OpDelete:
		return fmt.Sprintf("delete chat=%d msg=%d", c.Handle.ChatID, c.Handle.MessageID)
	case OpAnswer:
		return fmt.Sprintf("answer %q", c.Notice)
	default:
		return fmt.Sprintf("%s chat=%d msg=%d media=%s text=%q", c.Op, c.Handle.ChatID, c.Handle.MessageID, c.Media.Kind, c.Text)
	}
}

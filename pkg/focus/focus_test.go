package focus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/chatview/pkg/store"
)

func newRecord(t *testing.T, st store.Store, enabled bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := st.PutRecord(context.Background(), &store.Record{
		ID:      id,
		Kind:    "test",
		State:   []byte(`{}`),
		Enabled: enabled,
	})
	require.NoError(t, err)
	return id
}

func enabled(t *testing.T, st store.Store, id uuid.UUID) bool {
	t.Helper()
	rec, err := st.GetRecord(context.Background(), id)
	require.NoError(t, err)
	return rec.Enabled
}

func TestPushDisablesPreviousTop(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)
	channel := Channel(1, 100)

	parent := newRecord(t, st, true)
	child := newRecord(t, st, true)

	require.NoError(t, ix.Push(ctx, channel, parent))
	require.True(t, enabled(t, st, parent))

	require.NoError(t, ix.Push(ctx, channel, child))
	require.False(t, enabled(t, st, parent), "previous top must be disabled")
	require.True(t, enabled(t, st, child))

	top, ok, err := ix.Top(ctx, channel)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, child, top)
}

func TestPopReenablesNewTop(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)
	channel := Channel(1, 100)

	parent := newRecord(t, st, true)
	child := newRecord(t, st, true)
	require.NoError(t, ix.Push(ctx, channel, parent))
	require.NoError(t, ix.Push(ctx, channel, child))

	popped, ok, err := ix.Pop(ctx, channel)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, child, popped)
	require.True(t, enabled(t, st, parent), "new top must be re-enabled")

	top, ok, err := ix.Top(ctx, channel)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, parent, top)
}

func TestPopEmptyStack(t *testing.T) {
	ix := New(store.NewMemory(), nil)
	_, ok, err := ix.Pop(context.Background(), Channel(1, 100))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDoublePushSameRecordFails(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)
	channel := Channel(1, 100)

	id := newRecord(t, st, true)
	require.NoError(t, ix.Push(ctx, channel, id))
	require.Error(t, ix.Push(ctx, channel, id))
}

func TestSetSingleAndClear(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)
	channel := Channel(1, 100)

	a := newRecord(t, st, true)
	b := newRecord(t, st, true)

	require.NoError(t, ix.SetSingle(ctx, channel, a))
	top, ok, err := ix.Top(ctx, channel)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, a, top)

	// SetSingle replaces, it does not stack.
	require.NoError(t, ix.SetSingle(ctx, channel, b))
	stack, err := st.FocusStack(ctx, channel)
	require.NoError(t, err)
	require.Len(t, stack, 1)
	require.Equal(t, b, stack[0])

	require.NoError(t, ix.Clear(ctx, channel))
	_, ok, err = ix.Top(ctx, channel)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveMiddleAndTop(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)
	channel := Channel(1, 100)

	a := newRecord(t, st, true)
	b := newRecord(t, st, true)
	c := newRecord(t, st, true)
	require.NoError(t, ix.Push(ctx, channel, a))
	require.NoError(t, ix.Push(ctx, channel, b))
	require.NoError(t, ix.Push(ctx, channel, c))

	// Removing from the middle leaves the top alone.
	require.NoError(t, ix.Remove(ctx, channel, b))
	top, ok, err := ix.Top(ctx, channel)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, c, top)
	require.False(t, enabled(t, st, a), "non-top must stay disabled")

	// Removing the top re-enables the record below.
	require.NoError(t, ix.Remove(ctx, channel, c))
	require.True(t, enabled(t, st, a))

	// Removing an id that is not on the stack is a no-op.
	require.NoError(t, ix.Remove(ctx, channel, uuid.New()))
}

func TestChannelsAreIsolated(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)

	a := newRecord(t, st, true)
	b := newRecord(t, st, true)
	require.NoError(t, ix.Push(ctx, Channel(1, 100), a))
	require.NoError(t, ix.Push(ctx, Channel(1, 200), b))

	require.True(t, enabled(t, st, a), "push on another channel must not disable")

	top, ok, err := ix.Top(ctx, Channel(1, 100))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, a, top)
}

func TestStaleStackEntryIsSkipped(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)
	channel := Channel(1, 100)

	ghost := newRecord(t, st, true)
	live := newRecord(t, st, true)
	require.NoError(t, ix.Push(ctx, channel, ghost))
	require.NoError(t, st.DeleteRecord(ctx, ghost))

	// Pushing over a deleted top must not fail.
	require.NoError(t, ix.Push(ctx, channel, live))
}

func TestReplaceKeepsPosition(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	ix := New(st, nil)
	channel := Channel(1, 100)

	a := newRecord(t, st, true)
	b := newRecord(t, st, true)
	c := newRecord(t, st, true)
	require.NoError(t, ix.Push(ctx, channel, a))
	require.NoError(t, ix.Push(ctx, channel, b))

	// Replacing a mid-stack entry leaves the top alone.
	require.NoError(t, ix.Replace(ctx, channel, a, c))
	top, ok, err := ix.Top(ctx, channel)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b, top)

	stack, err := st.FocusStack(ctx, channel)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{c, b}, stack)

	// Replacing an id that is not stacked is a no-op.
	require.NoError(t, ix.Replace(ctx, channel, uuid.New(), a))
	stack, err = st.FocusStack(ctx, channel)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{c, b}, stack)
}

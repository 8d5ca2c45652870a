// Package focus tracks, per conversation, the ordered stack of view records
// determining which view receives free-text input. The top of a stack is the
// only eligible recipient; pushing disables the previous top for button
// eligibility and popping re-enables the new top. Stack mutation is guarded
// by a per-channel keyed lock, distinct from the per-record lock, since stack
// bookkeeping and record state are independent resources.
package focus

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/odvcencio/chatview/pkg/errors"
	"github.com/odvcencio/chatview/pkg/keylock"
	"github.com/odvcencio/chatview/pkg/logging"
	"github.com/odvcencio/chatview/pkg/store"
)

// Channel builds the channel key for a conversation.
func Channel(botID, chatID int64) string {
	return fmt.Sprintf("%d:%d", botID, chatID)
}

// Index is the per-conversation focus stack over the store's focus table.
type Index struct {
	store store.Store
	locks *keylock.KeyedLock
	log   *logging.Logger
}

// New creates a focus index over the given store.
func New(st store.Store, log *logging.Logger) *Index {
	return &Index{
		store: st,
		locks: keylock.New(),
		log:   log,
	}
}

// Push disables the current top of the channel's stack, appends recordID and
// marks it enabled. Used when a view spawns a child that takes over the
// conversation.
func (ix *Index) Push(ctx context.Context, channel string, recordID uuid.UUID) error {
	release, err := ix.locks.Acquire(ctx, channel)
	if err != nil {
		return err
	}
	defer release()

	stack, err := ix.store.FocusStack(ctx, channel)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreRead, "failed to load focus stack")
	}
	for _, id := range stack {
		if id == recordID {
			return errors.Newf(errors.CodeLockAnomaly, "record %s is already on the focus stack", recordID)
		}
	}

	if len(stack) > 0 {
		if err := ix.setEnabled(ctx, stack[len(stack)-1], false); err != nil {
			return err
		}
	}
	if err := ix.setEnabled(ctx, recordID, true); err != nil {
		return err
	}

	stack = append(stack, recordID)
	if err := ix.store.PutFocusStack(ctx, channel, stack); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to store focus stack")
	}

	ix.log.Debug(logging.CategoryFocus, "push", "", map[string]any{
		"channel": channel,
		"record":  recordID.String(),
		"depth":   len(stack),
	})
	return nil
}

// Pop removes the top record and re-enables the new top, returning the
// removed record id. The caller is responsible for untracking the popped
// record and its message. Returns false when the stack is empty.
func (ix *Index) Pop(ctx context.Context, channel string) (uuid.UUID, bool, error) {
	release, err := ix.locks.Acquire(ctx, channel)
	if err != nil {
		return uuid.Nil, false, err
	}
	defer release()

	stack, err := ix.store.FocusStack(ctx, channel)
	if err != nil {
		return uuid.Nil, false, errors.Wrap(err, errors.CodeStoreRead, "failed to load focus stack")
	}
	if len(stack) == 0 {
		return uuid.Nil, false, nil
	}

	popped := stack[len(stack)-1]
	stack = stack[:len(stack)-1]

	if len(stack) > 0 {
		if err := ix.setEnabled(ctx, stack[len(stack)-1], true); err != nil {
			return uuid.Nil, false, err
		}
	}
	if err := ix.store.PutFocusStack(ctx, channel, stack); err != nil {
		return uuid.Nil, false, errors.Wrap(err, errors.CodeStoreWrite, "failed to store focus stack")
	}

	ix.log.Debug(logging.CategoryFocus, "pop", "", map[string]any{
		"channel": channel,
		"record":  popped.String(),
		"depth":   len(stack),
	})
	return popped, true, nil
}

// Top returns the record currently focused on the channel, false when none.
func (ix *Index) Top(ctx context.Context, channel string) (uuid.UUID, bool, error) {
	stack, err := ix.store.FocusStack(ctx, channel)
	if err != nil {
		return uuid.Nil, false, errors.Wrap(err, errors.CodeStoreRead, "failed to load focus stack")
	}
	if len(stack) == 0 {
		return uuid.Nil, false, nil
	}
	return stack[len(stack)-1], true, nil
}

// SetSingle claims focus for a single record, replacing whatever stack the
// channel had. Flat focus model for views that do not stack.
func (ix *Index) SetSingle(ctx context.Context, channel string, recordID uuid.UUID) error {
	release, err := ix.locks.Acquire(ctx, channel)
	if err != nil {
		return err
	}
	defer release()

	if err := ix.store.PutFocusStack(ctx, channel, []uuid.UUID{recordID}); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to store focus stack")
	}
	return nil
}

// Clear releases the channel's focus entirely.
func (ix *Index) Clear(ctx context.Context, channel string) error {
	release, err := ix.locks.Acquire(ctx, channel)
	if err != nil {
		return err
	}
	defer release()

	if err := ix.store.PutFocusStack(ctx, channel, nil); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to clear focus stack")
	}
	return nil
}

// Remove takes recordID out of the channel's stack wherever it sits. When the
// removed record was the top, the new top is re-enabled. Used when a view is
// untracked out of band (replace, delete).
func (ix *Index) Remove(ctx context.Context, channel string, recordID uuid.UUID) error {
	release, err := ix.locks.Acquire(ctx, channel)
	if err != nil {
		return err
	}
	defer release()

	stack, err := ix.store.FocusStack(ctx, channel)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreRead, "failed to load focus stack")
	}

	idx := -1
	for i, id := range stack {
		if id == recordID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	wasTop := idx == len(stack)-1
	stack = append(stack[:idx], stack[idx+1:]...)

	if wasTop && len(stack) > 0 {
		if err := ix.setEnabled(ctx, stack[len(stack)-1], true); err != nil {
			return err
		}
	}
	if err := ix.store.PutFocusStack(ctx, channel, stack); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to store focus stack")
	}
	return nil
}

// Replace swaps oldID for newID in the channel's stack in place, keeping its
// position. The channel is untouched when oldID is not stacked. Used when a
// new view takes over another view's message.
func (ix *Index) Replace(ctx context.Context, channel string, oldID, newID uuid.UUID) error {
	release, err := ix.locks.Acquire(ctx, channel)
	if err != nil {
		return err
	}
	defer release()

	stack, err := ix.store.FocusStack(ctx, channel)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreRead, "failed to load focus stack")
	}
	for i, id := range stack {
		if id == oldID {
			stack[i] = newID
			if err := ix.store.PutFocusStack(ctx, channel, stack); err != nil {
				return errors.Wrap(err, errors.CodeStoreWrite, "failed to store focus stack")
			}
			return nil
		}
	}
	return nil
}

// setEnabled flips the button-eligibility flag on a record. A record missing
// from the store is skipped: it may have been untracked concurrently and the
// stack entry is then stale, not fatal.
func (ix *Index) setEnabled(ctx context.Context, recordID uuid.UUID, enabled bool) error {
	rec, err := ix.store.GetRecord(ctx, recordID)
	if err == store.ErrNotFound {
		ix.log.Warn(logging.CategoryFocus, "stale_entry", "focus stack references missing record", map[string]any{
			"record": recordID.String(),
		})
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreRead, "failed to load record for focus toggle")
	}
	if rec.Enabled == enabled {
		return nil
	}
	rec.Enabled = enabled
	if err := ix.store.PutRecord(ctx, rec); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to toggle record enablement")
	}
	return nil
}

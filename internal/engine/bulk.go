package engine

import (
	"context"
	"fmt"

	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/overlay"
)

// BulkAction applies one action to the current selection.
//
// mark_read and mark_unread are purely local: the overlay and the
// in-memory records are updated and no gateway call is made.
//
// delete, archive, and restore commit locally first and then issue one
// batch call to the gateway. The local change is never reversed: a
// warning response (some items failed on the provider) is logged and
// the lists stay mutated, accepting silent divergence until the next
// full sync. The selection is cleared on completion no matter what the
// gateway said.
func (e *Engine) BulkAction(ctx context.Context, action gateway.Action) error {
	e.mu.Lock()
	ids := e.selectedLocked()
	if len(ids) == 0 {
		e.mu.Unlock()
		return ErrEmptySelection
	}

	if !action.RemoteAction() {
		e.applyReadStateLocked(ids, action == gateway.ActionMarkRead)
		e.selection = make(map[int64]struct{})
		e.mu.Unlock()
		return nil
	}

	e.removeRecordsLocked(ids)
	e.selection = make(map[int64]struct{})
	e.mu.Unlock()

	resp, err := e.gw.BulkMutate(ctx, ids, action)
	if err != nil {
		e.logger.Warn("bulk mutation failed remotely, local change kept",
			"action", action,
			"count", len(ids),
			"error", err)
		return fmt.Errorf("bulk %s: %w", action, err)
	}
	if resp.Status == gateway.StatusWarning {
		// The gateway does not say which items failed; local and remote
		// state may now diverge until the next full sync.
		e.logger.Warn("bulk mutation partially failed on provider",
			"action", action,
			"count", len(ids),
			"message", resp.Message)
	}
	return nil
}

// SingleAction applies delete/archive/restore to one record with the
// same optimistic policy as BulkAction. A delete of a record already in
// the trash folder is permanent.
func (e *Engine) SingleAction(ctx context.Context, id int64, action gateway.Action) error {
	if !action.RemoteAction() {
		return fmt.Errorf("action %q is not a single-message operation", action)
	}

	e.mu.Lock()
	permanent := false
	if action == gateway.ActionDelete {
		if idx := indexByID(e.emails, id); idx >= 0 {
			permanent = e.emails[idx].Folder == model.FolderTrash
		}
	}
	e.removeRecordsLocked([]int64{id})
	delete(e.selection, id)
	e.mu.Unlock()

	resp, err := e.gw.SingleMutate(ctx, id, action, permanent)
	if err != nil {
		e.logger.Warn("single mutation failed remotely, local change kept",
			"action", action,
			"id", id,
			"error", err)
		return fmt.Errorf("%s of message %d: %w", action, id, err)
	}
	if resp.Status == gateway.StatusWarning {
		e.logger.Warn("single mutation warning",
			"action", action,
			"id", id,
			"message", resp.Message)
	}
	return nil
}

// applyReadStateLocked sets the read flag for the given ids in the
// overlay and both visible lists. Must be called with e.mu held.
func (e *Engine) applyReadStateLocked(ids []int64, isRead bool) {
	for _, id := range ids {
		idx := indexByID(e.emails, id)
		list := e.emails
		if idx < 0 {
			idx = indexByID(e.searchResults, id)
			list = e.searchResults
		}
		if idx < 0 {
			continue
		}
		rec := list[idx]
		e.overlay.Set(rec.CompositeKey(), rec.Folder, overlay.Patch{IsRead: &isRead})
		e.applyFlagsLocked(id, &isRead, nil)
	}
}

// removeRecordsLocked drops the given ids from both visible lists and
// closes the open view if it is among them. Must be called with e.mu
// held.
func (e *Engine) removeRecordsLocked(ids []int64) {
	affected := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		affected[id] = struct{}{}
	}

	e.emails = withoutIDs(e.emails, affected)
	e.searchResults = withoutIDs(e.searchResults, affected)

	if _, ok := affected[e.openID]; ok {
		e.openID = 0
	}
}

// withoutIDs returns the list minus the given ids, preserving order.
func withoutIDs(list []model.EmailRecord, ids map[int64]struct{}) []model.EmailRecord {
	kept := list[:0:0]
	for _, rec := range list {
		if _, ok := ids[rec.ID]; !ok {
			kept = append(kept, rec)
		}
	}
	return kept
}

package engine

import (
	"context"
	"fmt"

	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
)

// ManualSync runs the full-merge path: ask the gateway to refresh the
// folder from the provider, then replace the visible list with a fresh
// page-one fetch. At most one manual sync runs at a time; a second
// request while one is in flight is rejected with ErrSyncInFlight.
// Transport failures are returned to the caller and leave the visible
// list untouched.
func (e *Engine) ManualSync(ctx context.Context) error {
	e.mu.Lock()
	if e.state.ManualBusy {
		e.mu.Unlock()
		return ErrSyncInFlight
	}
	e.state.ManualBusy = true
	folder := e.folder
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.state.ManualBusy = false
		e.mu.Unlock()
	}()

	ack, err := e.gw.FullSync(ctx, folder, e.opts.FullSyncLimit)
	if err != nil {
		return fmt.Errorf("manual sync: %w", err)
	}
	if ack.Status == gateway.StatusWarning {
		// Provider-side oddity (e.g. no sent folder); the listing is
		// still authoritative, so carry on with the fetch.
		e.logger.Warn("full sync warning", "folder", folder, "message", ack.Message)
	}

	page, err := e.gw.FetchPage(ctx, folder, 1, e.opts.PageSize)
	if err != nil {
		return fmt.Errorf("manual sync: %w", err)
	}

	return e.installPage(folder, page, true)
}

// AutoSyncTick runs the incremental-merge path if the guards allow it.
// It reports whether a sync actually ran; skipped ticks are silent and
// transport failures are logged, never surfaced.
func (e *Engine) AutoSyncTick(ctx context.Context) bool {
	e.mu.Lock()
	if !e.state.AutoSyncEnabled || e.state.ManualBusy || e.state.AutoBusy {
		e.mu.Unlock()
		return false
	}
	if e.now().Sub(e.state.LastSyncAt) < e.opts.MinInterval {
		e.mu.Unlock()
		return false
	}
	e.state.AutoBusy = true
	folder := e.folder
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.state.AutoBusy = false
		e.mu.Unlock()
	}()

	candidates, err := e.gw.IncrementalSync(ctx, folder)
	if err != nil {
		e.logger.Warn("auto sync failed", "folder", folder, "error", err)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.folder != folder {
		e.logger.Debug("discarding stale auto sync result",
			"fetched", folder,
			"active", e.folder)
		return false
	}

	e.emails = e.mergeIncrementalLocked(candidates, folder)
	e.state.LastSyncAt = e.now()
	return true
}

// SwitchFolder changes the active folder, clears the selection, closes
// any open record, and loads the folder's first page.
func (e *Engine) SwitchFolder(ctx context.Context, folder string) error {
	e.mu.Lock()
	e.folder = folder
	e.selection = make(map[int64]struct{})
	e.openID = 0
	e.searchQuery = ""
	e.searchResults = nil
	e.mu.Unlock()

	return e.LoadPage(ctx, 1)
}

// LoadPage fetches and installs one listing page for the active folder.
func (e *Engine) LoadPage(ctx context.Context, page int) error {
	e.mu.Lock()
	folder := e.folder
	e.mu.Unlock()

	result, err := e.gw.FetchPage(ctx, folder, page, e.opts.PageSize)
	if err != nil {
		return fmt.Errorf("loading %s page %d: %w", folder, page, err)
	}

	return e.installPage(folder, result, false)
}

// installPage replaces the visible list with a decorated copy of the
// fetched page, preserving the gateway's return order. The response is
// discarded when the user has switched folders since the request was
// issued; merging it would contaminate the new folder's list.
func (e *Engine) installPage(folder string, page *gateway.Page, markSynced bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.folder != folder {
		e.logger.Debug("discarding stale page",
			"fetched", folder,
			"active", e.folder)
		return ErrStaleFolder
	}

	e.emails = e.mergeFullLocked(page.Emails)
	e.totalEmails = page.TotalEmails
	e.currentPage = page.CurrentPage
	e.totalPages = page.TotalPages
	e.pruneSelectionLocked()
	if markSynced {
		e.state.LastSyncAt = e.now()
	}
	return nil
}

// mergeFullLocked builds a fresh visible list from a gateway listing,
// attaching each record's annotation (creating the folder default for
// keys never seen). Order is the gateway's, assumed newest-first; the
// engine does not re-sort. Must be called with e.mu held.
func (e *Engine) mergeFullLocked(records []model.EmailRecord) []model.EmailRecord {
	merged := make([]model.EmailRecord, 0, len(records))
	seen := make(map[int64]struct{}, len(records))

	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}

		ann := e.overlay.Get(rec.CompositeKey(), rec.Folder)
		rec.IsRead = ann.IsRead
		rec.IsStarred = ann.IsStarred
		merged = append(merged, rec)
	}
	return merged
}

// mergeIncrementalLocked prepends new candidates to the visible list.
// A candidate whose identifier already appears in the list is dropped;
// the check is identifier-only, deliberately narrower than the
// composite-key lookups the overlay uses. Surviving candidates get a
// fresh default annotation, which resets any prior annotation for the
// same composite key unless PreserveAnnotations is set. Must be called
// with e.mu held.
func (e *Engine) mergeIncrementalLocked(
	candidates []model.EmailRecord,
	folder string,
) []model.EmailRecord {
	seen := make(map[int64]struct{}, len(e.emails))
	for _, rec := range e.emails {
		seen[rec.ID] = struct{}{}
	}

	survivors := make([]model.EmailRecord, 0, len(candidates))
	for _, rec := range candidates {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}

		key := rec.CompositeKey()
		var ann model.Annotation
		if e.opts.PreserveAnnotations && e.overlay.Has(key) {
			ann = e.overlay.Get(key, folder)
		} else {
			ann = e.overlay.Reset(key, folder)
		}
		rec.IsRead = ann.IsRead
		rec.IsStarred = ann.IsStarred
		survivors = append(survivors, rec)
	}

	return append(survivors, e.emails...)
}

// pruneSelectionLocked drops selected ids that are no longer present in
// the visible list, keeping the selection a subset of it. Must be
// called with e.mu held.
func (e *Engine) pruneSelectionLocked() {
	if len(e.selection) == 0 {
		return
	}
	present := make(map[int64]struct{}, len(e.emails))
	for _, rec := range e.emails {
		present[rec.ID] = struct{}{}
	}
	for id := range e.selection {
		if _, ok := present[id]; !ok {
			delete(e.selection, id)
		}
	}
}

package engine

import (
	"context"
	"fmt"

	"github.com/Somdatta-dev/ace-mail/internal/model"
)

// Search queries the gateway for messages in the active folder matching
// the query and installs the decorated results as the search list. The
// search path is read-only with respect to the folder list and the
// overlay: results get their flags from the same lookups the reconciler
// uses, but nothing is written back.
func (e *Engine) Search(ctx context.Context, query string) error {
	e.mu.Lock()
	folder := e.folder
	e.mu.Unlock()

	records, err := e.gw.Search(ctx, query, folder, 1, e.opts.PageSize*2)
	if err != nil {
		return fmt.Errorf("searching for %q: %w", query, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.folder != folder {
		e.logger.Debug("discarding stale search result",
			"fetched", folder,
			"active", e.folder)
		return ErrStaleFolder
	}

	decorated := make([]model.EmailRecord, 0, len(records))
	for _, rec := range records {
		ann := e.overlay.Get(rec.CompositeKey(), rec.Folder)
		rec.IsRead = ann.IsRead
		rec.IsStarred = ann.IsStarred
		decorated = append(decorated, rec)
	}

	e.searchQuery = query
	e.searchResults = decorated
	return nil
}

// SearchResults returns a copy of the current search list.
func (e *Engine) SearchResults() []model.EmailRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.EmailRecord(nil), e.searchResults...)
}

// SearchQuery returns the query behind the current search list, or ""
// when no search is active.
func (e *Engine) SearchQuery() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchQuery
}

// ClearSearch drops the search list.
func (e *Engine) ClearSearch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.searchQuery = ""
	e.searchResults = nil
}

// Package engine owns the client-resident mail state: the per-folder
// visible list, the selection set, sync state, and the merge and
// mutation paths that keep them consistent. The gateway is authoritative
// for content and folder membership; the engine layers the local
// annotation overlay on top and applies mutations optimistically.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/overlay"
	"github.com/Somdatta-dev/ace-mail/internal/store"
)

var (
	// ErrSyncInFlight is returned when a manual sync is requested while
	// another manual sync is still running. The request is rejected, not
	// queued.
	ErrSyncInFlight = errors.New("manual sync already in flight")

	// ErrStaleFolder is returned when a fetch completes after the user
	// has switched away from its target folder; the response is
	// discarded instead of being merged into the wrong folder.
	ErrStaleFolder = errors.New("response folder no longer active")

	// ErrEmptySelection is returned when a bulk action is requested
	// with nothing selected.
	ErrEmptySelection = errors.New("no messages selected")
)

// SyncState tracks the engine's sync bookkeeping. One instance per
// engine; nothing here is package-global, so independent engines (e.g.
// one per account) cannot interfere with each other. Only
// AutoSyncEnabled is persisted.
type SyncState struct {
	ManualBusy      bool
	AutoBusy        bool
	LastSyncAt      time.Time
	AutoSyncEnabled bool
}

// Options are the engine tunables, taken from SyncConfig.
type Options struct {
	PageSize      int
	FullSyncLimit int
	MinInterval   time.Duration

	// PreserveAnnotations keeps an existing annotation for a composite
	// key re-sighted by an incremental merge. Off by default: a
	// re-sighted key is reset to the folder default.
	PreserveAnnotations bool
}

// Engine is the single owner of the visible lists and selection. All
// state transitions happen under one mutex, so a reader never observes
// a half-merged list.
type Engine struct {
	gw      gateway.Gateway
	overlay *overlay.Overlay
	store   store.Store
	logger  *slog.Logger
	opts    Options
	now     func() time.Time

	mu            sync.Mutex
	folder        string
	emails        []model.EmailRecord
	searchQuery   string
	searchResults []model.EmailRecord
	selection     map[int64]struct{}
	openID        int64 // 0 when no record is open
	totalEmails   int
	currentPage   int
	totalPages    int
	state         SyncState
}

// New creates an engine for the given folder. The persisted auto-sync
// toggle is restored from the store; it defaults to enabled when never
// written.
func New(
	gw gateway.Gateway,
	ov *overlay.Overlay,
	st store.Store,
	logger *slog.Logger,
	folder string,
	opts Options,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.FullSyncLimit <= 0 {
		opts.FullSyncLimit = 200
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 10 * time.Second
	}
	if folder == "" {
		folder = model.FolderInbox
	}

	e := &Engine{
		gw:        gw,
		overlay:   ov,
		store:     st,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		folder:    folder,
		selection: make(map[int64]struct{}),
		state:     SyncState{AutoSyncEnabled: true},
	}
	e.restoreAutoSyncSetting()
	return e
}

// restoreAutoSyncSetting reads the persisted toggle from the store.
func (e *Engine) restoreAutoSyncSetting() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	value, ok, err := e.store.GetSetting(ctx, store.SettingAutoSync)
	if err != nil {
		e.logger.Warn("reading auto-sync setting failed", "error", err)
		return
	}
	if ok {
		e.state.AutoSyncEnabled = value == "true"
	}
}

// Folder returns the active folder.
func (e *Engine) Folder() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.folder
}

// Emails returns a copy of the visible list for the active folder.
func (e *Engine) Emails() []model.EmailRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.EmailRecord(nil), e.emails...)
}

// Pagination returns the listing totals from the last fetch.
func (e *Engine) Pagination() (total, page, pages int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalEmails, e.currentPage, e.totalPages
}

// State returns a copy of the sync state.
func (e *Engine) State() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// UnreadCount returns how many visible records are unread.
func (e *Engine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, rec := range e.emails {
		if !rec.IsRead {
			count++
		}
	}
	return count
}

// SetAutoSync flips the auto-sync toggle and persists it. The scheduler
// re-arms or cancels its timer based on the same call.
func (e *Engine) SetAutoSync(ctx context.Context, enabled bool) {
	e.mu.Lock()
	e.state.AutoSyncEnabled = enabled
	e.mu.Unlock()

	value := "false"
	if enabled {
		value = "true"
	}
	if err := e.store.SetSetting(ctx, store.SettingAutoSync, value); err != nil {
		e.logger.Warn("persisting auto-sync setting failed", "error", err)
	}
}

// AutoSyncEnabled reports the current toggle.
func (e *Engine) AutoSyncEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.AutoSyncEnabled
}

// Open marks a record as the open single-record view and marks it read.
// Returns the decorated record.
func (e *Engine) Open(id int64) (model.EmailRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := indexByID(e.emails, id)
	list := e.emails
	if idx < 0 {
		idx = indexByID(e.searchResults, id)
		list = e.searchResults
	}
	if idx < 0 {
		return model.EmailRecord{}, fmt.Errorf("message %d not in any visible list", id)
	}

	rec := list[idx]
	if !rec.IsRead {
		isRead := true
		e.overlay.Set(rec.CompositeKey(), rec.Folder, overlay.Patch{IsRead: &isRead})
		e.applyFlagsLocked(id, &isRead, nil)
		rec.IsRead = true
	}
	e.openID = id
	return rec, nil
}

// OpenID returns the id of the open record, or 0 when none is open.
func (e *Engine) OpenID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openID
}

// CloseView closes the single-record view.
func (e *Engine) CloseView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openID = 0
}

// ToggleStar flips the starred flag of one record. Purely local: the
// gateway has no notion of stars.
func (e *Engine) ToggleStar(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := indexByID(e.emails, id)
	list := e.emails
	if idx < 0 {
		idx = indexByID(e.searchResults, id)
		list = e.searchResults
	}
	if idx < 0 {
		return fmt.Errorf("message %d not in any visible list", id)
	}

	rec := list[idx]
	starred := !rec.IsStarred
	e.overlay.Set(rec.CompositeKey(), rec.Folder, overlay.Patch{IsStarred: &starred})
	e.applyFlagsLocked(id, nil, &starred)
	return nil
}

// applyFlagsLocked updates the in-memory copies of a record in both
// visible lists. Must be called with e.mu held.
func (e *Engine) applyFlagsLocked(id int64, isRead, isStarred *bool) {
	for _, list := range [][]model.EmailRecord{e.emails, e.searchResults} {
		if idx := indexByID(list, id); idx >= 0 {
			if isRead != nil {
				list[idx].IsRead = *isRead
			}
			if isStarred != nil {
				list[idx].IsStarred = *isStarred
			}
		}
	}
}

// indexByID returns the position of id in list, or -1.
func indexByID(list []model.EmailRecord, id int64) int {
	for i, rec := range list {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

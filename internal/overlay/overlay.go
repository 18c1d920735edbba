// Package overlay holds the client-only read/starred annotation layer.
// The gateway is the source of truth for message content and folder
// membership but knows nothing about these flags; they live here, keyed
// by composite key, and survive restarts through a snapshot in the
// local store.
package overlay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/store"
)

// defaultDebounce batches rapid successive writes into one snapshot.
const defaultDebounce = 100 * time.Millisecond

// Patch is a partial annotation update. Nil fields are preserved from
// the existing entry, or take the folder default when the key is new.
type Patch struct {
	IsRead    *bool
	IsStarred *bool
}

// Overlay is the in-memory annotation map. Memory is authoritative for
// the whole session: snapshot writes are fire-and-forget, and a failed
// write is logged and never retried or surfaced.
type Overlay struct {
	store    store.Store
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	entries map[string]model.Annotation
	timer   *time.Timer
}

// New creates an empty overlay backed by the given store.
func New(s store.Store, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{
		store:    s,
		logger:   logger,
		debounce: defaultDebounce,
		entries:  make(map[string]model.Annotation),
	}
}

// WithDebounce overrides the snapshot debounce window. Zero flushes
// synchronously on every write; tests use that to avoid timing races.
func (o *Overlay) WithDebounce(d time.Duration) *Overlay {
	o.debounce = d
	return o
}

// Load replaces the in-memory state with the persisted snapshot. A load
// failure degrades to an empty overlay so a corrupt snapshot can never
// prevent startup.
func (o *Overlay) Load(ctx context.Context) {
	entries, err := o.store.LoadAnnotations(ctx)
	if err != nil {
		o.logger.Warn("annotation snapshot unreadable, starting empty", "error", err)
		entries = make(map[string]model.Annotation)
	}

	o.mu.Lock()
	o.entries = entries
	o.mu.Unlock()
}

// Get returns the annotation for a key, or the folder default when the
// key has never been written. Reads never create entries.
func (o *Overlay) Get(key, folder string) model.Annotation {
	o.mu.Lock()
	defer o.mu.Unlock()

	if entry, ok := o.entries[key]; ok {
		return entry
	}
	return model.DefaultAnnotation(folder)
}

// Has reports whether the key has a written entry.
func (o *Overlay) Has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.entries[key]
	return ok
}

// Set merges the patch over the existing entry, creating it from the
// folder default first when absent, and schedules a snapshot write.
func (o *Overlay) Set(key, folder string, patch Patch) model.Annotation {
	o.mu.Lock()

	entry, ok := o.entries[key]
	if !ok {
		entry = model.DefaultAnnotation(folder)
	}
	if patch.IsRead != nil {
		entry.IsRead = *patch.IsRead
	}
	if patch.IsStarred != nil {
		entry.IsStarred = *patch.IsStarred
	}
	o.entries[key] = entry

	pending := o.armFlushLocked()
	o.mu.Unlock()

	if pending != nil {
		o.persist(pending)
	}
	return entry
}

// Reset writes a fresh folder-default entry for the key, discarding any
// prior annotation, and schedules a snapshot write.
func (o *Overlay) Reset(key, folder string) model.Annotation {
	o.mu.Lock()

	entry := model.DefaultAnnotation(folder)
	o.entries[key] = entry

	pending := o.armFlushLocked()
	o.mu.Unlock()

	if pending != nil {
		o.persist(pending)
	}
	return entry
}

// Len returns the number of written entries. Entries are never evicted,
// so this only grows within a session.
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// armFlushLocked arms (or re-arms) the debounce timer. With debouncing
// disabled it instead returns a snapshot for the caller to persist once
// the lock is released. Must be called with o.mu held.
func (o *Overlay) armFlushLocked() map[string]model.Annotation {
	if o.debounce <= 0 {
		return o.snapshotLocked()
	}

	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, func() {
		o.mu.Lock()
		snapshot := o.snapshotLocked()
		o.timer = nil
		o.mu.Unlock()
		o.persist(snapshot)
	})
	return nil
}

// snapshotLocked copies the current entries. Must be called with o.mu held.
func (o *Overlay) snapshotLocked() map[string]model.Annotation {
	snapshot := make(map[string]model.Annotation, len(o.entries))
	for key, entry := range o.entries {
		snapshot[key] = entry
	}
	return snapshot
}

// Flush writes the current state immediately, cancelling any pending
// debounced write. Called on shutdown.
func (o *Overlay) Flush() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	snapshot := o.snapshotLocked()
	o.mu.Unlock()

	o.persist(snapshot)
}

// persist writes a snapshot to the store. Failures are logged and
// dropped; the in-memory state stays correct for the session.
func (o *Overlay) persist(snapshot map[string]model.Annotation) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.store.ReplaceAnnotations(ctx, snapshot); err != nil {
		o.logger.Warn("annotation snapshot write failed", "error", err)
	}
}

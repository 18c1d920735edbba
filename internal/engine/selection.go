package engine

import (
	"fmt"
	"sort"
)

// ToggleSelect adds or removes one id from the selection. Only ids
// present in the active folder's visible list may be selected; the
// selection is always a subset of it.
func (e *Engine) ToggleSelect(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.selection[id]; ok {
		delete(e.selection, id)
		return nil
	}
	if indexByID(e.emails, id) < 0 {
		return fmt.Errorf("message %d not in the visible list", id)
	}
	e.selection[id] = struct{}{}
	return nil
}

// SelectAll selects every record in the visible list.
func (e *Engine) SelectAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selection = make(map[int64]struct{}, len(e.emails))
	for _, rec := range e.emails {
		e.selection[rec.ID] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection = make(map[int64]struct{})
}

// Selected returns the selected ids in ascending order.
func (e *Engine) Selected() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedLocked()
}

// IsSelected reports whether the id is in the selection.
func (e *Engine) IsSelected(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.selection[id]
	return ok
}

// selectedLocked returns the selected ids sorted. Must be called with
// e.mu held.
func (e *Engine) selectedLocked() []int64 {
	ids := make([]int64, 0, len(e.selection))
	for id := range e.selection {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

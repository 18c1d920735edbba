package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/overlay"
	"github.com/Somdatta-dev/ace-mail/tests/testutil"
)

func TestSearchDecoratesResults(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, ov, _ := newTestEngine(t, fake, Options{PageSize: 10})

	starred := true
	ov.Set("2:msg-2", model.FolderInbox, overlay.Patch{IsStarred: &starred})

	var gotQuery, gotFolder string
	var gotPageSize int
	fake.SearchFunc = func(query, folder string, page, pageSize int) ([]model.EmailRecord, error) {
		gotQuery, gotFolder, gotPageSize = query, folder, pageSize
		return []model.EmailRecord{
			testutil.NewRecord(2, model.FolderInbox, "msg-2"),
			testutil.NewRecord(1, model.FolderInbox, "msg-1"),
		}, nil
	}

	if err := e.Search(context.Background(), "invoice"); err != nil {
		t.Fatalf("Search() = %v", err)
	}

	if gotQuery != "invoice" || gotFolder != model.FolderInbox {
		t.Errorf("searched %q in %q, want %q in inbox", gotQuery, gotFolder, "invoice")
	}
	if gotPageSize != 20 {
		t.Errorf("search page size = %d, want twice the listing size", gotPageSize)
	}

	results := e.SearchResults()
	if len(results) != 2 {
		t.Fatalf("results length = %d, want 2", len(results))
	}
	if !results[0].IsStarred {
		t.Error("annotation not applied to search result")
	}
	if e.SearchQuery() != "invoice" {
		t.Errorf("SearchQuery() = %q, want %q", e.SearchQuery(), "invoice")
	}

	// The search path never touches the folder list.
	if got := e.Emails(); len(got) != 0 {
		t.Errorf("search wrote into the folder list: %v", got)
	}
}

func TestSearchDoesNotCreateOverlayEntries(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, ov, _ := newTestEngine(t, fake, Options{})

	fake.SearchFunc = func(string, string, int, int) ([]model.EmailRecord, error) {
		return []model.EmailRecord{testutil.NewRecord(1, model.FolderInbox, "msg-1")}, nil
	}

	if err := e.Search(context.Background(), "test"); err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if ov.Len() != 0 {
		t.Errorf("overlay entries after search = %d, want 0", ov.Len())
	}
}

func TestSearchStaleFolderDiscarded(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	fake.SearchFunc = func(_, folder string, _, _ int) ([]model.EmailRecord, error) {
		e.mu.Lock()
		e.folder = model.FolderSent
		e.mu.Unlock()
		return []model.EmailRecord{testutil.NewRecord(1, folder, "msg-1")}, nil
	}

	err := e.Search(context.Background(), "test")
	if !errors.Is(err, ErrStaleFolder) {
		t.Fatalf("Search() = %v, want ErrStaleFolder", err)
	}
	if got := e.SearchResults(); len(got) != 0 {
		t.Errorf("stale search installed: %v", got)
	}
}

func TestClearSearch(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	fake.SearchFunc = func(string, string, int, int) ([]model.EmailRecord, error) {
		return []model.EmailRecord{testutil.NewRecord(1, model.FolderInbox, "msg-1")}, nil
	}
	if err := e.Search(context.Background(), "test"); err != nil {
		t.Fatalf("Search() = %v", err)
	}

	e.ClearSearch()
	if e.SearchQuery() != "" || len(e.SearchResults()) != 0 {
		t.Error("search state survived ClearSearch")
	}
}

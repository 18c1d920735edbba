package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/overlay"
	"github.com/Somdatta-dev/ace-mail/tests/testutil"
)

func TestManualSyncReplacesVisibleList(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, ov, _ := newTestEngine(t, fake, Options{})

	starred := true
	ov.Set("2:msg-2", model.FolderInbox, overlay.Patch{IsStarred: &starred})

	fake.FetchPageFunc = func(folder string, page, pageSize int) (*gateway.Page, error) {
		return &gateway.Page{
			Emails: []model.EmailRecord{
				testutil.NewRecord(3, model.FolderInbox, "msg-3"),
				testutil.NewRecord(2, model.FolderInbox, "msg-2"),
				testutil.NewRecord(1, model.FolderInbox, "msg-1"),
			},
			TotalEmails: 3,
			CurrentPage: 1,
			TotalPages:  1,
		}, nil
	}

	if err := e.ManualSync(context.Background()); err != nil {
		t.Fatalf("ManualSync() = %v", err)
	}

	calls := fake.Calls()
	if calls.FullSync != 1 || calls.FetchPage != 1 {
		t.Errorf("calls = %+v, want one full sync and one page fetch", calls)
	}

	emails := e.Emails()
	if len(emails) != 3 {
		t.Fatalf("list length = %d, want 3", len(emails))
	}
	// Gateway order is preserved, newest first.
	if emails[0].ID != 3 || emails[1].ID != 2 || emails[2].ID != 1 {
		t.Errorf("list order = %d,%d,%d, want 3,2,1",
			emails[0].ID, emails[1].ID, emails[2].ID)
	}
	if !emails[1].IsStarred {
		t.Error("existing annotation not applied during full merge")
	}
	if e.State().LastSyncAt.IsZero() {
		t.Error("LastSyncAt not recorded")
	}
}

func TestManualSyncContinuesOnWarning(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	fake.FullSyncFunc = func(string, int) (*gateway.SyncAck, error) {
		return &gateway.SyncAck{
			Status:  gateway.StatusWarning,
			Message: "sent folder not found on server",
		}, nil
	}
	fake.FetchPageFunc = func(string, int, int) (*gateway.Page, error) {
		return &gateway.Page{
			Emails:      []model.EmailRecord{testutil.NewRecord(1, model.FolderInbox, "msg-1")},
			TotalEmails: 1,
			CurrentPage: 1,
			TotalPages:  1,
		}, nil
	}

	if err := e.ManualSync(context.Background()); err != nil {
		t.Fatalf("ManualSync() = %v, want nil on warning", err)
	}
	if len(e.Emails()) != 1 {
		t.Error("listing not installed after warning ack")
	}
}

func TestManualSyncFailureLeavesListUntouched(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderInbox, "msg-1"),
	})

	fake.FullSyncFunc = func(string, int) (*gateway.SyncAck, error) {
		return nil, fmt.Errorf("gateway unreachable")
	}

	if err := e.ManualSync(context.Background()); err == nil {
		t.Fatal("ManualSync() = nil, want transport error")
	}
	if got := e.Emails(); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("visible list changed on failed sync: %v", got)
	}
	if e.State().ManualBusy {
		t.Error("ManualBusy stuck after failure")
	}
}

func TestManualSyncRejectsConcurrentRequest(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	started := make(chan struct{})
	release := make(chan struct{})
	fake.FullSyncFunc = func(string, int) (*gateway.SyncAck, error) {
		close(started)
		<-release
		return &gateway.SyncAck{Status: gateway.StatusSuccess}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- e.ManualSync(context.Background())
	}()

	<-started
	if !e.State().ManualBusy {
		t.Error("ManualBusy not set while sync in flight")
	}
	if err := e.ManualSync(context.Background()); !errors.Is(err, ErrSyncInFlight) {
		t.Errorf("second ManualSync() = %v, want ErrSyncInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first ManualSync() = %v", err)
	}
	if e.State().ManualBusy {
		t.Error("ManualBusy still set after completion")
	}
	if fake.Calls().FullSync != 1 {
		t.Errorf("FullSync calls = %d, want 1", fake.Calls().FullSync)
	}
}

func TestAutoSyncPrependsNewRecords(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(4, model.FolderInbox, "msg-4"),
		testutil.NewRecord(3, model.FolderInbox, "msg-3"),
	})

	fake.IncrementalFunc = func(string) ([]model.EmailRecord, error) {
		return []model.EmailRecord{testutil.NewRecord(5, model.FolderInbox, "msg-5")}, nil
	}

	if !e.AutoSyncTick(context.Background()) {
		t.Fatal("AutoSyncTick() = false, want a sync to run")
	}

	emails := e.Emails()
	if len(emails) != 3 {
		t.Fatalf("list length = %d, want 3", len(emails))
	}
	if emails[0].ID != 5 {
		t.Errorf("new record at index %d, want 0", indexByID(emails, 5))
	}
	if emails[0].IsRead || emails[0].IsStarred {
		t.Error("new inbox record should carry the unread, unstarred default")
	}
}

func TestAutoSyncDropsDuplicateIdentifiers(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(5, model.FolderInbox, "msg-5"),
	})

	fake.IncrementalFunc = func(string) ([]model.EmailRecord, error) {
		return []model.EmailRecord{
			testutil.NewRecord(5, model.FolderInbox, "msg-5"),
			testutil.NewRecord(6, model.FolderInbox, "msg-6"),
			testutil.NewRecord(6, model.FolderInbox, "msg-6"),
		}, nil
	}

	if !e.AutoSyncTick(context.Background()) {
		t.Fatal("AutoSyncTick() = false, want a sync to run")
	}

	emails := e.Emails()
	byID := make(map[int64]int)
	for _, rec := range emails {
		byID[rec.ID]++
	}
	for id, n := range byID {
		if n != 1 {
			t.Errorf("id %d appears %d times", id, n)
		}
	}
	if len(emails) != 2 {
		t.Errorf("list length = %d, want 2", len(emails))
	}
}

func TestAutoSyncResetsReSightedAnnotation(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, ov, _ := newTestEngine(t, fake, Options{})

	// The key was starred in a previous session, then the record left
	// the visible list.
	starred := true
	ov.Set("5:msg-5", model.FolderInbox, overlay.Patch{IsStarred: &starred})

	fake.IncrementalFunc = func(string) ([]model.EmailRecord, error) {
		return []model.EmailRecord{testutil.NewRecord(5, model.FolderInbox, "msg-5")}, nil
	}

	if !e.AutoSyncTick(context.Background()) {
		t.Fatal("AutoSyncTick() = false, want a sync to run")
	}

	if e.Emails()[0].IsStarred {
		t.Error("re-sighted key kept its old annotation, want folder default")
	}
	if ov.Get("5:msg-5", model.FolderInbox).IsStarred {
		t.Error("overlay entry not reset")
	}
}

func TestAutoSyncPreservesAnnotationWhenConfigured(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, ov, _ := newTestEngine(t, fake, Options{PreserveAnnotations: true})

	starred := true
	ov.Set("5:msg-5", model.FolderInbox, overlay.Patch{IsStarred: &starred})

	fake.IncrementalFunc = func(string) ([]model.EmailRecord, error) {
		return []model.EmailRecord{testutil.NewRecord(5, model.FolderInbox, "msg-5")}, nil
	}

	if !e.AutoSyncTick(context.Background()) {
		t.Fatal("AutoSyncTick() = false, want a sync to run")
	}

	if !e.Emails()[0].IsStarred {
		t.Error("annotation lost despite preserve option")
	}
}

func TestAutoSyncThrottled(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{MinInterval: 10 * time.Second})

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	e.now = func() time.Time { return current }

	if !e.AutoSyncTick(context.Background()) {
		t.Fatal("first tick skipped")
	}

	current = base.Add(3 * time.Second)
	if e.AutoSyncTick(context.Background()) {
		t.Error("tick inside the minimum interval ran a sync")
	}

	current = base.Add(11 * time.Second)
	if !e.AutoSyncTick(context.Background()) {
		t.Error("tick after the minimum interval skipped")
	}

	if got := fake.Calls().Incremental; got != 2 {
		t.Errorf("IncrementalSync calls = %d, want 2", got)
	}
}

func TestAutoSyncSkippedWhileDisabled(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	e.SetAutoSync(context.Background(), false)
	if e.AutoSyncTick(context.Background()) {
		t.Error("tick ran while auto-sync disabled")
	}
	if fake.Calls().Incremental != 0 {
		t.Error("gateway called while auto-sync disabled")
	}
}

func TestAutoSyncSkippedWhileManualBusy(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	started := make(chan struct{})
	release := make(chan struct{})
	fake.FullSyncFunc = func(string, int) (*gateway.SyncAck, error) {
		close(started)
		<-release
		return &gateway.SyncAck{Status: gateway.StatusSuccess}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- e.ManualSync(context.Background())
	}()

	<-started
	if e.AutoSyncTick(context.Background()) {
		t.Error("tick ran during a manual sync")
	}
	close(release)
	<-done

	if fake.Calls().Incremental != 0 {
		t.Error("gateway called during a manual sync")
	}
}

func TestAutoSyncFailureIsSwallowed(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderInbox, "msg-1"),
	})

	fake.IncrementalFunc = func(string) ([]model.EmailRecord, error) {
		return nil, fmt.Errorf("gateway unreachable")
	}

	if e.AutoSyncTick(context.Background()) {
		t.Error("failed tick reported a sync")
	}
	if got := e.Emails(); len(got) != 1 {
		t.Errorf("visible list changed on failed tick: %v", got)
	}
	if e.State().AutoBusy {
		t.Error("AutoBusy stuck after failure")
	}
}

func TestStaleFolderResponseDiscarded(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	fake.FetchPageFunc = func(folder string, page, pageSize int) (*gateway.Page, error) {
		if folder == model.FolderInbox {
			// The user switches folders while the fetch is in flight.
			e.mu.Lock()
			e.folder = model.FolderSent
			e.mu.Unlock()
		}
		return &gateway.Page{
			Emails:      []model.EmailRecord{testutil.NewRecord(9, folder, "msg-9")},
			TotalEmails: 1,
			CurrentPage: 1,
			TotalPages:  1,
		}, nil
	}

	err := e.LoadPage(context.Background(), 1)
	if !errors.Is(err, ErrStaleFolder) {
		t.Fatalf("LoadPage() = %v, want ErrStaleFolder", err)
	}
	if got := e.Emails(); len(got) != 0 {
		t.Errorf("stale response merged into list: %v", got)
	}
}

func TestStaleFolderAutoSyncDiscarded(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	fake.IncrementalFunc = func(folder string) ([]model.EmailRecord, error) {
		e.mu.Lock()
		e.folder = model.FolderArchive
		e.mu.Unlock()
		return []model.EmailRecord{testutil.NewRecord(9, folder, "msg-9")}, nil
	}

	if e.AutoSyncTick(context.Background()) {
		t.Error("stale tick reported a sync")
	}
	if got := e.Emails(); len(got) != 0 {
		t.Errorf("stale candidates merged into list: %v", got)
	}
	if !e.State().LastSyncAt.IsZero() {
		t.Error("LastSyncAt recorded for a discarded tick")
	}
}

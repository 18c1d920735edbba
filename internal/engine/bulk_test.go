package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/tests/testutil"
)

func TestBulkMarkReadIsLocalOnly(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, ov, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderInbox, "msg-1"),
		testutil.NewRecord(2, model.FolderInbox, "msg-2"),
	})
	e.SelectAll()

	if err := e.BulkAction(context.Background(), gateway.ActionMarkRead); err != nil {
		t.Fatalf("BulkAction(mark_read) = %v", err)
	}

	if fake.Calls().Bulk != 0 {
		t.Error("read-state change reached the gateway")
	}
	for _, rec := range e.Emails() {
		if !rec.IsRead {
			t.Errorf("message %d not marked read", rec.ID)
		}
	}
	if !ov.Get("1:msg-1", model.FolderInbox).IsRead {
		t.Error("overlay not updated")
	}
	if got := e.Selected(); len(got) != 0 {
		t.Errorf("selection not cleared: %v", got)
	}
}

func TestBulkMarkUnread(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderSent, "msg-1"),
	})
	e.SelectAll()

	if err := e.BulkAction(context.Background(), gateway.ActionMarkUnread); err != nil {
		t.Fatalf("BulkAction(mark_unread) = %v", err)
	}
	if e.Emails()[0].IsRead {
		t.Error("sent message still read after mark_unread")
	}
	if fake.Calls().Bulk != 0 {
		t.Error("read-state change reached the gateway")
	}
}

func TestBulkDeleteCommitsLocallyOnWarning(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderInbox, "msg-1"),
		testutil.NewRecord(2, model.FolderInbox, "msg-2"),
		testutil.NewRecord(3, model.FolderInbox, "msg-3"),
	})
	e.SelectAll()

	fake.BulkFunc = func(ids []int64, action gateway.Action) (*gateway.MutateResponse, error) {
		return &gateway.MutateResponse{
			Status:  gateway.StatusWarning,
			Message: "2 of 3 deleted",
		}, nil
	}

	if err := e.BulkAction(context.Background(), gateway.ActionDelete); err != nil {
		t.Fatalf("BulkAction(delete) = %v, want nil on warning", err)
	}

	if got := e.Emails(); len(got) != 0 {
		t.Errorf("records survived a warning delete: %v", got)
	}
	if got := e.Selected(); len(got) != 0 {
		t.Errorf("selection not cleared: %v", got)
	}
}

func TestBulkDeleteKeepsLocalChangeOnTransportFailure(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderInbox, "msg-1"),
		testutil.NewRecord(2, model.FolderInbox, "msg-2"),
	})
	e.SelectAll()

	fake.BulkFunc = func([]int64, gateway.Action) (*gateway.MutateResponse, error) {
		return nil, fmt.Errorf("gateway unreachable")
	}

	err := e.BulkAction(context.Background(), gateway.ActionArchive)
	if err == nil {
		t.Fatal("BulkAction() = nil, want transport error")
	}
	// The optimistic removal is never rolled back.
	if got := e.Emails(); len(got) != 0 {
		t.Errorf("records restored after transport failure: %v", got)
	}
	if got := e.Selected(); len(got) != 0 {
		t.Errorf("selection not cleared: %v", got)
	}
}

func TestBulkDeleteClosesOpenView(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderInbox, "msg-1"),
	})
	if _, err := e.Open(1); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if err := e.ToggleSelect(1); err != nil {
		t.Fatalf("ToggleSelect() = %v", err)
	}

	if err := e.BulkAction(context.Background(), gateway.ActionDelete); err != nil {
		t.Fatalf("BulkAction(delete) = %v", err)
	}
	if e.OpenID() != 0 {
		t.Error("open view survived deletion of its record")
	}
}

func TestBulkDeleteRemovesFromSearchResults(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	rec := testutil.NewRecord(1, model.FolderInbox, "msg-1")
	seedList(t, e, fake, []model.EmailRecord{rec})

	fake.SearchFunc = func(string, string, int, int) ([]model.EmailRecord, error) {
		return []model.EmailRecord{rec}, nil
	}
	if err := e.Search(context.Background(), "test"); err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if err := e.ToggleSelect(1); err != nil {
		t.Fatalf("ToggleSelect() = %v", err)
	}

	if err := e.BulkAction(context.Background(), gateway.ActionDelete); err != nil {
		t.Fatalf("BulkAction(delete) = %v", err)
	}
	if got := e.SearchResults(); len(got) != 0 {
		t.Errorf("deleted record still in search results: %v", got)
	}
}

func TestBulkActionEmptySelection(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	err := e.BulkAction(context.Background(), gateway.ActionDelete)
	if !errors.Is(err, ErrEmptySelection) {
		t.Errorf("BulkAction() = %v, want ErrEmptySelection", err)
	}
}

func TestSingleDeleteInTrashIsPermanent(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	if err := e.SwitchFolder(context.Background(), model.FolderTrash); err != nil {
		t.Fatalf("SwitchFolder() = %v", err)
	}
	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(7, model.FolderTrash, "msg-7"),
	})

	var gotPermanent bool
	fake.SingleFunc = func(id int64, action gateway.Action, permanent bool) (*gateway.MutateResponse, error) {
		gotPermanent = permanent
		return &gateway.MutateResponse{Status: gateway.StatusSuccess}, nil
	}

	if err := e.SingleAction(context.Background(), 7, gateway.ActionDelete); err != nil {
		t.Fatalf("SingleAction(delete) = %v", err)
	}
	if !gotPermanent {
		t.Error("trash delete was not permanent")
	}
	if got := e.Emails(); len(got) != 0 {
		t.Errorf("record survived permanent delete: %v", got)
	}
}

func TestSingleDeleteOutsideTrashIsSoft(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(7, model.FolderInbox, "msg-7"),
	})

	var gotPermanent bool
	fake.SingleFunc = func(id int64, action gateway.Action, permanent bool) (*gateway.MutateResponse, error) {
		gotPermanent = permanent
		return &gateway.MutateResponse{Status: gateway.StatusSuccess}, nil
	}

	if err := e.SingleAction(context.Background(), 7, gateway.ActionDelete); err != nil {
		t.Fatalf("SingleAction(delete) = %v", err)
	}
	if gotPermanent {
		t.Error("inbox delete was marked permanent")
	}
}

func TestSingleActionRejectsLocalActions(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	if err := e.SingleAction(context.Background(), 1, gateway.ActionMarkRead); err == nil {
		t.Error("SingleAction accepted a read-state action")
	}
}

func TestSingleActionKeepsLocalChangeOnTransportFailure(t *testing.T) {
	fake := &testutil.FakeGateway{}
	e, _, _ := newTestEngine(t, fake, Options{})

	seedList(t, e, fake, []model.EmailRecord{
		testutil.NewRecord(1, model.FolderInbox, "msg-1"),
	})

	fake.SingleFunc = func(int64, gateway.Action, bool) (*gateway.MutateResponse, error) {
		return nil, fmt.Errorf("gateway unreachable")
	}

	if err := e.SingleAction(context.Background(), 1, gateway.ActionRestore); err == nil {
		t.Fatal("SingleAction() = nil, want transport error")
	}
	if got := e.Emails(); len(got) != 0 {
		t.Errorf("record restored after transport failure: %v", got)
	}
}

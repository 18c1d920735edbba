package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
)

// CallCounts records how many times each gateway operation ran.
type CallCounts struct {
	FetchPage   int
	FullSync    int
	Incremental int
	Bulk        int
	Single      int
	Search      int
	Folders     int
}

// FakeGateway is a scripted gateway.Gateway for engine tests. Each
// operation delegates to the corresponding Func field when set and
// otherwise returns an empty success. Call counts are always recorded.
type FakeGateway struct {
	mu    sync.Mutex
	calls CallCounts

	FetchPageFunc   func(folder string, page, pageSize int) (*gateway.Page, error)
	FullSyncFunc    func(folder string, limit int) (*gateway.SyncAck, error)
	IncrementalFunc func(folder string) ([]model.EmailRecord, error)
	BulkFunc        func(ids []int64, action gateway.Action) (*gateway.MutateResponse, error)
	SingleFunc      func(id int64, action gateway.Action, permanent bool) (*gateway.MutateResponse, error)
	SearchFunc      func(query, folder string, page, pageSize int) ([]model.EmailRecord, error)
	FoldersFunc     func() ([]string, error)
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// Calls returns a copy of the call counts.
func (f *FakeGateway) Calls() CallCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeGateway) FetchPage(
	_ context.Context,
	folder string,
	page, pageSize int,
) (*gateway.Page, error) {
	f.mu.Lock()
	f.calls.FetchPage++
	f.mu.Unlock()

	if f.FetchPageFunc != nil {
		return f.FetchPageFunc(folder, page, pageSize)
	}
	return &gateway.Page{CurrentPage: page}, nil
}

func (f *FakeGateway) FullSync(
	_ context.Context,
	folder string,
	limit int,
) (*gateway.SyncAck, error) {
	f.mu.Lock()
	f.calls.FullSync++
	f.mu.Unlock()

	if f.FullSyncFunc != nil {
		return f.FullSyncFunc(folder, limit)
	}
	return &gateway.SyncAck{Status: gateway.StatusSuccess}, nil
}

func (f *FakeGateway) IncrementalSync(
	_ context.Context,
	folder string,
) ([]model.EmailRecord, error) {
	f.mu.Lock()
	f.calls.Incremental++
	f.mu.Unlock()

	if f.IncrementalFunc != nil {
		return f.IncrementalFunc(folder)
	}
	return nil, nil
}

func (f *FakeGateway) BulkMutate(
	_ context.Context,
	ids []int64,
	action gateway.Action,
) (*gateway.MutateResponse, error) {
	f.mu.Lock()
	f.calls.Bulk++
	f.mu.Unlock()

	if f.BulkFunc != nil {
		return f.BulkFunc(ids, action)
	}
	return &gateway.MutateResponse{Status: gateway.StatusSuccess}, nil
}

func (f *FakeGateway) SingleMutate(
	_ context.Context,
	id int64,
	action gateway.Action,
	permanent bool,
) (*gateway.MutateResponse, error) {
	f.mu.Lock()
	f.calls.Single++
	f.mu.Unlock()

	if f.SingleFunc != nil {
		return f.SingleFunc(id, action, permanent)
	}
	return &gateway.MutateResponse{Status: gateway.StatusSuccess}, nil
}

func (f *FakeGateway) Search(
	_ context.Context,
	query, folder string,
	page, pageSize int,
) ([]model.EmailRecord, error) {
	f.mu.Lock()
	f.calls.Search++
	f.mu.Unlock()

	if f.SearchFunc != nil {
		return f.SearchFunc(query, folder, page, pageSize)
	}
	return nil, nil
}

func (f *FakeGateway) ListFolders(_ context.Context) ([]string, error) {
	f.mu.Lock()
	f.calls.Folders++
	f.mu.Unlock()

	if f.FoldersFunc != nil {
		return f.FoldersFunc()
	}
	return model.Folders, nil
}

// NewRecord builds a minimal email record for tests.
func NewRecord(id int64, folder, messageID string) model.EmailRecord {
	return model.EmailRecord{
		ID:              id,
		Sender:          "someone@example.com",
		Subject:         "test message",
		Folder:          folder,
		ReceivedDate:    model.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		MessageIDHeader: messageID,
		IMAPUID:         id,
	}
}

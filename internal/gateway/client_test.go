package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func staticToken(token string) TokenProvider {
	return func() (string, error) { return token, nil }
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, staticToken("secret-token"), 5*time.Second), srv
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotRequestID, gotAccept string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotAccept = r.Header.Get("Accept")
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "folders": []string{}})
	}))

	if _, err := client.ListFolders(context.Background()); err != nil {
		t.Fatalf("ListFolders() = %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID not set")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestMissingTokenSendsNoAuthHeader(t *testing.T) {
	var gotAuth string
	var hadAuth bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hadAuth = r.Header["Authorization"]
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "folders": []string{}})
	}))
	client.token = staticToken("")

	if _, err := client.ListFolders(context.Background()); err != nil {
		t.Fatalf("ListFolders() = %v", err)
	}
	if hadAuth {
		t.Errorf("Authorization = %q sent despite empty token", gotAuth)
	}
}

func TestUnauthorizedBecomesAuthError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.FetchPage(context.Background(), "inbox", 1, 10)
	if err == nil {
		t.Fatal("FetchPage() = nil, want auth error")
	}
	if !IsAuthError(err) {
		t.Errorf("IsAuthError(%v) = false, want true", err)
	}
}

func TestRateLimitRetriesWithRetryAfter(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "folders": []string{"inbox"}})
	}))

	folders, err := client.ListFolders(context.Background())
	if err != nil {
		t.Fatalf("ListFolders() = %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if len(folders) != 1 || folders[0] != "inbox" {
		t.Errorf("folders = %v, want [inbox]", folders)
	}
}

func TestRateLimitGivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	if _, err := client.ListFolders(context.Background()); err == nil {
		t.Fatal("ListFolders() = nil, want retry exhaustion error")
	}
	if got := attempts.Load(); got != 4 {
		t.Errorf("attempts = %d, want initial try plus 3 retries", got)
	}
}

func TestFetchPageDecodesListing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/emails" {
			t.Errorf("path = %q, want /api/emails", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("folder") != "archive" || q.Get("page") != "2" || q.Get("per_page") != "10" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{
			"status": "success",
			"emails": [
				{"id": 12, "sender": "a@example.com", "subject": "hi",
				 "folder": "archive", "message_id_header": "<m12@example.com>"}
			],
			"total_emails": 31,
			"current_page": 2,
			"total_pages": 4
		}`))
	}))

	page, err := client.FetchPage(context.Background(), "archive", 2, 10)
	if err != nil {
		t.Fatalf("FetchPage() = %v", err)
	}
	if page.TotalEmails != 31 || page.CurrentPage != 2 || page.TotalPages != 4 {
		t.Errorf("pagination = %d/%d/%d, want 31/2/4",
			page.TotalEmails, page.CurrentPage, page.TotalPages)
	}
	if len(page.Emails) != 1 || page.Emails[0].ID != 12 {
		t.Fatalf("emails = %v", page.Emails)
	}
	if got := page.Emails[0].CompositeKey(); got != "12:<m12@example.com>" {
		t.Errorf("CompositeKey() = %q", got)
	}
}

func TestFullSyncSendsFolderAndLimit(t *testing.T) {
	var got fullSyncRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/emails/sync" || r.Method != http.MethodPost {
			t.Errorf("%s %s, want POST /api/emails/sync", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"status": "warning", "message": "no sent folder"}`))
	}))

	ack, err := client.FullSync(context.Background(), "sent", 200)
	if err != nil {
		t.Fatalf("FullSync() = %v", err)
	}
	if got.Folder != "sent" || got.Limit != 200 {
		t.Errorf("request = %+v, want sent/200", got)
	}
	if ack.Status != StatusWarning {
		t.Errorf("Status = %q, want warning", ack.Status)
	}
	if ack.Message != "no sent folder" {
		t.Errorf("Message = %q", ack.Message)
	}
}

func TestIncrementalSyncDecodesNewEmails(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/emails/sync-new" {
			t.Errorf("path = %q, want /api/emails/sync-new", r.URL.Path)
		}
		w.Write([]byte(`{
			"status": "success",
			"new_emails": [{"id": 5, "folder": "inbox"}, {"id": 6, "folder": "inbox"}],
			"count": 2
		}`))
	}))

	records, err := client.IncrementalSync(context.Background(), "inbox")
	if err != nil {
		t.Fatalf("IncrementalSync() = %v", err)
	}
	if len(records) != 2 || records[0].ID != 5 || records[1].ID != 6 {
		t.Errorf("records = %v", records)
	}
}

func TestBulkMutateSendsIDsAndAction(t *testing.T) {
	var got bulkRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/emails/bulk" {
			t.Errorf("path = %q, want /api/emails/bulk", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"status": "warning", "message": "2 of 3 deleted"}`))
	}))

	resp, err := client.BulkMutate(context.Background(), []int64{1, 2, 3}, ActionDelete)
	if err != nil {
		t.Fatalf("BulkMutate() = %v", err)
	}
	if len(got.EmailIDs) != 3 || got.Action != "delete" {
		t.Errorf("request = %+v", got)
	}
	if resp.Status != StatusWarning {
		t.Errorf("Status = %q, want warning", resp.Status)
	}
}

func TestSingleMutateRoutesAndPermanentFlag(t *testing.T) {
	var gotPath string
	var got singleMutateRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"status": "success"}`))
	}))

	resp, err := client.SingleMutate(context.Background(), 42, ActionDelete, true)
	if err != nil {
		t.Fatalf("SingleMutate() = %v", err)
	}
	if gotPath != "/api/emails/42/delete" {
		t.Errorf("path = %q, want /api/emails/42/delete", gotPath)
	}
	if !got.Permanent {
		t.Error("permanent flag not sent")
	}
	if resp.Status != StatusSuccess {
		t.Errorf("Status = %q, want success", resp.Status)
	}
}

func TestSingleMutateRejectsLocalActions(t *testing.T) {
	client := NewClient("http://localhost:0", staticToken(""), time.Second)
	if _, err := client.SingleMutate(context.Background(), 1, ActionMarkRead, false); err == nil {
		t.Error("SingleMutate accepted a read-state action")
	}
}

func TestSearchSendsQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/emails/search" {
			t.Errorf("path = %q, want /api/emails/search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "invoice" || q.Get("folder") != "inbox" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"status": "success", "emails": [{"id": 9}]}`))
	}))

	records, err := client.Search(context.Background(), "invoice", "inbox", 1, 20)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(records) != 1 || records[0].ID != 9 {
		t.Errorf("records = %v", records)
	}
}

func TestServerErrorIncludesGatewayMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"status": "error", "message": "IMAP connection failed"}`))
	}))

	_, err := client.ListFolders(context.Background())
	if err == nil {
		t.Fatal("ListFolders() = nil, want gateway error")
	}
	if got := err.Error(); !strings.Contains(got, "IMAP connection failed") {
		t.Errorf("error %q does not carry the gateway message", got)
	}
}

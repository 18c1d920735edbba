package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Somdatta-dev/ace-mail/internal/model"
)

// TokenProvider supplies the bearer credential attached to every request.
// Returning an empty string (or an error) is not fatal: the request is
// sent unauthenticated and the gateway rejects it with a 401.
type TokenProvider func() (string, error)

// Client is a thin HTTP client for the mail gateway REST API. It handles
// Bearer token authentication, JSON marshaling, and automatic retry with
// exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      TokenProvider
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a new gateway client. The baseURL is the root URL of
// the gateway (e.g. http://localhost:5000).
func NewClient(baseURL string, token TokenProvider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
	}
}

// SetBaseURL repoints the client at a new gateway root. Used after the
// setup flow saves a different URL.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		if attempt > 0 && body != nil {
			data, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		if token, tokenErr := c.token(); tokenErr == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.NewString())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &AuthError{
				Message: fmt.Sprintf(
					"gateway rejected credentials on %s %s", method, path,
				),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var gwErr mutateResponse
			if json.Unmarshal(respBody, &gwErr) == nil && gwErr.Message != "" {
				return fmt.Errorf(
					"gateway error (%d) on %s %s: %s",
					resp.StatusCode, method, path, gwErr.Message,
				)
			}
			return fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, path, string(respBody),
			)
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from %s %s: %w", method, path, err,
			)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// FetchPage returns one page of the authoritative folder listing.
func (c *Client) FetchPage(
	ctx context.Context,
	folder string,
	page, pageSize int,
) (*Page, error) {
	q := url.Values{}
	q.Set("folder", folder)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))

	var resp listResponse
	if err := c.get(ctx, "/api/emails?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching %s page %d: %w", folder, page, err)
	}

	return &Page{
		Emails:      resp.Emails,
		TotalEmails: resp.TotalEmails,
		CurrentPage: resp.CurrentPage,
		TotalPages:  resp.TotalPages,
	}, nil
}

// FullSync triggers a server-side provider refresh for a folder.
func (c *Client) FullSync(ctx context.Context, folder string, limit int) (*SyncAck, error) {
	var resp syncResponse
	err := c.post(ctx, "/api/emails/sync", fullSyncRequest{
		Folder: folder,
		Limit:  limit,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("full sync of %s: %w", folder, err)
	}

	return &SyncAck{
		Status:  parseStatus(resp.Status),
		Message: resp.Message,
	}, nil
}

// IncrementalSync returns messages new to the gateway since its last
// high-water mark for the folder.
func (c *Client) IncrementalSync(ctx context.Context, folder string) ([]model.EmailRecord, error) {
	var resp incrementalResponse
	err := c.post(ctx, "/api/emails/sync-new", incrementalSyncRequest{
		Folder: folder,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("incremental sync of %s: %w", folder, err)
	}

	return resp.NewEmails, nil
}

// BulkMutate applies one action to a batch of message ids.
func (c *Client) BulkMutate(
	ctx context.Context,
	ids []int64,
	action Action,
) (*MutateResponse, error) {
	var resp mutateResponse
	err := c.post(ctx, "/api/emails/bulk", bulkRequest{
		EmailIDs: ids,
		Action:   string(action),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("bulk %s of %d messages: %w", action, len(ids), err)
	}

	return &MutateResponse{
		Status:  parseStatus(resp.Status),
		Message: resp.Message,
	}, nil
}

// SingleMutate applies delete/archive/restore to one message.
func (c *Client) SingleMutate(
	ctx context.Context,
	id int64,
	action Action,
	permanent bool,
) (*MutateResponse, error) {
	if !action.RemoteAction() {
		return nil, fmt.Errorf("action %q has no gateway route", action)
	}

	path := fmt.Sprintf("/api/emails/%d/%s", id, action)

	var resp mutateResponse
	if err := c.post(ctx, path, singleMutateRequest{Permanent: permanent}, &resp); err != nil {
		return nil, fmt.Errorf("%s of message %d: %w", action, id, err)
	}

	return &MutateResponse{
		Status:  parseStatus(resp.Status),
		Message: resp.Message,
	}, nil
}

// Search returns messages in a folder matching the query.
func (c *Client) Search(
	ctx context.Context,
	query, folder string,
	page, pageSize int,
) ([]model.EmailRecord, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("folder", folder)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))

	var resp listResponse
	if err := c.get(ctx, "/api/emails/search?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching %s for %q: %w", folder, query, err)
	}

	return resp.Emails, nil
}

// ListFolders returns the provider folder names known to the gateway.
func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	var resp foldersResponse
	if err := c.get(ctx, "/api/folders", &resp); err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return resp.Folders, nil
}

// parseStatus maps the gateway's status string onto the typed constant.
// Anything that is not an explicit warning is treated as success, since
// error statuses arrive as non-2xx responses and never reach here.
func parseStatus(s string) MutationStatus {
	if s == string(StatusWarning) {
		return StatusWarning
	}
	return StatusSuccess
}

// Package gateway is the HTTP boundary to the remote mail gateway. The
// gateway owns message content and folder membership; this client only
// consumes its REST surface and never speaks IMAP or SMTP itself.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/Somdatta-dev/ace-mail/internal/model"
)

// AuthError indicates that the bearer token was missing, expired, or
// rejected by the gateway. It is returned when a 401 response is received.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Action is a mutation the gateway can apply to one or more messages.
type Action string

const (
	ActionDelete     Action = "delete"
	ActionArchive    Action = "archive"
	ActionRestore    Action = "restore"
	ActionMarkRead   Action = "mark_read"
	ActionMarkUnread Action = "mark_unread"
)

// RemoteAction reports whether the action requires a gateway call.
// Read-state changes live entirely in the client's annotation overlay.
func (a Action) RemoteAction() bool {
	switch a {
	case ActionDelete, ActionArchive, ActionRestore:
		return true
	}
	return false
}

// MutationStatus is the gateway's verdict on a mutation request.
type MutationStatus string

const (
	// StatusSuccess means every requested item was applied server-side.
	StatusSuccess MutationStatus = "success"

	// StatusWarning means the request was accepted but some items failed
	// on the provider. The gateway does not say which ones.
	StatusWarning MutationStatus = "warning"
)

// MutateResponse is the typed outcome of a delete/archive/restore call.
type MutateResponse struct {
	Status  MutationStatus
	Message string
}

// SyncAck is the gateway's acknowledgement of a server-side refresh.
type SyncAck struct {
	Status  MutationStatus
	Message string
}

// Page is one page of a folder listing.
type Page struct {
	Emails      []model.EmailRecord
	TotalEmails int
	CurrentPage int
	TotalPages  int
}

// Gateway is the set of remote operations the engine consumes. The
// concrete implementation is Client; tests substitute a scripted fake.
type Gateway interface {
	// FetchPage returns the authoritative listing for a folder page.
	FetchPage(ctx context.Context, folder string, page, pageSize int) (*Page, error)

	// FullSync asks the gateway to refresh up to limit messages for a
	// folder from the provider. The caller follows with FetchPage.
	FullSync(ctx context.Context, folder string, limit int) (*SyncAck, error)

	// IncrementalSync returns messages the gateway found since its last
	// known high-water mark for the folder.
	IncrementalSync(ctx context.Context, folder string) ([]model.EmailRecord, error)

	// BulkMutate applies one action to a batch of message ids.
	BulkMutate(ctx context.Context, ids []int64, action Action) (*MutateResponse, error)

	// SingleMutate applies delete/archive/restore to a single message.
	// permanent only applies to delete.
	SingleMutate(ctx context.Context, id int64, action Action, permanent bool) (*MutateResponse, error)

	// Search returns messages in a folder matching the query.
	Search(ctx context.Context, query, folder string, page, pageSize int) ([]model.EmailRecord, error)

	// ListFolders returns the provider folder names.
	ListFolders(ctx context.Context) ([]string, error)
}

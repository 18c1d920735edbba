package gateway

import "github.com/Somdatta-dev/ace-mail/internal/model"

// Wire shapes for gateway responses. Field names follow the gateway's
// JSON exactly; they are decoded here and never leak past this package.

// listResponse is returned by /api/emails and /api/emails/search.
type listResponse struct {
	Status      string              `json:"status"`
	Emails      []model.EmailRecord `json:"emails"`
	TotalEmails int                 `json:"total_emails"`
	CurrentPage int                 `json:"current_page"`
	TotalPages  int                 `json:"total_pages"`
}

// syncResponse is returned by /api/emails/sync.
type syncResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// incrementalResponse is returned by /api/emails/sync-new.
type incrementalResponse struct {
	Status    string              `json:"status"`
	NewEmails []model.EmailRecord `json:"new_emails"`
	Count     int                 `json:"count"`
	Message   string              `json:"message"`
}

// mutateResponse is returned by /api/emails/bulk and the single-message
// delete/archive/restore routes.
type mutateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// foldersResponse is returned by /api/folders.
type foldersResponse struct {
	Status  string   `json:"status"`
	Folders []string `json:"folders"`
}

// fullSyncRequest is the body for /api/emails/sync.
type fullSyncRequest struct {
	Folder string `json:"folder"`
	Limit  int    `json:"limit"`
}

// incrementalSyncRequest is the body for /api/emails/sync-new.
type incrementalSyncRequest struct {
	Folder string `json:"folder"`
}

// bulkRequest is the body for /api/emails/bulk.
type bulkRequest struct {
	EmailIDs []int64 `json:"email_ids"`
	Action   string  `json:"action"`
}

// singleMutateRequest is the body for the single-message mutation routes.
type singleMutateRequest struct {
	Permanent bool `json:"permanent,omitempty"`
}

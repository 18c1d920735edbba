package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Folder names used by the gateway. The gateway maps these to provider
// IMAP folders server-side; the client only ever sees the logical names.
const (
	FolderInbox   = "inbox"
	FolderSent    = "sent"
	FolderDrafts  = "drafts"
	FolderTrash   = "trash"
	FolderSpam    = "spam"
	FolderArchive = "archive"
)

// Folders lists every logical folder in display order.
var Folders = []string{
	FolderInbox,
	FolderSent,
	FolderDrafts,
	FolderTrash,
	FolderSpam,
	FolderArchive,
}

// Timestamp is a time.Time that decodes the gateway's timestamp
// formats. The gateway stores timestamps without timezone info and
// serializes them as naive ISO 8601 strings; naive values are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// EmailRecord is one message as returned by the gateway, plus the two
// locally-derived annotation fields. Records are immutable value copies:
// each merge produces fresh instances, and the list that holds them is
// owned exclusively by the engine.
type EmailRecord struct {
	// ID is the gateway-assigned identifier, unique within a folder's
	// result set.
	ID int64 `json:"id"`

	// Sender is the From address.
	Sender string `json:"sender"`

	// Recipient is the comma-joined To list.
	Recipient string `json:"recipient"`

	// Subject is the decoded subject line.
	Subject string `json:"subject"`

	// BodyPreview is the first few hundred characters of the body.
	BodyPreview string `json:"body_preview"`

	// BodyFull is the complete body, plain text if available.
	BodyFull string `json:"body_full"`

	// BodyText is the plain-text part, if any.
	BodyText string `json:"body_text"`

	// BodyHTML is the HTML part, if any.
	BodyHTML string `json:"body_html"`

	// Folder is the logical folder this record belongs to.
	Folder string `json:"folder"`

	// ReceivedDate is when the message arrived.
	ReceivedDate Timestamp `json:"received_date"`

	// MessageIDHeader is the protocol-level Message-ID, without angle
	// brackets. May be empty for malformed messages.
	MessageIDHeader string `json:"message_id_header"`

	// IMAPUID is the provider-assigned sequence number within the folder.
	IMAPUID int64 `json:"imap_uid"`

	// EmailType and CleanedHTML are rendering hints computed by the
	// gateway. They are carried opaquely and never recomputed here.
	EmailType   string `json:"email_type"`
	CleanedHTML string `json:"cleaned_html"`

	// IsRead and IsStarred are client-only annotations populated from
	// the overlay at merge time. The gateway has no notion of them.
	IsRead    bool `json:"is_read"`
	IsStarred bool `json:"is_starred"`
}

// CompositeKey returns the key used for annotation lookups. It pairs the
// gateway id with the Message-ID header when present, falling back to the
// IMAP UID, so the annotation survives the id being reissued on re-fetch.
func (e EmailRecord) CompositeKey() string {
	if e.MessageIDHeader != "" {
		return fmt.Sprintf("%d:%s", e.ID, e.MessageIDHeader)
	}
	return fmt.Sprintf("%d:%d", e.ID, e.IMAPUID)
}

// DefaultRead reports the read-state assigned to a message whose key has
// never been annotated. Messages the user sent are born read.
func DefaultRead(folder string) bool {
	return folder == FolderSent
}

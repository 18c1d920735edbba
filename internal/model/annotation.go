package model

// Annotation is the client-only state tracked for one composite key.
// The gateway never sees these fields; they exist only in the local
// overlay and its durable snapshot.
type Annotation struct {
	IsRead    bool `json:"isRead"`
	IsStarred bool `json:"isStarred"`
}

// DefaultAnnotation returns the annotation assigned to a key that has
// never been written: unread unless the message lives in the sent
// folder, never starred.
func DefaultAnnotation(folder string) Annotation {
	return Annotation{
		IsRead:    DefaultRead(folder),
		IsStarred: false,
	}
}

package model

import "database/sql"

// ContentKind distinguishes the two kinds of reportable content.
type ContentKind string

const (
	ContentTopic ContentKind = "topic"
	ContentReply ContentKind = "reply"
)

// ContentRef points at exactly one content item.
type ContentRef struct {
	Kind ContentKind `json:"kind"`
	ID   ContentID   `json:"id"`
}

// IsZero - true if the reference is empty.
func (ref ContentRef) IsZero() bool {
	return ref.ID == 0
}

// IsValid - the kind names a known content table and the ID is set.
func (ref ContentRef) IsValid() bool {
	return ref.ID != 0 && (ref.Kind == ContentTopic || ref.Kind == ContentReply)
}

// splitRef maps a reference onto the topic/reply column pair.
// Exactly one of the returned values is non-null for a valid reference.
func splitRef(ref ContentRef) (topicID, replyID sql.NullInt64) {
	switch ref.Kind {
	case ContentTopic:
		topicID = sql.NullInt64{Int64: ref.ID.ToInt64(), Valid: true}
	case ContentReply:
		replyID = sql.NullInt64{Int64: ref.ID.ToInt64(), Valid: true}
	}
	return topicID, replyID
}

// joinRef rebuilds a reference from the topic/reply column pair.
func joinRef(topicID, replyID sql.NullInt64) ContentRef {
	switch {
	case topicID.Valid:
		return ContentRef{Kind: ContentTopic, ID: ContentID(topicID.Int64)}
	case replyID.Valid:
		return ContentRef{Kind: ContentReply, ID: ContentID(replyID.Int64)}
	default:
		return ContentRef{}
	}
}

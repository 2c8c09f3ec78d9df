package domain

// MessageStatus is the lifecycle state Genie reports for a submitted question.
// Non-terminal states such as SUBMITTED or EXECUTING_QUERY are kept verbatim.
type MessageStatus string

const (
	StatusCompleted MessageStatus = "COMPLETED"
	StatusFailed    MessageStatus = "FAILED"
	StatusCancelled MessageStatus = "CANCELLED"
)

// Terminal reports whether no further state change can occur for the message.
func (s MessageStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// GenieMessage is a message as returned by the message status endpoint.
type GenieMessage struct {
	ID             string
	ConversationID string
	Status         MessageStatus
	Attachments    []Attachment
}

// AttachmentKind classifies an attachment by the fragment it carries.
type AttachmentKind int

const (
	AttachmentUnknown AttachmentKind = iota
	AttachmentText
	AttachmentQuery
)

// Attachment is one structured fragment of a message response. Text and Query
// are independent; the service may populate either, both or neither.
type Attachment struct {
	AttachmentID string
	Text         *TextAttachment
	Query        *QueryAttachment
}

func (a Attachment) Kind() AttachmentKind {
	switch {
	case a.Query != nil:
		return AttachmentQuery
	case a.Text != nil:
		return AttachmentText
	default:
		return AttachmentUnknown
	}
}

type TextAttachment struct {
	Content string
}

type QueryAttachment struct {
	Query       string
	Description string
}

package event

type Type string

const (
	TypeActiveContact Type = "conversation.active"
	TypeLoading       Type = "conversation.loading"
	TypeTranscript    Type = "conversation.transcript"

	TypeRoster Type = "roster.contacts"
	TypeUnread Type = "roster.unread"

	TypeSendFailed Type = "message.send_failed"
)

type Event struct {
	Type    Type        `json:"type"`
	Payload interface{} `json:"payload"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Timestamp int64  `json:"timestamp"`
	ContactID string `json:"contact_id,omitempty"`
}

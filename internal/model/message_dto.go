package model

import "time"

// Message is one transcript entry. ID is server-assigned and empty while the
// entry only exists locally; CorrelationID is generated client-side at
// optimistic insert and echoed back by the backend so the pending entry can
// be matched to its confirmation.
type Message struct {
	ID            string    `json:"id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	SenderID      string    `json:"sender_id"`
	RecipientID   string    `json:"recipient_id"`
	Body          string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`

	// Pending is true from optimistic insert until the send call confirms
	// or the next authoritative refetch overwrites the transcript.
	Pending bool `json:"-"`
}

type MessageResponse struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	SenderID      string    `json:"sender_id"`
	Body          string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// ToMessage resolves the recipient from the participant pair: whichever side
// did not author the entry.
func (m MessageResponse) ToMessage() Message {
	recipient := m.PatientID
	if m.SenderID == m.PatientID {
		recipient = m.DoctorID
	}
	return Message{
		ID:            m.ID,
		CorrelationID: m.CorrelationID,
		SenderID:      m.SenderID,
		RecipientID:   recipient,
		Body:          m.Body,
		Timestamp:     m.Timestamp,
	}
}

type SendMessageRequest struct {
	DoctorID      string    `json:"doctor_id" validate:"required"`
	PatientID     string    `json:"patient_id" validate:"required"`
	SenderID      string    `json:"sender_id" validate:"required"`
	CorrelationID string    `json:"correlation_id" validate:"required,uuid4"`
	Body          string    `json:"message" validate:"message_body"`
	Timestamp     time.Time `json:"timestamp"`
}

type SendMessageResponse struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

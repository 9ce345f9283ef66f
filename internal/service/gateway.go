package service

import (
	"context"

	"ClinicTalk/internal/model"
)

// Gateway is the backend collaborator contract the chat core consumes. The
// wire format behind it is the backend's concern.
type Gateway interface {
	ListDoctors(ctx context.Context) ([]model.Contact, error)
	ListPatients(ctx context.Context) ([]model.Contact, error)
	ConversationHistory(ctx context.Context, doctorID, patientID string) ([]model.Message, error)
	SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.SendMessageResponse, error)
}

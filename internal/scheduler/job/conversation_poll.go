package job

import (
	"context"

	"ClinicTalk/internal/service"
)

// RunConversationPoll refreshes the active conversation and feeds any newly
// discovered counterpart messages into the unread accounting. With the
// conversation open the increment is suppressed; the watermark still
// advances so the messages are not re-counted after a deselect.
func RunConversationPoll(ctx context.Context, chat *service.ChatService, directory *service.DirectoryService) error {
	contactID := chat.ActiveContactID()
	if contactID == "" {
		return nil
	}

	if _, err := chat.Refresh(ctx); err != nil {
		return err
	}

	directory.ReconcileHistory(contactID, chat.Messages())
	return nil
}

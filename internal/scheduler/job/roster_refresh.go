package job

import (
	"context"

	"ClinicTalk/internal/service"
)

// RunRosterRefresh re-fetches the contact roster and probes every non-active
// contact's conversation so messages arriving on closed conversations still
// raise unread badges. Individual probe failures do not stop the sweep; the
// first error is reported so the scheduler can back off.
func RunRosterRefresh(ctx context.Context, directory *service.DirectoryService) error {
	contacts, err := directory.Refresh(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, contact := range contacts {
		if ctx.Err() != nil {
			break
		}
		if _, err := directory.ProbeContact(ctx, contact); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

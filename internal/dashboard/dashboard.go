package dashboard

import (
	"context"
	"sync"

	"ClinicTalk/internal/config"
	"ClinicTalk/internal/event"
	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/model"
	"ClinicTalk/internal/scheduler"
	"ClinicTalk/internal/service"
	"ClinicTalk/internal/session"
)

// Dashboard is one viewer's messaging surface: the contact roster, the
// single active conversation, and the two poll tickers that keep both
// fresh. It is role-gated; only doctors and patients converse.
type Dashboard struct {
	cfg       *config.AppConfig
	sess      *session.Session
	bus       *event.Bus
	directory *service.DirectoryService
	chat      *service.ChatService
	sched     *scheduler.Scheduler

	mu              sync.Mutex
	messagingActive bool
	closed          bool
}

func New(cfg *config.AppConfig, sess *session.Session, bus *event.Bus, directory *service.DirectoryService, chat *service.ChatService, sched *scheduler.Scheduler) (*Dashboard, error) {
	if sess.Role != session.RoleDoctor && sess.Role != session.RolePatient {
		return nil, helper.NewValidationError("Messaging is only available to doctors and patients")
	}

	return &Dashboard{
		cfg:       cfg,
		sess:      sess,
		bus:       bus,
		directory: directory,
		chat:      chat,
		sched:     sched,
	}, nil
}

func (d *Dashboard) Start() {
	d.sched.Start()
}

// Close tears the dashboard down: both tickers stop, the conversation
// closes, and the event stream ends.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.messagingActive = false
	d.mu.Unlock()

	d.sched.Stop()
	d.chat.Stop()
	d.directory.ClearActive()
	d.bus.Close()
}

// ActivateMessaging enters the messaging tab: loads the roster once and
// starts the roster ticker. The initial load failing is not fatal; the
// ticker retries on its own schedule.
func (d *Dashboard) ActivateMessaging(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return helper.NewValidationError("Dashboard is closed")
	}
	d.messagingActive = true
	d.mu.Unlock()

	_, err := d.directory.Refresh(ctx)
	d.sched.StartRosterRefresh()
	return err
}

// DeactivateMessaging leaves the messaging tab: both tickers stop and the
// open conversation closes.
func (d *Dashboard) DeactivateMessaging() {
	d.mu.Lock()
	d.messagingActive = false
	d.mu.Unlock()

	d.sched.StopRosterRefresh()
	d.sched.StopConversationPoll()
	d.chat.Close()
	d.directory.ClearActive()
}

// SelectContact opens a conversation and starts its poll ticker. The
// previous contact's ticker is stopped first, so exactly one conversation
// ticker exists at any time. When the history load fails the selection
// sticks but polling does not start, mirroring the tab's original behavior.
func (d *Dashboard) SelectContact(ctx context.Context, contactID string) error {
	d.mu.Lock()
	if d.closed || !d.messagingActive {
		d.mu.Unlock()
		return helper.NewValidationError("Messaging is not active")
	}
	d.mu.Unlock()

	d.sched.StopConversationPoll()

	if err := d.directory.Select(ctx, contactID); err != nil {
		return err
	}

	d.sched.StartConversationPoll()
	return nil
}

// Send posts a message to the active conversation. Validation failures are
// returned synchronously; network failures surface as a send-failed event
// and the optimistic entry disappearing.
func (d *Dashboard) Send(ctx context.Context, body string) (*model.Message, error) {
	return d.chat.Send(ctx, body)
}

func (d *Dashboard) Contacts() []model.Contact {
	return d.directory.Contacts()
}

func (d *Dashboard) UnreadCounts() map[string]int {
	return d.directory.UnreadCounts()
}

func (d *Dashboard) Transcript() service.TranscriptSnapshot {
	return d.chat.Snapshot()
}

// Events subscribes to the dashboard's event stream; the returned func
// unsubscribes.
func (d *Dashboard) Events(buffer int) (<-chan event.Event, func()) {
	return d.bus.Subscribe(buffer)
}

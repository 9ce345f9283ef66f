package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ClinicTalk/internal/config"
	"ClinicTalk/internal/event"
	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/model"
	"ClinicTalk/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TranscriptSnapshot is the render-ready view of the active conversation.
type TranscriptSnapshot struct {
	ActiveContactID string
	Messages        []model.Message
	Loading         bool
}

// ChatService owns the single active conversation: history loads, optimistic
// sends and their reconciliation, and the state the poll ticks merge into.
// Every open bumps a generation counter; a response carrying an older
// generation is discarded, so a slow fetch for an abandoned contact can
// never overwrite the newly selected one.
type ChatService struct {
	gateway  Gateway
	sess     *session.Session
	validate *validator.Validate
	bus      *event.Bus
	limiter  *config.PollLimiter

	mu         sync.Mutex
	generation uint64
	active     *model.Contact
	messages   []model.Message
	loading    bool
	convCtx    context.Context
	cancel     context.CancelFunc
}

func NewChatService(cfg *config.AppConfig, sess *session.Session, gateway Gateway, validate *validator.Validate, bus *event.Bus) *ChatService {
	return &ChatService{
		gateway:  gateway,
		sess:     sess,
		validate: validate,
		bus:      bus,
		limiter:  config.NewPollLimiter(cfg.ConversationPollInterval()),
	}
}

// Open loads the full history for contact and replaces the transcript. On
// failure the loading flag clears and the transcript is left as it was; the
// caller shows a neutral empty state rather than an error banner.
func (s *ChatService) Open(ctx context.Context, contact model.Contact) ([]model.Message, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	convCtx, cancel := context.WithCancel(context.Background())
	s.convCtx = convCtx
	s.cancel = cancel
	s.active = &contact
	s.loading = true
	s.mu.Unlock()

	s.publishActive(contact.ID, &contact)
	s.publishLoading(contact.ID, true)

	doctorID, patientID := s.sess.ConversationPair(contact.ID)
	history, err := s.gateway.ConversationHistory(convCtx, doctorID, patientID)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil, nil
	}
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.publishLoading(contact.ID, false)
		slog.Warn("Failed to load conversation history", "contact_id", contact.ID, "error", err)
		return nil, err
	}

	helper.SortMessages(history)
	s.messages = history
	snapshot := s.copyMessagesLocked()
	s.mu.Unlock()

	s.publishLoading(contact.ID, false)
	s.publishTranscript(contact.ID, snapshot)

	return snapshot, nil
}

// Send validates body, appends an optimistic pending entry before any
// network activity, then completes the send asynchronously. A failed send
// removes the entry again; the user retypes.
func (s *ChatService) Send(ctx context.Context, body string) (*model.Message, error) {
	s.mu.Lock()
	active := s.active
	convCtx := s.convCtx
	gen := s.generation
	s.mu.Unlock()

	if active == nil {
		return nil, helper.NewValidationError("No active conversation")
	}

	doctorID, patientID := s.sess.ConversationPair(active.ID)
	req := model.SendMessageRequest{
		DoctorID:      doctorID,
		PatientID:     patientID,
		SenderID:      s.sess.UserID,
		CorrelationID: uuid.NewString(),
		Body:          strings.TrimSpace(body),
		Timestamp:     time.Now(),
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, helper.NewValidationError("Message body must not be empty")
	}

	optimistic := model.Message{
		CorrelationID: req.CorrelationID,
		SenderID:      s.sess.UserID,
		RecipientID:   active.ID,
		Body:          req.Body,
		Timestamp:     req.Timestamp,
		Pending:       true,
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil, helper.NewValidationError("No active conversation")
	}
	s.messages = append(s.messages, optimistic)
	snapshot := s.copyMessagesLocked()
	s.mu.Unlock()

	s.publishTranscript(active.ID, snapshot)

	go s.completeSend(convCtx, gen, active.ID, req)

	return &optimistic, nil
}

func (s *ChatService) completeSend(ctx context.Context, gen uint64, contactID string, req model.SendMessageRequest) {
	resp, err := s.gateway.SendMessage(ctx, req)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}

	if err != nil {
		kept := make([]model.Message, 0, len(s.messages))
		for _, msg := range s.messages {
			if msg.CorrelationID == req.CorrelationID && msg.ID == "" {
				continue
			}
			kept = append(kept, msg)
		}
		s.messages = kept
		snapshot := s.copyMessagesLocked()
		s.mu.Unlock()

		slog.Warn("Failed to send message, dropping optimistic entry", "contact_id", contactID, "error", err)
		s.publishTranscript(contactID, snapshot)
		s.publishSendFailed(contactID, req.Body)
		return
	}

	for i := range s.messages {
		if s.messages[i].CorrelationID != req.CorrelationID {
			continue
		}
		s.messages[i].Pending = false
		s.messages[i].ID = resp.ID
		if !resp.Timestamp.IsZero() {
			s.messages[i].Timestamp = resp.Timestamp
		}
		break
	}
	helper.SortMessages(s.messages)
	snapshot := s.copyMessagesLocked()
	s.mu.Unlock()

	s.publishTranscript(contactID, snapshot)
}

// Refresh is one poll tick: refetch the full history and merge it in,
// server truth winning. Returns the counterpart messages that were not
// previously known, for unread accounting.
func (s *ChatService) Refresh(ctx context.Context) ([]model.Message, error) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return nil, nil
	}
	contact := *s.active
	gen := s.generation
	convCtx := s.convCtx
	s.mu.Unlock()

	doctorID, patientID := s.sess.ConversationPair(contact.ID)
	if !s.limiter.Allow(helper.ConversationKey(doctorID, patientID)) {
		return nil, nil
	}

	fetched, err := s.gateway.ConversationHistory(convCtx, doctorID, patientID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil, nil
	}
	merge := helper.MergeTranscript(s.messages, fetched, s.sess.UserID)
	changed := !transcriptEqual(s.messages, merge.Messages)
	s.messages = merge.Messages
	snapshot := s.copyMessagesLocked()
	s.mu.Unlock()

	if changed {
		s.publishTranscript(contact.ID, snapshot)
	}
	return merge.NewFromCounterpart, nil
}

// Close stops the conversation: cancels any in-flight fetch and clears the
// view state.
func (s *ChatService) Close() {
	s.mu.Lock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	var contactID string
	if s.active != nil {
		contactID = s.active.ID
	}
	s.active = nil
	s.messages = nil
	s.loading = false
	s.mu.Unlock()

	if contactID != "" {
		s.publishActive(contactID, nil)
		s.publishTranscript(contactID, nil)
	}
}

func (s *ChatService) Stop() {
	s.Close()
	s.limiter.Stop()
}

func (s *ChatService) ActiveContactID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.ID
}

func (s *ChatService) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyMessagesLocked()
}

func (s *ChatService) Snapshot() TranscriptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := TranscriptSnapshot{
		Messages: s.copyMessagesLocked(),
		Loading:  s.loading,
	}
	if s.active != nil {
		snap.ActiveContactID = s.active.ID
	}
	return snap
}

func (s *ChatService) copyMessagesLocked() []model.Message {
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func transcriptEqual(a, b []model.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].CorrelationID != b[i].CorrelationID || a[i].Pending != b[i].Pending {
			return false
		}
	}
	return true
}

func (s *ChatService) publishActive(contactID string, contact *model.Contact) {
	if s.bus == nil {
		return
	}
	var payload interface{}
	if contact != nil {
		payload = *contact
	}
	s.bus.Publish(event.Event{
		Type:    event.TypeActiveContact,
		Payload: payload,
		Meta:    &event.Meta{Timestamp: time.Now().UnixMilli(), ContactID: contactID},
	})
}

func (s *ChatService) publishLoading(contactID string, loading bool) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:    event.TypeLoading,
		Payload: loading,
		Meta:    &event.Meta{Timestamp: time.Now().UnixMilli(), ContactID: contactID},
	})
}

func (s *ChatService) publishTranscript(contactID string, msgs []model.Message) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:    event.TypeTranscript,
		Payload: msgs,
		Meta:    &event.Meta{Timestamp: time.Now().UnixMilli(), ContactID: contactID},
	})
}

func (s *ChatService) publishSendFailed(contactID string, body string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:    event.TypeSendFailed,
		Payload: body,
		Meta:    &event.Meta{Timestamp: time.Now().UnixMilli(), ContactID: contactID},
	})
}

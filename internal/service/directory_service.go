package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ClinicTalk/internal/event"
	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/model"
	"ClinicTalk/internal/session"
)

// DirectoryService maintains the selectable contact roster and the
// per-contact unread counters for the current viewer. Counters are local to
// the session: they start at zero, grow only through RecordIncoming, and
// reset when the contact is selected.
type DirectoryService struct {
	gateway Gateway
	sess    *session.Session
	chat    *ChatService
	bus     *event.Bus

	mu       sync.Mutex
	contacts []model.Contact
	unread   map[string]int

	// watermarks hold, per contact, the timestamp of the newest
	// counterpart-authored message already accounted for. Advancing the
	// mark makes repeated reconciliation of the same history a no-op.
	watermarks map[string]time.Time
	activeID   string
}

func NewDirectoryService(sess *session.Session, gateway Gateway, chat *ChatService, bus *event.Bus) *DirectoryService {
	return &DirectoryService{
		gateway:    gateway,
		sess:       sess,
		chat:       chat,
		bus:        bus,
		unread:     make(map[string]int),
		watermarks: make(map[string]time.Time),
	}
}

// Refresh fetches the role-appropriate roster. On failure the previous
// roster is retained and the error returned; there is no automatic retry.
// Unread counters survive a refresh; bookkeeping for contacts that
// disappeared from the roster is dropped.
func (s *DirectoryService) Refresh(ctx context.Context) ([]model.Contact, error) {
	var contacts []model.Contact
	var err error
	if s.sess.Role == session.RoleDoctor {
		contacts, err = s.gateway.ListPatients(ctx)
	} else {
		contacts, err = s.gateway.ListDoctors(ctx)
	}
	if err != nil {
		slog.Warn("Failed to refresh contact roster", "role", s.sess.Role, "error", err)
		return nil, err
	}

	now := time.Now()

	s.mu.Lock()
	s.contacts = contacts

	known := make(map[string]struct{}, len(contacts))
	for _, c := range contacts {
		known[c.ID] = struct{}{}
		if _, seen := s.watermarks[c.ID]; !seen {
			// A contact first seen this session starts clean: only
			// messages arriving from here on count as unread.
			s.watermarks[c.ID] = now
		}
	}
	for id := range s.unread {
		if _, ok := known[id]; !ok {
			delete(s.unread, id)
		}
	}
	for id := range s.watermarks {
		if _, ok := known[id]; !ok {
			delete(s.watermarks, id)
		}
	}

	roster := s.copyContactsLocked()
	counts := s.copyUnreadLocked()
	s.mu.Unlock()

	s.publishRoster(roster)
	s.publishUnread(counts)

	return roster, nil
}

// Select marks a contact active, clears its unread badge, and opens its
// conversation. The open cancels any fetch still in flight for the
// previously active contact.
func (s *DirectoryService) Select(ctx context.Context, contactID string) error {
	s.mu.Lock()
	var contact *model.Contact
	for i := range s.contacts {
		if s.contacts[i].ID == contactID {
			contact = &s.contacts[i]
			break
		}
	}
	if contact == nil {
		s.mu.Unlock()
		return helper.NewValidationError("Unknown contact " + contactID)
	}
	selected := *contact
	s.activeID = contactID
	s.unread[contactID] = 0
	counts := s.copyUnreadLocked()
	s.mu.Unlock()

	s.publishUnread(counts)

	transcript, err := s.chat.Open(ctx, selected)
	if err != nil {
		return err
	}

	s.ReconcileHistory(contactID, transcript)
	return nil
}

// ClearActive detaches the directory from the conversation view, e.g. when
// the messaging tab is left.
func (s *DirectoryService) ClearActive() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}

// RecordIncoming adds newly discovered counterpart messages to a contact's
// unread badge. The active conversation never accrues unread counts; being
// open means being read.
func (s *DirectoryService) RecordIncoming(contactID string, newMessageCount int) {
	if newMessageCount <= 0 {
		return
	}

	s.mu.Lock()
	if contactID == s.activeID {
		s.mu.Unlock()
		return
	}
	s.unread[contactID] += newMessageCount
	counts := s.copyUnreadLocked()
	s.mu.Unlock()

	s.publishUnread(counts)
}

// ReconcileHistory feeds a freshly fetched transcript into the unread
// accounting: counterpart-authored messages newer than the contact's
// watermark are counted and the watermark advances, so applying the same
// history twice counts nothing the second time.
func (s *DirectoryService) ReconcileHistory(contactID string, msgs []model.Message) int {
	s.mu.Lock()
	mark := s.watermarks[contactID]
	newest := mark
	count := 0
	for _, msg := range msgs {
		if msg.ID == "" || msg.SenderID != contactID {
			continue
		}
		if msg.Timestamp.After(mark) {
			count++
		}
		if msg.Timestamp.After(newest) {
			newest = msg.Timestamp
		}
	}
	s.watermarks[contactID] = newest
	s.mu.Unlock()

	s.RecordIncoming(contactID, count)
	return count
}

// ProbeContact checks a non-active contact's conversation for messages that
// arrived while it was closed. Poll-tick failures are the caller's to log
// and swallow.
func (s *DirectoryService) ProbeContact(ctx context.Context, contact model.Contact) (int, error) {
	s.mu.Lock()
	active := s.activeID
	s.mu.Unlock()
	if contact.ID == active {
		return 0, nil
	}

	doctorID, patientID := s.sess.ConversationPair(contact.ID)
	history, err := s.gateway.ConversationHistory(ctx, doctorID, patientID)
	if err != nil {
		return 0, err
	}

	return s.ReconcileHistory(contact.ID, history), nil
}

func (s *DirectoryService) ActiveContactID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *DirectoryService) Contacts() []model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyContactsLocked()
}

func (s *DirectoryService) UnreadCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyUnreadLocked()
}

func (s *DirectoryService) UnreadCount(contactID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[contactID]
}

func (s *DirectoryService) copyContactsLocked() []model.Contact {
	out := make([]model.Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

func (s *DirectoryService) copyUnreadLocked() map[string]int {
	out := make(map[string]int, len(s.unread))
	for id, n := range s.unread {
		out[id] = n
	}
	return out
}

func (s *DirectoryService) publishRoster(contacts []model.Contact) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:    event.TypeRoster,
		Payload: contacts,
		Meta:    &event.Meta{Timestamp: time.Now().UnixMilli()},
	})
}

func (s *DirectoryService) publishUnread(counts map[string]int) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:    event.TypeUnread,
		Payload: counts,
		Meta:    &event.Meta{Timestamp: time.Now().UnixMilli()},
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ClinicTalk/internal/config"
	"ClinicTalk/internal/event"
	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/model"
	"ClinicTalk/internal/session"
)

// fakeGateway is an in-memory clinic backend. Sent messages are stored into
// the conversation history with a server id, so a later refetch is
// authoritative the way the real backend is.
type fakeGateway struct {
	mu         sync.Mutex
	doctors    []model.Contact
	patients   []model.Contact
	histories  map[string][]model.Message
	listErr    error
	historyErr error
	sendErr    error

	historyCalls int
	sendCalls    int
	nextSendID   int

	historyHook func(doctorID, patientID string)
	sendHook    func(req model.SendMessageRequest)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		histories: make(map[string][]model.Message),
	}
}

func (f *fakeGateway) setHistory(doctorID, patientID string, msgs []model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := helper.ConversationKey(doctorID, patientID)
	f.histories[key] = append([]model.Message(nil), msgs...)
}

func (f *fakeGateway) appendHistory(doctorID, patientID string, msg model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := helper.ConversationKey(doctorID, patientID)
	f.histories[key] = append(f.histories[key], msg)
}

func (f *fakeGateway) counts() (history, send int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls, f.sendCalls
}

func (f *fakeGateway) ListDoctors(ctx context.Context) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Contact(nil), f.doctors...), nil
}

func (f *fakeGateway) ListPatients(ctx context.Context) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Contact(nil), f.patients...), nil
}

func (f *fakeGateway) ConversationHistory(ctx context.Context, doctorID, patientID string) ([]model.Message, error) {
	f.mu.Lock()
	f.historyCalls++
	hook := f.historyHook
	f.mu.Unlock()

	if hook != nil {
		hook(doctorID, patientID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	key := helper.ConversationKey(doctorID, patientID)
	return append([]model.Message(nil), f.histories[key]...), nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	f.mu.Lock()
	f.sendCalls++
	hook := f.sendHook
	f.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.nextSendID++
	id := fmt.Sprintf("srv-%d", f.nextSendID)

	key := helper.ConversationKey(req.DoctorID, req.PatientID)
	f.histories[key] = append(f.histories[key], model.Message{
		ID:            id,
		CorrelationID: req.CorrelationID,
		SenderID:      req.SenderID,
		Body:          req.Body,
		Timestamp:     req.Timestamp,
	})

	return &model.SendMessageResponse{
		ID:            id,
		CorrelationID: req.CorrelationID,
		Timestamp:     req.Timestamp,
	}, nil
}

var errBackendDown = helper.NewFetchError("", errors.New("backend unreachable"))

func newPatientFixture(t *testing.T) (*fakeGateway, *ChatService, *DirectoryService, *event.Bus) {
	t.Helper()

	gw := newFakeGateway()
	sess := &session.Session{UserID: "p1", Role: session.RolePatient}
	bus := event.NewBus()
	cfg := &config.AppConfig{HTTPTimeoutSeconds: 5}

	chat := NewChatService(cfg, sess, gw, config.NewValidator(), bus)
	directory := NewDirectoryService(sess, gw, chat, bus)

	t.Cleanup(func() {
		chat.Stop()
		bus.Close()
	})

	return gw, chat, directory, bus
}

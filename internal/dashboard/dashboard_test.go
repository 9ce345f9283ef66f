package dashboard_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ClinicTalk/internal/bootstrap"
	"ClinicTalk/internal/config"
	"ClinicTalk/internal/dashboard"
	"ClinicTalk/internal/event"
	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/model"
	"ClinicTalk/internal/session"

	"github.com/stretchr/testify/assert"
)

type stubGateway struct {
	mu        sync.Mutex
	doctors   []model.Contact
	patients  []model.Contact
	histories map[string][]model.Message
	nextID    int
}

func newStubGateway() *stubGateway {
	return &stubGateway{histories: make(map[string][]model.Message)}
}

func (g *stubGateway) setHistory(doctorID, patientID string, msgs []model.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.histories[helper.ConversationKey(doctorID, patientID)] = append([]model.Message(nil), msgs...)
}

func (g *stubGateway) ListDoctors(ctx context.Context) ([]model.Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Contact(nil), g.doctors...), nil
}

func (g *stubGateway) ListPatients(ctx context.Context) ([]model.Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Contact(nil), g.patients...), nil
}

func (g *stubGateway) ConversationHistory(ctx context.Context, doctorID, patientID string) ([]model.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Message(nil), g.histories[helper.ConversationKey(doctorID, patientID)]...), nil
}

func (g *stubGateway) SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := fmt.Sprintf("srv-%d", g.nextID)
	key := helper.ConversationKey(req.DoctorID, req.PatientID)
	g.histories[key] = append(g.histories[key], model.Message{
		ID:            id,
		CorrelationID: req.CorrelationID,
		SenderID:      req.SenderID,
		Body:          req.Body,
		Timestamp:     req.Timestamp,
	})
	return &model.SendMessageResponse{ID: id, CorrelationID: req.CorrelationID, Timestamp: req.Timestamp}, nil
}

func newPatientDashboard(t *testing.T) (*stubGateway, *dashboard.Dashboard) {
	t.Helper()

	gw := newStubGateway()
	sess := &session.Session{UserID: "p1", Role: session.RolePatient}
	cfg := &config.AppConfig{
		ConversationPollSeconds: 3600,
		RosterPollSeconds:       3600,
		HTTPTimeoutSeconds:      5,
		PollBackoffBaseSeconds:  1,
		PollBackoffCapSeconds:   2,
	}

	board, err := bootstrap.Init(cfg, sess, gw, config.NewValidator())
	assert.NoError(t, err)

	t.Cleanup(board.Close)

	return gw, board
}

func TestNewRejectsAdmins(t *testing.T) {
	sess := &session.Session{UserID: "a1", Role: session.RoleAdmin}

	_, err := bootstrap.Init(&config.AppConfig{}, sess, newStubGateway(), config.NewValidator())

	assert.True(t, helper.IsValidationError(err))
}

func TestMessagingFlow(t *testing.T) {
	gw, board := newPatientDashboard(t)
	gw.doctors = []model.Contact{{ID: "d1", Kind: model.ContactKindDoctor, DisplayName: "Dr. Smith"}}
	t0 := time.Now().Add(-time.Hour)
	gw.setHistory("d1", "p1", []model.Message{
		{ID: "1", SenderID: "d1", Body: "how are you", Timestamp: t0},
	})

	board.Start()

	events, unsubscribe := board.Events(64)
	defer unsubscribe()

	assert.NoError(t, board.ActivateMessaging(context.Background()))
	assert.Len(t, board.Contacts(), 1)

	assert.NoError(t, board.SelectContact(context.Background(), "d1"))
	snap := board.Transcript()
	assert.Equal(t, "d1", snap.ActiveContactID)
	assert.Len(t, snap.Messages, 1)
	assert.Zero(t, board.UnreadCounts()["d1"])

	sent, err := board.Send(context.Background(), "thanks")
	assert.NoError(t, err)
	assert.True(t, sent.Pending)

	assert.Eventually(t, func() bool {
		msgs := board.Transcript().Messages
		return len(msgs) == 2 && !msgs[1].Pending && msgs[1].ID != ""
	}, time.Second, 10*time.Millisecond)

	seen := map[event.Type]bool{}
	for {
		select {
		case evt := <-events:
			seen[evt.Type] = true
			continue
		default:
		}
		break
	}
	assert.True(t, seen[event.TypeRoster])
	assert.True(t, seen[event.TypeActiveContact])
	assert.True(t, seen[event.TypeTranscript])
}

func TestSelectContactRequiresActiveMessaging(t *testing.T) {
	gw, board := newPatientDashboard(t)
	gw.doctors = []model.Contact{{ID: "d1", Kind: model.ContactKindDoctor}}

	err := board.SelectContact(context.Background(), "d1")

	assert.True(t, helper.IsValidationError(err))
}

func TestDeactivateMessagingClosesConversation(t *testing.T) {
	gw, board := newPatientDashboard(t)
	gw.doctors = []model.Contact{{ID: "d1", Kind: model.ContactKindDoctor}}
	gw.setHistory("d1", "p1", nil)

	board.Start()
	assert.NoError(t, board.ActivateMessaging(context.Background()))
	assert.NoError(t, board.SelectContact(context.Background(), "d1"))

	board.DeactivateMessaging()

	snap := board.Transcript()
	assert.Empty(t, snap.ActiveContactID)
	assert.Empty(t, snap.Messages)

	// Messaging must be re-activated before selecting again.
	err := board.SelectContact(context.Background(), "d1")
	assert.True(t, helper.IsValidationError(err))
}

func TestCloseIsIdempotent(t *testing.T) {
	_, board := newPatientDashboard(t)
	board.Start()

	board.Close()
	board.Close()

	err := board.ActivateMessaging(context.Background())
	assert.True(t, helper.IsValidationError(err))
}

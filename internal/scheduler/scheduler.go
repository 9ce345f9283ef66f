package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ClinicTalk/internal/config"
	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/scheduler/job"
	"ClinicTalk/internal/service"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the two poll tickers of a mounted dashboard: one for the
// active conversation, one for the contact roster. At most one ticker of
// each kind is live at a time; starting an already started ticker replaces
// it. Tick failures are logged and swallowed, with consecutive failures
// backing off by skipping ticks until a deadline passes.
type Scheduler struct {
	cfg       *config.AppConfig
	cron      *cron.Cron
	chat      *service.ChatService
	directory *service.DirectoryService

	mu          sync.Mutex
	convEntry   cron.EntryID
	rosterEntry cron.EntryID

	convBackoff   backoffState
	rosterBackoff backoffState
}

type backoffState struct {
	failures  int
	skipUntil time.Time
}

func New(cfg *config.AppConfig, chat *service.ChatService, directory *service.DirectoryService) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		cron:      cron.New(),
		chat:      chat,
		directory: directory,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Polling scheduler started")
}

func (s *Scheduler) Stop() {
	s.StopConversationPoll()
	s.StopRosterRefresh()

	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Polling scheduler stopped")
}

// StartConversationPoll begins polling the active conversation. Any
// previous conversation ticker is torn down first.
func (s *Scheduler) StartConversationPoll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.convEntry != 0 {
		s.cron.Remove(s.convEntry)
		s.convEntry = 0
	}
	s.convBackoff = backoffState{}

	id, err := s.cron.AddFunc(s.cfg.ConversationPollSpec(), s.runConversationPoll)
	if err != nil {
		slog.Error("Failed to register conversation poll", "spec", s.cfg.ConversationPollSpec(), "error", err)
		return
	}
	s.convEntry = id
}

func (s *Scheduler) StopConversationPoll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.convEntry != 0 {
		s.cron.Remove(s.convEntry)
		s.convEntry = 0
	}
}

// StartRosterRefresh begins the roster ticker, normally when the messaging
// tab is activated.
func (s *Scheduler) StartRosterRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rosterEntry != 0 {
		s.cron.Remove(s.rosterEntry)
		s.rosterEntry = 0
	}
	s.rosterBackoff = backoffState{}

	id, err := s.cron.AddFunc(s.cfg.RosterPollSpec(), s.runRosterRefresh)
	if err != nil {
		slog.Error("Failed to register roster refresh", "spec", s.cfg.RosterPollSpec(), "error", err)
		return
	}
	s.rosterEntry = id
}

func (s *Scheduler) StopRosterRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rosterEntry != 0 {
		s.cron.Remove(s.rosterEntry)
		s.rosterEntry = 0
	}
}

func (s *Scheduler) runConversationPoll() {
	if s.skipTick(&s.convBackoff) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTPTimeout())
	defer cancel()

	err := job.RunConversationPoll(ctx, s.chat, s.directory)
	s.recordResult(&s.convBackoff, "conversation poll", err)
}

func (s *Scheduler) runRosterRefresh() {
	if s.skipTick(&s.rosterBackoff) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTPTimeout())
	defer cancel()

	err := job.RunRosterRefresh(ctx, s.directory)
	s.recordResult(&s.rosterBackoff, "roster refresh", err)
}

func (s *Scheduler) skipTick(state *backoffState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(state.skipUntil)
}

func (s *Scheduler) recordResult(state *backoffState, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		state.failures = 0
		state.skipUntil = time.Time{}
		return
	}

	state.failures++
	delay := helper.BackoffDelay(s.cfg.PollBackoffBase(), state.failures, s.cfg.PollBackoffCap())
	state.skipUntil = time.Now().Add(delay)
	slog.Warn("Poll tick failed, backing off", "job", name, "failures", state.failures, "retry_in", delay, "error", err)
}

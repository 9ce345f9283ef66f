package bootstrap

import (
	"ClinicTalk/internal/config"
	"ClinicTalk/internal/dashboard"
	"ClinicTalk/internal/event"
	"ClinicTalk/internal/scheduler"
	"ClinicTalk/internal/service"
	"ClinicTalk/internal/session"

	"github.com/go-playground/validator/v10"
)

// Init wires one viewer's dashboard: event bus, chat and directory
// services, and the polling scheduler.
func Init(cfg *config.AppConfig, sess *session.Session, gateway service.Gateway, validate *validator.Validate) (*dashboard.Dashboard, error) {
	bus := event.NewBus()

	chatService := service.NewChatService(cfg, sess, gateway, validate, bus)
	directoryService := service.NewDirectoryService(sess, gateway, chatService, bus)
	sched := scheduler.New(cfg, chatService, directoryService)

	return dashboard.New(cfg, sess, bus, directoryService, chatService, sched)
}

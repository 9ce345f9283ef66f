package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ClinicTalk/internal/adapter"
	"ClinicTalk/internal/bootstrap"
	"ClinicTalk/internal/config"
	"ClinicTalk/internal/model"
	"ClinicTalk/internal/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadAppConfig()

	httpClient := config.NewHTTPClient(cfg)
	api := adapter.NewClinicAPIAdapter(cfg, httpClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token := cfg.APIToken
	if token == "" {
		if cfg.APIEmail == "" || cfg.APIPass == "" {
			slog.Error("Either API_TOKEN or API_EMAIL/API_PASSWORD must be set")
			os.Exit(1)
		}
		var err error
		token, err = api.Login(ctx, cfg.APIEmail, cfg.APIPass)
		if err != nil {
			slog.Error("Login failed", "error", err)
			os.Exit(1)
		}
	}

	sess, err := session.FromToken(token)
	if err != nil {
		slog.Error("Invalid session token", "error", err)
		os.Exit(1)
	}
	api.SetToken(token)

	user, err := api.CurrentUser(ctx, string(sess.Role), sess.UserID)
	if err != nil {
		slog.Warn("Failed to load profile, continuing without a display name", "error", err)
		user = &model.UserResponse{}
	}

	slog.Info("Starting ClinicTalk dashboard", "user_id", sess.UserID, "role", sess.Role, "name", user.Name)

	validate := config.NewValidator()
	board, err := bootstrap.Init(cfg, sess, api, validate)
	if err != nil {
		slog.Error("Failed to build dashboard", "error", err)
		os.Exit(1)
	}

	board.Start()
	defer board.Close()

	events, unsubscribe := board.Events(64)
	defer unsubscribe()

	if err := board.ActivateMessaging(ctx); err != nil {
		slog.Warn("Initial roster load failed, polling will retry", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down")
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			contactID := ""
			if evt.Meta != nil {
				contactID = evt.Meta.ContactID
			}
			slog.Info("Dashboard event", "type", evt.Type, "contact_id", contactID)
		}
	}
}

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ClinicTalk/internal/config"
	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/model"
)

// ClinicAPIAdapter is the thin REST wrapper over the clinic backend. Every
// failure surfaces as a fetch error; whether to retain stale data is the
// caller's call, and polling endpoints are never retried here because the
// next poll tick is the retry.
type ClinicAPIAdapter struct {
	cfg        *config.AppConfig
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClinicAPIAdapter(cfg *config.AppConfig, httpClient *http.Client) *ClinicAPIAdapter {
	return &ClinicAPIAdapter{
		cfg:        cfg,
		httpClient: httpClient,
		token:      cfg.APIToken,
	}
}

func (a *ClinicAPIAdapter) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *ClinicAPIAdapter) bearerToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// envelope matches the backend's {"data": ..., "message": ...} responses.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (a *ClinicAPIAdapter) doJSON(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return helper.NewFetchError("", fmt.Errorf("failed to marshal request body: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	url := strings.TrimRight(a.cfg.APIBaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return helper.NewFetchError("", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := a.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return helper.NewFetchError("", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return helper.NewFetchError("", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		message := ""
		if json.Unmarshal(raw, &env) == nil {
			message = env.Message
		}
		return helper.NewFetchError(message, fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return helper.NewFetchError("", fmt.Errorf("failed to decode response envelope: %w", err))
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return helper.NewFetchError("", fmt.Errorf("failed to decode response data: %w", err))
	}

	return nil
}

// Login exchanges credentials for a bearer token and stores it on the
// adapter. One-shot call, so transient backend failures are retried with
// backoff, unlike the polling endpoints.
func (a *ClinicAPIAdapter) Login(ctx context.Context, email, password string) (string, error) {
	operation := func() (string, bool, error) {
		var loginResp model.LoginResponse
		err := a.doJSON(ctx, http.MethodPost, "/auth/api/login", model.LoginRequest{
			Email:    email,
			Password: password,
		}, &loginResp)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, err
			}
			return "", true, err
		}
		if loginResp.Token == "" {
			return "", false, helper.NewFetchError("Login response carried no token", nil)
		}
		return loginResp.Token, false, nil
	}

	token, err := helper.RetryWithBackoff(operation, a.cfg.LoginMaxRetries, 500*time.Millisecond)
	if err != nil {
		return "", err
	}

	a.SetToken(token)
	return token, nil
}

// CurrentUser fetches the viewer's profile through the role-appropriate
// endpoint.
func (a *ClinicAPIAdapter) CurrentUser(ctx context.Context, role, userID string) (*model.UserResponse, error) {
	path := fmt.Sprintf("/%s/view/%s", role, userID)
	var user model.UserResponse
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListDoctors returns the doctors a patient may contact.
func (a *ClinicAPIAdapter) ListDoctors(ctx context.Context) ([]model.Contact, error) {
	var doctors []model.DoctorResponse
	if err := a.doJSON(ctx, http.MethodGet, "/doctors", nil, &doctors); err != nil {
		return nil, err
	}

	contacts := make([]model.Contact, 0, len(doctors))
	for _, d := range doctors {
		contacts = append(contacts, d.ToContact())
	}
	return contacts, nil
}

// ListPatients returns the patients assigned to the viewing doctor.
func (a *ClinicAPIAdapter) ListPatients(ctx context.Context) ([]model.Contact, error) {
	var patients []model.PatientResponse
	if err := a.doJSON(ctx, http.MethodGet, "/doctor/assigned_patients", nil, &patients); err != nil {
		return nil, err
	}

	contacts := make([]model.Contact, 0, len(patients))
	for _, p := range patients {
		contacts = append(contacts, p.ToContact())
	}
	return contacts, nil
}

// ConversationHistory fetches the full history of the symmetric
// doctor/patient conversation. No delta mode; every call returns everything.
func (a *ClinicAPIAdapter) ConversationHistory(ctx context.Context, doctorID, patientID string) ([]model.Message, error) {
	path := fmt.Sprintf("/queries/patient/%s/doctor/%s", patientID, doctorID)
	var wire []model.MessageResponse
	if err := a.doJSON(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(wire))
	for _, w := range wire {
		messages = append(messages, w.ToMessage())
	}
	return messages, nil
}

// SendMessage stores one message. The endpoint depends on which side of the
// conversation is sending.
func (a *ClinicAPIAdapter) SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.SendMessageResponse, error) {
	path := "/queries/patient_create"
	if req.SenderID == req.DoctorID {
		path = "/queries/doctor_create"
	}

	var resp model.SendMessageResponse
	if err := a.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

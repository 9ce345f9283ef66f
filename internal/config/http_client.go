package config

import (
	"net/http"
	"time"
)

func NewHTTPClient(cfg *AppConfig) *http.Client {
	timeout := cfg.HTTPTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

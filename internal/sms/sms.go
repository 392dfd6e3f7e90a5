package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trackifyhq/trackify/internal"
)

// Backend delivers one SMS. Implementations must be safe for concurrent use.
type Backend interface {
	Send(ctx context.Context, phone, message string) error
}

// NewBackend picks the backend from configuration: console for development,
// gateway for production delivery.
func NewBackend(config internal.SMSConfig, logger *slog.Logger) (Backend, error) {
	switch config.Backend {
	case "", "console":
		return &ConsoleBackend{logger: logger}, nil
	case "gateway":
		if config.GatewayURL == "" {
			return nil, fmt.Errorf("sms gateway backend requires a gateway_url")
		}
		return &GatewayBackend{
			gatewayURL: config.GatewayURL,
			apiKey:     config.APIKey,
			fromNumber: config.FromNumber,
			httpClient: &http.Client{Timeout: 15 * time.Second},
			logger:     logger,
		}, nil
	}
	return nil, fmt.Errorf("unknown sms backend %q", config.Backend)
}

// ConsoleBackend writes the message to the log instead of sending it.
type ConsoleBackend struct {
	logger *slog.Logger
}

func (b *ConsoleBackend) Send(ctx context.Context, phone, message string) error {
	b.logger.Info("sms (console backend)", "to", phone, "message", message)
	return nil
}

// GatewayBackend posts the message to an HTTP SMS gateway.
type GatewayBackend struct {
	gatewayURL string
	apiKey     string
	fromNumber string
	httpClient *http.Client
	logger     *slog.Logger
}

func (b *GatewayBackend) Send(ctx context.Context, phone, message string) error {
	payload := map[string]string{
		"to":      phone,
		"from":    b.fromNumber,
		"message": message,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.gatewayURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		b.logger.Error("sms gateway rejected message",
			"status", resp.StatusCode, "to", phone)
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	b.logger.Info("sms sent", "to", phone)
	return nil
}

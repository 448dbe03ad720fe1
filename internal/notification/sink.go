// Package notification provides the outbound alert channel used by the
// expiration sweeps and event subscribers. The reference deployment logs
// alerts; the Sink interface keeps it swappable for email or SMS.
package notification

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Sink delivers one alert message.
type Sink interface {
	Send(ctx context.Context, message string) error
}

// LogSink writes alerts to the service log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a Sink backed by zap.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, message string) error {
	s.logger.Warn("[ALERT] " + message)
	return nil
}

// WebhookSink is a stub for webhook delivery; it records the outgoing message
// without performing HTTP calls when no URL is configured.
type WebhookSink struct {
	url    string
	logger *zap.Logger
}

// NewWebhookSink builds a webhook-backed Sink stub.
func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	return &WebhookSink{url: url, logger: logger}
}

func (s *WebhookSink) Send(_ context.Context, message string) error {
	if strings.TrimSpace(s.url) == "" {
		return nil
	}
	s.logger.Debug("webhook notification",
		zap.String("url", s.url),
		zap.String("message", message))
	return nil
}

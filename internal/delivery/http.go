package delivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/logging"
)

// DefaultTimeout bounds a single POST.
const DefaultTimeout = 10 * time.Second

// HTTPConfig holds the endpoint credentials and the identity fields that
// wrap every heartbeat.
type HTTPConfig struct {
	Endpoint  string
	APIKey    string
	User      string
	Project   string
	SessionID string
	Timeout   time.Duration
}

// HTTPSender POSTs heartbeats as JSON, one request per heartbeat.
type HTTPSender struct {
	cfg    HTTPConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSender returns a sender for cfg. A nil client means a fresh
// http.Client; the per-request timeout comes from cfg either way.
func NewHTTPSender(cfg HTTPConfig, client *http.Client, logger *slog.Logger) *HTTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &HTTPSender{cfg: cfg, client: client, logger: logger}
}

// Configured reports whether both endpoint and API key are set.
func (s *HTTPSender) Configured() bool {
	return s.cfg.Endpoint != "" && s.cfg.APIKey != ""
}

// Send implements Sender. Missing configuration makes it a no-op.
func (s *HTTPSender) Send(ctx context.Context, h heartbeat.Heartbeat) Outcome {
	if !s.Configured() {
		s.logger.Debug("endpoint or api key not configured, heartbeat not sent", "tag", h.Tag.String())
		return OutcomeConfigMissing
	}

	body, err := heartbeat.Payload{
		User:      s.cfg.User,
		Project:   s.cfg.Project,
		SessionID: s.cfg.SessionID,
		Heartbeat: h.Data(),
	}.Marshal()
	if err != nil {
		s.logger.Warn("encode heartbeat", "tag", h.Tag.String(), "error", err)
		return OutcomeNetworkError
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("build heartbeat request", "error", err)
		return OutcomeNetworkError
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			s.logger.Warn("heartbeat request timed out", "tag", h.Tag.String(), "timeout", s.cfg.Timeout)
			return OutcomeTimeout
		}
		s.logger.Warn("heartbeat request failed", "tag", h.Tag.String(), "error", err)
		return OutcomeNetworkError
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("heartbeat rejected",
			"tag", h.Tag.String(),
			"status", resp.StatusCode,
			"response", string(snippet))
		return OutcomeNetworkError
	}
	s.logger.Debug("heartbeat sent", "tag", h.Tag.String(), "status", resp.StatusCode)
	return OutcomeSuccess
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

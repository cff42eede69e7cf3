package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reward-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// notifyRetryIntervals defines the delivery retry intervals.
var notifyRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	5 * time.Minute,
}

// NotificationPayload is the JSON structure posted to the messaging subsystem.
type NotificationPayload struct {
	Event     string `json:"event"`
	ActorID   string `json:"actor_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpNotifier implements ports.Notifier by POSTing signed payloads to the
// messaging subsystem's endpoint.
type httpNotifier struct {
	endpoint   string
	secretKey  string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewHTTPNotifier creates a new HTTP notifier.
// An empty endpoint disables delivery; notifications are only logged.
func NewHTTPNotifier(endpoint, secretKey string, sigSvc ports.SignatureService, httpClient HTTPClient, log zerolog.Logger) ports.Notifier {
	return &httpNotifier{
		endpoint:   endpoint,
		secretKey:  secretKey,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		log:        log,
	}
}

// Notify delivers the notification asynchronously with retries.
func (s *httpNotifier) Notify(ctx context.Context, n ports.Notification) error {
	if s.endpoint == "" {
		s.log.Debug().Str("event", n.Event).Msg("notify: no endpoint configured, skipping")
		return nil
	}

	payload := NotificationPayload{
		Event:     n.Event,
		ActorID:   n.ActorID.String(),
		Amount:    n.Amount,
		Reason:    n.Reason,
		Timestamp: time.Now().Unix(),
	}

	body := fmt.Sprintf("%s|%s|%d|%d", payload.Event, payload.ActorID, payload.Amount, payload.Timestamp)
	payload.Signature = s.sigSvc.Sign(s.secretKey, body)

	// Fire async with retries
	go s.deliverWithRetries(payload)

	return nil
}

// deliverWithRetries attempts delivery until a 2xx response or exhaustion.
func (s *httpNotifier) deliverWithRetries(payload NotificationPayload) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", payload.Event).Msg("notify: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(notifyRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(notifyRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(payloadBytes))
		if err != nil {
			s.log.Error().Err(err).Str("event", payload.Event).Int("attempt", attempt+1).Msg("notify: failed to create request")
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.log.Warn().Err(err).Str("event", payload.Event).Int("attempt", attempt+1).Msg("notify: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.log.Info().Str("event", payload.Event).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("notify: delivered successfully")
			return
		}

		s.log.Warn().Str("event", payload.Event).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("notify: non-2xx response, retrying")
	}

	s.log.Error().Str("event", payload.Event).Msg("notify: all retry attempts exhausted")
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/retry"
)

// HTTPSender posts envelopes to {baseURL}/messages with a bearer token.
type HTTPSender struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPSender(baseURL, token string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSender) Send(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal envelope failed: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s send failed: %w", env.Channel, err)
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		// Bad recipient or template; sending again will not help.
		return retry.Permanent(fmt.Errorf("%s rejected with %d: %s", env.Channel, resp.StatusCode, bytes.TrimSpace(msg)))
	default:
		return fmt.Errorf("%s provider returned %d", env.Channel, resp.StatusCode)
	}
}

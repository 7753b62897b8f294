package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderSignature = "X-Webhook-Signature"
	HeaderDelivery  = "X-Webhook-Delivery"
)

// HTTPDeliverer POSTs the delivery as JSON to one URL. When a secret is set,
// the body is signed with HMAC-SHA256.
type HTTPDeliverer struct {
	url    string
	secret string
	client *http.Client
}

func NewHTTPDeliverer(url, secret string, timeout time.Duration) *HTTPDeliverer {
	return &HTTPDeliverer{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (h *HTTPDeliverer) Deliver(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, d.Event)
	req.Header.Set(HeaderDelivery, d.ID)
	if h.secret != "" {
		req.Header.Set(HeaderSignature, Sign(h.secret, body))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", h.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: unexpected status %d", h.url, resp.StatusCode)
	}
	return nil
}

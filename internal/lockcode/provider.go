package lockcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/retry"
)

type Provider interface {
	Request(ctx context.Context, req ProvisionRequest) (ProvisionResponse, error)
	Revoke(ctx context.Context, providerRef string) error
}

// HTTPProvider talks JSON to the smart-lock vendor bridge.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPProvider(baseURL, token string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Request(ctx context.Context, in ProvisionRequest) (ProvisionResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return ProvisionResponse{}, retry.Permanent(err)
	}
	resp, err := p.do(ctx, http.MethodPost, p.baseURL+"/codes", body)
	if err != nil {
		return ProvisionResponse{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return ProvisionResponse{}, err
	}
	var out ProvisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ProvisionResponse{}, fmt.Errorf("decode lock provider response failed: %w", err)
	}
	if out.Passcode == "" {
		return ProvisionResponse{}, retry.Permanent(fmt.Errorf("lock provider returned no passcode"))
	}
	return out, nil
}

func (p *HTTPProvider) Revoke(ctx context.Context, providerRef string) error {
	resp, err := p.do(ctx, http.MethodDelete, p.baseURL+"/codes/"+url.PathEscape(providerRef), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// Already gone on the vendor side.
		return nil
	}
	return checkStatus(resp)
}

func (p *HTTPProvider) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lock provider %s failed: %w", method, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("lock provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

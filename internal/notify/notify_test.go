package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kystlys/stay-engine/internal/pkg/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{Timeout: time.Second, Retries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestNotifySkipsMissingChannels(t *testing.T) {
	var mu sync.Mutex
	var got []Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/messages", r.URL.Path)
		var env Envelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		mu.Lock()
		got = append(got, env)
		mu.Unlock()
	}))
	defer srv.Close()

	d := NewDispatcher(NewHTTPSender(srv.URL, "tok", time.Second), testPolicy())
	out := d.Notify(context.Background(), Message{
		Template: TemplateBookingConfirmed,
		Email:    "kari@example.no",
		Data:     map[string]any{"passcode": "482913"},
	})

	assert.True(t, out.Email.Sent)
	assert.True(t, out.SMS.Skipped)
	assert.False(t, out.Failed())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, ChannelEmail, got[0].Channel)
	assert.Equal(t, "482913", got[0].Data["passcode"])
}

func TestNotifyChannelsFailIndependently(t *testing.T) {
	var smsCalls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env Envelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		if env.Channel == ChannelSMS {
			mu.Lock()
			smsCalls++
			mu.Unlock()
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}))
	defer srv.Close()

	d := NewDispatcher(NewHTTPSender(srv.URL, "", time.Second), testPolicy())
	out := d.Notify(context.Background(), Message{Template: TemplateBookingReceived, Email: "a@b.no", Phone: "+4799999999"})

	assert.True(t, out.Email.Sent)
	assert.False(t, out.SMS.Sent)
	assert.Contains(t, out.SMS.Error, "503")
	assert.Equal(t, 3, out.SMS.Attempts)
	assert.True(t, out.Failed())
	mu.Lock()
	assert.Equal(t, 3, smsCalls)
	mu.Unlock()
}

func TestNotifyDoesNotRetryRejections(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		http.Error(w, "unknown template", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	d := NewDispatcher(NewHTTPSender(srv.URL, "", time.Second), testPolicy())
	out := d.Notify(context.Background(), Message{Template: "nope", Email: "a@b.no"})
	assert.Equal(t, 1, out.Email.Attempts)
	assert.Contains(t, out.Email.Error, "unknown template")
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestNotifyWithoutProvider(t *testing.T) {
	out := NewDispatcher(nil, testPolicy()).Notify(context.Background(), Message{Email: "a@b.no"})
	assert.Equal(t, ErrNoProvider.Error(), out.Email.Error)
	assert.True(t, out.SMS.Skipped)
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kystlys/stay-engine/internal/kvstore"
)

func TestHTTPDelivererSignsBody(t *testing.T) {
	var (
		mu      sync.Mutex
		gotBody []byte
		gotHdr  http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotBody, _ = io.ReadAll(r.Body)
		gotHdr = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, err := NewDelivery("d-1", EventBookingConfirmed, "b-1", map[string]string{"booking_id": "b-1"})
	require.NoError(t, err)

	err = NewHTTPDeliverer(srv.URL, "s3cret", time.Second).Deliver(context.Background(), d)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventBookingConfirmed, gotHdr.Get(HeaderEvent))
	assert.Equal(t, "d-1", gotHdr.Get(HeaderDelivery))
	assert.Equal(t, Sign("s3cret", gotBody), gotHdr.Get(HeaderSignature))

	var decoded Delivery
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.JSONEq(t, `{"booking_id":"b-1"}`, string(decoded.Payload))
}

func TestFanoutReportsFailingTargets(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	d, err := NewDelivery("d-2", EventRoomVacant, "b-2", nil)
	require.NoError(t, err)

	fanout := NewFanout(kvstore.NewMemoryStore(0), time.Hour,
		Target{Name: "ok", Deliverer: NewHTTPDeliverer(ok.URL, "", time.Second)},
		Target{Name: "bad", Deliverer: NewHTTPDeliverer(bad.URL, "", time.Second)},
	)
	err = fanout.Deliver(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "bad:")
	assert.NotContains(t, err.Error(), ok.URL)
}

type recorder struct {
	got []Delivery
	err error
}

func (r *recorder) Deliver(ctx context.Context, d Delivery) error {
	r.got = append(r.got, d)
	return r.err
}

func TestQueueHandler(t *testing.T) {
	rec := &recorder{}
	d, err := NewDelivery("d-3", EventBookingCreated, "b-3", map[string]int{"guests": 2})
	require.NoError(t, err)
	task, err := NewTask(d, 5)
	require.NoError(t, err)
	assert.Equal(t, TaskKind, task.Kind)

	require.NoError(t, Handler(rec)(context.Background(), task))
	require.Len(t, rec.got, 1)
	assert.Equal(t, "b-3", rec.got[0].Key)

	rec.err = errors.New("down")
	assert.Error(t, Handler(rec)(context.Background(), task), "failure surfaces so the worker retries")

	task.Payload = []byte("{not json")
	assert.NoError(t, Handler(rec)(context.Background(), task))
}

func TestFanoutRetriesOnlyFailedTargets(t *testing.T) {
	a := &recorder{err: errors.New("a down")}
	b := &recorder{}
	fanout := NewFanout(kvstore.NewMemoryStore(0), time.Hour, Target{Name: "a", Deliverer: a}, Target{Name: "b", Deliverer: b})
	d := Delivery{ID: "d-4", Event: EventBookingCreated}

	assert.Error(t, fanout.Deliver(context.Background(), d))
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)

	a.err = nil
	require.NoError(t, fanout.Deliver(context.Background(), d))
	assert.Len(t, a.got, 2)
	assert.Len(t, b.got, 1, "accepted target is not sent the same delivery again")

	require.NoError(t, fanout.Deliver(context.Background(), d))
	assert.Len(t, a.got, 2)

	other := Delivery{ID: "d-5", Event: EventBookingCreated}
	require.NoError(t, fanout.Deliver(context.Background(), other))
	assert.Len(t, b.got, 2)
}

package lockcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kystlys/stay-engine/internal/pkg/retry"
)

type memRepo struct {
	mu        sync.Mutex
	seq       int
	records   []*Record
	updateErr error
}

func (m *memRepo) Create(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.ID = fmt.Sprintf("lc-%d", m.seq)
	cp := *r
	m.records = append(m.records, &cp)
	return nil
}

func (m *memRepo) Update(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for i, rec := range m.records {
		if rec.ID == r.ID {
			cp := *r
			m.records[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("record %s not found", r.ID)
}

func (m *memRepo) ListByBooking(ctx context.Context, bookingID string) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Record
	for _, rec := range m.records {
		if rec.BookingID == bookingID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeBridge struct {
	mu         sync.Mutex
	failFirst  int
	failRevoke bool
	requests  []ProvisionRequest
	revoked   []string
}

func (f *fakeBridge) server(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, "Bearer lock-token", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/codes":
			if f.failFirst > 0 {
				f.failFirst--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			var req ProvisionRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.requests = append(f.requests, req)
			_ = json.NewEncoder(w).Encode(ProvisionResponse{Reference: "ref-" + req.BookingID, Passcode: "482913"})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/codes/"):
			if f.failRevoke {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			f.revoked = append(f.revoked, strings.TrimPrefix(r.URL.Path, "/codes/"))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testPolicy() retry.Policy {
	return retry.Policy{Timeout: time.Second, Retries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func stay() ProvisionInput {
	return ProvisionInput{
		BookingID: "b-1",
		LockID:    "lock-101",
		UnitLabel: "101",
		CheckIn:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:  time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestProvisionAndRevoke(t *testing.T) {
	bridge := &fakeBridge{failFirst: 1}
	srv := bridge.server(t)
	defer srv.Close()

	repo := &memRepo{}
	svc := NewService(repo, NewHTTPProvider(srv.URL, "lock-token", time.Second), testPolicy(), 15, 11)
	ctx := context.Background()

	rec, err := svc.Provision(ctx, stay())
	require.NoError(t, err)
	assert.Equal(t, StatusActive, rec.Status)
	require.NotNil(t, rec.Passcode)
	assert.Equal(t, "482913", *rec.Passcode)
	assert.Equal(t, time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC), rec.ValidFrom)
	assert.Equal(t, time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), rec.ValidUntil)
	require.Len(t, bridge.requests, 1)
	assert.Equal(t, "101", bridge.requests[0].Label)

	again, err := svc.Provision(ctx, stay())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID, "active code is reused")
	assert.Len(t, bridge.requests, 1)

	n, err := svc.Revoke(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"ref-b-1"}, bridge.revoked)

	records, _ := repo.ListByBooking(ctx, "b-1")
	require.Len(t, records, 1)
	assert.Equal(t, StatusRevoked, records[0].Status)

	n, err = svc.Revoke(ctx, "b-1")
	require.NoError(t, err)
	assert.Zero(t, n, "second revoke is a no-op")
}

func TestProvisionFailureIsRecorded(t *testing.T) {
	bridge := &fakeBridge{failFirst: 10}
	srv := bridge.server(t)
	defer srv.Close()

	repo := &memRepo{}
	svc := NewService(repo, NewHTTPProvider(srv.URL, "lock-token", time.Second), testPolicy(), 15, 11)
	ctx := context.Background()

	rec, err := svc.Provision(ctx, stay())
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "503")
	assert.Nil(t, rec.Passcode)

	// Revoking after a failed provision still settles the record.
	n, err := svc.Revoke(ctx, "b-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	records, _ := repo.ListByBooking(ctx, "b-1")
	assert.Equal(t, StatusRevoked, records[0].Status)
	assert.Empty(t, bridge.revoked)
}

func TestRevokeWithoutRecords(t *testing.T) {
	svc := NewService(&memRepo{}, nil, testPolicy(), 15, 11)
	n, err := svc.Revoke(context.Background(), "nothing")
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestProvisionWithoutProvider(t *testing.T) {
	svc := NewService(&memRepo{}, nil, testPolicy(), 15, 11)
	rec, err := svc.Provision(context.Background(), stay())
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestRevokeReportsUnsavedFailure(t *testing.T) {
	bridge := &fakeBridge{failRevoke: true}
	srv := bridge.server(t)
	defer srv.Close()

	ref := "ref-b-1"
	repo := &memRepo{records: []*Record{{ID: "lc-1", BookingID: "b-1", Status: StatusActive, ProviderRef: &ref}}}
	svc := NewService(repo, NewHTTPProvider(srv.URL, "lock-token", time.Second), testPolicy(), 15, 11)

	dbDown := errors.New("db down")
	repo.updateErr = dbDown
	n, err := svc.Revoke(context.Background(), "b-1")
	assert.Zero(t, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoke ref-b-1")
	assert.ErrorIs(t, err, dbDown)
}

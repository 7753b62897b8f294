package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kystlys/stay-engine/internal/booking"
	"github.com/kystlys/stay-engine/internal/pkg/response"
)

const roomTypeID = "6f1c2a9e-4b7d-4c1e-9a55-3d2f0b8e7a01"

type stubService struct {
	lastCreate booking.CreateRequest
	lastStatus booking.Status
	lastPatch  booking.Patch
	createErr  error
	statusErr  error
	replayed   bool
}

func sample() *booking.Booking {
	return &booking.Booking{
		ID:            "3a0f7d58-9c2b-4e61-b1a4-2f9e8d7c6b50",
		RoomTypeID:    roomTypeID,
		RoomTypeName:  "Kystværelse",
		CheckIn:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		Guests:        2,
		GuestName:     "Ingrid Solberg",
		GuestEmail:    "ingrid@example.com",
		TotalPrice:    240000,
		Status:        booking.StatusPending,
		PaymentStatus: booking.PaymentUnpaid,
		Source:        "direct",
		Version:       1,
	}
}

func (s *stubService) Create(ctx context.Context, req booking.CreateRequest) (*booking.CreateResult, error) {
	s.lastCreate = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &booking.CreateResult{Booking: sample(), Replayed: s.replayed}, nil
}

func (s *stubService) Transition(ctx context.Context, id string, target booking.Status) (*booking.TransitionResult, error) {
	s.lastStatus = target
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	b := sample()
	b.Status = target
	return &booking.TransitionResult{Booking: b, Changed: true}, nil
}

func (s *stubService) Update(ctx context.Context, id string, p booking.Patch) (*booking.Booking, error) {
	s.lastPatch = p
	b := sample()
	b.PaymentStatus = p.PaymentStatus.ValueOr(b.PaymentStatus)
	return b, nil
}

func (s *stubService) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return nil, booking.ErrNotFound
}

func (s *stubService) List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, int, error) {
	return []*booking.Booking{sample()}, 1, nil
}

func newRouter(svc booking.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	allow := func(c *gin.Context) { c.Next() }
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), allow)
	return r
}

func do(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBooking(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	w := do(r, http.MethodPost, "/v1/bookings", CreateBookingBody{
		RoomTypeID: roomTypeID,
		CheckIn:    "2025-06-01",
		CheckOut:   "2025-06-03",
		Guests:     2,
		GuestName:  "Ingrid Solberg",
		GuestEmail: "ingrid@example.com",
	}, map[string]string{IdempotencyHeader: "k-1"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp CreateBookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-06-01", resp.Booking.CheckIn)
	assert.Equal(t, 2, resp.Booking.Nights)
	assert.Equal(t, int64(240000), resp.Booking.TotalPrice)
	assert.Equal(t, "k-1", svc.lastCreate.IdempotencyKey)
}

func TestCreateBooking_ReplayReturnsOK(t *testing.T) {
	r := newRouter(&stubService{replayed: true})
	w := do(r, http.MethodPost, "/v1/bookings", CreateBookingBody{
		RoomTypeID: roomTypeID, CheckIn: "2025-06-01", CheckOut: "2025-06-03",
		Guests: 2, GuestName: "Ingrid", GuestEmail: "ingrid@example.com",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateBooking_BadDate(t *testing.T) {
	r := newRouter(&stubService{})
	w := do(r, http.MethodPost, "/v1/bookings", CreateBookingBody{
		RoomTypeID: roomTypeID, CheckIn: "01/06/2025", CheckOut: "2025-06-03",
		Guests: 2, GuestName: "Ingrid",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBooking_CapacityExhausted(t *testing.T) {
	r := newRouter(&stubService{createErr: booking.ErrCapacityExhausted.WithDetails(map[string]any{
		"sold_out": []string{"2025-06-02"},
	})})
	w := do(r, http.MethodPost, "/v1/bookings", CreateBookingBody{
		RoomTypeID: roomTypeID, CheckIn: "2025-06-02", CheckOut: "2025-06-04",
		Guests: 2, GuestName: "Ingrid", GuestEmail: "ingrid@example.com",
	}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "capacity_exhausted", string(resp.Kind))
}

func TestTransitionBooking(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	w := do(r, http.MethodPost, "/v1/bookings/3a0f7d58-9c2b-4e61-b1a4-2f9e8d7c6b50/transition",
		TransitionBody{Status: "confirmed"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, booking.StatusConfirmed, svc.lastStatus)

	w = do(r, http.MethodPost, "/v1/bookings/3a0f7d58-9c2b-4e61-b1a4-2f9e8d7c6b50/transition",
		TransitionBody{Status: "archived"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransitionBooking_ConcurrentChange(t *testing.T) {
	r := newRouter(&stubService{statusErr: booking.ErrConcurrentUpdate})
	w := do(r, http.MethodPost, "/v1/bookings/3a0f7d58-9c2b-4e61-b1a4-2f9e8d7c6b50/transition",
		TransitionBody{Status: "confirmed"}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", string(resp.Kind))
}

func TestUpdateBooking_OnlySentFields(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	w := do(r, http.MethodPatch, "/v1/bookings/3a0f7d58-9c2b-4e61-b1a4-2f9e8d7c6b50",
		map[string]any{"payment_status": "paid"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, svc.lastPatch.PaymentStatus.IsSet())
	assert.False(t, svc.lastPatch.Notes.IsSet())

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "paid", resp.PaymentStatus)
}

func TestGetBooking(t *testing.T) {
	r := newRouter(&stubService{})

	w := do(r, http.MethodGet, "/v1/bookings/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/v1/bookings/3a0f7d58-9c2b-4e61-b1a4-2f9e8d7c6b50", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListBookings(t *testing.T) {
	r := newRouter(&stubService{})

	w := do(r, http.MethodGet, "/v1/bookings?status=pending&stay_from=2025-06-01&stay_to=2025-07-01", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page response.PageResponse[BookingResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Items, 1)

	w = do(r, http.MethodGet, "/v1/bookings?stay_from=2025-07-01&stay_to=2025-06-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

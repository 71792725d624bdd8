package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/application/usecase"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/bookingflow"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/checkout"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/metrics"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/mocks"
)

const testSessionID = "session-1"

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type testServer struct {
	sessions *mocks.MockRepository
	locks    *mocks.MockLockRepository
	provider *mocks.MockProvider
	cache    *mocks.MockCacheRepository
	ledger   *mocks.MockLedgerRepository
	events   *mocks.MockEventPublisher
	handler  *BookingHandler
	router   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts := &testServer{
		sessions: mocks.NewMockRepository(ctrl),
		locks:    mocks.NewMockLockRepository(ctrl),
		provider: mocks.NewMockProvider(ctrl),
		cache:    mocks.NewMockCacheRepository(ctrl),
		ledger:   mocks.NewMockLedgerRepository(ctrl),
		events:   mocks.NewMockEventPublisher(ctrl),
	}
	ledger, events := ts.ledger, ts.events

	settings := usecase.DefaultSettings()
	clock := func() time.Time { return testNow }

	ts.handler = NewBookingHandler(
		usecase.NewManageSessionUseCase(ts.sessions, ts.locks, settings, clock, logger),
		usecase.NewCheckAvailabilityUseCase(ts.sessions, ts.locks, ts.provider, ts.cache, settings, clock, logger),
		usecase.NewSubmitBookingUseCase(ts.sessions, ts.locks, ts.provider, ts.cache, ledger, events, settings, clock, logger),
		usecase.NewCancelReservationUseCase(ts.sessions, ts.locks, ts.provider, ledger, events, settings, clock, logger),
		usecase.NewProcessPaymentUseCase(ts.sessions, ts.locks, ts.provider, ledger, events, settings, clock, logger),
		usecase.NewGetPaymentStatusUseCase(ts.sessions, ts.locks, ts.provider, ledger, events, settings, clock, logger),
		logger,
	)
	ts.router = NewRouter(ts.handler, metrics.New(), RouterConfig{EnableCORS: true}, logger)
	return ts
}

func (ts *testServer) expectLockedSession(sess *session.Session) {
	ts.locks.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return("token-1", true, nil)
	ts.locks.EXPECT().Release(gomock.Any(), gomock.Any(), "token-1").Return(nil)
	ts.sessions.EXPECT().Get(gomock.Any(), testSessionID).Return(sess, nil)
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

type sessionEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    *struct {
		session.Session
		Summary session.Summary `json:"summary"`
	} `json:"data"`
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionEnvelope {
	t.Helper()
	var envelope sessionEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope
}

func newSearchSession() *session.Session {
	sess := session.New(testSessionID, "prop-1", testNow)
	checkOut := testNow.AddDate(0, 0, 3)
	sess.Search = sess.Search.SetCheckOutDate(&checkOut)
	return sess
}

func ptr[T any](v T) *T { return &v }

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)
	ts.sessions.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sess *session.Session, _ time.Duration) error {
			assert.Equal(t, "prop-1", sess.Search.Criteria.PropertyID)
			return nil
		})

	rec := ts.do(http.MethodPost, "/api/v1/sessions", `{"property_id":"prop-1"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeSession(t, rec)
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.Data)
	assert.NotEmpty(t, envelope.Data.ID)
	assert.Equal(t, 2, envelope.Data.Search.Criteria.Adults)
	assert.Equal(t, bookingflow.StepRoomSelection, envelope.Data.Flow.CurrentStep)
	assert.Equal(t, 5, envelope.Data.Summary.TotalSteps)
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "empty body", body: "", code: http.StatusBadRequest},
		{name: "malformed json", body: `{"property_id":`, code: http.StatusBadRequest},
		{name: "missing property", body: `{}`, code: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/v1/sessions", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.False(t, decodeSession(t, rec).Success)
		})
	}
}

func TestGetSessionNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.sessions.EXPECT().Get(gomock.Any(), "missing").Return(nil, session.ErrSessionNotFound)

	rec := ts.do(http.MethodGet, "/api/v1/sessions/missing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, session.ErrSessionNotFound.Error(), decodeSession(t, rec).Error)
}

func TestBusySessionReturnsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.locks.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return("", false, nil)

	rec := ts.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/search", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, usecase.ErrSessionBusy.Error(), decodeSession(t, rec).Error)
}

func TestUpdateSearchParsesDates(t *testing.T) {
	ts := newTestServer(t)
	ts.expectLockedSession(newSearchSession())
	ts.sessions.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	rec := ts.do(http.MethodPut, "/api/v1/sessions/"+testSessionID+"/search",
		`{"check_in_date":"2026-05-10","adults":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeSession(t, rec).Data
	require.NotNil(t, data)
	require.NotNil(t, data.Search.Criteria.CheckInDate)
	assert.Equal(t, "2026-05-10", data.Search.Criteria.CheckInDate.Format("2006-01-02"))
	assert.Equal(t, 3, data.Search.Criteria.Adults)
}

func TestUpdateSearchRejectsBadDate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPut, "/api/v1/sessions/"+testSessionID+"/search", `{"check_in_date":"10/05/2026"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeSession(t, rec).Error, "check_in_date")
}

func TestCheckAvailabilityRemoteFailureIsReportedInState(t *testing.T) {
	ts := newTestServer(t)
	ts.expectLockedSession(newSearchSession())
	ts.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("miss"))
	ts.sessions.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	ts.provider.EXPECT().CheckAvailability(gomock.Any(), gomock.Any()).
		Return(nil, &booking.ProviderError{StatusCode: http.StatusNotFound, Message: "Property not found"})

	rec := ts.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/search", "")

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeSession(t, rec)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Property not found", envelope.Data.Search.Error)
	assert.False(t, envelope.Data.Search.IsLoading)
}

func persisted(t *testing.T, sess *session.Session) *session.Session {
	t.Helper()
	data, err := json.Marshal(sess)
	require.NoError(t, err)
	var restored session.Session
	require.NoError(t, json.Unmarshal(data, &restored))
	return &restored
}

func TestUpdatePaymentNeverStoresCardSecrets(t *testing.T) {
	ts := newTestServer(t)
	ts.expectLockedSession(newSearchSession())
	ts.sessions.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sess *session.Session, _ time.Duration) error {
			data, err := json.Marshal(sess)
			require.NoError(t, err)
			assert.NotContains(t, string(data), "cvv")
			assert.NotContains(t, string(data), "4111 1111 1111 1111")
			return nil
		})

	rec := ts.do(http.MethodPut, "/api/v1/sessions/"+testSessionID+"/payment",
		`{"details":{"card_number":"4111111111111111","cvv":"987","expiry_month":"12","expiry_year":"2030","card_holder_name":"Ana Reyes"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "cvv")
	assert.NotContains(t, body, "987")
	assert.NotContains(t, body, "4111111111111111")
	assert.Contains(t, body, `"card_number":"************1111"`)
}

func TestProcessPaymentTakesCardSecretsFromBody(t *testing.T) {
	sess := newSearchSession()
	sess.Flow.Reservation = &booking.Reservation{ID: "res-1", Status: booking.ReservationConfirmed}
	sess.Checkout = sess.Checkout.UpdatePaymentDetails(checkout.PaymentDetailsUpdate{
		CardNumber:     ptr("4111111111111111"),
		CVV:            ptr("987"),
		ExpiryMonth:    ptr("12"),
		ExpiryYear:     ptr("2030"),
		CardHolderName: ptr("Ana Reyes"),
	})
	stored := persisted(t, sess)

	t.Run("missing secrets", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectLockedSession(persisted(t, stored))

		rec := ts.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/payment", "")

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, usecase.ErrPaymentDetailsInvalid.Error(), decodeSession(t, rec).Error)
	})

	t.Run("secrets in body", func(t *testing.T) {
		ts := newTestServer(t)
		ts.expectLockedSession(persisted(t, stored))
		ts.sessions.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
		ts.provider.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, request booking.PaymentRequest) (*booking.PaymentResult, error) {
				require.NotNil(t, request.Card)
				assert.Equal(t, "4111111111111111", request.Card.CardNumber)
				assert.Equal(t, "987", request.Card.CVV)
				assert.Equal(t, "Ana Reyes", request.Card.CardHolderName)
				return &booking.PaymentResult{Success: true, TransactionID: "tx-1"}, nil
			})
		ts.ledger.EXPECT().SavePayment(gomock.Any(), "res-1", booking.PaymentMethodCreditCard, gomock.Any()).Return(nil)
		ts.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		rec := ts.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/payment",
			`{"details":{"card_number":"4111 1111 1111 1111","cvv":"987"}}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "987")
		envelope := decodeSession(t, rec)
		require.NotNil(t, envelope.Data.Checkout.PaymentResult)
		assert.Equal(t, "tx-1", envelope.Data.Checkout.PaymentResult.TransactionID)
	})
}

func TestChangeStepRefusalCarriesSession(t *testing.T) {
	ts := newTestServer(t)
	sess := newSearchSession()
	sess.Flow.CurrentStep = bookingflow.StepGuestInfo
	ts.expectLockedSession(sess)
	ts.sessions.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	rec := ts.do(http.MethodPut, "/api/v1/sessions/"+testSessionID+"/step", `{"direction":"next"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decodeSession(t, rec)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Data)
	assert.Equal(t, bookingflow.StepGuestInfo, envelope.Data.Flow.CurrentStep)
	assert.Contains(t, envelope.Data.Flow.GuestErrors, "first_name")
	assert.Empty(t, envelope.Data.Flow.Error)
}

func TestChangeStepRequiresExactlyOneTarget(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{`{}`, `{"step":"review","direction":"next"}`} {
		rec := ts.do(http.MethodPut, "/api/v1/sessions/"+testSessionID+"/step", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.Equal(t, errStepOrDirection.Error(), decodeSession(t, rec).Error)
	}

	rec := ts.do(http.MethodPut, "/api/v1/sessions/"+testSessionID+"/step", `{"step":"payment"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListRoomsAppliesQueryFilters(t *testing.T) {
	ts := newTestServer(t)
	sess := newSearchSession()
	sess.Search = sess.Search.SearchSucceeded(booking.AvailabilityResult{
		Rooms: []booking.RoomOffer{
			{RoomTypeID: "cheap", PricePerNight: 80, IsAvailable: true, RoomType: booking.RoomType{Name: "Cheap", Capacity: booking.Occupancy{Adults: 2}}},
			{RoomTypeID: "suite", PricePerNight: 300, IsAvailable: true, RoomType: booking.RoomType{Name: "Suite", Capacity: booking.Occupancy{Adults: 4}}},
		},
	})
	ts.sessions.EXPECT().Get(gomock.Any(), testSessionID).Return(sess, nil)

	rec := ts.do(http.MethodGet, "/api/v1/sessions/"+testSessionID+"/rooms?price_min=100", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data usecase.RoomList `json:"data"`
		Meta map[string]int   `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Rooms, 1)
	assert.Equal(t, "suite", envelope.Data.Rooms[0].RoomTypeID)
	assert.Equal(t, 1, envelope.Meta["count"])
}

func TestUnexpectedErrorIsHidden(t *testing.T) {
	ts := newTestServer(t)
	ts.sessions.EXPECT().Get(gomock.Any(), testSessionID).Return(nil, errors.New("redis: connection refused"))

	rec := ts.do(http.MethodGet, "/api/v1/sessions/"+testSessionID, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeSession(t, rec).Error)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	ts.handler.AddHealthCheck("redis", func(ctx context.Context) error { return nil })

	rec := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.handler.AddHealthCheck("postgres", func(ctx context.Context) error { return errors.New("down") })

	rec = ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPreflightIsAnswered(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodOptions, "/api/v1/sessions/"+testSessionID+"/guest", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.sessions.EXPECT().Get(gomock.Any(), "missing").Return(nil, session.ErrSessionNotFound)
	ts.do(http.MethodGet, "/api/v1/sessions/missing", "")

	rec := ts.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/sessions/{id}"`)
}

func TestRateLimitMiddleware(t *testing.T) {
	limited := rateLimitMiddleware(newRateLimiter(1, 1), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	limited.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	limited.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	spoofed := httptest.NewRequest(http.MethodGet, "/", nil)
	spoofed.Header.Set("X-Forwarded-For", "203.0.113.7")
	third := httptest.NewRecorder()
	limited.ServeHTTP(third, spoofed)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "198.51.100.9:4000"
	fourth := httptest.NewRecorder()
	limited.ServeHTTP(fourth, other)

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, http.StatusNoContent, fourth.Code)
}

func TestClientAddress(t *testing.T) {
	trusted := parseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1", "not-an-ip"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Len(t, trusted, 2)

	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"untrusted peer ignores header", "198.51.100.9:4000", "203.0.113.7", "198.51.100.9"},
		{"trusted peer without header", "192.0.2.1:1234", "", "192.0.2.1"},
		{"trusted peer", "192.0.2.1:1234", "203.0.113.7", "203.0.113.7"},
		{"spoofed leftmost hop", "192.0.2.1:1234", "1.1.1.1, 203.0.113.7", "203.0.113.7"},
		{"chain of trusted proxies", "10.0.0.2:1234", "203.0.113.7, 10.0.0.9, 10.1.2.3", "203.0.113.7"},
		{"unparseable hop", "192.0.2.1:1234", "garbage", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientAddress(req, trusted))
		})
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := testNow
	limiter := newRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now

	for i := range 100 {
		assert.True(t, limiter.allow(fmt.Sprintf("198.51.100.%d", i)))
	}
	assert.Len(t, limiter.clients, 100)

	now = now.Add(clientIdleTTL / 2)
	assert.True(t, limiter.allow("198.51.100.1"))

	now = now.Add(clientIdleTTL / 2)
	assert.True(t, limiter.allow("203.0.113.7"))
	assert.Len(t, limiter.clients, 2)
	assert.Contains(t, limiter.clients, "198.51.100.1")
	assert.Contains(t, limiter.clients, "203.0.113.7")
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recovered := recoveryMiddleware(metrics.New(), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	recovered.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

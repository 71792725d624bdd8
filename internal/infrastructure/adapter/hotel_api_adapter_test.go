package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/metrics"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/mocks"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc, credentials booking.CredentialStore) *HotelAPIAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHotelAPIAdapter(&APIConfig{
		BaseURL:       server.URL + "/api",
		Timeout:       2 * time.Second,
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
		CircuitBreaker: &CircuitBreakerConfig{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		},
	}, credentials, metrics.New(), discardLogger())
}

func staticToken(t *testing.T, token string) *mocks.MockCredentialStore {
	credentials := mocks.NewMockCredentialStore(gomock.NewController(t))
	credentials.EXPECT().Token(gomock.Any()).Return(token, nil).AnyTimes()
	return credentials
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	require.NoError(t, err)
}

const availabilityBody = `{
  "success": true,
  "data": {
    "businessUnit": {"id": "hotel-1", "name": "Harbour View", "checkInTime": "15:00", "checkOutTime": "11:00"},
    "checkInDate": "2026-05-10",
    "checkOutDate": "2026-05-12",
    "totalNights": 2,
    "availableRooms": [{
      "roomTypeId": "deluxe",
      "roomType": {"id": "deluxe", "businessUnitId": "hotel-1", "name": "Deluxe King", "capacity": {"adults": 2, "children": 1}, "bedConfiguration": "1 King Bed", "size": 32, "amenities": ["WiFi"], "basePrice": 180, "currency": "USD"},
      "availableRooms": 3,
      "pricePerNight": 180,
      "totalPrice": 360,
      "taxes": 36,
      "fees": 10,
      "finalPrice": 406,
      "currency": "USD",
      "isAvailable": true
    }]
  }
}`

func TestCheckAvailability(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/availability", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "hotel-1", r.Header.Get(businessUnitHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hotel-1", body["businessUnitId"])
		assert.Equal(t, "2026-05-10", body["checkInDate"])
		assert.Equal(t, "2026-05-12", body["checkOutDate"])
		assert.Equal(t, map[string]any{"adults": 2.0, "children": 1.0}, body["guests"])

		writeJSON(t, w, http.StatusOK, availabilityBody)
	}, staticToken(t, "secret"))

	result, err := adapter.CheckAvailability(context.Background(), booking.AvailabilityQuery{
		PropertyID:   "hotel-1",
		CheckInDate:  time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC),
		Guests:       booking.Occupancy{Adults: 2, Children: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "Harbour View", result.Property.Name)
	assert.Equal(t, 2, result.TotalNights)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), result.CheckInDate)
	require.Len(t, result.Rooms, 1)
	room := result.Rooms[0]
	assert.Equal(t, "deluxe", room.RoomTypeID)
	assert.Equal(t, 3, room.AvailableCount)
	assert.Equal(t, 406.0, room.FinalPrice)
	assert.Equal(t, "hotel-1", room.RoomType.PropertyID)
	assert.Equal(t, "1 King Bed", room.RoomType.BedConfiguration)
}

func TestRequestWithoutTokenHasNoAuthorization(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, `{"success": true, "data": {"status": "completed", "transactionId": "txn-1"}}`)
	}, staticToken(t, ""))

	status, err := adapter.GetPaymentStatus(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentStatusCompleted, status.Status)
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"success": false, "data": null, "message": "Room no longer available", "errors": ["roomTypeId"]}`)
	}, staticToken(t, "secret"))

	_, err := adapter.CreateReservation(context.Background(), booking.ReservationRequest{
		Booking: booking.BookingRequest{PropertyID: "hotel-1", RoomTypeID: "deluxe"},
	})

	var providerErr *booking.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "Room no longer available", providerErr.Message)
	assert.Equal(t, []string{"roomTypeId"}, providerErr.Details)
}

func TestUnauthorizedClearsCredential(t *testing.T) {
	credentials := mocks.NewMockCredentialStore(gomock.NewController(t))
	credentials.EXPECT().Token(gomock.Any()).Return("expired", nil)
	credentials.EXPECT().Clear(gomock.Any()).Return(nil)

	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, `{"success": false, "message": "Token expired"}`)
	}, credentials)

	_, err := adapter.ProcessPayment(context.Background(), booking.PaymentRequest{
		ReservationID: "res-1",
		Method:        booking.PaymentMethodPayPal,
	})

	assert.ErrorIs(t, err, booking.ErrUnauthorized)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusNotFound, `{"success": false, "message": "Transaction not found"}`)
	}, staticToken(t, "secret"))

	_, err := adapter.GetPaymentStatus(context.Background(), "missing")

	var providerErr *booking.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusNotFound, providerErr.StatusCode)
	assert.Equal(t, "Transaction not found", providerErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotentCallIsRetried(t *testing.T) {
	var calls atomic.Int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/payments/txn-9/status", r.URL.Path)
		if calls.Add(1) == 1 {
			writeJSON(t, w, http.StatusServiceUnavailable, `{"success": false}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"success": true, "data": {"status": "pending"}}`)
	}, staticToken(t, "secret"))

	status, err := adapter.GetPaymentStatus(context.Background(), "txn-9")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "txn-9", status.TransactionID)
	assert.Equal(t, booking.PaymentStatusPending, status.Status)
}

func TestStateChangingCallIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusServiceUnavailable, `{"success": false}`)
	}, staticToken(t, "secret"))

	_, err := adapter.ProcessPayment(context.Background(), booking.PaymentRequest{
		ReservationID: "res-1",
		Method:        booking.PaymentMethodBankTransfer,
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProcessPaymentPayload(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/process", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "res-1", body["reservationId"])
		details := body["paymentDetails"].(map[string]any)
		assert.Equal(t, "credit-card", details["method"])
		assert.Equal(t, "4242424242424242", details["cardNumber"])
		assert.Equal(t, "123", details["cvv"])
		assert.Equal(t, map[string]any{
			"street": "1 Main St", "city": "Lisbon", "state": "", "country": "PT", "zipCode": "1000-001",
		}, details["billingAddress"])

		writeJSON(t, w, http.StatusOK, `{"success": true, "data": {"success": true, "transactionId": "txn-1"}}`)
	}, staticToken(t, "secret"))

	result, err := adapter.ProcessPayment(context.Background(), booking.PaymentRequest{
		ReservationID: "res-1",
		Method:        booking.PaymentMethodCreditCard,
		Card: &booking.CardDetails{
			CardNumber:     "4242424242424242",
			ExpiryMonth:    "12",
			ExpiryYear:     "2030",
			CVV:            "123",
			CardHolderName: "Ada Lovelace",
		},
		BillingAddress: &booking.Address{Street: "1 Main St", City: "Lisbon", Country: "PT", ZipCode: "1000-001"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "txn-1", result.TransactionID)
}

func TestPaymentPayloadOmitsAbsentSections(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PaymentDetails map[string]any `json:"paymentDetails"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"method": "paypal"}, body.PaymentDetails)
		writeJSON(t, w, http.StatusOK, `{"success": true, "data": {"success": true, "transactionId": "txn-2"}}`)
	}, staticToken(t, "secret"))

	_, err := adapter.ProcessPayment(context.Background(), booking.PaymentRequest{
		ReservationID: "res-1",
		Method:        booking.PaymentMethodPayPal,
	})
	require.NoError(t, err)
}

func TestCancelReservation(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reservations/res-42/cancel", r.URL.Path)
		writeJSON(t, w, http.StatusOK, `{"success": true, "data": {
			"id": "res-42", "businessUnitId": "hotel-1", "checkInDate": "2026-05-10", "checkOutDate": "2026-05-12",
			"status": "cancelled", "totalAmount": 406, "currency": "USD",
			"guest": {"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "idType": "passport"},
			"createdAt": "2026-05-01T10:00:00Z", "updatedAt": "2026-05-02T08:30:00Z"
		}}`)
	}, staticToken(t, "secret"))

	reservation, err := adapter.CancelReservation(context.Background(), "res-42")
	require.NoError(t, err)

	assert.Equal(t, booking.ReservationCancelled, reservation.Status)
	assert.Equal(t, "hotel-1", reservation.PropertyID)
	assert.Equal(t, booking.IDTypePassport, reservation.Guest.IDType)
	assert.Equal(t, time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC), reservation.UpdatedAt)
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusInternalServerError, `{"success": false}`)
	}, staticToken(t, "secret"))

	request := booking.PaymentRequest{ReservationID: "res-1", Method: booking.PaymentMethodPayPal}
	for range 3 {
		_, err := adapter.ProcessPayment(context.Background(), request)
		require.Error(t, err)
	}

	_, err := adapter.ProcessPayment(context.Background(), request)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusUnprocessableEntity, `{"success": false, "message": "Invalid card"}`)
	}, staticToken(t, "secret"))

	request := booking.PaymentRequest{ReservationID: "res-1", Method: booking.PaymentMethodPayPal}
	for range 5 {
		_, err := adapter.ProcessPayment(context.Background(), request)
		var providerErr *booking.ProviderError
		require.ErrorAs(t, err, &providerErr)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestCancelledContext(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"success": true}`)
	}, staticToken(t, "secret"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.GetPaymentStatus(ctx, "txn-1")
	assert.ErrorIs(t, err, context.Canceled)
}

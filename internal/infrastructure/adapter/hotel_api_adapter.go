package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/metrics"
	apimodels "github.com/victoragudo/hotel-management-system/booking-service/pkg/api-models"
)

const businessUnitHeader = "X-Business-Unit-ID"

type HotelAPIAdapter struct {
	client         *http.Client
	baseURL        string
	credentials    booking.CredentialStore
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	retryConfig    *retryConfig
	headers        map[string]string
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	logger         *slog.Logger
}

type retryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	RetryableCode []int
}

type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      float64
	BurstLimit     int
	MaxRetries     int
	RetryInterval  time.Duration
	Headers        map[string]string
	CircuitBreaker *CircuitBreakerConfig
}

type CircuitBreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	ReadyToTrip func(counts gobreaker.Counts) bool
}

func NewHotelAPIAdapter(config *APIConfig, credentials booking.CredentialStore, m *metrics.Metrics, logger *slog.Logger) *HotelAPIAdapter {
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
	}

	breaker := config.CircuitBreaker
	if breaker == nil {
		breaker = &CircuitBreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: 30 * time.Second}
	}

	cbSettings := gobreaker.Settings{
		Name:        "hotel-api",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: breaker.ReadyToTrip,
		IsSuccessful: func(err error) bool {
			// a rejected request says nothing about the health of the API
			var providerErr *booking.ProviderError
			return err == nil || (errors.As(err, &providerErr) && providerErr.IsClientError())
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	if cbSettings.ReadyToTrip == nil {
		cbSettings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}

	rateLimit := rate.Inf
	if config.RateLimit > 0 {
		rateLimit = rate.Limit(config.RateLimit)
	}

	return &HotelAPIAdapter{
		client:         client,
		baseURL:        config.BaseURL,
		credentials:    credentials,
		rateLimiter:    rate.NewLimiter(rateLimit, max(config.BurstLimit, 1)),
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		retryConfig: &retryConfig{
			MaxRetries:    config.MaxRetries,
			BaseDelay:     config.RetryInterval,
			MaxDelay:      10 * time.Second,
			Multiplier:    2.0,
			RetryableCode: []int{429, 500, 502, 503, 504},
		},
		headers: config.Headers,
		metrics: m,
		tracer:  otel.Tracer("booking-service/hotel-api"),
		logger:  logger,
	}
}

// apiRequest describes one hotel API call. Only idempotent calls are retried.
type apiRequest struct {
	operation  string
	method     string
	path       string
	propertyID string
	body       any
	idempotent bool
}

func (c *HotelAPIAdapter) CheckAvailability(ctx context.Context, query booking.AvailabilityQuery) (*booking.AvailabilityResult, error) {
	data, err := execute[apimodels.AvailabilityResponse](ctx, c, apiRequest{
		operation:  "check_availability",
		method:     http.MethodPost,
		path:       "/availability",
		propertyID: query.PropertyID,
		body:       toAvailabilityRequest(query),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check availability for property %s: %w", query.PropertyID, err)
	}
	return fromAPIAvailability(data)
}

func (c *HotelAPIAdapter) CreateReservation(ctx context.Context, request booking.ReservationRequest) (*booking.Reservation, error) {
	data, err := execute[apimodels.Reservation](ctx, c, apiRequest{
		operation:  "create_reservation",
		method:     http.MethodPost,
		path:       "/reservations",
		propertyID: request.Booking.PropertyID,
		body:       toReservationRequest(request),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}
	return fromAPIReservation(data)
}

func (c *HotelAPIAdapter) ProcessPayment(ctx context.Context, request booking.PaymentRequest) (*booking.PaymentResult, error) {
	data, err := execute[apimodels.PaymentResult](ctx, c, apiRequest{
		operation: "process_payment",
		method:    http.MethodPost,
		path:      "/payments/process",
		body:      toPaymentRequest(request),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process payment for reservation %s: %w", request.ReservationID, err)
	}
	return &booking.PaymentResult{Success: data.Success, TransactionID: data.TransactionID}, nil
}

func (c *HotelAPIAdapter) GetPaymentStatus(ctx context.Context, transactionID string) (*booking.PaymentStatusResult, error) {
	data, err := execute[apimodels.PaymentStatus](ctx, c, apiRequest{
		operation:  "get_payment_status",
		method:     http.MethodGet,
		path:       fmt.Sprintf("/payments/%s/status", url.PathEscape(transactionID)),
		idempotent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get payment status for transaction %s: %w", transactionID, err)
	}

	if data.TransactionID == "" {
		data.TransactionID = transactionID
	}
	return &booking.PaymentStatusResult{
		TransactionID: data.TransactionID,
		Status:        booking.PaymentStatus(data.Status),
	}, nil
}

func (c *HotelAPIAdapter) CancelReservation(ctx context.Context, reservationID string) (*booking.Reservation, error) {
	data, err := execute[apimodels.Reservation](ctx, c, apiRequest{
		operation: "cancel_reservation",
		method:    http.MethodPost,
		path:      fmt.Sprintf("/reservations/%s/cancel", url.PathEscape(reservationID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation %s: %w", reservationID, err)
	}
	return fromAPIReservation(data)
}

// execute runs the request and unwraps the response envelope. An envelope that reports
// success=false is a failure even under a 2xx status.
func execute[T any](ctx context.Context, c *HotelAPIAdapter, req apiRequest) (T, error) {
	var zero T
	var envelope apimodels.Envelope[T]

	operation := func() error {
		envelope = apimodels.Envelope[T]{}
		return c.performRequest(ctx, req, &envelope)
	}

	var err error
	if req.idempotent {
		err = c.executeWithRetry(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		return zero, err
	}

	if !envelope.Success {
		return zero, &booking.ProviderError{
			StatusCode: http.StatusOK,
			Message:    envelope.Message,
			Details:    envelope.Errors,
		}
	}
	return envelope.Data, nil
}

func (c *HotelAPIAdapter) performRequest(ctx context.Context, req apiRequest, response any) error {
	ctx, span := c.tracer.Start(ctx, "hotelapi."+req.operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("http.route", req.path),
		),
	)
	defer span.End()

	start := time.Now()
	err := c.rateLimiter.Wait(ctx)
	if err != nil {
		err = fmt.Errorf("rate limiter error: %w", err)
	} else {
		_, err = c.circuitBreaker.Execute(func() (any, error) {
			return nil, c.doHTTPRequest(ctx, req, response)
		})
	}

	statusCode := 0
	var providerErr *booking.ProviderError
	if errors.As(err, &providerErr) {
		statusCode = providerErr.StatusCode
	}
	c.metrics.ObserveHotelAPICall(req.operation, metrics.Outcome(statusCode, err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("Hotel API call failed", "operation", req.operation, "status", statusCode, "error", err)
		return err
	}
	return nil
}

func (c *HotelAPIAdapter) doHTTPRequest(ctx context.Context, req apiRequest, response any) error {
	var bodyReader io.Reader

	if req.body != nil {
		jsonData, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	request, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	if req.body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		request.Header.Set(key, value)
	}
	if req.propertyID != "" {
		request.Header.Set(businessUnitHeader, req.propertyID)
	}

	token, err := c.credentials.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to load hotel API credential: %w", err)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(request.Header))

	httpResponse, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(httpResponse.Body)

	if httpResponse.StatusCode >= http.StatusBadRequest {
		return c.errorFromResponse(ctx, httpResponse)
	}

	if response != nil {
		if err := json.NewDecoder(httpResponse.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// errorFromResponse builds a ProviderError from the error envelope, if any. A 401 also
// drops the stored credential so the next call does not reuse it.
func (c *HotelAPIAdapter) errorFromResponse(ctx context.Context, httpResponse *http.Response) error {
	providerErr := &booking.ProviderError{StatusCode: httpResponse.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 64<<10))
	var envelope apimodels.Envelope[json.RawMessage]
	if json.Unmarshal(body, &envelope) == nil {
		providerErr.Message = envelope.Message
		providerErr.Details = envelope.Errors
	}

	if httpResponse.StatusCode == http.StatusUnauthorized {
		if err := c.credentials.Clear(context.WithoutCancel(ctx)); err != nil {
			c.logger.Error("Failed to clear hotel API credential", "error", err)
		}
	}
	return providerErr
}

func (c *HotelAPIAdapter) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateRetryDelay(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err
		if !c.isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", c.retryConfig.MaxRetries, lastErr)
}

func (c *HotelAPIAdapter) calculateRetryDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.retryConfig.BaseDelay) * float64(attempt) * c.retryConfig.Multiplier)
	return min(delay, c.retryConfig.MaxDelay)
}

func (c *HotelAPIAdapter) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	var providerErr *booking.ProviderError
	if errors.As(err, &providerErr) {
		return slices.Contains(c.retryConfig.RetryableCode, providerErr.StatusCode)
	}

	// network errors
	return true
}

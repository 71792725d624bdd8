package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/config"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/queue"
)

func TestHotelAPIConfig(t *testing.T) {
	apiConfig := HotelAPIConfig(config.HotelAPIConfig{
		BaseURL:       "https://hotel.example.com/api",
		Timeout:       10 * time.Second,
		RateLimit:     5,
		BurstLimit:    10,
		MaxRetries:    2,
		RetryInterval: time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:         2,
			Interval:            time.Minute,
			Timeout:             15 * time.Second,
			ConsecutiveFailures: 3,
		},
	})

	assert.Equal(t, "https://hotel.example.com/api", apiConfig.BaseURL)
	assert.Equal(t, 10*time.Second, apiConfig.Timeout)
	assert.Equal(t, 2, apiConfig.MaxRetries)
	require.NotNil(t, apiConfig.CircuitBreaker)
	assert.Equal(t, uint32(2), apiConfig.CircuitBreaker.MaxRequests)
	assert.False(t, apiConfig.CircuitBreaker.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 2}))
	assert.True(t, apiConfig.CircuitBreaker.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 3}))
}

func TestHotelAPIConfigDefaultsTripThreshold(t *testing.T) {
	apiConfig := HotelAPIConfig(config.HotelAPIConfig{})

	assert.False(t, apiConfig.CircuitBreaker.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 4}))
	assert.True(t, apiConfig.CircuitBreaker.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 5}))
}

func TestUseCaseSettings(t *testing.T) {
	settings, clock, err := UseCaseSettings(config.SessionConfig{
		Timezone:             "Europe/Madrid",
		MinimumStayNights:    2,
		TTL:                  time.Hour,
		LockTTL:              time.Minute,
		OperationTimeout:     20 * time.Second,
		AvailabilityCacheTTL: 30 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Hour, settings.SessionTTL)
	assert.Equal(t, time.Minute, settings.LockTTL)
	assert.Equal(t, 20*time.Second, settings.OperationTimeout)
	assert.Equal(t, 30*time.Second, settings.AvailabilityCacheTTL)
	assert.Equal(t, 2, settings.Policy.MinimumStayNights)
	assert.Equal(t, "Europe/Madrid", clock().Location().String())
}

func TestUseCaseSettingsRejectsUnknownTimezone(t *testing.T) {
	_, _, err := UseCaseSettings(config.SessionConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestNewPublisherDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	publisher, closePublisher, err := NewPublisher(config.RabbitMQConfig{Enabled: false}, nil, logger)
	require.NoError(t, err)
	defer closePublisher()

	assert.IsType(t, &queue.DiscardPublisher{}, publisher)
	assert.NoError(t, publisher.Publish(context.Background(), booking.Event{Type: booking.EventPaymentProcessed}))
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/availability"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

var ErrSessionBusy = errors.New("session has an operation in progress")

// ValidationError marks a request the session state refuses locally, without any remote call.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) error {
	return &ValidationError{Err: err}
}

type Settings struct {
	SessionTTL           time.Duration
	LockTTL              time.Duration
	OperationTimeout     time.Duration
	AvailabilityCacheTTL time.Duration
	Policy               availability.Policy
}

func DefaultSettings() Settings {
	return Settings{
		SessionTTL:           2 * time.Hour,
		LockTTL:              time.Minute,
		OperationTimeout:     30 * time.Second,
		AvailabilityCacheTTL: time.Minute,
		Policy:               availability.DefaultPolicy(),
	}
}

// Clock returns the current time in the property's timezone.
type Clock func() time.Time

func SystemClock(location *time.Location) Clock {
	return func() time.Time {
		return time.Now().In(location)
	}
}

type sessionGuard struct {
	sessions session.Repository
	locks    booking.LockRepository
	settings Settings
	now      Clock
	logger   *slog.Logger
}

func newSessionGuard(sessions session.Repository, locks booking.LockRepository, settings Settings, now Clock, logger *slog.Logger) *sessionGuard {
	return &sessionGuard{
		sessions: sessions,
		locks:    locks,
		settings: settings,
		now:      now,
		logger:   logger,
	}
}

func lockKey(sessionID string) string {
	return fmt.Sprintf("booking:session:%s:lock", sessionID)
}

// acquire takes the per-session lock. A session already locked by another call yields
// ErrSessionBusy right away.
func (g *sessionGuard) acquire(ctx context.Context, sessionID string) (func(), error) {
	key := lockKey(sessionID)

	token, acquired, err := g.locks.Acquire(ctx, key, g.settings.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock session %s: %w", sessionID, err)
	}
	if !acquired {
		return nil, ErrSessionBusy
	}

	return func() {
		if err := g.locks.Release(context.WithoutCancel(ctx), key, token); err != nil {
			g.logger.Warn("Failed to release session lock", "session_id", sessionID, "error", err)
		}
	}, nil
}

func (g *sessionGuard) save(ctx context.Context, sess *session.Session) error {
	sess.Touch(g.now())
	if err := g.sessions.Save(context.WithoutCancel(ctx), sess, g.settings.SessionTTL); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	return nil
}

// mutate applies fn to the locked session and stores the result. Nothing is stored when
// fn fails.
func (g *sessionGuard) mutate(ctx context.Context, sessionID string, fn func(*session.Session) error) (*session.Session, error) {
	release, err := g.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	if err := g.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// call runs one outbound operation under the configured timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

// failureMessage turns a remote failure into the text stored on the state.
func failureMessage(err error, fallback string) string {
	var providerErr *booking.ProviderError
	switch {
	case errors.Is(err, booking.ErrUnauthorized):
		return "Your session with the hotel service has expired, please sign in again"
	case errors.As(err, &providerErr) && providerErr.Message != "":
		return providerErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "The hotel service did not respond in time, please try again"
	case errors.Is(err, context.Canceled):
		return "The request was cancelled, please try again"
	default:
		return fallback
	}
}

package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/dateutil"
)

var (
	ErrSearchNotReady = errors.New("search criteria are incomplete or invalid")
	errEmptyResponse  = errors.New("hotel API returned no data")
)

type CheckAvailabilityUseCase struct {
	guard    *sessionGuard
	provider booking.Provider
	cache    booking.CacheRepository
	logger   *slog.Logger
}

func NewCheckAvailabilityUseCase(
	sessions session.Repository,
	locks booking.LockRepository,
	provider booking.Provider,
	cache booking.CacheRepository,
	settings Settings,
	clock Clock,
	logger *slog.Logger,
) *CheckAvailabilityUseCase {
	return &CheckAvailabilityUseCase{
		guard:    newSessionGuard(sessions, locks, settings, clock, logger),
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

// Execute runs one availability search for the session's criteria. A remote failure is
// stored on the search state and is not returned as an error.
func (uc *CheckAvailabilityUseCase) Execute(ctx context.Context, sessionID string) (*session.Session, error) {
	startTime := time.Now()

	release, err := uc.guard.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := uc.guard.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Search.CanCheckAvailability(uc.guard.now(), uc.guard.settings.Policy) {
		if validation := sess.Search.ValidateDateRange(uc.guard.now(), uc.guard.settings.Policy); validation.Message != "" {
			return nil, invalid(fmt.Errorf("%w: %s", ErrSearchNotReady, validation.Message))
		}
		return nil, invalid(ErrSearchNotReady)
	}

	query, err := sess.Search.Criteria.Query()
	if err != nil {
		return nil, invalid(err)
	}

	cacheKey := availabilityCacheKey(query)
	if cached, ok := uc.cached(ctx, cacheKey); ok {
		uc.logger.Debug("Cache hit for availability", "session_id", sessionID, "cache_key", cacheKey)
		sess.Search = sess.Search.SearchSucceeded(*cached)
		return sess, uc.guard.save(ctx, sess)
	}

	sess.Search = sess.Search.BeginSearch()
	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}

	result, err := call(ctx, uc.guard.settings.OperationTimeout, func(ctx context.Context) (*booking.AvailabilityResult, error) {
		return uc.provider.CheckAvailability(ctx, query)
	})
	if err == nil && result == nil {
		err = errEmptyResponse
	}

	if err != nil {
		uc.logger.Error("Failed to check availability", "session_id", sessionID, "property_id", query.PropertyID, "error", err)
		sess.Search = sess.Search.SearchFailed(failureMessage(err, ""))
	} else {
		sess.Search = sess.Search.SearchSucceeded(*result)
		uc.store(ctx, cacheKey, result)
		uc.logger.Info("Availability checked",
			"session_id", sessionID,
			"property_id", query.PropertyID,
			"rooms", len(result.Rooms),
			"duration", time.Since(startTime))
	}

	if err := uc.guard.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (uc *CheckAvailabilityUseCase) cached(ctx context.Context, key string) (*booking.AvailabilityResult, bool) {
	if uc.guard.settings.AvailabilityCacheTTL <= 0 {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var result booking.AvailabilityResult
	if err := json.Unmarshal(data, &result); err != nil {
		uc.logger.Warn("Failed to unmarshal cached availability", "cache_key", key, "error", err)
		return nil, false
	}
	return &result, true
}

func (uc *CheckAvailabilityUseCase) store(ctx context.Context, key string, result *booking.AvailabilityResult) {
	if uc.guard.settings.AvailabilityCacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := uc.cache.Set(context.WithoutCancel(ctx), key, data, uc.guard.settings.AvailabilityCacheTTL); err != nil {
		uc.logger.Warn("Failed to cache availability", "cache_key", key, "error", err)
	}
}

func availabilityCacheKey(query booking.AvailabilityQuery) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		query.PropertyID,
		dateutil.ToAPIFormat(query.CheckInDate),
		dateutil.ToAPIFormat(query.CheckOutDate),
		query.Guests.Adults,
		query.Guests.Children)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("availability:%s", hex.EncodeToString(hash[:])[:16])
}

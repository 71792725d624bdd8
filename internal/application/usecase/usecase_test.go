package usecase

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/bookingflow"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/mocks"
)

const (
	testSessionID = "session-1"
	testLockToken = "lock-token-1"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	sessions *mocks.MockRepository
	locks    *mocks.MockLockRepository
	provider *mocks.MockProvider
	cache    *mocks.MockCacheRepository
	ledger   *mocks.MockLedgerRepository
	events   *mocks.MockEventPublisher
	settings Settings
	clock    Clock
	logger   *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	return &fixture{
		sessions: mocks.NewMockRepository(ctrl),
		locks:    mocks.NewMockLockRepository(ctrl),
		provider: mocks.NewMockProvider(ctrl),
		cache:    mocks.NewMockCacheRepository(ctrl),
		ledger:   mocks.NewMockLedgerRepository(ctrl),
		events:   mocks.NewMockEventPublisher(ctrl),
		settings: DefaultSettings(),
		clock:    func() time.Time { return testNow },
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (f *fixture) expectLock() {
	f.locks.EXPECT().Acquire(gomock.Any(), lockKey(testSessionID), f.settings.LockTTL).Return(testLockToken, true, nil)
	f.locks.EXPECT().Release(gomock.Any(), lockKey(testSessionID), testLockToken).Return(nil)
}

func (f *fixture) expectSession(sess *session.Session) {
	f.sessions.EXPECT().Get(gomock.Any(), testSessionID).Return(sess, nil)
}

func (f *fixture) expectSaves(times int) {
	f.sessions.EXPECT().Save(gomock.Any(), gomock.Any(), f.settings.SessionTTL).Return(nil).Times(times)
}

func ptr[T any](v T) *T { return &v }

func newSearchSession() *session.Session {
	sess := session.New(testSessionID, "prop-1", testNow)
	sess.Search = sess.Search.SetCheckOutDate(ptr(testNow.AddDate(0, 0, 3)))
	return sess
}

func testOffer() booking.RoomOffer {
	return booking.RoomOffer{
		RoomTypeID:     "deluxe",
		RoomType:       booking.RoomType{ID: "deluxe", Name: "Deluxe", Capacity: booking.Occupancy{Adults: 2, Children: 1}},
		AvailableCount: 3,
		PricePerNight:  150,
		FinalPrice:     495,
		Currency:       "USD",
		IsAvailable:    true,
	}
}

func testAvailability() *booking.AvailabilityResult {
	return &booking.AvailabilityResult{
		Property:    booking.Property{ID: "prop-1", Name: "Seaside"},
		TotalNights: 3,
		Rooms:       []booking.RoomOffer{testOffer()},
	}
}

func newSearchedSession() *session.Session {
	sess := newSearchSession()
	sess.Search = sess.Search.SearchSucceeded(*testAvailability())
	return sess
}

func newReviewSession(t *testing.T) *session.Session {
	t.Helper()
	sess := newSearchedSession()

	flow, err := sess.Flow.SetSelectedRoom(testOffer(), sess.Search.Criteria)
	if err != nil {
		t.Fatal(err)
	}
	flow = flow.UpdateGuest(bookingflow.GuestUpdate{
		FirstName: ptr("Ana"),
		LastName:  ptr("Reyes"),
		Email:     ptr("ana@example.com"),
		Phone:     ptr("+63 917 000 0000"),
		Address: &bookingflow.AddressUpdate{
			Street:  ptr("1 Ocean Drive"),
			City:    ptr("Cebu"),
			Country: ptr("Philippines"),
		},
	})
	for flow.CurrentStep != bookingflow.StepReview {
		if flow, err = flow.Next(); err != nil {
			t.Fatal(err)
		}
	}
	sess.Flow = flow.SetAgreedToTerms(true)
	return sess
}

func newConfirmedSession(t *testing.T) *session.Session {
	t.Helper()
	sess := newReviewSession(t)
	sess.Flow = sess.Flow.SubmitSucceeded(booking.Reservation{ID: "res-1", PropertyID: "prop-1", Status: booking.ReservationConfirmed})
	return sess
}

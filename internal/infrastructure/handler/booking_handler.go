package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/application/usecase"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/bookingflow"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/session"
)

type BookingHandler struct {
	manageSessionUseCase     *usecase.ManageSessionUseCase
	checkAvailabilityUseCase *usecase.CheckAvailabilityUseCase
	submitBookingUseCase     *usecase.SubmitBookingUseCase
	cancelReservationUseCase *usecase.CancelReservationUseCase
	processPaymentUseCase    *usecase.ProcessPaymentUseCase
	getPaymentStatusUseCase  *usecase.GetPaymentStatusUseCase
	healthChecks             map[string]HealthCheckFunc
	logger                   *slog.Logger
}

// HealthCheckFunc reports whether one dependency is reachable.
type HealthCheckFunc func(ctx context.Context) error

func NewBookingHandler(
	manageSessionUseCase *usecase.ManageSessionUseCase,
	checkAvailabilityUseCase *usecase.CheckAvailabilityUseCase,
	submitBookingUseCase *usecase.SubmitBookingUseCase,
	cancelReservationUseCase *usecase.CancelReservationUseCase,
	processPaymentUseCase *usecase.ProcessPaymentUseCase,
	getPaymentStatusUseCase *usecase.GetPaymentStatusUseCase,
	logger *slog.Logger,
) *BookingHandler {
	return &BookingHandler{
		manageSessionUseCase:     manageSessionUseCase,
		checkAvailabilityUseCase: checkAvailabilityUseCase,
		submitBookingUseCase:     submitBookingUseCase,
		cancelReservationUseCase: cancelReservationUseCase,
		processPaymentUseCase:    processPaymentUseCase,
		getPaymentStatusUseCase:  getPaymentStatusUseCase,
		healthChecks:             make(map[string]HealthCheckFunc),
		logger:                   logger,
	}
}

func (h *BookingHandler) AddHealthCheck(name string, check HealthCheckFunc) {
	h.healthChecks[name] = check
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// SessionResponse is a session together with its derived fields.
type SessionResponse struct {
	*session.Session
	Summary session.Summary `json:"summary"`
}

func (h *BookingHandler) view(sess *session.Session) *SessionResponse {
	if sess == nil {
		return nil
	}
	return &SessionResponse{Session: sess, Summary: h.manageSessionUseCase.Summary(sess)}
}

// CreateSession starts a booking session for a property
// @Summary Create booking session
// @Description Start a booking session with default search criteria for the given property
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Property to book"
// @Success 201 {object} APIResponse{data=SessionResponse} "Created session"
// @Failure 400 {object} APIResponse "Bad Request - Malformed body"
// @Failure 422 {object} APIResponse "Unprocessable Entity - Missing property"
// @Router /api/v1/sessions [post]
func (h *BookingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate(req); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess, err := h.manageSessionUseCase.Create(r.Context(), req.PropertyID)
	if err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}

	h.writeResponse(w, http.StatusCreated, APIResponse{Success: true, Data: h.view(sess)})
}

// GetSession returns the session state
// @Summary Get booking session
// @Description Get the search, booking flow and checkout state of a session with its derived fields
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session state"
// @Failure 404 {object} APIResponse "Not Found - Session expired or unknown"
// @Router /api/v1/sessions/{id} [get]
func (h *BookingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manageSessionUseCase.Get(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// DeleteSession drops a session
// @Summary Delete booking session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse "Session deleted"
// @Failure 404 {object} APIResponse "Not Found - Session expired or unknown"
// @Failure 409 {object} APIResponse "Conflict - Operation in progress"
// @Router /api/v1/sessions/{id} [delete]
func (h *BookingHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if err := h.manageSessionUseCase.Delete(r.Context(), sessionID); err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}
	h.writeSuccessResponse(w, map[string]string{"id": sessionID}, nil)
}

// UpdateSearch changes the search criteria
// @Summary Update search criteria
// @Description Change property, dates (yyyy-mm-dd) or guests. Any change clears the last result.
// @Tags search
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SearchRequest true "Criteria to change"
// @Success 200 {object} APIResponse{data=SessionResponse} "Updated session"
// @Failure 400 {object} APIResponse "Bad Request - Malformed body"
// @Failure 422 {object} APIResponse "Unprocessable Entity - Invalid criteria"
// @Failure 409 {object} APIResponse "Conflict - Operation in progress"
// @Router /api/v1/sessions/{id}/search [put]
func (h *BookingHandler) UpdateSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess, err := h.manageSessionUseCase.UpdateSearch(r.Context(), mux.Vars(r)["id"], update)
	h.respond(w, sess, err)
}

// CheckAvailability searches the hotel API with the session criteria
// @Summary Check availability
// @Description Query room availability for the current criteria. A remote failure is reported in search.error with status 200.
// @Tags search
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session with result or error"
// @Failure 422 {object} APIResponse "Unprocessable Entity - Criteria incomplete or invalid"
// @Failure 409 {object} APIResponse "Conflict - Operation in progress"
// @Router /api/v1/sessions/{id}/search [post]
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkAvailabilityUseCase.Execute(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// ResetAvailability clears the last result
// @Summary Reset availability
// @Tags search
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session without result"
// @Router /api/v1/sessions/{id}/search [delete]
func (h *BookingHandler) ResetAvailability(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manageSessionUseCase.ResetAvailability(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// ListRooms returns the offers of the last result, filtered and sorted
// @Summary List rooms
// @Tags search
// @Produce json
// @Param id path string true "Session ID"
// @Param price_min query number false "Minimum price per night"
// @Param price_max query number false "Maximum price per night"
// @Param adults query integer false "Adults the room must fit"
// @Param children query integer false "Children the room must fit"
// @Param amenities query array false "Required amenities" collectionFormat(multi)
// @Param bed_types query array false "Accepted bed types" collectionFormat(multi)
// @Param sort_by query string false "price-low, price-high, capacity, size or name"
// @Success 200 {object} APIResponse{data=usecase.RoomList} "Rooms with filter options"
// @Failure 422 {object} APIResponse "Unprocessable Entity - Invalid filters"
// @Router /api/v1/sessions/{id}/rooms [get]
func (h *BookingHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.manageSessionUseCase.ListRooms(r.Context(), mux.Vars(r)["id"], parseRoomFilters(r))
	if err != nil {
		h.writeUseCaseError(w, err, nil)
		return
	}
	h.writeSuccessResponse(w, rooms, map[string]int{"count": len(rooms.Rooms)})
}

// SelectRoom picks a room from the last result and moves to guest-info
// @Summary Select room
// @Tags booking
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SelectRoomRequest true "Room type"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session at guest-info"
// @Failure 422 {object} APIResponse "Unprocessable Entity - Room not offered or unavailable"
// @Router /api/v1/sessions/{id}/room [post]
func (h *BookingHandler) SelectRoom(w http.ResponseWriter, r *http.Request) {
	var req SelectRoomRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate(req); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess, err := h.manageSessionUseCase.SelectRoom(r.Context(), mux.Vars(r)["id"], req.RoomTypeID)
	h.respond(w, sess, err)
}

// UpdateGuest merges guest profile fields
// @Summary Update guest
// @Tags booking
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body bookingflow.GuestUpdate true "Guest fields to change"
// @Success 200 {object} APIResponse{data=SessionResponse} "Updated session"
// @Router /api/v1/sessions/{id}/guest [patch]
func (h *BookingHandler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	var update bookingflow.GuestUpdate
	if err := decodeJSON(r, &update, true); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.manageSessionUseCase.UpdateGuest(r.Context(), mux.Vars(r)["id"], update)
	h.respond(w, sess, err)
}

// UpdatePreferences sets special requests and terms agreement
// @Summary Update preferences
// @Tags booking
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body PreferencesRequest true "Preferences"
// @Success 200 {object} APIResponse{data=SessionResponse} "Updated session"
// @Router /api/v1/sessions/{id}/preferences [put]
func (h *BookingHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.manageSessionUseCase.UpdatePreferences(r.Context(), mux.Vars(r)["id"], usecase.PreferencesUpdate{
		SpecialRequests: req.SpecialRequests,
		AgreedToTerms:   req.AgreedToTerms,
	})
	h.respond(w, sess, err)
}

// ChangeStep moves the booking flow
// @Summary Change step
// @Description Move to a step or one step next/back. A refused move returns 422 with the session, including guest field errors.
// @Tags booking
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body StepRequest true "Target step or direction"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session at the new step"
// @Failure 422 {object} APIResponse{data=SessionResponse} "Unprocessable Entity - Move refused"
// @Router /api/v1/sessions/{id}/step [put]
func (h *BookingHandler) ChangeStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if (req.Step == "") == (req.Direction == "") {
		h.writeErrorResponse(w, errStepOrDirection.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := validate(req); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess, err := h.manageSessionUseCase.ChangeStep(r.Context(), mux.Vars(r)["id"], req.toChange())
	h.respond(w, sess, err)
}

// SubmitBooking creates the reservation
// @Summary Submit booking
// @Description Create the reservation. A remote failure is reported in flow.error with status 200.
// @Tags booking
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session at confirmation or with error"
// @Failure 422 {object} APIResponse{data=SessionResponse} "Unprocessable Entity - Missing booking information or terms"
// @Failure 409 {object} APIResponse "Conflict - Operation in progress"
// @Router /api/v1/sessions/{id}/booking [post]
func (h *BookingHandler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	sess, err := h.submitBookingUseCase.Execute(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// CancelReservation cancels the confirmed reservation
// @Summary Cancel reservation
// @Tags booking
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session with cancelled reservation or error"
// @Failure 422 {object} APIResponse "Unprocessable Entity - Nothing to cancel"
// @Router /api/v1/sessions/{id}/booking/cancel [post]
func (h *BookingHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	sess, err := h.cancelReservationUseCase.Execute(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// ResetFlow restarts the booking flow
// @Summary Reset booking flow
// @Tags booking
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session at room-selection"
// @Router /api/v1/sessions/{id}/booking [delete]
func (h *BookingHandler) ResetFlow(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manageSessionUseCase.ResetFlow(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// UpdatePayment changes payment method, details or billing address
// @Summary Update payment
// @Tags checkout
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body PaymentRequest true "Payment fields to change"
// @Success 200 {object} APIResponse{data=SessionResponse} "Updated session"
// @Failure 422 {object} APIResponse "Unprocessable Entity - Unknown payment method"
// @Router /api/v1/sessions/{id}/payment [put]
func (h *BookingHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.manageSessionUseCase.UpdatePayment(r.Context(), mux.Vars(r)["id"], req.toUpdate())
	h.respond(w, sess, err)
}

// ProcessPayment pays for the reservation
// @Summary Process payment
// @Description Pay for the session's reservation. Card number and cvv are never stored, so card payments send them in this body. A remote failure is reported in checkout.error with status 200.
// @Tags checkout
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body PaymentRequest false "Payment fields applied before paying"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session with payment result or error"
// @Failure 400 {object} APIResponse "Bad Request - Invalid JSON"
// @Failure 422 {object} APIResponse "Unprocessable Entity - No reservation or invalid payment details"
// @Failure 409 {object} APIResponse "Conflict - Operation in progress"
// @Router /api/v1/sessions/{id}/payment [post]
func (h *BookingHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.processPaymentUseCase.Execute(r.Context(), mux.Vars(r)["id"], req.toUpdate())
	h.respond(w, sess, err)
}

// GetPaymentStatus polls the hotel API for the payment status
// @Summary Get payment status
// @Tags checkout
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session with payment status or error"
// @Failure 422 {object} APIResponse "Unprocessable Entity - No payment made"
// @Router /api/v1/sessions/{id}/payment/status [get]
func (h *BookingHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := h.getPaymentStatusUseCase.Execute(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// ResetCheckout restarts checkout
// @Summary Reset checkout
// @Tags checkout
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session with default checkout"
// @Router /api/v1/sessions/{id}/payment [delete]
func (h *BookingHandler) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manageSessionUseCase.ResetCheckout(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// ClearErrors clears the error of every state holder
// @Summary Clear errors
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} APIResponse{data=SessionResponse} "Session without errors"
// @Router /api/v1/sessions/{id}/errors [delete]
func (h *BookingHandler) ClearErrors(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manageSessionUseCase.ClearErrors(r.Context(), mux.Vars(r)["id"])
	h.respond(w, sess, err)
}

// HealthCheck returns the health status of the booking service
// @Summary Health check
// @Description Get the current health status of the booking service and its dependencies
// @Tags health
// @Produce json
// @Success 200 {object} APIResponse{data=object} "Service healthy"
// @Failure 503 {object} APIResponse{data=object} "A dependency is unreachable"
// @Router /health [get]
func (h *BookingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(h.healthChecks))
	for name, check := range h.healthChecks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Health check failed", "dependency", name, "error", err)
			checks[name] = err.Error()
			status = "unhealthy"
			continue
		}
		checks[name] = "ok"
	}

	health := map[string]interface{}{
		"status":       status,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"service":      "booking-service",
		"version":      "1.0.0",
		"dependencies": checks,
	}

	if status != "healthy" {
		h.writeResponse(w, http.StatusServiceUnavailable, APIResponse{Success: false, Data: health, Error: "dependency unavailable"})
		return
	}
	h.writeSuccessResponse(w, health, nil)
}

func (h *BookingHandler) respond(w http.ResponseWriter, sess *session.Session, err error) {
	if err != nil {
		h.writeUseCaseError(w, err, sess)
		return
	}
	h.writeSuccessResponse(w, h.view(sess), nil)
}

// writeUseCaseError maps use case errors to status codes. A session returned alongside
// the error is included so clients see the state the refusal left behind.
func (h *BookingHandler) writeUseCaseError(w http.ResponseWriter, err error, sess *session.Session) {
	var validationErr *usecase.ValidationError
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusUnprocessableEntity
		message = validationErr.Error()
	case errors.Is(err, usecase.ErrSessionBusy):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
		message = session.ErrSessionNotFound.Error()
	default:
		h.logger.Error("Request failed", "error", err)
	}

	response := APIResponse{Success: false, Error: message}
	if sess != nil {
		response.Data = h.view(sess)
	}
	h.writeResponse(w, status, response)
}

func (h *BookingHandler) writeSuccessResponse(w http.ResponseWriter, data interface{}, meta interface{}) {
	h.writeResponse(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func (h *BookingHandler) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	h.writeResponse(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *BookingHandler) writeResponse(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rentloop/reservation-service/internal/domain"
	"github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/tracing"
	"github.com/rentloop/reservation-service/internal/service"
	"github.com/rentloop/reservation-service/internal/transport/http/middleware"
)

// ReservationHandler handles HTTP requests for reservations
type ReservationHandler struct {
	reservations *service.ReservationService
	logger       logging.Logger
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservations *service.ReservationService, logger logging.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		logger:       logger,
	}
}

// CreateReservation handles POST /reservations. The user ID always comes
// from the validated session, never from the request body.
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Missing session", nil)
		return
	}

	tracing.AddSpanAttributes(ctx, tracing.UserIDKey.String(session.UserID.String()))

	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error(ctx, "Failed to decode create reservation request", err)
		h.respondWithError(w, http.StatusBadRequest, "Invalid JSON payload", err)
		return
	}

	domainReq := domain.CreateReservationRequest{
		UserID:          session.UserID,
		Lines:           make([]domain.CreateReservationLine, len(req.Lines)),
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}

	for i, line := range req.Lines {
		domainReq.Lines[i] = domain.CreateReservationLine{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			RentalFrom: line.RentalFrom,
			RentalTo:   line.RentalTo,
		}
	}

	reservation, err := h.reservations.CreateReservation(ctx, domainReq)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info(ctx, "Reservation created", map[string]interface{}{
		"reservation_id": reservation.ID,
		"user_id":        reservation.UserID,
		"total":          reservation.Total,
	})

	h.respondWithJSON(w, http.StatusCreated, h.convertReservationToResponse(reservation))
}

// GetReservation handles GET /reservations/{id}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Missing session", nil)
		return
	}

	reservationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid reservation ID", err)
		return
	}

	tracing.AddSpanAttributes(ctx, tracing.ReservationIDKey.String(reservationID.String()))

	reservation, err := h.reservations.GetReservation(ctx, reservationID, session.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, h.convertReservationToResponse(reservation))
}

// ListReservations handles GET /reservations. Regular callers see their
// own reservations paged; admins may pass all=true plus optional user_id
// and status filters.
func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Missing session", nil)
		return
	}

	if session.IsAdmin() && r.URL.Query().Get("all") == "true" {
		h.listAllReservations(w, r)
		return
	}

	page, pageSize := h.parsePageParams(r)

	result, err := h.reservations.ListReservations(ctx, session.UserID, page, pageSize)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := ReservationPageResponse{
		Items:      make([]ReservationResponse, len(result.Items)),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
	for i, reservation := range result.Items {
		response.Items[i] = h.convertReservationToResponse(reservation)
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// listAllReservations serves the admin-wide listing with filters
func (h *ReservationHandler) listAllReservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := domain.ReservationFilter{}

	if userIDStr := r.URL.Query().Get("user_id"); userIDStr != "" {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			filter.UserID = &userID
		}
	}

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		if status, known := domain.ParseStatus(statusStr); known {
			filter.Status = &status
		}
	}

	page, pageSize := h.parsePageParams(r)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	reservations, err := h.reservations.ListAllReservations(ctx, filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := ReservationPageResponse{
		Items:    make([]ReservationResponse, len(reservations)),
		Total:    len(reservations),
		Page:     page,
		PageSize: pageSize,
	}
	for i, reservation := range reservations {
		response.Items[i] = h.convertReservationToResponse(reservation)
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// UpdateReservationStatus handles PATCH /reservations/{id}/status
func (h *ReservationHandler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reservationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid reservation ID", err)
		return
	}

	var req UpdateReservationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid JSON payload", err)
		return
	}

	status, known := domain.ParseStatus(req.Status)
	if !known {
		h.respondWithError(w, http.StatusBadRequest, "Unknown reservation status", nil)
		return
	}

	if err := h.reservations.UpdateReservationStatus(ctx, reservationID, status); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info(ctx, "Reservation status updated", map[string]interface{}{
		"reservation_id": reservationID,
		"status":         status,
	})

	h.respondWithJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Reservation status updated",
		Data: map[string]interface{}{
			"reservation_id": reservationID,
			"new_status":     status,
		},
	})
}

// GetReservationMetrics handles GET /reservations/metrics
func (h *ReservationHandler) GetReservationMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	metrics, err := h.reservations.GetReservationMetrics(ctx)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := MetricsResponse{
		TotalReservations:       metrics.TotalReservations,
		TotalRevenue:            metrics.TotalRevenue,
		AverageReservationValue: metrics.AverageReservationValue,
		ReservationsByStatus:    metrics.ReservationsByStatus,
		ReservationsToday:       metrics.ReservationsToday,
		RevenueToday:            metrics.RevenueToday,
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// HealthCheck handles GET /health as a fallback when the health server is
// not wired
func (h *ReservationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   "reservation-service",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}
	h.respondWithJSON(w, http.StatusOK, response)
}

// Private helper methods

func (h *ReservationHandler) parsePageParams(r *http.Request) (page, pageSize int) {
	page = 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize = 20
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= 100 {
			pageSize = parsed
		}
	}

	return page, pageSize
}

func (h *ReservationHandler) convertReservationToResponse(reservation *domain.Reservation) ReservationResponse {
	response := ReservationResponse{
		ID:              reservation.ID,
		UserID:          reservation.UserID,
		Status:          string(reservation.Status),
		Subtotal:        reservation.Subtotal,
		Tax:             reservation.Tax,
		Deposit:         reservation.Deposit,
		Total:           reservation.Total,
		DeliveryAddress: reservation.DeliveryAddress,
		Notes:           reservation.Notes,
		CreatedAt:       reservation.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       reservation.UpdatedAt.UTC().Format(time.RFC3339),
		Lines:           make([]ReservationLineResponse, len(reservation.Lines)),
	}

	for i, line := range reservation.Lines {
		response.Lines[i] = ReservationLineResponse{
			ID:           line.ID,
			ItemID:       line.ItemID,
			Quantity:     line.Quantity,
			DailyPrice:   line.DailyPrice,
			DepositPrice: line.DepositPrice,
			RentalFrom:   line.RentalFrom.UTC().Format(time.RFC3339),
			RentalTo:     line.RentalTo.UTC().Format(time.RFC3339),
			Status:       string(line.Status),
		}
	}

	return response
}

// WriteJSON writes a JSON payload with status 200. Shared with the server
// for ad-hoc responses.
func WriteJSON(w http.ResponseWriter, payload interface{}) error {
	return json.NewEncoder(w).Encode(payload)
}

func (h *ReservationHandler) respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(nil, "Failed to marshal JSON response", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(response)
}

func (h *ReservationHandler) respondWithError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  statusCode,
	}

	if err != nil {
		errorResponse.Details = err.Error()
		h.logger.Error(nil, message, err)
	}

	h.respondWithJSON(w, statusCode, errorResponse)
}

func (h *ReservationHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsNotFound(err):
		h.respondWithError(w, http.StatusNotFound, "Resource not found", err)
	case errors.IsValidation(err):
		h.respondWithError(w, http.StatusBadRequest, "Validation error", err)
	case errors.IsConflict(err):
		h.respondWithError(w, http.StatusConflict, "Conflict error", err)
	case errors.IsExternal(err):
		h.respondWithError(w, http.StatusBadGateway, "External service error", err)
	default:
		h.logger.Error(nil, "Internal server error", err)
		h.respondWithError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

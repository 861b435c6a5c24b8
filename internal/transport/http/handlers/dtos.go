package handlers

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateReservationRequest represents the HTTP request to create a reservation
type CreateReservationRequest struct {
	Lines           []CreateReservationLineRequest `json:"lines"`
	DeliveryAddress string                         `json:"delivery_address,omitempty"`
	Notes           string                         `json:"notes,omitempty"`
}

// CreateReservationLineRequest represents one requested rental line
type CreateReservationLineRequest struct {
	ItemID     uuid.UUID `json:"item_id"`
	Quantity   int       `json:"quantity"`
	RentalFrom time.Time `json:"rental_from"`
	RentalTo   time.Time `json:"rental_to"`
}

// UpdateReservationStatusRequest represents a status transition request
type UpdateReservationStatusRequest struct {
	Status string `json:"status"`
}

// Response DTOs

// ReservationResponse represents a reservation in HTTP responses
type ReservationResponse struct {
	ID              uuid.UUID                 `json:"id"`
	UserID          uuid.UUID                 `json:"user_id"`
	Status          string                    `json:"status"`
	Lines           []ReservationLineResponse `json:"lines"`
	Subtotal        float64                   `json:"subtotal"`
	Tax             float64                   `json:"tax"`
	Deposit         float64                   `json:"deposit"`
	Total           float64                   `json:"total"`
	DeliveryAddress string                    `json:"delivery_address,omitempty"`
	Notes           string                    `json:"notes,omitempty"`
	CreatedAt       string                    `json:"created_at"`
	UpdatedAt       string                    `json:"updated_at"`
}

// ReservationLineResponse represents a reservation line in HTTP responses
type ReservationLineResponse struct {
	ID           uuid.UUID `json:"id"`
	ItemID       uuid.UUID `json:"item_id"`
	Quantity     int       `json:"quantity"`
	DailyPrice   float64   `json:"daily_price"`
	DepositPrice float64   `json:"deposit_price"`
	RentalFrom   string    `json:"rental_from"`
	RentalTo     string    `json:"rental_to"`
	Status       string    `json:"status"`
}

// ReservationPageResponse represents a paginated list of reservations
type ReservationPageResponse struct {
	Items      []ReservationResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// MetricsResponse represents reservation metrics
type MetricsResponse struct {
	TotalReservations       int            `json:"total_reservations"`
	TotalRevenue            float64        `json:"total_revenue"`
	AverageReservationValue float64        `json:"average_reservation_value"`
	ReservationsByStatus    map[string]int `json:"reservations_by_status"`
	ReservationsToday       int            `json:"reservations_today"`
	RevenueToday            float64        `json:"revenue_today"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ErrorResponse represents error responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents generic success responses
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

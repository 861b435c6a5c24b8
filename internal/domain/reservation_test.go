package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestParseStatus(t *testing.T) {
	for _, known := range []string{
		"PENDING", "CONFIRMED", "PROCESSING", "SHIPPED",
		"DELIVERED", "RETURNED", "CANCELLED", "REFUNDED",
	} {
		status, ok := ParseStatus(known)
		assert.True(t, ok, "expected %q to parse", known)
		assert.Equal(t, ReservationStatus(known), status)
	}

	for _, unknown := range []string{"", "pending", "SHIPPED ", "ARCHIVED", "PAID"} {
		_, ok := ParseStatus(unknown)
		assert.False(t, ok, "expected %q to be rejected", unknown)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    ReservationStatus
		to      ReservationStatus
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusRefunded, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusRefunded, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusReturned, false},
		{StatusDelivered, StatusReturned, true},
		{StatusDelivered, StatusRefunded, false},
		{StatusReturned, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusReturned.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())

	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
	assert.False(t, StatusDelivered.IsTerminal())
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name    string
		aFrom   int
		aTo     int
		bFrom   int
		bTo     int
		overlap bool
	}{
		{"partial overlap", 20, 25, 23, 28, true},
		{"contained", 10, 20, 12, 15, true},
		{"identical", 5, 10, 5, 10, true},
		{"single shared day", 1, 3, 2, 4, true},
		{"adjacent ranges do not overlap", 1, 5, 5, 10, false},
		{"adjacent reversed", 5, 10, 1, 5, false},
		{"disjoint", 1, 3, 10, 12, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(date(tt.aFrom), date(tt.aTo), date(tt.bFrom), date(tt.bTo))
			assert.Equal(t, tt.overlap, got)

			// Overlap is symmetric
			assert.Equal(t, tt.overlap, Overlaps(date(tt.bFrom), date(tt.bTo), date(tt.aFrom), date(tt.aTo)))
		})
	}
}

func TestLineOverlaps(t *testing.T) {
	line := ReservationLine{RentalFrom: date(10), RentalTo: date(15)}

	assert.True(t, line.Overlaps(date(14), date(20)))
	assert.False(t, line.Overlaps(date(15), date(20)))
	assert.False(t, line.Overlaps(date(5), date(10)))
}

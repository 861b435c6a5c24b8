package domain

import (
	"math"
	"time"
)

// TaxRate is the flat tax applied to the rental subtotal (deposit excluded)
const TaxRate = 0.08

// Totals holds the computed price components of a reservation
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Deposit  float64 `json:"deposit"`
	Total    float64 `json:"total"`
}

// RentalDays returns the number of billable days in [from, to), rounding a
// partial day up to a whole one. Callers must guarantee to is after from.
func RentalDays(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

// LineSubtotal is the rental charge of a single line: daily price times
// quantity times billable days.
func LineSubtotal(line ReservationLine) float64 {
	return line.DailyPrice * float64(line.Quantity) * float64(RentalDays(line.RentalFrom, line.RentalTo))
}

// LineDeposit is the refundable deposit of a single line
func LineDeposit(line ReservationLine) float64 {
	return line.DepositPrice * float64(line.Quantity)
}

// PriceLines computes reservation totals from priced lines. It is a pure
// function over the snapshotted line prices; recomputing on the same lines
// always yields identical totals.
func PriceLines(lines []ReservationLine) Totals {
	var totals Totals
	for _, line := range lines {
		totals.Subtotal += LineSubtotal(line)
		totals.Deposit += LineDeposit(line)
	}
	totals.Tax = totals.Subtotal * TaxRate
	totals.Total = totals.Subtotal + totals.Tax + totals.Deposit
	return totals
}

// ApplyTotals writes computed totals onto the reservation
func (r *Reservation) ApplyTotals(totals Totals) {
	r.Subtotal = totals.Subtotal
	r.Tax = totals.Tax
	r.Deposit = totals.Deposit
	r.Total = totals.Total
}

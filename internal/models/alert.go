package models

import (
	"time"
)

// Direction describes which side of the threshold the price moved to.
type Direction string

const (
	DirectionRose Direction = "rose"
	DirectionFell Direction = "fell"
)

// PriceAlert is a record of one dispatched (or attempted) alert to one user.
type PriceAlert struct {
	ID        string
	UserID    int64
	Price     float64
	Threshold float64
	Direction Direction
	Delivered bool
	SentAt    time.Time
}

// Tier buckets a spot price into the bands ComEd customers care about.
type Tier int

const (
	TierLow Tier = iota
	TierModerate
	TierHigh
)

// Tier breakpoints in cents per kWh: below 5 is low, above 14 is high.
const (
	tierLowMax  = 5.0
	tierHighMin = 14.0
)

// ClassifyPrice maps a spot price to its tier.
func ClassifyPrice(price float64) Tier {
	switch {
	case price < tierLowMax:
		return TierLow
	case price > tierHighMin:
		return TierHigh
	default:
		return TierModerate
	}
}

// Status returns the human-readable tier name used in alert messages.
func (t Tier) Status() string {
	switch t {
	case TierLow:
		return "low"
	case TierHigh:
		return "high"
	default:
		return "moderate"
	}
}

// Advice returns the usage guidance line for the tier.
func (t Tier) Advice() string {
	switch t {
	case TierLow:
		return "This is a good time to use electricity-intensive appliances."
	case TierHigh:
		return "It's advisable to limit use of non-essential electrical appliances."
	default:
		return "Consider moderate usage of high-consumption devices."
	}
}

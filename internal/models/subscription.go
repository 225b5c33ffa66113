// Package models defines the core domain entities: subscriptions, price tiers, and alerts.
package models

import (
	"errors"
)

// Subscription represents a user subscribed to price alerts. A nil Threshold
// means the global reference price is used when evaluating crossings.
type Subscription struct {
	UserID    int64    `json:"user_id"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Validate checks subscription field constraints.
func (s *Subscription) Validate() error {
	if s.UserID == 0 {
		return errors.New("user ID must not be zero")
	}
	if s.Threshold != nil && *s.Threshold < 0 {
		return errors.New("threshold must not be negative")
	}
	return nil
}

// EffectiveThreshold returns the subscriber's own threshold when set,
// otherwise the given reference price.
func (s *Subscription) EffectiveThreshold(referencePrice float64) float64 {
	if s.Threshold != nil {
		return *s.Threshold
	}
	return referencePrice
}

package models

import (
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestSubscriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Subscription
		wantErr bool
	}{
		{
			name: "valid without threshold",
			sub:  Subscription{UserID: 12345},
		},
		{
			name: "valid with threshold",
			sub:  Subscription{UserID: 12345, Threshold: floatPtr(7.5)},
		},
		{
			name: "zero threshold is legal",
			sub:  Subscription{UserID: 12345, Threshold: floatPtr(0)},
		},
		{
			name:    "zero user ID",
			sub:     Subscription{Threshold: floatPtr(7.5)},
			wantErr: true,
		},
		{
			name:    "negative threshold",
			sub:     Subscription{UserID: 12345, Threshold: floatPtr(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Subscription.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveThreshold(t *testing.T) {
	withOwn := Subscription{UserID: 1, Threshold: floatPtr(10)}
	if got := withOwn.EffectiveThreshold(6.9); got != 10 {
		t.Errorf("personal threshold: got %v, want 10", got)
	}
	withoutOwn := Subscription{UserID: 2}
	if got := withoutOwn.EffectiveThreshold(6.9); got != 6.9 {
		t.Errorf("reference fallback: got %v, want 6.9", got)
	}
}

func TestClassifyPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  Tier
	}{
		{0, TierLow},
		{4.9, TierLow},
		{5.0, TierModerate}, // breakpoint belongs to moderate
		{10, TierModerate},
		{14.0, TierModerate}, // breakpoint belongs to moderate
		{14.1, TierHigh},
		{30, TierHigh},
	}
	for _, tt := range tests {
		if got := ClassifyPrice(tt.price); got != tt.want {
			t.Errorf("ClassifyPrice(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestTierStrings(t *testing.T) {
	if TierLow.Status() != "low" || TierModerate.Status() != "moderate" || TierHigh.Status() != "high" {
		t.Error("unexpected tier status strings")
	}
	for _, tier := range []Tier{TierLow, TierModerate, TierHigh} {
		if tier.Advice() == "" {
			t.Errorf("tier %v has empty advice", tier)
		}
	}
}

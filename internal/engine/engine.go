// Package engine owns the polling loop state: the last observed spot price,
// the global reference price, and per-subscriber crossing detection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voltwatch/voltwatch/internal/logger"
	"github.com/voltwatch/voltwatch/internal/models"
	"github.com/voltwatch/voltwatch/internal/storage"
)

// ErrRecipientUnreachable reports that a recipient cannot receive direct
// messages (blocked the bot, never started a chat). Distinguished from
// transient delivery errors so fan-out logging can tell them apart.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// PriceSource fetches spot and reference prices from upstream.
type PriceSource interface {
	FetchSpotPrice(ctx context.Context) (float64, error)
	FetchReferencePrice(ctx context.Context) (float64, error)
}

// Notifier delivers one formatted alert to one user. Implementations return
// ErrRecipientUnreachable (possibly wrapped) when the user has blocked DMs.
type Notifier interface {
	SendPriceAlert(ctx context.Context, userID int64, price, threshold float64) error
}

// Config holds engine tuning.
type Config struct {
	DefaultThreshold float64
	DeliveryTimeout  time.Duration
}

// Engine evaluates threshold crossings once per poll tick and fans alerts
// out to subscribers. Poll state is process-local on purpose: after a
// restart the first observation re-alerts every subscriber once.
type Engine struct {
	store    *storage.Storage
	source   PriceSource
	notifier Notifier
	config   Config

	mu             sync.Mutex
	lastPrice      *float64
	referencePrice *float64
}

// New creates an engine. The reference price is seeded from the configured
// default threshold so evaluation never runs against an unset value.
func New(store *storage.Storage, source PriceSource, notifier Notifier, config Config) *Engine {
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = 10 * time.Second
	}
	seed := config.DefaultThreshold
	return &Engine{
		store:          store,
		source:         source,
		notifier:       notifier,
		config:         config,
		referencePrice: &seed,
	}
}

// SetNotifier installs the delivery collaborator. The notifier needs the
// engine for its command surface, so it is attached after construction.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// ReferencePrice returns the current global reference price.
func (e *Engine) ReferencePrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.referencePrice == nil {
		return e.config.DefaultThreshold
	}
	return *e.referencePrice
}

// EffectiveThreshold returns the threshold a subscriber is evaluated
// against: their own when set, otherwise the global reference price.
func (e *Engine) EffectiveThreshold(sub *models.Subscription) float64 {
	if sub != nil && sub.Threshold != nil {
		return *sub.Threshold
	}
	return e.ReferencePrice()
}

// CurrentSpotPrice fetches the spot price for interactive queries. It never
// touches poll state, so on-demand checks cannot perturb crossing detection.
func (e *Engine) CurrentSpotPrice(ctx context.Context) (float64, error) {
	return e.source.FetchSpotPrice(ctx)
}

// RefreshReferencePrice fetches the price-to-compare value. A failed fetch
// keeps the previous value, which is the seeded default before the first
// success ever.
func (e *Engine) RefreshReferencePrice(ctx context.Context) {
	price, err := e.source.FetchReferencePrice(ctx)
	if err != nil {
		logger.Warn("Reference price refresh failed, keeping %.2f: %v", e.ReferencePrice(), err)
		return
	}
	e.mu.Lock()
	e.referencePrice = &price
	e.mu.Unlock()
	logger.Info("Reference price refreshed: %.2f¢/kWh", price)
}

// firing is one alert to dispatch this tick.
type firing struct {
	userID    int64
	threshold float64
	direction models.Direction
}

// PollTick runs one polling cycle: fetch, detect crossings, fan out, advance
// the baseline. A fetch failure leaves all state untouched; delivery
// failures are per-recipient and never fail the cycle.
func (e *Engine) PollTick(ctx context.Context) error {
	curr, err := e.source.FetchSpotPrice(ctx)
	if err != nil {
		return fmt.Errorf("spot price fetch failed, skipping cycle: %w", err)
	}

	e.mu.Lock()
	prev := e.lastPrice
	ref := e.referencePrice
	e.mu.Unlock()

	if prev != nil && curr == *prev {
		logger.Debug("Spot price unchanged at %.2f¢/kWh, skipping evaluation", curr)
		return nil
	}

	subs, err := e.store.ListSubscriptions()
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	var firings []firing
	for _, sub := range subs {
		var threshold float64
		switch {
		case sub.Threshold != nil:
			threshold = *sub.Threshold
		case ref != nil:
			threshold = *ref
		default:
			// Unreachable once New has seeded the reference price.
			logger.Warn("No effective threshold for user %d, skipping", sub.UserID)
			continue
		}
		if direction, fire := crossed(prev, curr, threshold); fire {
			firings = append(firings, firing{userID: sub.UserID, threshold: threshold, direction: direction})
		}
	}

	if len(firings) > 0 {
		if e.notifier != nil {
			logger.Info("Price %.2f¢/kWh crossed threshold for %d of %d subscribers", curr, len(firings), len(subs))
			e.dispatch(ctx, curr, firings)
		} else {
			logger.Debug("Crossings detected for %d subscribers but notifications are disabled", len(firings))
		}
	}

	e.mu.Lock()
	e.lastPrice = &curr
	e.mu.Unlock()

	return nil
}

// crossed reports whether the price relation to threshold changed across the
// boundary between prev and curr. A nil prev (first observation) always
// fires. Equality at the threshold belongs to the low side: rising fires
// only when curr is strictly above, falling fires when curr lands on or
// below the threshold.
func crossed(prev *float64, curr, threshold float64) (models.Direction, bool) {
	if prev == nil {
		if curr > threshold {
			return models.DirectionRose, true
		}
		return models.DirectionFell, true
	}
	if *prev <= threshold && threshold < curr {
		return models.DirectionRose, true
	}
	if *prev > threshold && threshold >= curr {
		return models.DirectionFell, true
	}
	return "", false
}

// dispatch fans alerts out concurrently, one independent attempt per user
// with its own timeout, so a hung delivery cannot stall the rest.
func (e *Engine) dispatch(ctx context.Context, price float64, firings []firing) {
	var wg sync.WaitGroup
	for _, f := range firings {
		wg.Add(1)
		go func(f firing) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, e.config.DeliveryTimeout)
			defer cancel()

			err := e.notifier.SendPriceAlert(sendCtx, f.userID, price, f.threshold)
			switch {
			case err == nil:
			case errors.Is(err, ErrRecipientUnreachable):
				logger.Warn("User %d is unreachable, alert dropped", f.userID)
			default:
				logger.Error("Failed to deliver alert to user %d: %v", f.userID, err)
			}

			record := models.PriceAlert{
				UserID:    f.userID,
				Price:     price,
				Threshold: f.threshold,
				Direction: f.direction,
				Delivered: err == nil,
				SentAt:    time.Now(),
			}
			if logErr := e.store.LogAlert(&record); logErr != nil {
				logger.Warn("Failed to record alert for user %d: %v", f.userID, logErr)
			}
		}(f)
	}
	wg.Wait()
}

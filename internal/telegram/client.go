// Package telegram delivers price alerts as direct messages and exposes the
// bot's command surface.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/voltwatch/voltwatch/internal/engine"
	"github.com/voltwatch/voltwatch/internal/models"
	"github.com/voltwatch/voltwatch/internal/storage"
)

// Client wraps the Telegram bot for notifications and command handling.
type Client struct {
	bot            botAPI
	engine         *engine.Engine
	store          *storage.Storage
	maxRetries     int
	retryDelayBase time.Duration
	checkCooldown  *cooldown
}

// botAPI is the slice of tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewClient creates a new Telegram client.
func NewClient(botToken string, eng *engine.Engine, store *storage.Storage, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, eng, store, maxRetries, retryDelayBase), nil
}

func newClient(bot botAPI, eng *engine.Engine, store *storage.Storage, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		engine:         eng,
		store:          store,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		checkCooldown:  newCooldown(checkCooldownPeriod),
	}
}

// SendPriceAlert renders and delivers one crossing alert to one user.
// A 403 from Telegram (bot blocked, chat never started) is reported as
// engine.ErrRecipientUnreachable.
func (c *Client) SendPriceAlert(ctx context.Context, userID int64, price, threshold float64) error {
	return c.sendMarkdownV2(ctx, userID, formatPriceMessage(price, threshold))
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
// Unreachable recipients are not retried.
func (c *Client) sendMarkdownV2(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		if isForbidden(err) {
			return fmt.Errorf("telegram: %w", engine.ErrRecipientUnreachable)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// isForbidden reports whether the Telegram API rejected delivery because the
// recipient cannot be messaged.
func isForbidden(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == http.StatusForbidden
	}
	return false
}

// formatPriceMessage renders the tier-coloured alert body.
func formatPriceMessage(price, threshold float64) string {
	tier := models.ClassifyPrice(price)

	diff := price - threshold
	direction := "higher"
	if diff <= 0 {
		direction = "lower"
	}

	title := escapeMarkdownV2(fmt.Sprintf("%.1f%s per kWh", price, centSymbol))
	body := escapeMarkdownV2(fmt.Sprintf("ComEd electricity prices are currently %s. %s", tier.Status(), tier.Advice()))
	footer := escapeMarkdownV2(fmt.Sprintf("%.1f%s %s than your alert threshold of %.1f%s",
		absFloat(diff), centSymbol, direction, threshold, centSymbol))

	return fmt.Sprintf("%s *%s*\n\n%s\n\n_%s_", tierEmoji(tier), title, body, footer)
}

func tierEmoji(t models.Tier) string {
	switch t {
	case models.TierLow:
		return "🟢"
	case models.TierHigh:
		return "🔴"
	default:
		return "🟠"
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/voltwatch/voltwatch/internal/logger"
)

// command is one entry of the static command table.
type command struct {
	name        string
	description string
	handler     func(c *Client, msg *tgbotapi.Message)
}

// commandTable maps every bot command to its handler. Built statically at
// compile time rather than discovered at runtime.
var commandTable []command

// Assigned in init rather than at declaration because handleHelp iterates
// commandTable, which would otherwise be an initialization cycle.
func init() {
	commandTable = []command{
		{
			name:        "check",
			description: "View the current hourly average electricity price",
			handler:     (*Client).handleCheck,
		},
		{
			name:        "toggle",
			description: "Enable or disable price alerts, optionally with a personal threshold",
			handler:     (*Client).handleToggle,
		},
		{
			name:        "help",
			description: "Display a list of available commands and their descriptions",
			handler:     (*Client).handleHelp,
		},
		{
			name:        "ping",
			description: "Check the bot's response time",
			handler:     (*Client).handlePing,
		},
	}
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// dispatches bot commands. It returns immediately; the goroutine stops when
// ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

// handleCommand dispatches to the command table. Handler panics are
// recovered here so a single bad interaction cannot take the process down.
func (c *Client) handleCommand(msg *tgbotapi.Message) {
	name := msg.Command()
	for _, cmd := range commandTable {
		if cmd.name != name {
			continue
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Command /%s panicked for user %d: %v", name, msg.From.ID, r)
				c.reply(msg.Chat.ID, msgCmdErr)
			}
		}()
		cmd.handler(c, msg)
		logger.Debug("Handled /%s for user %d", name, msg.From.ID)
		return
	}
}

func (c *Client) handleCheck(msg *tgbotapi.Message) {
	userID := msg.From.ID

	if !c.checkCooldown.allow(userID) {
		c.reply(msg.Chat.ID, msgCheckCooldown)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	price, err := c.engine.CurrentSpotPrice(ctx)
	if err != nil {
		logger.Warn("On-demand price check failed for user %d: %v", userID, err)
		c.reply(msg.Chat.ID, msgPriceErr)
		return
	}

	sub, err := c.store.GetSubscription(userID)
	if err != nil {
		logger.Error("Failed to load subscription for user %d: %v", userID, err)
		c.reply(msg.Chat.ID, msgCmdErr)
		return
	}

	threshold := c.engine.EffectiveThreshold(sub)
	reply := tgbotapi.NewMessage(msg.Chat.ID, formatPriceMessage(price, threshold))
	reply.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to answer /check for user %d: %v", userID, err)
	}
}

func (c *Client) handleToggle(msg *tgbotapi.Message) {
	userID := msg.From.ID

	var threshold *float64
	if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
		v, err := strconv.ParseFloat(args, 64)
		if err != nil || v < 0 {
			c.reply(msg.Chat.ID, msgToggleUsage)
			return
		}
		threshold = &v
	}

	sub, err := c.store.GetSubscription(userID)
	if err != nil {
		logger.Error("Failed to load subscription for user %d: %v", userID, err)
		c.reply(msg.Chat.ID, msgCmdErr)
		return
	}

	switch {
	case sub == nil:
		if err := c.store.UpsertSubscription(userID, threshold); err != nil {
			logger.Error("Failed to subscribe user %d: %v", userID, err)
			c.reply(msg.Chat.ID, msgCmdErr)
			return
		}
		if threshold != nil {
			c.reply(msg.Chat.ID, fmt.Sprintf(msgAlertsOnPersonal, *threshold, centSymbol))
		} else {
			c.reply(msg.Chat.ID, msgAlertsOn)
		}

	case threshold != nil:
		// Already subscribed and a threshold was given: update instead of
		// unsubscribing.
		if err := c.store.UpsertSubscription(userID, threshold); err != nil {
			logger.Error("Failed to update threshold for user %d: %v", userID, err)
			c.reply(msg.Chat.ID, msgCmdErr)
			return
		}
		c.reply(msg.Chat.ID, fmt.Sprintf(msgThresholdUpdated, *threshold, centSymbol))

	default:
		if err := c.store.RemoveSubscription(userID); err != nil {
			logger.Error("Failed to unsubscribe user %d: %v", userID, err)
			c.reply(msg.Chat.ID, msgCmdErr)
			return
		}
		c.reply(msg.Chat.ID, msgAlertsOff)
	}
}

func (c *Client) handleHelp(msg *tgbotapi.Message) {
	var b strings.Builder
	b.WriteString(msgHelpTitle)
	b.WriteString("\n\n")
	for _, cmd := range commandTable {
		fmt.Fprintf(&b, "/%s - %s\n", cmd.name, cmd.description)
	}
	c.reply(msg.Chat.ID, b.String())
}

func (c *Client) handlePing(msg *tgbotapi.Message) {
	start := time.Now()
	sent, err := c.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Pinging..."))
	if err != nil {
		logger.Warn("Failed to answer /ping: %v", err)
		return
	}
	latency := time.Since(start)

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sent.MessageID,
		fmt.Sprintf("Pong: %d ms", latency.Milliseconds()))
	if _, err := c.bot.Send(edit); err != nil {
		logger.Warn("Failed to edit /ping response: %v", err)
	}
}

// reply sends a plain-text response, logging failures instead of surfacing
// them.
func (c *Client) reply(chatID int64, text string) {
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warn("Failed to send reply: %v", err)
	}
}

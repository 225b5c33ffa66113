package telegram

import "time"

// Unicode cent symbol used in every price string.
const centSymbol = "¢"

// One /check per user per 60 seconds.
const checkCooldownPeriod = 60 * time.Second

// User-facing message constants.
const (
	msgAlertsOn         = "Price alerts turned on. You'll be notified when electricity prices cross your alert threshold."
	msgAlertsOnPersonal = "Price alerts turned on with a personal threshold of %.1f%s."
	msgThresholdUpdated = "Alert threshold updated to %.1f%s."
	msgAlertsOff        = "Price alerts turned off. You will no longer receive notifications about electricity price changes."

	msgCheckCooldown = "Please wait before checking the price again."
	msgPriceErr      = "Failed to retrieve the current ComEd price. Please try again later."
	msgCmdErr        = "An error occurred while processing the command."
	msgToggleUsage   = "Usage: /toggle [threshold], e.g. /toggle 9.5"

	msgHelpTitle = "VoltWatch commands"
)

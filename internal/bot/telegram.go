// Package bot is the outbound alert transport of spec §6: a send-only
// Telegram channel publisher, distinct from the ingestion credentials used
// to read public posts. Adapted from the teacher's poll/command bot, which
// previously handled /ping, /price, and /volume against a price service;
// the trading system's read path never talks to this bot, and this bot
// never accepts inbound commands — it only publishes alerter.Format output
// to TELEGRAM_CHANNEL_ID.
package bot

import (
	"context"
	"fmt"
	"os"
	"strconv"

	tele "gopkg.in/telebot.v3"
)

// Bot implements alerter.Transport over a Telegram channel. Built from
// TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL_ID, which spec §6 notes are
// distinct from the TELEGRAM_API_ID/API_HASH/PHONE credentials the
// Telegram ingestion worker uses to read public channels.
type Bot struct {
	client *tele.Bot
	chatID int64
}

// NewTelegramBot builds a send-only Bot from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHANNEL_ID. Returns (nil, nil) if either is unset, matching the
// teacher's skip-on-missing-credential convention rather than failing
// startup over an optional outbound channel.
func NewTelegramBot() (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	channelID := os.Getenv("TELEGRAM_CHANNEL_ID")
	if token == "" || channelID == "" {
		return nil, nil
	}

	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bot: TELEGRAM_CHANNEL_ID %q is not a valid chat id: %w", channelID, err)
	}

	client, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("bot: create telegram client: %w", err)
	}
	return &Bot{client: client, chatID: chatID}, nil
}

// Send publishes message to the configured alert channel. Implements
// alerter.Transport; ctx is accepted for interface symmetry with other
// transports but telebot.v3's Send has no context-aware variant.
func (b *Bot) Send(ctx context.Context, message string) error {
	if _, err := b.client.Send(&tele.Chat{ID: b.chatID}, message); err != nil {
		return fmt.Errorf("bot: send to channel %d: %w", b.chatID, err)
	}
	return nil
}

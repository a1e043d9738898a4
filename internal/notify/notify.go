// Package notify delivers run summaries and failure alerts to a chat.
package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bowerhall/graphcol/internal/logger"
)

// Sender posts a text message somewhere a human will read it.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type Config struct {
	Provider string
	Token    string
	// Telegram chat id or Discord channel id.
	Target string
}

// New returns the sender for cfg.Provider, or nil when notifications are off.
func New(cfg Config) (Sender, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "telegram":
		chatID, err := strconv.ParseInt(cfg.Target, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram chat id %q: %w", cfg.Target, err)
		}
		return NewTelegram(cfg.Token, chatID)
	case "discord":
		return NewDiscord(cfg.Token, cfg.Target)
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Provider)
	}
}

// telegram messages are capped at 4096 characters
const telegramMaxLen = 4096

type telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (Sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &telegram{api: api, chatID: chatID}, nil
}

func (t *telegram) Send(ctx context.Context, text string) error {
	if len(text) > telegramMaxLen {
		text = text[:telegramMaxLen-3] + "..."
	}

	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		logger.Error("telegram send failed", "error", err, "chatID", t.chatID)
		return err
	}

	logger.Debug("telegram message sent", "chatID", t.chatID, "chars", len(text))
	return nil
}

type discord struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscord(token, channelID string) (Sender, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	return &discord{session: session, channelID: channelID}, nil
}

func (d *discord) Send(ctx context.Context, text string) error {
	_, err := d.session.ChannelMessageSend(d.channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		logger.Error("discord send failed", "error", err, "channelID", d.channelID)
		return err
	}

	logger.Debug("discord message sent", "channelID", d.channelID, "chars", len(text))
	return nil
}

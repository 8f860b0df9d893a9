// Package telegram broadcasts alert messages to Telegram chats.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// ErrNoChats is returned when a sender is built without recipients.
var ErrNoChats = errors.New("no telegram chat ids configured")

// BotAPI is the subset of the Telegram client used for sending.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender sends plain-text messages to a fixed set of chats.
type Sender struct {
	bot     BotAPI
	chatIDs []int64
	logger  zerolog.Logger
}

// NewSender authorizes a bot with the given token.
func NewSender(token string, chatIDs []int64, logger zerolog.Logger) (*Sender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	logger.Info().Str("bot", bot.Self.UserName).Msg("authorized on telegram")

	return NewSenderWithBot(bot, chatIDs, logger)
}

// NewSenderWithBot wraps an existing client.
func NewSenderWithBot(bot BotAPI, chatIDs []int64, logger zerolog.Logger) (*Sender, error) {
	if len(chatIDs) == 0 {
		return nil, ErrNoChats
	}
	return &Sender{
		bot:     bot,
		chatIDs: append([]int64(nil), chatIDs...),
		logger:  logger,
	}, nil
}

// Send delivers text to every chat. It keeps going after a failed chat and
// returns the joined errors.
func (s *Sender) Send(ctx context.Context, text string) error {
	var errs []error
	for _, id := range s.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true

		if _, err := s.bot.Send(msg); err != nil {
			s.logger.Warn().Err(err).Int64("chat_id", id).Msg("telegram send failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

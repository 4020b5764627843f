// Package bot runs the Telegram front end: it receives text and voice
// messages, feeds them through the processing engine, and replies with
// receipts that carry an inline undo button.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/engine"
	"github.com/kopeckbot/kopeck/internal/model"
)

const (
	undoCallbackData = "undo"
	pollTimeout      = 30 // seconds, long polling
	voiceLimitBytes  = 20 << 20
)

// Bot wires the Telegram API to the engine.
type Bot struct {
	api        *tgbotapi.BotAPI
	engine     *engine.Engine
	logger     *slog.Logger
	httpClient *http.Client
}

// New connects to the Telegram API with the given token.
func New(token string, eng *engine.Engine, logger *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: telegram token is required", common.ErrMissingConfig)
	}
	if eng == nil {
		return nil, fmt.Errorf("%w: engine is required", common.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	return &Bot{
		api:        api,
		engine:     eng,
		logger:     logger,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot started", "username", b.api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	incoming := model.IncomingMessage{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Sender:    senderName(msg),
		Text:      msg.Text,
	}

	if msg.Voice != nil {
		audio, err := b.downloadVoice(ctx, msg.Voice)
		if err != nil {
			b.logger.Error("voice download failed", "chat_id", msg.Chat.ID, "error", err)
			b.reply(msg.Chat.ID, renderError(common.NewUserError(
				"Не удалось скачать голосовое сообщение, попробуйте ещё раз.", err)))
			return
		}
		incoming.Audio = audio
	}

	result, err := b.engine.HandleMessage(ctx, incoming)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			b.reply(msg.Chat.ID, renderDenied())
			return
		}
		b.logger.Error("message handling failed", "key", incoming.Key(), "error", err)
		b.reply(msg.Chat.ID, renderError(err))
		return
	}

	if result.Duplicate {
		b.logger.Info("duplicate delivery ignored", "key", incoming.Key())
		return
	}

	text := renderResult(result)
	if len(result.Written) > 0 {
		b.replyWithUndo(msg.Chat.ID, text)
		return
	}
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	sender := senderName(msg)
	if !b.engine.Authorized(sender) {
		b.logger.Warn("unauthorized command", "sender", sender, "command", msg.Command())
		b.reply(msg.Chat.ID, renderDenied())
		return
	}

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, renderWelcome())
	case "undo":
		b.undo(ctx, msg.Chat.ID, sender)
	default:
		b.reply(msg.Chat.ID, "Неизвестная команда. Отправьте текст или голосовое сообщение с операцией.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge the button press regardless of outcome.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("callback ack failed", "error", err)
	}

	if query.Data != undoCallbackData || query.Message == nil {
		return
	}
	b.undo(ctx, query.Message.Chat.ID, senderFromUser(query.From))
}

func (b *Bot) undo(ctx context.Context, chatID int64, sender string) {
	receipt, err := b.engine.Undo(ctx, sender)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			b.reply(chatID, renderDenied())
			return
		}
		if errors.Is(err, common.ErrNothingToUndo) {
			b.reply(chatID, renderNothingToUndo())
			return
		}
		b.logger.Error("undo failed", "sender", sender, "error", err)
		b.reply(chatID, renderError(err))
		return
	}
	b.reply(chatID, renderUndone(receipt))
}

func (b *Bot) downloadVoice(ctx context.Context, voice *tgbotapi.Voice) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: voice.FileID})
	if err != nil {
		return nil, fmt.Errorf("resolving voice file: %w", err)
	}

	url := file.Link(b.api.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading voice file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading voice file: status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, voiceLimitBytes))
	if err != nil {
		return nil, fmt.Errorf("reading voice file: %w", err)
	}
	return audio, nil
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("sending reply failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyWithUndo(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = undoKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("sending reply failed", "chat_id", chatID, "error", err)
	}
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	return senderFromUser(msg.From)
}

func senderFromUser(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	return fmt.Sprintf("%d", user.ID)
}

package bot

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/engine"
	"github.com/kopeckbot/kopeck/internal/model"
)

func undoKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Отменить", undoCallbackData),
		),
	)
}

func renderWelcome() string {
	return strings.Join([]string{
		"Привет! Я записываю операции в таблицу.",
		"",
		"Отправьте текст или голосовое сообщение, например:",
		"«оплатил поставщику 12 500»",
		"«пополнил кассу на 40000»",
		"",
		"Кнопка «Отменить» удаляет последнюю записанную строку.",
	}, "\n")
}

func renderDenied() string {
	return "Извините, этот бот принимает сообщения только от владельца."
}

func renderNothingToUndo() string {
	return "Нечего отменять: история записей пуста."
}

func renderUndone(receipt model.Receipt) string {
	return fmt.Sprintf("Удалена строка %d: %s", receipt.Row, receipt.Summary)
}

// renderResult builds the reply for a processed message: the transcript
// echo for voice input, one line per written row, and notes for any
// candidates that were dropped.
func renderResult(result engine.Result) string {
	var sb strings.Builder

	if result.Transcript != "" {
		sb.WriteString("Распознано: ")
		sb.WriteString(result.Transcript)
		sb.WriteString("\n\n")
	}

	if len(result.Written) == 0 && len(result.Rejected) == 0 {
		sb.WriteString("Не нашёл операций в сообщении. Укажите сумму и назначение, например «такси 450».")
		return sb.String()
	}

	for _, tx := range result.Written {
		sb.WriteString(renderTransaction(tx))
		sb.WriteString("\n")
	}

	for _, note := range result.Rejected {
		sb.WriteString("⚠️ Пропущено: ")
		sb.WriteString(note)
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func renderTransaction(tx model.Transaction) string {
	var sb strings.Builder
	sb.WriteString("✅ ")
	sb.WriteString(tx.Type.Label())
	sb.WriteString(": ")
	sb.WriteString(tx.Amount.String())
	sb.WriteString(" (")
	sb.WriteString(tx.Category)
	sb.WriteString(")")
	if tx.Description != "" {
		sb.WriteString(" — ")
		sb.WriteString(tx.Description)
	}
	sb.WriteString(", ")
	sb.WriteString(tx.Date.Format(model.DateLayout))
	return sb.String()
}

func renderError(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	switch {
	case errors.Is(err, common.ErrTranscription):
		return "Не удалось распознать голосовое сообщение, попробуйте ещё раз или напишите текстом."
	case errors.Is(err, common.ErrLedgerWrite):
		return "Не удалось записать операцию в таблицу. Попробуйте позже."
	case errors.Is(err, common.ErrRateLimit):
		return "Слишком много запросов, подождите немного."
	default:
		return "Что-то пошло не так, попробуйте ещё раз."
	}
}

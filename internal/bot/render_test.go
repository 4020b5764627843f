package bot

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kopeckbot/kopeck/internal/common"
	"github.com/kopeckbot/kopeck/internal/engine"
	"github.com/kopeckbot/kopeck/internal/model"
)

var testDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func TestRenderResultSingleExpense(t *testing.T) {
	result := engine.Result{
		Written: []model.Transaction{{
			Date:        testDate,
			Type:        model.OperationExpense,
			Category:    "Такси",
			Description: "такси до офиса",
			Amount:      decimal.NewFromInt(-450),
			Comment:     model.PlaceholderComment,
		}},
	}

	text := renderResult(result)
	assert.Contains(t, text, "Расход")
	assert.Contains(t, text, "-450")
	assert.Contains(t, text, "Такси")
	assert.Contains(t, text, "такси до офиса")
	assert.Contains(t, text, "15.03.2026")
}

func TestRenderResultVoiceEcho(t *testing.T) {
	result := engine.Result{
		Transcript: "пополнил кассу на 40000",
		Written: []model.Transaction{{
			Date:     testDate,
			Type:     model.OperationIncome,
			Category: "-",
			Amount:   decimal.NewFromInt(40000),
		}},
	}

	text := renderResult(result)
	assert.Contains(t, text, "Распознано: пополнил кассу на 40000")
	assert.Contains(t, text, "Пополнение")
}

func TestRenderResultRejectedNotes(t *testing.T) {
	result := engine.Result{
		Written: []model.Transaction{{
			Date:     testDate,
			Type:     model.OperationExpense,
			Category: "Связь",
			Amount:   decimal.NewFromInt(-500),
		}},
		Rejected: []string{"операция без суммы"},
	}

	text := renderResult(result)
	assert.Contains(t, text, "Связь")
	assert.Contains(t, text, "Пропущено: операция без суммы")
}

func TestRenderResultNothingFound(t *testing.T) {
	text := renderResult(engine.Result{})
	assert.Contains(t, text, "Не нашёл операций")
}

func TestRenderUndone(t *testing.T) {
	text := renderUndone(model.Receipt{Row: 12, Summary: "такси: -450 (Такси)"})
	assert.Equal(t, "Удалена строка 12: такси: -450 (Такси)", text)
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "user error passes its message through",
			err:  common.NewUserError("Файл слишком большой.", errors.New("20mb limit")),
			want: "Файл слишком большой.",
		},
		{
			name: "transcription failure",
			err:  fmt.Errorf("%w: empty transcript", common.ErrTranscription),
			want: "Не удалось распознать голосовое сообщение, попробуйте ещё раз или напишите текстом.",
		},
		{
			name: "ledger write failure",
			err:  fmt.Errorf("%w: append: 503", common.ErrLedgerWrite),
			want: "Не удалось записать операцию в таблицу. Попробуйте позже.",
		},
		{
			name: "rate limit",
			err:  common.ErrRateLimit,
			want: "Слишком много запросов, подождите немного.",
		},
		{
			name: "unknown error falls back to generic message",
			err:  errors.New("boom"),
			want: "Что-то пошло не так, попробуйте ещё раз.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderError(tt.err))
		})
	}
}

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopeckbot/kopeck/internal/rules"
)

func TestFallbackTriggerMapping(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantType     string
		wantCategory string
		wantAmount   string
	}{
		{
			name:         "supplier payment",
			text:         "оплата поставщику Шамилю 10000",
			wantType:     "expense",
			wantCategory: "Оплата поставщику",
			wantAmount:   "10000",
		},
		{
			name:         "taxi",
			text:         "такси 300",
			wantType:     "expense",
			wantCategory: "Такси",
			wantAmount:   "300",
		},
		{
			name:         "tula market beats generic purchase words",
			text:         "рынок тула 5000 за товары",
			wantType:     "expense",
			wantCategory: "Закупка Тула",
			wantAmount:   "5000",
		},
		{
			name:         "supplier beats salary name",
			text:         "заплатил поставщику Петрову 40000",
			wantType:     "expense",
			wantCategory: "Оплата поставщику",
			wantAmount:   "40000",
		},
		{
			name:         "founder payout",
			text:         "дал Тане лично 30000",
			wantType:     "expense",
			wantCategory: "Выплаты учредителям",
			wantAmount:   "30000",
		},
		{
			name:         "salary",
			text:         "зарплата Петрову 40 000",
			wantType:     "expense",
			wantCategory: "Зарплаты сотрудникам",
			wantAmount:   "40 000",
		},
		{
			name:         "income",
			text:         "пополнил кассу на 50000",
			wantType:     "income",
			wantCategory: rules.IncomeCategory,
			wantAmount:   "50000",
		},
		{
			name:         "no trigger still records with fallback bucket",
			text:         "шаурма 250",
			wantType:     "expense",
			wantCategory: rules.FallbackCategory,
			wantAmount:   "250",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(tt.text)
			require.Len(t, got, 1, "fallback yields exactly one candidate")
			assert.Equal(t, tt.wantType, got[0].Type)
			assert.Equal(t, tt.wantCategory, got[0].Category)
			assert.Equal(t, tt.wantAmount, got[0].Amount)
		})
	}
}

func TestFallbackNoNumericToken(t *testing.T) {
	assert.Empty(t, Fallback("привет, как дела?"))
	assert.Empty(t, Fallback(""))
}

func TestFallbackDescriptionDropsAmount(t *testing.T) {
	got := Fallback("такси до офиса 450")
	require.Len(t, got, 1)
	assert.Equal(t, "такси до офиса", got[0].Description)
}

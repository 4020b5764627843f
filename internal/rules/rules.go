// Package rules validates and normalizes candidate transactions against
// the closed category and sign rules of the ledger.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kopeckbot/kopeck/internal/model"
)

// ErrRejected marks a candidate that cannot be normalized. Rejection is
// per-candidate; sibling candidates from the same message still proceed.
var ErrRejected = errors.New("candidate rejected")

const (
	// FallbackCategory receives everything that does not match the
	// closed set. Recording an approximate entry beats dropping data.
	FallbackCategory = "Прочее"

	// IncomeCategory is the ledger convention for income rows.
	IncomeCategory = "-"

	// ledgerTimeZone is the fixed timezone for defaulted dates.
	ledgerTimeZone = "Europe/Moscow"
)

// expenseCategories is the closed set of expense categories.
var expenseCategories = []string{
	"Зарплаты сотрудникам",
	"Выплаты учредителям",
	"Оплата поставщику",
	"Процент",
	"Закупка товара",
	"Материалы",
	"Транспорт",
	"Связь",
	"Такси",
	"Общественные расходы",
	"Благотворительность",
	"Закупка Тула",
	"Закупка Москва",
}

// Categories returns the full closed category set, fallback bucket
// included, in a stable order.
func Categories() []string {
	out := make([]string, 0, len(expenseCategories)+2)
	out = append(out, expenseCategories...)
	out = append(out, FallbackCategory, IncomeCategory)
	return out
}

// Engine normalizes candidates into ledger-valid transactions.
type Engine struct {
	loc *time.Location
	now func() time.Time
}

// NewEngine creates a rule engine with the fixed ledger timezone.
func NewEngine() (*Engine, error) {
	loc, err := time.LoadLocation(ledgerTimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger timezone: %w", err)
	}
	return &Engine{loc: loc, now: time.Now}, nil
}

// Normalize validates a candidate and coerces it into a normalized
// transaction. The only rejection cause is an amount that cannot be
// parsed as a non-zero number; every other field is coerced.
func (e *Engine) Normalize(c model.Candidate) (model.Transaction, error) {
	amount, err := parseAmount(c.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	typ := resolveType(c.Type)

	// Sign is always recomputed from the type; free-text sign is
	// untrusted input.
	amount = amount.Abs()
	if typ == model.OperationExpense {
		amount = amount.Neg()
	}

	return model.Transaction{
		Date:        e.resolveDate(c.Date),
		Type:        typ,
		Category:    resolveCategory(c.Category, typ),
		Description: strings.TrimSpace(c.Description),
		Amount:      amount,
		Comment:     model.PlaceholderComment,
	}, nil
}

// parseAmount parses a raw numeric token. Thousands separators (spaces,
// non-breaking spaces) and a comma decimal mark are accepted.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("missing amount")
	}

	s = strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(s)

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparsable amount %q", raw)
	}
	if amount.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("zero amount")
	}

	return amount, nil
}

// resolveType maps the candidate's polarity tag onto the enum. English
// and Russian tags are accepted; anything else defaults to expense,
// which is what nearly every utterance describes.
func resolveType(raw string) model.OperationType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "income", "пополнение", "доход":
		return model.OperationIncome
	default:
		return model.OperationExpense
	}
}

// resolveCategory looks the candidate category up in the closed set,
// case-insensitive and trimmed. Unmatched values coerce to the fallback
// bucket. Income rows always carry the income convention regardless of
// what the model emitted.
func resolveCategory(raw string, typ model.OperationType) string {
	if typ == model.OperationIncome {
		return IncomeCategory
	}

	name := strings.TrimSpace(raw)

	for _, c := range expenseCategories {
		if strings.EqualFold(c, name) {
			return c
		}
	}

	return FallbackCategory
}

// resolveDate parses an explicit candidate date or falls back to today
// in the ledger timezone, evaluated at processing time.
func (e *Engine) resolveDate(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s != "" {
		for _, layout := range []string{model.DateLayout, "2006-01-02"} {
			if d, err := time.ParseInLocation(layout, s, e.loc); err == nil {
				return d
			}
		}
	}

	now := e.now().In(e.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
}

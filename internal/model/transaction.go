// Package model contains the core domain types shared across the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the polarity of a ledger operation.
type OperationType string

const (
	// OperationIncome represents money coming in.
	OperationIncome OperationType = "income"
	// OperationExpense represents money going out.
	OperationExpense OperationType = "expense"
)

// Valid reports whether the operation type is one of the known values.
func (o OperationType) Valid() bool {
	return o == OperationIncome || o == OperationExpense
}

// Label returns the ledger column value for the operation type.
func (o OperationType) Label() string {
	if o == OperationIncome {
		return "Пополнение"
	}
	return "Расход"
}

// PlaceholderComment is written into the Comment column of every row.
// The comment field is never user-supplied.
const PlaceholderComment = "-"

// DateLayout is the ledger date format (DD.MM.YYYY).
const DateLayout = "02.01.2006"

// Candidate is an unvalidated transaction extracted from free text,
// prior to rule normalization. All fields are raw strings as emitted by
// the structuring call or the fallback extractor.
type Candidate struct {
	Type        string `json:"operation_type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"`
}

// Transaction is a normalized transaction that has passed the rule
// engine and is safe to persist. Amount carries the sign derived from
// Type: positive for income, negative for expense.
type Transaction struct {
	Date        time.Time
	Type        OperationType
	Category    string
	Description string
	Amount      decimal.Decimal
	Comment     string
}

// Row returns the ledger row values in fixed column order:
// Date | Type | Category | Description | Amount | Comment.
func (t Transaction) Row() []any {
	return []any{
		t.Date.Format(DateLayout),
		t.Type.Label(),
		t.Category,
		t.Description,
		t.Amount.String(),
		t.Comment,
	}
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DividendStatusActive    = "ACTIVE"
	DividendStatusCancelled = "CANCELLED"
)

// DividendUpdate carries the optional fields of a dividend edit. A nil field
// is left untouched.
type DividendUpdate struct {
	PaymentDate   *time.Time
	Amount        *decimal.Decimal
	GrossAmount   *decimal.Decimal
	TaxesWithheld *decimal.Decimal
}

// Dividend is the source of truth for dividend payments; the DIVIDEND-typed
// cash_transaction rows are projections of it. Amount is the net credited to
// cash (gross minus withheld taxes unless explicitly supplied).
type Dividend struct {
	ID              int64
	BrokerAccountID int64
	InstrumentID    int64
	PaymentDate     time.Time
	Amount          decimal.Decimal
	GrossAmount     *decimal.Decimal
	TaxesWithheld   decimal.Decimal
	Currency        string
	Status          string
	CreatedAt       time.Time
	CancelledAt     *time.Time
}

package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Dividend struct {
	ID              int64               `db:"id"`
	BrokerAccountID int64               `db:"broker_account_id"`
	InstrumentID    int64               `db:"instrument_id"`
	PaymentDate     time.Time           `db:"payment_date"`
	Amount          decimal.Decimal     `db:"amount"`
	GrossAmount     decimal.NullDecimal `db:"gross_amount"`
	TaxesWithheld   decimal.Decimal     `db:"taxes_withheld"`
	Currency        string              `db:"currency"`
	Status          string              `db:"status"`
	CreatedAt       time.Time           `db:"created_at"`
	CancelledAt     sql.NullTime        `db:"cancelled_at"`
}

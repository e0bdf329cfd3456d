package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type BrokerAccount struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	AccountNumber  sql.NullString `db:"account_number"`
	AccountType    string         `db:"account_type"`
	Currency       string         `db:"currency"`
	Status         string         `db:"status"`
	HasCashAccount bool           `db:"has_cash_account"`
	Comment        sql.NullString `db:"comment"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	ClosedAt       sql.NullTime   `db:"closed_at"`
}

type CashAccount struct {
	ID              int64           `db:"id"`
	BrokerAccountID int64           `db:"broker_account_id"`
	InitialBalance  decimal.Decimal `db:"initial_balance"`
	CurrentBalance  decimal.Decimal `db:"current_balance"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

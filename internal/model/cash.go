package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cash transaction types. BUY/SELL/DIVIDEND rows are projections of orders and
// dividends; the rest are manual movements.
const (
	CashTypeBuy        = "BUY"
	CashTypeSell       = "SELL"
	CashTypeDividend   = "DIVIDEND"
	CashTypeAdjustment = "ADJUSTMENT"
	CashTypeDeposit    = "DEPOSIT"
	CashTypeWithdrawal = "WITHDRAWAL"
	CashTypeFees       = "FEES"
)

type CashTransaction struct {
	ID              int64
	BrokerAccountID int64
	Date            time.Time
	Amount          decimal.Decimal
	Type            string
	ReferenceID     *int64
	Comment         string
}

type CashSummary struct {
	BrokerAccountID int64
	AccountName     string
	Currency        string
	InitialBalance  decimal.Decimal
	CurrentBalance  decimal.Decimal
	TotalInflows    decimal.Decimal
	TotalOutflows   decimal.Decimal
}

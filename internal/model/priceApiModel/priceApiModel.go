package priceApiModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClosePrice struct {
	Symbol    string
	PriceDate time.Time
	Close     decimal.Decimal
	Currency  string
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Instrument struct {
	ID        int64
	Symbol    string
	Label     string
	ISIN      string
	CreatedAt time.Time
}

type InstrumentPrice struct {
	InstrumentID int64
	PriceDate    time.Time
	ClosePrice   decimal.Decimal
	Currency     string
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderTypeBuy  = "BUY"
	OrderTypeSell = "SELL"

	OrderStatusActive    = "ACTIVE"
	OrderStatusCancelled = "CANCELLED"
)

type OrderTransaction struct {
	ID              int64
	BrokerAccountID int64
	InstrumentID    int64
	OrderType       string
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	Fees            decimal.Decimal
	TradeDate       time.Time
	Status          string
	Settled         bool
	Comment         string
	CreatedAt       time.Time
	CancelledAt     *time.Time
}

// OrderUpdate carries the optional fields of an order edit. A nil field is
// left untouched. Quantity, Price and Fees form a financial correction and
// require a non-empty comment.
type OrderUpdate struct {
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
	Fees     *decimal.Decimal
	Settled  *bool
	Comment  *string
}

// Holding is the net position of one instrument within a broker account,
// aggregated over ACTIVE orders only.
type Holding struct {
	BrokerAccountID int64
	InstrumentID    int64
	Symbol          string
	Label           string
	NetQuantity     decimal.Decimal
	LastPrice       decimal.Decimal
	MarketValue     decimal.Decimal
}

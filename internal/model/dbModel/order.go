package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type OrderTransaction struct {
	ID              int64           `db:"id"`
	BrokerAccountID int64           `db:"broker_account_id"`
	InstrumentID    int64           `db:"instrument_id"`
	OrderType       string          `db:"order_type"`
	Quantity        decimal.Decimal `db:"quantity"`
	Price           decimal.Decimal `db:"price"`
	Fees            decimal.Decimal `db:"fees"`
	TradeDate       time.Time       `db:"trade_date"`
	Status          string          `db:"status"`
	Settled         bool            `db:"settled"`
	Comment         sql.NullString  `db:"comment"`
	CreatedAt       time.Time       `db:"created_at"`
	CancelledAt     sql.NullTime    `db:"cancelled_at"`
}

type Holding struct {
	BrokerAccountID int64               `db:"broker_account_id"`
	InstrumentID    int64               `db:"instrument_id"`
	Symbol          string              `db:"symbol"`
	Label           string              `db:"label"`
	NetQuantity     decimal.Decimal     `db:"net_quantity"`
	LastPrice       decimal.NullDecimal `db:"last_price"`
}

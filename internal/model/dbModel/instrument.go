package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Instrument struct {
	ID        int64          `db:"id"`
	Symbol    string         `db:"symbol"`
	Label     string         `db:"label"`
	ISIN      sql.NullString `db:"isin"`
	CreatedAt time.Time      `db:"created_at"`
}

type InstrumentPrice struct {
	InstrumentID int64           `db:"instrument_id"`
	PriceDate    time.Time       `db:"price_date"`
	ClosePrice   decimal.Decimal `db:"close_price"`
	Currency     string          `db:"currency"`
}

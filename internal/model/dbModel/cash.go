package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type CashTransaction struct {
	ID              int64           `db:"id"`
	BrokerAccountID int64           `db:"broker_account_id"`
	Date            time.Time       `db:"date"`
	Amount          decimal.Decimal `db:"amount"`
	Type            string          `db:"type"`
	ReferenceID     sql.NullInt64   `db:"reference_id"`
	Comment         sql.NullString  `db:"comment"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BrokerStatusActive = "ACTIVE"
	BrokerStatusClosed = "CLOSED"
)

type BrokerAccount struct {
	ID             int64
	Name           string
	AccountNumber  string
	AccountType    string
	Currency       string
	Status         string
	HasCashAccount bool
	Comment        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

type CashAccount struct {
	ID              int64
	BrokerAccountID int64
	InitialBalance  decimal.Decimal
	CurrentBalance  decimal.Decimal
	UpdatedAt       time.Time
}

// Closability is the result of the pre-closure validation of a broker account.
// Closable is true only when the account is ACTIVE, all of its cash accounts
// sum to zero and no instrument holds a non-zero net position.
type Closability struct {
	Closable      bool
	CashBalance   decimal.Decimal
	OpenPositions int
	Reason        string
}

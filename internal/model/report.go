package model

// LedgerReport aggregates everything the xlsx export needs for one broker
// account.
type LedgerReport struct {
	Broker       BrokerAccount
	Summary      CashSummary
	Transactions []CashTransaction
	Holdings     []Holding
}

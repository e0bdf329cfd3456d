package restConverter

import (
	"time"

	"github.com/cashcue/cashcue/internal/model"
)

// Decimals are rendered as strings so clients never lose precision to
// float parsing.

type BrokerAccount struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	AccountNumber  string `json:"account_number,omitempty"`
	AccountType    string `json:"account_type"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	HasCashAccount bool   `json:"has_cash_account"`
	Comment        string `json:"comment,omitempty"`
	CreatedAt      string `json:"created_at"`
	ClosedAt       string `json:"closed_at,omitempty"`
}

type CashTransaction struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	ReferenceID *int64 `json:"reference_id,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

type Order struct {
	ID           int64  `json:"id"`
	InstrumentID int64  `json:"instrument_id"`
	OrderType    string `json:"order_type"`
	Quantity     string `json:"quantity"`
	Price        string `json:"price"`
	Fees         string `json:"fees"`
	TradeDate    string `json:"trade_date"`
	Status       string `json:"status"`
	Settled      bool   `json:"settled"`
	Comment      string `json:"comment,omitempty"`
}

type Dividend struct {
	ID            int64  `json:"id"`
	InstrumentID  int64  `json:"instrument_id"`
	PaymentDate   string `json:"payment_date"`
	Amount        string `json:"amount"`
	GrossAmount   string `json:"gross_amount,omitempty"`
	TaxesWithheld string `json:"taxes_withheld"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

type Holding struct {
	InstrumentID int64  `json:"instrument_id"`
	Symbol       string `json:"symbol"`
	Label        string `json:"label"`
	NetQuantity  string `json:"net_quantity"`
	LastPrice    string `json:"last_price"`
	MarketValue  string `json:"market_value"`
}

type CashSummary struct {
	BrokerAccountID int64  `json:"broker_account_id"`
	AccountName     string `json:"account_name"`
	Currency        string `json:"currency"`
	InitialBalance  string `json:"initial_balance"`
	CurrentBalance  string `json:"current_balance"`
	TotalInflows    string `json:"total_inflows"`
	TotalOutflows   string `json:"total_outflows"`
}

type Closability struct {
	Closable      bool   `json:"closable"`
	CashBalance   string `json:"cash_balance"`
	OpenPositions int    `json:"open_positions"`
	Reason        string `json:"reason,omitempty"`
}

type Instrument struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
	ISIN   string `json:"isin,omitempty"`
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func ConvertBrokerAccount(broker model.BrokerAccount) BrokerAccount {
	res := BrokerAccount{
		ID:             broker.ID,
		Name:           broker.Name,
		AccountNumber:  broker.AccountNumber,
		AccountType:    broker.AccountType,
		Currency:       broker.Currency,
		Status:         broker.Status,
		HasCashAccount: broker.HasCashAccount,
		Comment:        broker.Comment,
		CreatedAt:      broker.CreatedAt.Format(time.RFC3339),
	}
	if broker.ClosedAt != nil {
		res.ClosedAt = broker.ClosedAt.Format(time.RFC3339)
	}
	return res
}

func ConvertBrokerAccounts(brokers []model.BrokerAccount) []BrokerAccount {
	res := make([]BrokerAccount, 0, len(brokers))
	for _, broker := range brokers {
		res = append(res, ConvertBrokerAccount(broker))
	}
	return res
}

func ConvertCashTransaction(tr model.CashTransaction) CashTransaction {
	return CashTransaction{
		ID:          tr.ID,
		Date:        formatDate(tr.Date),
		Amount:      tr.Amount.String(),
		Type:        tr.Type,
		ReferenceID: tr.ReferenceID,
		Comment:     tr.Comment,
	}
}

func ConvertCashTransactions(transactions []model.CashTransaction) []CashTransaction {
	res := make([]CashTransaction, 0, len(transactions))
	for _, tr := range transactions {
		res = append(res, ConvertCashTransaction(tr))
	}
	return res
}

func ConvertOrder(order model.OrderTransaction) Order {
	return Order{
		ID:           order.ID,
		InstrumentID: order.InstrumentID,
		OrderType:    order.OrderType,
		Quantity:     order.Quantity.String(),
		Price:        order.Price.String(),
		Fees:         order.Fees.String(),
		TradeDate:    formatDate(order.TradeDate),
		Status:       order.Status,
		Settled:      order.Settled,
		Comment:      order.Comment,
	}
}

func ConvertOrders(orders []model.OrderTransaction) []Order {
	res := make([]Order, 0, len(orders))
	for _, order := range orders {
		res = append(res, ConvertOrder(order))
	}
	return res
}

func ConvertDividend(dividend model.Dividend) Dividend {
	res := Dividend{
		ID:            dividend.ID,
		InstrumentID:  dividend.InstrumentID,
		PaymentDate:   formatDate(dividend.PaymentDate),
		Amount:        dividend.Amount.String(),
		TaxesWithheld: dividend.TaxesWithheld.String(),
		Currency:      dividend.Currency,
		Status:        dividend.Status,
	}
	if dividend.GrossAmount != nil {
		res.GrossAmount = dividend.GrossAmount.String()
	}
	return res
}

func ConvertDividends(dividends []model.Dividend) []Dividend {
	res := make([]Dividend, 0, len(dividends))
	for _, dividend := range dividends {
		res = append(res, ConvertDividend(dividend))
	}
	return res
}

func ConvertHolding(holding model.Holding) Holding {
	return Holding{
		InstrumentID: holding.InstrumentID,
		Symbol:       holding.Symbol,
		Label:        holding.Label,
		NetQuantity:  holding.NetQuantity.String(),
		LastPrice:    holding.LastPrice.String(),
		MarketValue:  holding.MarketValue.String(),
	}
}

func ConvertHoldings(holdings []model.Holding) []Holding {
	res := make([]Holding, 0, len(holdings))
	for _, holding := range holdings {
		res = append(res, ConvertHolding(holding))
	}
	return res
}

func ConvertCashSummary(summary model.CashSummary) CashSummary {
	return CashSummary{
		BrokerAccountID: summary.BrokerAccountID,
		AccountName:     summary.AccountName,
		Currency:        summary.Currency,
		InitialBalance:  summary.InitialBalance.String(),
		CurrentBalance:  summary.CurrentBalance.String(),
		TotalInflows:    summary.TotalInflows.String(),
		TotalOutflows:   summary.TotalOutflows.String(),
	}
}

func ConvertClosability(closability model.Closability) Closability {
	return Closability{
		Closable:      closability.Closable,
		CashBalance:   closability.CashBalance.String(),
		OpenPositions: closability.OpenPositions,
		Reason:        closability.Reason,
	}
}

func ConvertInstrument(instrument model.Instrument) Instrument {
	return Instrument{
		ID:     instrument.ID,
		Symbol: instrument.Symbol,
		Label:  instrument.Label,
		ISIN:   instrument.ISIN,
	}
}

func ConvertInstruments(instruments []model.Instrument) []Instrument {
	res := make([]Instrument, 0, len(instruments))
	for _, instrument := range instruments {
		res = append(res, ConvertInstrument(instrument))
	}
	return res
}

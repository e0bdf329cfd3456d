package dbConverter

import (
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

func ConvertBrokerAccount(db dbModel.BrokerAccount) model.BrokerAccount {
	b := model.BrokerAccount{
		ID:             db.ID,
		Name:           db.Name,
		AccountType:    db.AccountType,
		Currency:       db.Currency,
		Status:         db.Status,
		HasCashAccount: db.HasCashAccount,
		CreatedAt:      db.CreatedAt,
		UpdatedAt:      db.UpdatedAt,
	}
	if db.AccountNumber.Valid {
		b.AccountNumber = db.AccountNumber.String
	}
	if db.Comment.Valid {
		b.Comment = db.Comment.String
	}
	if db.ClosedAt.Valid {
		t := db.ClosedAt.Time
		b.ClosedAt = &t
	}
	return b
}

func ConvertCashAccount(db dbModel.CashAccount) model.CashAccount {
	return model.CashAccount{
		ID:              db.ID,
		BrokerAccountID: db.BrokerAccountID,
		InitialBalance:  db.InitialBalance,
		CurrentBalance:  db.CurrentBalance,
		UpdatedAt:       db.UpdatedAt,
	}
}

func ConvertCashTransaction(db dbModel.CashTransaction) model.CashTransaction {
	ct := model.CashTransaction{
		ID:              db.ID,
		BrokerAccountID: db.BrokerAccountID,
		Date:            db.Date,
		Amount:          db.Amount,
		Type:            db.Type,
	}
	if db.ReferenceID.Valid {
		ref := db.ReferenceID.Int64
		ct.ReferenceID = &ref
	}
	if db.Comment.Valid {
		ct.Comment = db.Comment.String
	}
	return ct
}

func ConvertOrder(db dbModel.OrderTransaction) model.OrderTransaction {
	o := model.OrderTransaction{
		ID:              db.ID,
		BrokerAccountID: db.BrokerAccountID,
		InstrumentID:    db.InstrumentID,
		OrderType:       db.OrderType,
		Quantity:        db.Quantity,
		Price:           db.Price,
		Fees:            db.Fees,
		TradeDate:       db.TradeDate,
		Status:          db.Status,
		Settled:         db.Settled,
		CreatedAt:       db.CreatedAt,
	}
	if db.Comment.Valid {
		o.Comment = db.Comment.String
	}
	if db.CancelledAt.Valid {
		t := db.CancelledAt.Time
		o.CancelledAt = &t
	}
	return o
}

func ConvertDividend(db dbModel.Dividend) model.Dividend {
	d := model.Dividend{
		ID:              db.ID,
		BrokerAccountID: db.BrokerAccountID,
		InstrumentID:    db.InstrumentID,
		PaymentDate:     db.PaymentDate,
		Amount:          db.Amount,
		TaxesWithheld:   db.TaxesWithheld,
		Currency:        db.Currency,
		Status:          db.Status,
		CreatedAt:       db.CreatedAt,
	}
	if db.GrossAmount.Valid {
		gross := db.GrossAmount.Decimal
		d.GrossAmount = &gross
	}
	if db.CancelledAt.Valid {
		t := db.CancelledAt.Time
		d.CancelledAt = &t
	}
	return d
}

func ConvertInstrument(db dbModel.Instrument) model.Instrument {
	i := model.Instrument{
		ID:        db.ID,
		Symbol:    db.Symbol,
		Label:     db.Label,
		CreatedAt: db.CreatedAt,
	}
	if db.ISIN.Valid {
		i.ISIN = db.ISIN.String
	}
	return i
}

func ConvertHolding(db dbModel.Holding) model.Holding {
	h := model.Holding{
		BrokerAccountID: db.BrokerAccountID,
		InstrumentID:    db.InstrumentID,
		Symbol:          db.Symbol,
		Label:           db.Label,
		NetQuantity:     db.NetQuantity,
	}
	if db.LastPrice.Valid {
		h.LastPrice = db.LastPrice.Decimal
		h.MarketValue = db.NetQuantity.Mul(db.LastPrice.Decimal)
	} else {
		h.LastPrice = decimal.Zero
		h.MarketValue = decimal.Zero
	}
	return h
}

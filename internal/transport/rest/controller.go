package rest

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/config"
	"github.com/cashcue/cashcue/internal/model"
)

type LedgerService interface {
	Authenticate(ctx context.Context, token string) (model.Session, error)

	CreateBroker(ctx context.Context, session model.Session, broker model.BrokerAccount, initialBalance decimal.Decimal) (brokerID int64, err error)
	UpdateBroker(ctx context.Context, session model.Session, broker model.BrokerAccount) error
	CheckClosable(ctx context.Context, session model.Session, brokerAccountID int64) (model.Closability, error)
	CloseBroker(ctx context.Context, session model.Session, brokerAccountID int64) error
	DeleteBroker(ctx context.Context, session model.Session, brokerAccountID int64) error
	GetBrokers(ctx context.Context, session model.Session) ([]model.BrokerAccount, error)

	CreateOrder(ctx context.Context, session model.Session, order model.OrderTransaction) (orderID int64, err error)
	UpdateOrder(ctx context.Context, session model.Session, orderID int64, upd model.OrderUpdate) error
	CancelOrder(ctx context.Context, session model.Session, orderID int64) error
	DeleteOrder(ctx context.Context, session model.Session, orderID int64) error

	CreateDividend(ctx context.Context, session model.Session, dividend model.Dividend) (dividendID int64, err error)
	UpdateDividend(ctx context.Context, session model.Session, dividendID int64, upd model.DividendUpdate) error
	CancelDividend(ctx context.Context, session model.Session, dividendID int64) error
	DeleteDividend(ctx context.Context, session model.Session, dividendID int64) error

	AddCashTransaction(ctx context.Context, session model.Session, tr model.CashTransaction) (cashTransactionID int64, err error)
	DeleteCashTransaction(ctx context.Context, session model.Session, cashTransactionID int64) error

	CreateInstrument(ctx context.Context, instrument model.Instrument) (instrumentID int64, err error)
	UpdateInstrument(ctx context.Context, instrument model.Instrument) error
	DeleteInstrument(ctx context.Context, instrumentID int64) error
	ListInstruments(ctx context.Context) ([]model.Instrument, error)

	GetCashSummary(ctx context.Context, session model.Session, brokerAccountID int64) (model.CashSummary, error)
	GetCashTransactions(ctx context.Context, session model.Session, brokerAccountID int64, page int) (transactions []model.CashTransaction, hasNextPage bool, err error)
	GetOrders(ctx context.Context, session model.Session, brokerAccountID int64, page int) (orders []model.OrderTransaction, hasNextPage bool, err error)
	GetDividends(ctx context.Context, session model.Session, brokerAccountID int64, page int) (dividends []model.Dividend, hasNextPage bool, err error)
	GetHoldings(ctx context.Context, session model.Session, brokerAccountID int64) ([]model.Holding, error)
	GenerateReport(ctx context.Context, session model.Session, brokerAccountID int64) (fileBytes []byte, fileExtension string, err error)
}

type Controller struct {
	cfg           *config.Config
	ledgerService LedgerService
}

func NewController(cfg *config.Config, ledgerService LedgerService) *Controller {
	return &Controller{
		cfg:           cfg,
		ledgerService: ledgerService,
	}
}

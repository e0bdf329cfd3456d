package ledgerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/config"
	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/model/dbModel"
	"github.com/cashcue/cashcue/internal/model/priceApiModel"
	"github.com/cashcue/cashcue/internal/service"
	"github.com/cashcue/cashcue/utils"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertBrokerAccount(ctx context.Context, broker model.BrokerAccount) (brokerID int64, err error)
	LinkBrokerToUser(ctx context.Context, userID, brokerAccountID int64) error
	UserOwnsBroker(ctx context.Context, userID, brokerAccountID int64) (bool, error)
	GetBrokerAccount(ctx context.Context, brokerAccountID int64) (model.BrokerAccount, error)
	GetBrokerAccountForUpdate(ctx context.Context, brokerAccountID int64) (model.BrokerAccount, error)
	GetBrokerAccountsByUser(ctx context.Context, userID int64) ([]model.BrokerAccount, error)
	UpdateBrokerAccount(ctx context.Context, broker model.BrokerAccount) error
	CloseBrokerAccount(ctx context.Context, brokerAccountID int64) error
	DeleteBrokerAccount(ctx context.Context, brokerAccountID int64) error

	InsertCashAccount(ctx context.Context, brokerAccountID int64, initialBalance decimal.Decimal) (cashAccountID int64, err error)
	DeleteCashAccounts(ctx context.Context, brokerAccountID int64) error
	GetCashAccount(ctx context.Context, brokerAccountID int64) (model.CashAccount, error)
	LockCashAccounts(ctx context.Context, brokerAccountID int64) error
	SumCashAccountBalances(ctx context.Context, brokerAccountID int64) (decimal.Decimal, error)

	InsertCashTransaction(ctx context.Context, tr model.CashTransaction) (cashTransactionID int64, err error)
	DeleteCashTransactionsByReference(ctx context.Context, referenceID int64, types []string) error
	GetLatestCashTransactionByReference(ctx context.Context, referenceID int64, trType string) (model.CashTransaction, error)
	GetCashTransaction(ctx context.Context, cashTransactionID int64) (model.CashTransaction, error)
	DeleteCashTransaction(ctx context.Context, cashTransactionID int64) error
	SumCashTransactions(ctx context.Context, brokerAccountID int64) (decimal.Decimal, error)
	UpdateCashAccountBalance(ctx context.Context, brokerAccountID int64, balance decimal.Decimal) error
	GetCashTransactionsPage(ctx context.Context, brokerAccountID int64, limit, offset int) (transactions []model.CashTransaction, hasNextPage bool, err error)
	GetCashFlows(ctx context.Context, brokerAccountID int64) (inflows, outflows decimal.Decimal, err error)
	ListCashTrackedBrokerIDs(ctx context.Context) ([]int64, error)

	InsertOrder(ctx context.Context, order model.OrderTransaction) (orderID int64, err error)
	GetOrder(ctx context.Context, orderID int64) (model.OrderTransaction, error)
	GetOrderForUpdate(ctx context.Context, orderID int64) (model.OrderTransaction, error)
	UpdateOrder(ctx context.Context, order model.OrderTransaction) error
	CancelOrder(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
	GetOrdersPage(ctx context.Context, brokerAccountID int64, limit, offset int) (orders []model.OrderTransaction, hasNextPage bool, err error)
	CountOpenPositions(ctx context.Context, brokerAccountID int64) (int, error)
	GetHoldings(ctx context.Context, brokerAccountID int64) ([]model.Holding, error)

	InsertDividend(ctx context.Context, dividend model.Dividend) (dividendID int64, err error)
	GetDividend(ctx context.Context, dividendID int64) (model.Dividend, error)
	GetDividendForUpdate(ctx context.Context, dividendID int64) (model.Dividend, error)
	UpdateDividend(ctx context.Context, dividend model.Dividend) error
	CancelDividend(ctx context.Context, dividendID int64) error
	DeleteDividend(ctx context.Context, dividendID int64) error
	GetDividendsPage(ctx context.Context, brokerAccountID int64, limit, offset int) (dividends []model.Dividend, hasNextPage bool, err error)

	InsertInstrument(ctx context.Context, instrument model.Instrument) (instrumentID int64, err error)
	GetInstrument(ctx context.Context, instrumentID int64) (model.Instrument, error)
	GetInstrumentBySymbol(ctx context.Context, symbol string) (model.Instrument, error)
	UpdateInstrument(ctx context.Context, instrument model.Instrument) error
	DeleteInstrument(ctx context.Context, instrumentID int64) error
	ListInstruments(ctx context.Context) ([]model.Instrument, error)
	UpsertInstrumentPrices(ctx context.Context, prices []model.InstrumentPrice) error

	GetUserByTokenHash(ctx context.Context, tokenHash string) (dbModel.TokenUser, error)
	TouchToken(ctx context.Context, tokenID int64) error
}

type Cache interface {
	GetCashSummary(ctx context.Context, brokerAccountID int64) (model.CashSummary, error)
	SetCashSummary(ctx context.Context, summary model.CashSummary) error
	FlushCashSummary(ctx context.Context, brokerAccountID int64) error
}

type PriceApi interface {
	GetClosePrices(ctx context.Context, symbols []string) (map[string]priceApiModel.ClosePrice, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.LedgerReport) (fileBytes []byte, fileExtension string, err error)
}

// LedgerService owns every mutation that can move cash. All writes go through
// a single transaction that locks the broker row first, so the stored balance
// always equals the sum of the ledger rows when the transaction commits.
type LedgerService struct {
	cfg             *config.Config
	repo            Repository
	cache           Cache
	priceApi        PriceApi
	reportGenerator ReportGenerator
}

func New(cfg *config.Config, repo Repository, cache Cache, priceApi PriceApi, reportGenerator ReportGenerator) *LedgerService {
	return &LedgerService{
		cfg:             cfg,
		repo:            repo,
		cache:           cache,
		priceApi:        priceApi,
		reportGenerator: reportGenerator,
	}
}

// assertOwnership rejects access to brokers the session's user is not linked
// to. Super admins bypass the check.
func (s *LedgerService) assertOwnership(ctx context.Context, session model.Session, brokerAccountID int64) error {
	if session.IsSuperAdmin {
		return nil
	}

	owns, err := s.repo.UserOwnsBroker(ctx, session.UserID, brokerAccountID)
	if err != nil {
		return err
	}

	if !owns {
		logAccessDenied(ctx, "access denied to broker account", session, brokerAccountID)
		return service.ErrAccessDenied
	}

	return nil
}

// assertSuperAdmin gates hard deletes. Linked users still may not pass.
func (s *LedgerService) assertSuperAdmin(ctx context.Context, session model.Session, brokerAccountID int64) error {
	if session.IsSuperAdmin {
		return nil
	}

	logAccessDenied(ctx, "hard delete denied to non-admin", session, brokerAccountID)
	return service.ErrAccessDenied
}

func logAccessDenied(ctx context.Context, msg string, session model.Session, brokerAccountID int64) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	info := utils.GetRequestInfoFromCtx(ctx)
	slog.Warn(
		msg,
		slog.String("rqID", rqID),
		slog.Int64("userID", session.UserID),
		slog.Int64("brokerAccountID", brokerAccountID),
		slog.String("remoteAddr", info.RemoteAddr),
		slog.String("method", info.Method),
		slog.String("uri", info.URI),
	)
}

// lockActiveBroker locks the broker row for the rest of the transaction and
// rejects mutations on closed accounts.
func (s *LedgerService) lockActiveBroker(ctx context.Context, brokerAccountID int64) (model.BrokerAccount, error) {
	broker, err := s.repo.GetBrokerAccountForUpdate(ctx, brokerAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.BrokerAccount{}, fmt.Errorf("%w: broker account %d", service.ErrNotFound, brokerAccountID)
		}
		return model.BrokerAccount{}, err
	}

	if broker.Status == model.BrokerStatusClosed {
		return model.BrokerAccount{}, fmt.Errorf("%w: broker account %d is closed", service.ErrInvalidState, brokerAccountID)
	}

	return broker, nil
}

// recalcBalance rewrites current_balance from the ledger rows. Runs inside
// the mutation's transaction with the cash accounts already locked.
func (s *LedgerService) recalcBalance(ctx context.Context, brokerAccountID int64) error {
	total, err := s.repo.SumCashTransactions(ctx, brokerAccountID)
	if err != nil {
		return err
	}

	return s.repo.UpdateCashAccountBalance(ctx, brokerAccountID, total)
}

// flushSummary runs synchronously so a read racing the mutation cannot
// repopulate the cache with the pre-mutation summary.
func (s *LedgerService) flushSummary(ctx context.Context, brokerAccountID int64) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := s.cache.FlushCashSummary(ctx, brokerAccountID)
	if err != nil {
		slog.Error("got error from cache.FlushCashSummary", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}
}

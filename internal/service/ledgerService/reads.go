package ledgerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/service"
	"github.com/cashcue/cashcue/utils"
)

// GetCashSummary serves from cache when possible and otherwise recomputes
// the summary from the database, repopulating the cache in the background.
func (s *LedgerService) GetCashSummary(ctx context.Context, session model.Session, brokerAccountID int64) (summary model.CashSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetCashSummary"

	slog.Debug("GetCashSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	defer func() {
		slog.Debug("GetCashSummary finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return model.CashSummary{}, err
	}

	summary, err = s.cache.GetCashSummary(ctx, brokerAccountID)
	if err == nil {
		return summary, nil
	}

	broker, err := s.repo.GetBrokerAccount(ctx, brokerAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.CashSummary{}, fmt.Errorf("%w: broker account %d", service.ErrNotFound, brokerAccountID)
		}
		return model.CashSummary{}, err
	}

	if !broker.HasCashAccount {
		return model.CashSummary{}, fmt.Errorf("%w: broker account %d has no cash account", service.ErrInvalidState, brokerAccountID)
	}

	account, err := s.repo.GetCashAccount(ctx, brokerAccountID)
	if err != nil {
		return model.CashSummary{}, err
	}

	inflows, outflows, err := s.repo.GetCashFlows(ctx, brokerAccountID)
	if err != nil {
		return model.CashSummary{}, err
	}

	summary = model.CashSummary{
		BrokerAccountID: brokerAccountID,
		AccountName:     broker.Name,
		Currency:        broker.Currency,
		InitialBalance:  account.InitialBalance,
		CurrentBalance:  account.CurrentBalance,
		TotalInflows:    inflows,
		TotalOutflows:   outflows,
	}

	go s.cache.SetCashSummary(context.WithoutCancel(ctx), summary)

	return summary, nil
}

func (s *LedgerService) GetCashTransactions(ctx context.Context, session model.Session, brokerAccountID int64, page int) (transactions []model.CashTransaction, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetCashTransactions"

	slog.Debug("GetCashTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID), slog.Int("page", page))
	defer func() {
		slog.Debug("GetCashTransactions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return nil, false, err
	}

	limit, offset, err := s.pageBounds(page)
	if err != nil {
		return nil, false, err
	}

	return s.repo.GetCashTransactionsPage(ctx, brokerAccountID, limit, offset)
}

func (s *LedgerService) GetOrders(ctx context.Context, session model.Session, brokerAccountID int64, page int) (orders []model.OrderTransaction, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetOrders"

	slog.Debug("GetOrders start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID), slog.Int("page", page))
	defer func() {
		slog.Debug("GetOrders finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return nil, false, err
	}

	limit, offset, err := s.pageBounds(page)
	if err != nil {
		return nil, false, err
	}

	return s.repo.GetOrdersPage(ctx, brokerAccountID, limit, offset)
}

func (s *LedgerService) GetDividends(ctx context.Context, session model.Session, brokerAccountID int64, page int) (dividends []model.Dividend, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetDividends"

	slog.Debug("GetDividends start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID), slog.Int("page", page))
	defer func() {
		slog.Debug("GetDividends finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return nil, false, err
	}

	limit, offset, err := s.pageBounds(page)
	if err != nil {
		return nil, false, err
	}

	return s.repo.GetDividendsPage(ctx, brokerAccountID, limit, offset)
}

func (s *LedgerService) GetHoldings(ctx context.Context, session model.Session, brokerAccountID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetHoldings"

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	defer func() {
		slog.Debug("GetHoldings finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return nil, err
	}

	holdings, err = s.repo.GetHoldings(ctx, brokerAccountID)
	if err != nil {
		slog.Error("got error from repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return holdings, nil
}

// GenerateReport builds the xlsx export for one broker account: summary,
// full ledger and current holdings.
func (s *LedgerService) GenerateReport(ctx context.Context, session model.Session, brokerAccountID int64) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	defer func() {
		slog.Debug("GenerateReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return nil, "", err
	}

	broker, err := s.repo.GetBrokerAccount(ctx, brokerAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: broker account %d", service.ErrNotFound, brokerAccountID)
		}
		return nil, "", err
	}

	report := model.LedgerReport{Broker: broker}

	if broker.HasCashAccount {
		report.Summary, err = s.GetCashSummary(ctx, session, brokerAccountID)
		if err != nil {
			return nil, "", err
		}

		// Page through the whole ledger.
		for page := 1; ; page++ {
			limit, offset, err := s.pageBounds(page)
			if err != nil {
				return nil, "", err
			}

			transactions, hasNextPage, err := s.repo.GetCashTransactionsPage(ctx, brokerAccountID, limit, offset)
			if err != nil {
				return nil, "", err
			}

			report.Transactions = append(report.Transactions, transactions...)
			if !hasNextPage {
				break
			}
		}
	}

	report.Holdings, err = s.repo.GetHoldings(ctx, brokerAccountID)
	if err != nil {
		return nil, "", err
	}

	fileBytes, fileExtension, err = s.reportGenerator.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fileExtension, nil
}

func (s *LedgerService) pageBounds(page int) (limit, offset int, err error) {
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be positive", service.ErrInvalidInput)
	}

	limit = s.cfg.HTTP.PageLimit
	offset = (page - 1) * limit

	return limit, offset, nil
}

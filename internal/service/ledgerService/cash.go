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

// AddCashTransaction records a manual cash movement. Only the manual types
// are accepted here; BUY, SELL and DIVIDEND rows exist solely as projections
// of orders and dividends.
func (s *LedgerService) AddCashTransaction(ctx context.Context, session model.Session, tr model.CashTransaction) (cashTransactionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.AddCashTransaction"

	slog.Debug("AddCashTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", tr.BrokerAccountID))
	defer func() {
		slog.Debug("AddCashTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("cashTransactionID", cashTransactionID))
	}()

	if err = s.assertOwnership(ctx, session, tr.BrokerAccountID); err != nil {
		return 0, err
	}

	if err = validateManualCash(tr.Type, tr.Amount); err != nil {
		return 0, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		broker, err := s.lockActiveBroker(ctx, tr.BrokerAccountID)
		if err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return fmt.Errorf("%w: broker account %d has no cash account", service.ErrInvalidState, tr.BrokerAccountID)
		}

		if err := s.repo.LockCashAccounts(ctx, tr.BrokerAccountID); err != nil {
			return err
		}

		cashTransactionID, err = s.repo.InsertCashTransaction(ctx, tr)
		if err != nil {
			return err
		}

		return s.recalcBalance(ctx, tr.BrokerAccountID)
	})
	if err != nil {
		slog.Error("AddCashTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	s.flushSummary(ctx, tr.BrokerAccountID)

	return cashTransactionID, nil
}

// DeleteCashTransaction removes a manual movement. Projection rows must be
// removed through their order or dividend instead.
func (s *LedgerService) DeleteCashTransaction(ctx context.Context, session model.Session, cashTransactionID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteCashTransaction"

	slog.Debug("DeleteCashTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("cashTransactionID", cashTransactionID))
	defer func() {
		slog.Debug("DeleteCashTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("cashTransactionID", cashTransactionID))
	}()

	tr, err := s.repo.GetCashTransaction(ctx, cashTransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: cash transaction %d", service.ErrNotFound, cashTransactionID)
		}
		return err
	}

	if err = s.assertOwnership(ctx, session, tr.BrokerAccountID); err != nil {
		return err
	}

	switch tr.Type {
	case model.CashTypeBuy, model.CashTypeSell, model.CashTypeDividend:
		return fmt.Errorf("%w: %s rows are managed through their source transaction", service.ErrInvalidState, tr.Type)
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.lockActiveBroker(ctx, tr.BrokerAccountID)
		if err != nil {
			return err
		}

		if err := s.repo.LockCashAccounts(ctx, tr.BrokerAccountID); err != nil {
			return err
		}

		if err := s.repo.DeleteCashTransaction(ctx, cashTransactionID); err != nil {
			return err
		}

		return s.recalcBalance(ctx, tr.BrokerAccountID)
	})
	if err != nil {
		slog.Error("DeleteCashTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, tr.BrokerAccountID)

	return nil
}

package ledgerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/service"
	"github.com/cashcue/cashcue/utils"
)

var dividendCashTypes = []string{model.CashTypeDividend}

func (s *LedgerService) CreateDividend(ctx context.Context, session model.Session, dividend model.Dividend) (dividendID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CreateDividend"

	slog.Debug("CreateDividend start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", dividend.BrokerAccountID))
	defer func() {
		slog.Debug("CreateDividend finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("dividendID", dividendID))
	}()

	if err = s.assertOwnership(ctx, session, dividend.BrokerAccountID); err != nil {
		return 0, err
	}

	// A zero Amount means the caller wants it derived from the gross figures.
	var explicitAmount *decimal.Decimal
	if !dividend.Amount.IsZero() {
		explicitAmount = &dividend.Amount
	}

	net, err := dividendNet(explicitAmount, dividend.GrossAmount, dividend.TaxesWithheld)
	if err != nil {
		return 0, err
	}
	dividend.Amount = net

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		broker, err := s.lockActiveBroker(ctx, dividend.BrokerAccountID)
		if err != nil {
			return err
		}

		dividendID, err = s.repo.InsertDividend(ctx, dividend)
		if err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		if err := s.repo.LockCashAccounts(ctx, dividend.BrokerAccountID); err != nil {
			return err
		}

		_, err = s.repo.InsertCashTransaction(ctx, model.CashTransaction{
			BrokerAccountID: dividend.BrokerAccountID,
			Date:            dividend.PaymentDate,
			Amount:          net,
			Type:            model.CashTypeDividend,
			ReferenceID:     &dividendID,
		})
		if err != nil {
			return err
		}

		return s.recalcBalance(ctx, dividend.BrokerAccountID)
	})
	if err != nil {
		slog.Error("CreateDividend failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	s.flushSummary(ctx, dividend.BrokerAccountID)

	return dividendID, nil
}

// UpdateDividend replaces the dividend's ledger rows with a single row
// holding the re-resolved net amount.
func (s *LedgerService) UpdateDividend(ctx context.Context, session model.Session, dividendID int64, upd model.DividendUpdate) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.UpdateDividend"

	slog.Debug("UpdateDividend start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("dividendID", dividendID))
	defer func() {
		slog.Debug("UpdateDividend finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("dividendID", dividendID))
	}()

	dividend, err := s.repo.GetDividend(ctx, dividendID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: dividend %d", service.ErrNotFound, dividendID)
		}
		return err
	}

	if err = s.assertOwnership(ctx, session, dividend.BrokerAccountID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		dividend, err := s.repo.GetDividendForUpdate(ctx, dividendID)
		if err != nil {
			return err
		}

		broker, err := s.lockActiveBroker(ctx, dividend.BrokerAccountID)
		if err != nil {
			return err
		}

		if dividend.Status != model.DividendStatusActive {
			return fmt.Errorf("%w: dividend %d is cancelled", service.ErrInvalidState, dividendID)
		}

		if upd.PaymentDate != nil {
			dividend.PaymentDate = *upd.PaymentDate
		}
		if upd.GrossAmount != nil {
			dividend.GrossAmount = upd.GrossAmount
		}
		if upd.TaxesWithheld != nil {
			dividend.TaxesWithheld = *upd.TaxesWithheld
		}

		// A dividend recorded with only a net amount keeps it across
		// non-financial edits.
		explicit := upd.Amount
		if explicit == nil && dividend.GrossAmount == nil {
			explicit = &dividend.Amount
		}

		net, err := dividendNet(explicit, dividend.GrossAmount, dividend.TaxesWithheld)
		if err != nil {
			return err
		}
		dividend.Amount = net

		if err := s.repo.UpdateDividend(ctx, dividend); err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		if err := s.repo.LockCashAccounts(ctx, dividend.BrokerAccountID); err != nil {
			return err
		}

		if err := s.repo.DeleteCashTransactionsByReference(ctx, dividendID, dividendCashTypes); err != nil {
			return err
		}

		_, err = s.repo.InsertCashTransaction(ctx, model.CashTransaction{
			BrokerAccountID: dividend.BrokerAccountID,
			Date:            dividend.PaymentDate,
			Amount:          net,
			Type:            model.CashTypeDividend,
			ReferenceID:     &dividendID,
		})
		if err != nil {
			return err
		}

		return s.recalcBalance(ctx, dividend.BrokerAccountID)
	})
	if err != nil {
		slog.Error("UpdateDividend failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, dividend.BrokerAccountID)

	return nil
}

// CancelDividend appends a reversal row that negates the latest posted
// DIVIDEND ledger row, so even an edited dividend reverses exactly what was
// last credited.
func (s *LedgerService) CancelDividend(ctx context.Context, session model.Session, dividendID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CancelDividend"

	slog.Debug("CancelDividend start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("dividendID", dividendID))
	defer func() {
		slog.Debug("CancelDividend finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("dividendID", dividendID))
	}()

	dividend, err := s.repo.GetDividend(ctx, dividendID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: dividend %d", service.ErrNotFound, dividendID)
		}
		return err
	}

	if err = s.assertOwnership(ctx, session, dividend.BrokerAccountID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		dividend, err := s.repo.GetDividendForUpdate(ctx, dividendID)
		if err != nil {
			return err
		}

		broker, err := s.lockActiveBroker(ctx, dividend.BrokerAccountID)
		if err != nil {
			return err
		}

		if dividend.Status != model.DividendStatusActive {
			return fmt.Errorf("%w: dividend %d is already cancelled", service.ErrInvalidState, dividendID)
		}

		if err := s.repo.CancelDividend(ctx, dividendID); err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		if err := s.repo.LockCashAccounts(ctx, dividend.BrokerAccountID); err != nil {
			return err
		}

		latest, err := s.repo.GetLatestCashTransactionByReference(ctx, dividendID, model.CashTypeDividend)
		if err != nil {
			// No posted row means nothing to reverse.
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}

		_, err = s.repo.InsertCashTransaction(ctx, model.CashTransaction{
			BrokerAccountID: dividend.BrokerAccountID,
			Date:            dividend.PaymentDate,
			Amount:          latest.Amount.Neg(),
			Type:            model.CashTypeDividend,
			ReferenceID:     &dividendID,
			Comment:         fmt.Sprintf("cancellation of dividend %d", dividendID),
		})
		if err != nil {
			return err
		}

		return s.recalcBalance(ctx, dividend.BrokerAccountID)
	})
	if err != nil {
		slog.Error("CancelDividend failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, dividend.BrokerAccountID)

	return nil
}

// DeleteDividend hard-deletes the dividend and its ledger rows. Super admin
// only.
func (s *LedgerService) DeleteDividend(ctx context.Context, session model.Session, dividendID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteDividend"

	slog.Debug("DeleteDividend start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("dividendID", dividendID))
	defer func() {
		slog.Debug("DeleteDividend finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("dividendID", dividendID))
	}()

	dividend, err := s.repo.GetDividend(ctx, dividendID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: dividend %d", service.ErrNotFound, dividendID)
		}
		return err
	}

	if err = s.assertSuperAdmin(ctx, session, dividend.BrokerAccountID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		dividend, err := s.repo.GetDividendForUpdate(ctx, dividendID)
		if err != nil {
			return err
		}

		broker, err := s.lockActiveBroker(ctx, dividend.BrokerAccountID)
		if err != nil {
			return err
		}

		if broker.HasCashAccount {
			if err := s.repo.LockCashAccounts(ctx, dividend.BrokerAccountID); err != nil {
				return err
			}

			if err := s.repo.DeleteCashTransactionsByReference(ctx, dividendID, dividendCashTypes); err != nil {
				return err
			}
		}

		if err := s.repo.DeleteDividend(ctx, dividendID); err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		return s.recalcBalance(ctx, dividend.BrokerAccountID)
	})
	if err != nil {
		slog.Error("DeleteDividend failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, dividend.BrokerAccountID)

	return nil
}

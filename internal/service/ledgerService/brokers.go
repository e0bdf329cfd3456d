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

func (s *LedgerService) CreateBroker(ctx context.Context, session model.Session, broker model.BrokerAccount, initialBalance decimal.Decimal) (brokerID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CreateBroker"

	slog.Debug("CreateBroker start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", broker.Name))
	defer func() {
		slog.Debug("CreateBroker finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerID", brokerID))
	}()

	if broker.Name == "" {
		return 0, fmt.Errorf("%w: broker name must not be empty", service.ErrInvalidInput)
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		brokerID, err = s.repo.InsertBrokerAccount(ctx, broker)
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return fmt.Errorf("%w: account number already in use", service.ErrInvalidInput)
			}
			return err
		}

		if err := s.repo.LinkBrokerToUser(ctx, session.UserID, brokerID); err != nil {
			return err
		}

		if broker.HasCashAccount {
			if _, err := s.repo.InsertCashAccount(ctx, brokerID, initialBalance); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		slog.Error("CreateBroker failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return brokerID, nil
}

// UpdateBroker edits the descriptive fields. Enabling cash tracking creates
// an empty cash account; disabling it is only allowed while the ledger is
// empty of any balance.
func (s *LedgerService) UpdateBroker(ctx context.Context, session model.Session, broker model.BrokerAccount) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.UpdateBroker"

	slog.Debug("UpdateBroker start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerID", broker.ID))
	defer func() {
		slog.Debug("UpdateBroker finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerID", broker.ID))
	}()

	if err = s.assertOwnership(ctx, session, broker.ID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.lockActiveBroker(ctx, broker.ID)
		if err != nil {
			return err
		}

		if current.HasCashAccount != broker.HasCashAccount {
			if broker.HasCashAccount {
				if _, err := s.repo.InsertCashAccount(ctx, broker.ID, decimal.Zero); err != nil {
					return err
				}
			} else {
				total, err := s.repo.SumCashAccountBalances(ctx, broker.ID)
				if err != nil {
					return err
				}
				if !total.IsZero() {
					return fmt.Errorf("%w: cash tracking cannot be disabled while the balance is non-zero", service.ErrInvalidState)
				}
				if err := s.repo.DeleteCashAccounts(ctx, broker.ID); err != nil {
					return err
				}
			}
		}

		err = s.repo.UpdateBrokerAccount(ctx, broker)
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return fmt.Errorf("%w: account number already in use", service.ErrInvalidInput)
			}
			return err
		}

		return nil
	})
	if err != nil {
		slog.Error("UpdateBroker failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, broker.ID)

	return nil
}

// checkClosable evaluates the closure conditions with whatever isolation the
// caller's context provides. CloseBroker re-runs it inside the closing
// transaction with the rows locked.
func (s *LedgerService) checkClosable(ctx context.Context, brokerAccountID int64) (model.Closability, error) {
	broker, err := s.repo.GetBrokerAccount(ctx, brokerAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Closability{}, fmt.Errorf("%w: broker account %d", service.ErrNotFound, brokerAccountID)
		}
		return model.Closability{}, err
	}

	closability := model.Closability{Closable: true}

	if broker.Status != model.BrokerStatusActive {
		closability.Closable = false
		closability.Reason = "broker account is not active"
		return closability, nil
	}

	if broker.HasCashAccount {
		total, err := s.repo.SumCashAccountBalances(ctx, brokerAccountID)
		if err != nil {
			return model.Closability{}, err
		}
		closability.CashBalance = total

		if !total.IsZero() {
			closability.Closable = false
			closability.Reason = "cash balance is not zero"
		}
	}

	openPositions, err := s.repo.CountOpenPositions(ctx, brokerAccountID)
	if err != nil {
		return model.Closability{}, err
	}
	closability.OpenPositions = openPositions

	if openPositions > 0 {
		closability.Closable = false
		if closability.Reason == "" {
			closability.Reason = "open positions remain"
		}
	}

	return closability, nil
}

func (s *LedgerService) CheckClosable(ctx context.Context, session model.Session, brokerAccountID int64) (closability model.Closability, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CheckClosable"

	slog.Debug("CheckClosable start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	defer func() {
		slog.Debug("CheckClosable finished", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("closable", closability.Closable))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return model.Closability{}, err
	}

	closability, err = s.checkClosable(ctx, brokerAccountID)
	if err != nil {
		slog.Error("CheckClosable failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Closability{}, err
	}

	return closability, nil
}

// CloseBroker re-validates closability inside the transaction so a mutation
// racing the preliminary check cannot slip through.
func (s *LedgerService) CloseBroker(ctx context.Context, session model.Session, brokerAccountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CloseBroker"

	slog.Debug("CloseBroker start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	defer func() {
		slog.Debug("CloseBroker finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	}()

	if err = s.assertOwnership(ctx, session, brokerAccountID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		broker, err := s.lockActiveBroker(ctx, brokerAccountID)
		if err != nil {
			return err
		}

		if broker.HasCashAccount {
			if err := s.repo.LockCashAccounts(ctx, brokerAccountID); err != nil {
				return err
			}
		}

		closability, err := s.checkClosable(ctx, brokerAccountID)
		if err != nil {
			return err
		}

		if !closability.Closable {
			return fmt.Errorf("%w: %s", service.ErrInvalidState, closability.Reason)
		}

		return s.repo.CloseBrokerAccount(ctx, brokerAccountID)
	})
	if err != nil {
		slog.Error("CloseBroker failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, brokerAccountID)

	return nil
}

// DeleteBroker hard-deletes a closed broker account and everything hanging
// off it via cascading foreign keys. Super admin only.
func (s *LedgerService) DeleteBroker(ctx context.Context, session model.Session, brokerAccountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteBroker"

	slog.Debug("DeleteBroker start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	defer func() {
		slog.Debug("DeleteBroker finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerAccountID))
	}()

	if err = s.assertSuperAdmin(ctx, session, brokerAccountID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		broker, err := s.repo.GetBrokerAccountForUpdate(ctx, brokerAccountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: broker account %d", service.ErrNotFound, brokerAccountID)
			}
			return err
		}

		if broker.Status != model.BrokerStatusClosed {
			return fmt.Errorf("%w: only closed broker accounts can be deleted", service.ErrInvalidState)
		}

		return s.repo.DeleteBrokerAccount(ctx, brokerAccountID)
	})
	if err != nil {
		slog.Error("DeleteBroker failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, brokerAccountID)

	return nil
}

func (s *LedgerService) GetBrokers(ctx context.Context, session model.Session) (brokers []model.BrokerAccount, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetBrokers"

	slog.Debug("GetBrokers start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", session.UserID))
	defer func() {
		slog.Debug("GetBrokers finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	brokers, err = s.repo.GetBrokerAccountsByUser(ctx, session.UserID)
	if err != nil {
		slog.Error("got error from repo.GetBrokerAccountsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return brokers, nil
}

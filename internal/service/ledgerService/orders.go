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

// orderCashTypes are the ledger row types an order can project.
var orderCashTypes = []string{model.CashTypeBuy, model.CashTypeSell}

func (s *LedgerService) CreateOrder(ctx context.Context, session model.Session, order model.OrderTransaction) (orderID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CreateOrder"

	slog.Debug("CreateOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", order.BrokerAccountID))
	defer func() {
		slog.Debug("CreateOrder finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("orderID", orderID))
	}()

	if err = s.assertOwnership(ctx, session, order.BrokerAccountID); err != nil {
		return 0, err
	}

	if err = validateOrderFields(order.Quantity, order.Price, order.Fees); err != nil {
		return 0, err
	}

	effect, err := orderEffect(order)
	if err != nil {
		return 0, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		broker, err := s.lockActiveBroker(ctx, order.BrokerAccountID)
		if err != nil {
			return err
		}

		orderID, err = s.repo.InsertOrder(ctx, order)
		if err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		if err := s.repo.LockCashAccounts(ctx, order.BrokerAccountID); err != nil {
			return err
		}

		if order.OrderType == model.OrderTypeBuy {
			current, err := s.repo.SumCashTransactions(ctx, order.BrokerAccountID)
			if err != nil {
				return err
			}
			if current.Add(effect).IsNegative() {
				return fmt.Errorf("%w: insufficient cash for buy order", service.ErrInvalidState)
			}
		}

		_, err = s.repo.InsertCashTransaction(ctx, model.CashTransaction{
			BrokerAccountID: order.BrokerAccountID,
			Date:            order.TradeDate,
			Amount:          effect,
			Type:            order.OrderType,
			ReferenceID:     &orderID,
		})
		if err != nil {
			return err
		}

		return s.recalcBalance(ctx, order.BrokerAccountID)
	})
	if err != nil {
		slog.Error("CreateOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	s.flushSummary(ctx, order.BrokerAccountID)

	return orderID, nil
}

// UpdateOrder supports three kinds of edits. A comment-only edit is always
// allowed. A settled change needs an ACTIVE order and can only move the flag
// from false to true. A financial correction needs an ACTIVE order, a
// non-empty comment and replaces the order's ledger rows.
func (s *LedgerService) UpdateOrder(ctx context.Context, session model.Session, orderID int64, upd model.OrderUpdate) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.UpdateOrder"

	slog.Debug("UpdateOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("orderID", orderID))
	defer func() {
		slog.Debug("UpdateOrder finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("orderID", orderID))
	}()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: order %d", service.ErrNotFound, orderID)
		}
		return err
	}

	if err = s.assertOwnership(ctx, session, order.BrokerAccountID); err != nil {
		return err
	}

	financial := upd.Quantity != nil || upd.Price != nil || upd.Fees != nil

	if financial && (upd.Comment == nil || *upd.Comment == "") {
		return fmt.Errorf("%w: a financial correction requires a comment", service.ErrInvalidInput)
	}

	var brokerAccountID int64

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		brokerAccountID = order.BrokerAccountID

		broker, err := s.lockActiveBroker(ctx, order.BrokerAccountID)
		if err != nil {
			return err
		}

		if (financial || upd.Settled != nil) && order.Status != model.OrderStatusActive {
			return fmt.Errorf("%w: order %d is cancelled", service.ErrInvalidState, orderID)
		}

		if upd.Settled != nil {
			if order.Settled && !*upd.Settled {
				return fmt.Errorf("%w: a settled order cannot be unsettled", service.ErrInvalidState)
			}
			order.Settled = *upd.Settled
		}

		if upd.Comment != nil {
			order.Comment = *upd.Comment
		}

		if !financial {
			return s.repo.UpdateOrder(ctx, order)
		}

		if upd.Quantity != nil {
			order.Quantity = *upd.Quantity
		}
		if upd.Price != nil {
			order.Price = *upd.Price
		}
		if upd.Fees != nil {
			order.Fees = *upd.Fees
		}

		if err := validateOrderFields(order.Quantity, order.Price, order.Fees); err != nil {
			return err
		}

		effect, err := orderEffect(order)
		if err != nil {
			return err
		}

		if err := s.repo.UpdateOrder(ctx, order); err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		if err := s.repo.LockCashAccounts(ctx, order.BrokerAccountID); err != nil {
			return err
		}

		// Replace the projection: drop the old rows, insert the corrected one.
		if err := s.repo.DeleteCashTransactionsByReference(ctx, orderID, orderCashTypes); err != nil {
			return err
		}

		if order.OrderType == model.OrderTypeBuy {
			current, err := s.repo.SumCashTransactions(ctx, order.BrokerAccountID)
			if err != nil {
				return err
			}
			if current.Add(effect).IsNegative() {
				return fmt.Errorf("%w: insufficient cash for corrected buy order", service.ErrInvalidState)
			}
		}

		_, err = s.repo.InsertCashTransaction(ctx, model.CashTransaction{
			BrokerAccountID: order.BrokerAccountID,
			Date:            order.TradeDate,
			Amount:          effect,
			Type:            order.OrderType,
			ReferenceID:     &orderID,
			Comment:         order.Comment,
		})
		if err != nil {
			return err
		}

		return s.recalcBalance(ctx, order.BrokerAccountID)
	})
	if err != nil {
		slog.Error("UpdateOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if financial {
		s.flushSummary(ctx, brokerAccountID)
	}

	return nil
}

// CancelOrder keeps the original ledger rows and appends a reversal row
// recomputed from the persisted order fields, so the audit trail shows both
// the order and its undoing.
func (s *LedgerService) CancelOrder(ctx context.Context, session model.Session, orderID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CancelOrder"

	slog.Debug("CancelOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("orderID", orderID))
	defer func() {
		slog.Debug("CancelOrder finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("orderID", orderID))
	}()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: order %d", service.ErrNotFound, orderID)
		}
		return err
	}

	if err = s.assertOwnership(ctx, session, order.BrokerAccountID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		broker, err := s.lockActiveBroker(ctx, order.BrokerAccountID)
		if err != nil {
			return err
		}

		if order.Status != model.OrderStatusActive {
			return fmt.Errorf("%w: order %d is already cancelled", service.ErrInvalidState, orderID)
		}

		if err := s.repo.CancelOrder(ctx, orderID); err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		if err := s.repo.LockCashAccounts(ctx, order.BrokerAccountID); err != nil {
			return err
		}

		reversal, err := orderReversal(order)
		if err != nil {
			return err
		}

		_, err = s.repo.InsertCashTransaction(ctx, model.CashTransaction{
			BrokerAccountID: order.BrokerAccountID,
			Date:            order.TradeDate,
			Amount:          reversal,
			Type:            order.OrderType,
			ReferenceID:     &orderID,
			Comment:         fmt.Sprintf("cancellation of order %d", orderID),
		})
		if err != nil {
			return err
		}

		return s.recalcBalance(ctx, order.BrokerAccountID)
	})
	if err != nil {
		slog.Error("CancelOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, order.BrokerAccountID)

	return nil
}

// DeleteOrder removes the order and every ledger row it projected. Unlike
// cancellation this leaves no trace in the ledger, so it is super admin only.
func (s *LedgerService) DeleteOrder(ctx context.Context, session model.Session, orderID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteOrder"

	slog.Debug("DeleteOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("orderID", orderID))
	defer func() {
		slog.Debug("DeleteOrder finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("orderID", orderID))
	}()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: order %d", service.ErrNotFound, orderID)
		}
		return err
	}

	if err = s.assertSuperAdmin(ctx, session, order.BrokerAccountID); err != nil {
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		broker, err := s.lockActiveBroker(ctx, order.BrokerAccountID)
		if err != nil {
			return err
		}

		if broker.HasCashAccount {
			if err := s.repo.LockCashAccounts(ctx, order.BrokerAccountID); err != nil {
				return err
			}

			if err := s.repo.DeleteCashTransactionsByReference(ctx, orderID, orderCashTypes); err != nil {
				return err
			}
		}

		if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
			return err
		}

		if !broker.HasCashAccount {
			return nil
		}

		return s.recalcBalance(ctx, order.BrokerAccountID)
	})
	if err != nil {
		slog.Error("DeleteOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushSummary(ctx, order.BrokerAccountID)

	return nil
}

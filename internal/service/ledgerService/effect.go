package ledgerService

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/service"
)

// orderEffect computes the signed cash impact of an order. A BUY debits
// quantity*price plus fees, a SELL credits quantity*price minus fees.
func orderEffect(order model.OrderTransaction) (decimal.Decimal, error) {
	gross := order.Quantity.Mul(order.Price)

	switch order.OrderType {
	case model.OrderTypeBuy:
		return gross.Add(order.Fees).Neg(), nil
	case model.OrderTypeSell:
		return gross.Sub(order.Fees), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unknown order type %q", service.ErrInvalidInput, order.OrderType)
	}
}

// orderReversal is the exact negation of the effect recomputed from the
// persisted order fields, so cancelling always restores the pre-order balance.
func orderReversal(order model.OrderTransaction) (decimal.Decimal, error) {
	effect, err := orderEffect(order)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return effect.Neg(), nil
}

// dividendNet resolves the amount credited to cash. An explicit net amount
// wins; otherwise it is gross minus withheld taxes.
func dividendNet(amount *decimal.Decimal, grossAmount *decimal.Decimal, taxesWithheld decimal.Decimal) (decimal.Decimal, error) {
	if amount != nil {
		return *amount, nil
	}
	if grossAmount != nil {
		return grossAmount.Sub(taxesWithheld), nil
	}
	return decimal.Decimal{}, fmt.Errorf("%w: dividend needs either a net amount or a gross amount", service.ErrInvalidInput)
}

func validateOrderFields(quantity, price, fees decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive", service.ErrInvalidInput)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", service.ErrInvalidInput)
	}
	if fees.IsNegative() {
		return fmt.Errorf("%w: fees must not be negative", service.ErrInvalidInput)
	}
	return nil
}

// validateManualCash enforces the sign convention per manual movement type
// and rejects no-op adjustments.
func validateManualCash(trType string, amount decimal.Decimal) error {
	switch trType {
	case model.CashTypeDeposit:
		if amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: deposit amount must be positive", service.ErrInvalidInput)
		}
	case model.CashTypeWithdrawal:
		if amount.GreaterThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: withdrawal amount must be negative", service.ErrInvalidInput)
		}
	case model.CashTypeFees:
		if amount.GreaterThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: fees amount must be negative", service.ErrInvalidInput)
		}
	case model.CashTypeAdjustment:
		if amount.IsZero() {
			return fmt.Errorf("%w: adjustment amount must not be zero", service.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown cash transaction type %q", service.ErrInvalidInput, trType)
	}
	return nil
}

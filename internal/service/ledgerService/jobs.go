package ledgerService

import (
	"context"
	"log/slog"

	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/utils"
)

// AuditBalances walks every cash-tracked broker and compares the stored
// balance against the sum of the ledger rows. Drift is logged; when repair
// is enabled the stored balance is rewritten from the ledger.
func (s *LedgerService) AuditBalances(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.AuditBalances"

	slog.Info("AuditBalances start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Info("AuditBalances finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	brokerIDs, err := s.repo.ListCashTrackedBrokerIDs(ctx)
	if err != nil {
		slog.Error("got error from repo.ListCashTrackedBrokerIDs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, brokerID := range brokerIDs {
		err := s.auditBroker(ctx, brokerID)
		if err != nil {
			slog.Error("balance audit failed for broker", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("brokerAccountID", brokerID), slog.String("err", err.Error()))
		}
	}

	return nil
}

func (s *LedgerService) auditBroker(ctx context.Context, brokerAccountID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.auditBroker"

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.LockCashAccounts(ctx, brokerAccountID); err != nil {
			return err
		}

		stored, err := s.repo.SumCashAccountBalances(ctx, brokerAccountID)
		if err != nil {
			return err
		}

		ledger, err := s.repo.SumCashTransactions(ctx, brokerAccountID)
		if err != nil {
			return err
		}

		if stored.Equal(ledger) {
			return nil
		}

		slog.Error(
			"balance drift detected",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.Int64("brokerAccountID", brokerAccountID),
			slog.String("stored", stored.String()),
			slog.String("ledger", ledger.String()),
		)

		if !s.cfg.Jobs.BalanceAuditRepair {
			return nil
		}

		if err := s.repo.UpdateCashAccountBalance(ctx, brokerAccountID, ledger); err != nil {
			return err
		}

		s.flushSummary(ctx, brokerAccountID)

		return nil
	})
}

// RefreshPrices pulls the latest close prices for every known instrument and
// stores them for holdings valuation.
func (s *LedgerService) RefreshPrices(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RefreshPrices"

	slog.Info("RefreshPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Info("RefreshPrices finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	instruments, err := s.repo.ListInstruments(ctx)
	if err != nil {
		slog.Error("got error from repo.ListInstruments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(instruments) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(instruments))
	for _, instrument := range instruments {
		symbols = append(symbols, instrument.Symbol)
	}

	closePrices, err := s.priceApi.GetClosePrices(ctx, symbols)
	if err != nil {
		slog.Error("got error from priceApi.GetClosePrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	prices := make([]model.InstrumentPrice, 0, len(instruments))
	for _, instrument := range instruments {
		closePrice, ok := closePrices[instrument.Symbol]
		if !ok {
			slog.Warn("no close price for symbol", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", instrument.Symbol))
			continue
		}

		prices = append(prices, model.InstrumentPrice{
			InstrumentID: instrument.ID,
			PriceDate:    closePrice.PriceDate,
			ClosePrice:   closePrice.Close,
			Currency:     closePrice.Currency,
		})
	}

	err = s.repo.UpsertInstrumentPrices(ctx, prices)
	if err != nil {
		slog.Error("got error from repo.UpsertInstrumentPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

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

func (s *LedgerService) CreateInstrument(ctx context.Context, instrument model.Instrument) (instrumentID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CreateInstrument"

	slog.Debug("CreateInstrument start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", instrument.Symbol))
	defer func() {
		slog.Debug("CreateInstrument finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("instrumentID", instrumentID))
	}()

	if instrument.Symbol == "" || instrument.Label == "" {
		return 0, fmt.Errorf("%w: symbol and label must not be empty", service.ErrInvalidInput)
	}

	instrumentID, err = s.repo.InsertInstrument(ctx, instrument)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, fmt.Errorf("%w: symbol %s already exists", service.ErrInvalidInput, instrument.Symbol)
		}
		slog.Error("got error from repo.InsertInstrument", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return instrumentID, nil
}

func (s *LedgerService) UpdateInstrument(ctx context.Context, instrument model.Instrument) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.UpdateInstrument"

	slog.Debug("UpdateInstrument start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("instrumentID", instrument.ID))
	defer func() {
		slog.Debug("UpdateInstrument finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("instrumentID", instrument.ID))
	}()

	if instrument.Symbol == "" || instrument.Label == "" {
		return fmt.Errorf("%w: symbol and label must not be empty", service.ErrInvalidInput)
	}

	if _, err = s.repo.GetInstrument(ctx, instrument.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: instrument %d", service.ErrNotFound, instrument.ID)
		}
		return err
	}

	err = s.repo.UpdateInstrument(ctx, instrument)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return fmt.Errorf("%w: symbol %s already exists", service.ErrInvalidInput, instrument.Symbol)
		}
		slog.Error("got error from repo.UpdateInstrument", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *LedgerService) DeleteInstrument(ctx context.Context, instrumentID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteInstrument"

	slog.Debug("DeleteInstrument start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("instrumentID", instrumentID))
	defer func() {
		slog.Debug("DeleteInstrument finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("instrumentID", instrumentID))
	}()

	if _, err = s.repo.GetInstrument(ctx, instrumentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: instrument %d", service.ErrNotFound, instrumentID)
		}
		return err
	}

	err = s.repo.DeleteInstrument(ctx, instrumentID)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return fmt.Errorf("%w: instrument %d is referenced by orders or dividends", service.ErrInvalidState, instrumentID)
		}
		slog.Error("got error from repo.DeleteInstrument", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *LedgerService) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ListInstruments"

	slog.Debug("ListInstruments start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListInstruments finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	instruments, err := s.repo.ListInstruments(ctx)
	if err != nil {
		slog.Error("got error from repo.ListInstruments", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return instruments, nil
}

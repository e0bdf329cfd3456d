package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/converter/dbConverter"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/model/dbModel"
	"github.com/cashcue/cashcue/utils"
)

func (r *Postgres) InsertInstrument(ctx context.Context, instrument model.Instrument) (instrumentID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO instrument(symbol, label, isin)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id
	`

	slog.Debug("InsertInstrument start", slog.String("rqID", rqID), slog.String("symbol", instrument.Symbol), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertInstrument failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertInstrument completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, instrument.Symbol, instrument.Label, instrument.ISIN).Scan(&instrumentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return instrumentID, nil
}

func (r *Postgres) GetInstrument(ctx context.Context, instrumentID int64) (instrument model.Instrument, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id, symbol, label, isin, created_at
		FROM instrument
		WHERE id = $1
	`

	slog.Debug("GetInstrument start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetInstrument failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInstrument completed", slog.String("rqID", rqID))
		}
	}()

	dbInstrument := dbModel.Instrument{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, instrumentID).StructScan(&dbInstrument)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Instrument{}, repository.ErrNotFound
		}
		return model.Instrument{}, err
	}

	return dbConverter.ConvertInstrument(dbInstrument), nil
}

func (r *Postgres) GetInstrumentBySymbol(ctx context.Context, symbol string) (instrument model.Instrument, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id, symbol, label, isin, created_at
		FROM instrument
		WHERE symbol = $1
	`

	slog.Debug("GetInstrumentBySymbol start", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetInstrumentBySymbol failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInstrumentBySymbol completed", slog.String("rqID", rqID))
		}
	}()

	dbInstrument := dbModel.Instrument{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, symbol).StructScan(&dbInstrument)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Instrument{}, repository.ErrNotFound
		}
		return model.Instrument{}, err
	}

	return dbConverter.ConvertInstrument(dbInstrument), nil
}

func (r *Postgres) UpdateInstrument(ctx context.Context, instrument model.Instrument) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE instrument
		SET symbol = $1, label = $2, isin = NULLIF($3, '')
		WHERE id = $4
	`

	slog.Debug("UpdateInstrument start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateInstrument failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateInstrument completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, instrument.Symbol, instrument.Label, instrument.ISIN, instrument.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (r *Postgres) DeleteInstrument(ctx context.Context, instrumentID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM instrument WHERE id = $1`

	slog.Debug("DeleteInstrument start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteInstrument failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteInstrument completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, instrumentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return repository.ErrReferenced
		}
		return err
	}

	return nil
}

func (r *Postgres) ListInstruments(ctx context.Context) (instruments []model.Instrument, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id, symbol, label, isin, created_at
		FROM instrument
		ORDER BY symbol
	`

	slog.Debug("ListInstruments start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListInstruments failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListInstruments completed", slog.String("rqID", rqID))
		}
	}()

	dbInstruments := make([]dbModel.Instrument, 0)
	err = r.db.SelectContext(ctx, &dbInstruments, query)
	if err != nil {
		return nil, err
	}

	instruments = make([]model.Instrument, 0, len(dbInstruments))
	for _, dbInstrument := range dbInstruments {
		instruments = append(instruments, dbConverter.ConvertInstrument(dbInstrument))
	}

	return instruments, nil
}

// UpsertInstrumentPrices stores daily close prices, overwriting an existing
// price for the same instrument and date.
func (r *Postgres) UpsertInstrumentPrices(ctx context.Context, prices []model.InstrumentPrice) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertInstrumentPrices"
	query := `
		INSERT INTO instrument_price(instrument_id, price_date, close_price, currency)
		SELECT * FROM UNNEST($1::bigint[], $2::date[], $3::numeric[], $4::text[])
		ON CONFLICT (instrument_id, price_date)
		DO UPDATE SET close_price = EXCLUDED.close_price, currency = EXCLUDED.currency
	`

	slog.Debug("UpsertInstrumentPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(prices)), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertInstrumentPrices failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertInstrumentPrices completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	if len(prices) == 0 {
		return nil
	}

	instrumentIDs := make([]int64, 0, len(prices))
	priceDates := make([]string, 0, len(prices))
	closePrices := make([]string, 0, len(prices))
	currencies := make([]string, 0, len(prices))
	for _, price := range prices {
		instrumentIDs = append(instrumentIDs, price.InstrumentID)
		priceDates = append(priceDates, price.PriceDate.Format("2006-01-02"))
		closePrices = append(closePrices, price.ClosePrice.String())
		currencies = append(currencies, price.Currency)
	}

	_, err = r.db.ExecContext(ctx, query, instrumentIDs, priceDates, closePrices, currencies)
	return err
}

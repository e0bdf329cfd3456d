package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/converter/dbConverter"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/model/dbModel"
	"github.com/cashcue/cashcue/utils"
)

func (r *Postgres) InsertDividend(ctx context.Context, dividend model.Dividend) (dividendID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertDividend"
	query := `
		INSERT INTO dividend(broker_account_id, instrument_id, payment_date, amount, gross_amount, taxes_withheld, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'ACTIVE')
		RETURNING id
	`

	slog.Debug(
		"InsertDividend start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("brokerAccountID", dividend.BrokerAccountID),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertDividend failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertDividend completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		dividend.BrokerAccountID,
		dividend.InstrumentID,
		dividend.PaymentDate,
		dividend.Amount,
		dividend.GrossAmount,
		dividend.TaxesWithheld,
		dividend.Currency,
	).Scan(&dividendID)
	if err != nil {
		return 0, err
	}

	return dividendID, nil
}

func (r *Postgres) getDividend(ctx context.Context, dividendID int64, query string) (dividend model.Dividend, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("getDividend start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getDividend failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getDividend completed", slog.String("rqID", rqID))
		}
	}()

	dbDividend := dbModel.Dividend{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, dividendID).StructScan(&dbDividend)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Dividend{}, repository.ErrNotFound
		}
		return model.Dividend{}, err
	}

	return dbConverter.ConvertDividend(dbDividend), nil
}

func (r *Postgres) GetDividend(ctx context.Context, dividendID int64) (model.Dividend, error) {
	query := `
		SELECT id, broker_account_id, instrument_id, payment_date, amount, gross_amount, taxes_withheld, currency, status, created_at, cancelled_at
		FROM dividend
		WHERE id = $1
	`

	return r.getDividend(ctx, dividendID, query)
}

// GetDividendForUpdate locks the dividend row for the rest of the transaction.
func (r *Postgres) GetDividendForUpdate(ctx context.Context, dividendID int64) (model.Dividend, error) {
	query := `
		SELECT id, broker_account_id, instrument_id, payment_date, amount, gross_amount, taxes_withheld, currency, status, created_at, cancelled_at
		FROM dividend
		WHERE id = $1
		FOR UPDATE
	`

	return r.getDividend(ctx, dividendID, query)
}

func (r *Postgres) UpdateDividend(ctx context.Context, dividend model.Dividend) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateDividend"
	query := `
		UPDATE dividend
		SET instrument_id = $1,
			payment_date = $2,
			amount = $3,
			gross_amount = $4,
			taxes_withheld = $5,
			currency = $6
		WHERE id = $7
	`

	slog.Debug("UpdateDividend start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateDividend failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateDividend completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		dividend.InstrumentID,
		dividend.PaymentDate,
		dividend.Amount,
		dividend.GrossAmount,
		dividend.TaxesWithheld,
		dividend.Currency,
		dividend.ID,
	)
	return err
}

func (r *Postgres) CancelDividend(ctx context.Context, dividendID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE dividend
		SET status = 'CANCELLED', cancelled_at = now()
		WHERE id = $1
	`

	slog.Debug("CancelDividend start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CancelDividend failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CancelDividend completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, dividendID)
	return err
}

func (r *Postgres) DeleteDividend(ctx context.Context, dividendID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM dividend WHERE id = $1`

	slog.Debug("DeleteDividend start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteDividend failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteDividend completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, dividendID)
	return err
}

func (r *Postgres) GetDividendsPage(ctx context.Context, brokerAccountID int64, limit, offset int) (dividends []model.Dividend, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetDividendsPage"
	params := map[string]any{
		"brokerAccountID": brokerAccountID,
		"limit":           limit,
		"offset":          offset,
	}
	query := `
		SELECT id, broker_account_id, instrument_id, payment_date, amount, gross_amount, taxes_withheld, currency, status, created_at, cancelled_at
		FROM dividend
		WHERE broker_account_id = $1
		ORDER BY payment_date DESC, id DESC
		LIMIT $2
		OFFSET $3
	`

	slog.Debug("GetDividendsPage start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("GetDividendsPage failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetDividendsPage completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, brokerAccountID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}

	defer rows.Close()

	i := 0
	dividends = make([]model.Dividend, 0, limit)
	for rows.Next() {
		i++
		var dbDividend dbModel.Dividend
		err = rows.StructScan(&dbDividend)
		if err != nil {
			return nil, false, err
		}

		if i > limit {
			hasNextPage = true
			break
		}
		dividends = append(dividends, dbConverter.ConvertDividend(dbDividend))
	}

	return dividends, hasNextPage, nil
}

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
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertCashTransaction(ctx context.Context, tr model.CashTransaction) (cashTransactionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertCashTransaction"
	query := `
		INSERT INTO cash_transaction(broker_account_id, date, amount, type, reference_id, comment)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id
	`

	slog.Debug(
		"InsertCashTransaction start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("brokerAccountID", tr.BrokerAccountID),
		slog.String("type", tr.Type),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertCashTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertCashTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		tr.BrokerAccountID,
		tr.Date,
		tr.Amount,
		tr.Type,
		tr.ReferenceID,
		tr.Comment,
	).Scan(&cashTransactionID)
	if err != nil {
		return 0, err
	}

	return cashTransactionID, nil
}

// DeleteCashTransactionsByReference removes the ledger rows previously posted
// for one order or dividend. Used when an edit or hard delete replaces the
// financial effect of the referenced row.
func (r *Postgres) DeleteCashTransactionsByReference(ctx context.Context, referenceID int64, types []string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteCashTransactionsByReference"
	query := `
		DELETE FROM cash_transaction
		WHERE reference_id = $1
		AND type = ANY($2)
	`

	slog.Debug("DeleteCashTransactionsByReference start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteCashTransactionsByReference failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteCashTransactionsByReference completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, referenceID, types)
	return err
}

// GetLatestCashTransactionByReference returns the most recently posted ledger
// row for a reference. Cancellation reversals are derived from it so they undo
// exactly what was posted, even after intermediate edits.
func (r *Postgres) GetLatestCashTransactionByReference(ctx context.Context, referenceID int64, trType string) (tr model.CashTransaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetLatestCashTransactionByReference"
	query := `
		SELECT id, broker_account_id, date, amount, type, reference_id, comment
		FROM cash_transaction
		WHERE reference_id = $1
		AND type = $2
		ORDER BY id DESC
		LIMIT 1
	`

	slog.Debug("GetLatestCashTransactionByReference start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetLatestCashTransactionByReference failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestCashTransactionByReference completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbTr := dbModel.CashTransaction{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, referenceID, trType).StructScan(&dbTr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CashTransaction{}, repository.ErrNotFound
		}
		return model.CashTransaction{}, err
	}

	return dbConverter.ConvertCashTransaction(dbTr), nil
}

func (r *Postgres) GetCashTransaction(ctx context.Context, cashTransactionID int64) (tr model.CashTransaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id, broker_account_id, date, amount, type, reference_id, comment
		FROM cash_transaction
		WHERE id = $1
	`

	slog.Debug("GetCashTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetCashTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetCashTransaction completed", slog.String("rqID", rqID))
		}
	}()

	dbTr := dbModel.CashTransaction{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, cashTransactionID).StructScan(&dbTr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CashTransaction{}, repository.ErrNotFound
		}
		return model.CashTransaction{}, err
	}

	return dbConverter.ConvertCashTransaction(dbTr), nil
}

func (r *Postgres) DeleteCashTransaction(ctx context.Context, cashTransactionID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM cash_transaction WHERE id = $1`

	slog.Debug("DeleteCashTransaction start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteCashTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteCashTransaction completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, cashTransactionID)
	return err
}

func (r *Postgres) SumCashTransactions(ctx context.Context, brokerAccountID int64) (total decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SumCashTransactions"
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM cash_transaction
		WHERE broker_account_id = $1
	`

	slog.Debug("SumCashTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("SumCashTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SumCashTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, brokerAccountID).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return total, nil
}

func (r *Postgres) UpdateCashAccountBalance(ctx context.Context, brokerAccountID int64, balance decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateCashAccountBalance"
	query := `
		UPDATE cash_account
		SET current_balance = $1, updated_at = now()
		WHERE broker_account_id = $2
	`

	slog.Debug("UpdateCashAccountBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateCashAccountBalance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateCashAccountBalance completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, balance, brokerAccountID)
	return err
}

func (r *Postgres) GetCashTransactionsPage(ctx context.Context, brokerAccountID int64, limit, offset int) (transactions []model.CashTransaction, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetCashTransactionsPage"
	params := map[string]any{
		"brokerAccountID": brokerAccountID,
		"limit":           limit,
		"offset":          offset,
	}
	query := `
		SELECT id, broker_account_id, date, amount, type, reference_id, comment
		FROM cash_transaction
		WHERE broker_account_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2
		OFFSET $3
	`

	slog.Debug("GetCashTransactionsPage start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("GetCashTransactionsPage failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetCashTransactionsPage completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	// select one extra row to know whether a next page exists
	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, brokerAccountID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}

	defer rows.Close()

	i := 0
	transactions = make([]model.CashTransaction, 0, limit)
	for rows.Next() {
		i++
		var dbTr dbModel.CashTransaction
		err = rows.StructScan(&dbTr)
		if err != nil {
			return nil, false, err
		}

		if i > limit {
			hasNextPage = true
			break
		}
		transactions = append(transactions, dbConverter.ConvertCashTransaction(dbTr))
	}

	return transactions, hasNextPage, nil
}

func (r *Postgres) GetCashFlows(ctx context.Context, brokerAccountID int64) (inflows, outflows decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetCashFlows"
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS inflows,
			COALESCE(SUM(CASE WHEN amount < 0 THEN ABS(amount) ELSE 0 END), 0) AS outflows
		FROM cash_transaction
		WHERE broker_account_id = $1
	`

	slog.Debug("GetCashFlows start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetCashFlows failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetCashFlows completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, brokerAccountID).Scan(&inflows, &outflows)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}

	return inflows, outflows, nil
}

// ListCashTrackedBrokerIDs returns the ids of broker accounts that carry a
// cash account. The nightly balance audit iterates over them.
func (r *Postgres) ListCashTrackedBrokerIDs(ctx context.Context) (ids []int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id FROM broker_account
		WHERE has_cash_account = TRUE
		ORDER BY id
	`

	slog.Debug("ListCashTrackedBrokerIDs start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListCashTrackedBrokerIDs failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListCashTrackedBrokerIDs completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &ids, query)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

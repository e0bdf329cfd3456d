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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertBrokerAccount(ctx context.Context, broker model.BrokerAccount) (brokerID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertBrokerAccount"
	query := `
		INSERT INTO broker_account(name, account_number, account_type, currency, status, has_cash_account, comment)
		VALUES ($1, NULLIF($2, ''), $3, $4, 'ACTIVE', $5, $6)
		RETURNING id
	`

	slog.Debug("InsertBrokerAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertBrokerAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertBrokerAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		broker.Name,
		broker.AccountNumber,
		broker.AccountType,
		broker.Currency,
		broker.HasCashAccount,
		broker.Comment,
	).Scan(&brokerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return brokerID, nil
}

func (r *Postgres) LinkBrokerToUser(ctx context.Context, userID, brokerAccountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO user_broker_account(user_id, broker_account_id) VALUES($1, $2)`

	slog.Debug("LinkBrokerToUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("LinkBrokerToUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("LinkBrokerToUser completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID, brokerAccountID)
	return err
}

func (r *Postgres) UserOwnsBroker(ctx context.Context, userID, brokerAccountID int64) (owns bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT EXISTS(
			SELECT 1 FROM user_broker_account
			WHERE user_id = $1 AND broker_account_id = $2
		)
	`

	slog.Debug("UserOwnsBroker start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UserOwnsBroker failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UserOwnsBroker completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, userID, brokerAccountID).Scan(&owns)
	if err != nil {
		return false, err
	}

	return owns, nil
}

func (r *Postgres) getBrokerAccount(ctx context.Context, brokerAccountID int64, query string) (broker model.BrokerAccount, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("getBrokerAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getBrokerAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getBrokerAccount completed", slog.String("rqID", rqID))
		}
	}()

	dbBroker := dbModel.BrokerAccount{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, brokerAccountID).StructScan(&dbBroker)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BrokerAccount{}, repository.ErrNotFound
		}
		return model.BrokerAccount{}, err
	}

	return dbConverter.ConvertBrokerAccount(dbBroker), nil
}

func (r *Postgres) GetBrokerAccount(ctx context.Context, brokerAccountID int64) (model.BrokerAccount, error) {
	query := `
		SELECT id, name, account_number, account_type, currency, status, has_cash_account, comment, created_at, updated_at, closed_at
		FROM broker_account
		WHERE id = $1
	`

	return r.getBrokerAccount(ctx, brokerAccountID, query)
}

// GetBrokerAccountForUpdate locks the broker row until the surrounding
// transaction ends, serializing concurrent mutations against the account.
func (r *Postgres) GetBrokerAccountForUpdate(ctx context.Context, brokerAccountID int64) (model.BrokerAccount, error) {
	query := `
		SELECT id, name, account_number, account_type, currency, status, has_cash_account, comment, created_at, updated_at, closed_at
		FROM broker_account
		WHERE id = $1
		FOR UPDATE
	`

	return r.getBrokerAccount(ctx, brokerAccountID, query)
}

func (r *Postgres) GetBrokerAccountsByUser(ctx context.Context, userID int64) (brokers []model.BrokerAccount, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetBrokerAccountsByUser"
	query := `
		SELECT b.id, b.name, b.account_number, b.account_type, b.currency, b.status, b.has_cash_account, b.comment, b.created_at, b.updated_at, b.closed_at
		FROM broker_account b
		JOIN user_broker_account uba ON uba.broker_account_id = b.id
		WHERE uba.user_id = $1
		ORDER BY b.name
	`

	slog.Debug("GetBrokerAccountsByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetBrokerAccountsByUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetBrokerAccountsByUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbBroker dbModel.BrokerAccount
		err = rows.StructScan(&dbBroker)
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, dbConverter.ConvertBrokerAccount(dbBroker))
	}

	return brokers, nil
}

func (r *Postgres) UpdateBrokerAccount(ctx context.Context, broker model.BrokerAccount) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateBrokerAccount"
	query := `
		UPDATE broker_account
		SET name = $1,
			account_number = NULLIF($2, ''),
			account_type = $3,
			currency = $4,
			comment = $5,
			updated_at = now()
		WHERE id = $6
	`

	slog.Debug("UpdateBrokerAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateBrokerAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateBrokerAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, broker.Name, broker.AccountNumber, broker.AccountType, broker.Currency, broker.Comment, broker.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return repository.ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (r *Postgres) CloseBrokerAccount(ctx context.Context, brokerAccountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE broker_account
		SET status = 'CLOSED', closed_at = now(), updated_at = now()
		WHERE id = $1
	`

	slog.Debug("CloseBrokerAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CloseBrokerAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CloseBrokerAccount completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, brokerAccountID)
	return err
}

// DeleteBrokerAccount removes the broker row; dependent rows go away through
// ON DELETE CASCADE.
func (r *Postgres) DeleteBrokerAccount(ctx context.Context, brokerAccountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM broker_account WHERE id = $1`

	slog.Debug("DeleteBrokerAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteBrokerAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteBrokerAccount completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, brokerAccountID)
	return err
}

func (r *Postgres) InsertCashAccount(ctx context.Context, brokerAccountID int64, initialBalance decimal.Decimal) (cashAccountID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO cash_account(broker_account_id, initial_balance, current_balance)
		VALUES ($1, $2, 0)
		RETURNING id
	`

	slog.Debug("InsertCashAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertCashAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertCashAccount completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, brokerAccountID, initialBalance).Scan(&cashAccountID)
	if err != nil {
		return 0, err
	}

	return cashAccountID, nil
}

func (r *Postgres) GetCashAccount(ctx context.Context, brokerAccountID int64) (account model.CashAccount, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id, broker_account_id, initial_balance, current_balance, updated_at
		FROM cash_account
		WHERE broker_account_id = $1
		ORDER BY id
		LIMIT 1
	`

	slog.Debug("GetCashAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetCashAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetCashAccount completed", slog.String("rqID", rqID))
		}
	}()

	dbAccount := dbModel.CashAccount{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, brokerAccountID).StructScan(&dbAccount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CashAccount{}, repository.ErrNotFound
		}
		return model.CashAccount{}, err
	}

	return dbConverter.ConvertCashAccount(dbAccount), nil
}

// LockCashAccounts acquires row locks on every cash account of the broker for
// the rest of the transaction. Balance recalculation must happen under this
// lock so concurrent read-sum-write cycles cannot lose updates.
func (r *Postgres) LockCashAccounts(ctx context.Context, brokerAccountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id FROM cash_account WHERE broker_account_id = $1 FOR UPDATE`

	slog.Debug("LockCashAccounts start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("LockCashAccounts failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("LockCashAccounts completed", slog.String("rqID", rqID))
		}
	}()

	var ids []int64
	err = r.txOrDb(ctx).SelectContext(ctx, &ids, query, brokerAccountID)
	return err
}

func (r *Postgres) SumCashAccountBalances(ctx context.Context, brokerAccountID int64) (total decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT COALESCE(SUM(current_balance), 0)
		FROM cash_account
		WHERE broker_account_id = $1
	`

	slog.Debug("SumCashAccountBalances start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("SumCashAccountBalances failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SumCashAccountBalances completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, brokerAccountID).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return total, nil
}

func (r *Postgres) DeleteCashAccounts(ctx context.Context, brokerAccountID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM cash_account WHERE broker_account_id = $1`

	slog.Debug("DeleteCashAccounts start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteCashAccounts failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteCashAccounts completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, brokerAccountID)
	return err
}

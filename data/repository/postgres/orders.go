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

func (r *Postgres) InsertOrder(ctx context.Context, order model.OrderTransaction) (orderID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertOrder"
	query := `
		INSERT INTO order_transaction(broker_account_id, instrument_id, order_type, quantity, price, fees, trade_date, status, settled, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'ACTIVE', $8, NULLIF($9, ''))
		RETURNING id
	`

	slog.Debug(
		"InsertOrder start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("brokerAccountID", order.BrokerAccountID),
		slog.String("orderType", order.OrderType),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertOrder completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		order.BrokerAccountID,
		order.InstrumentID,
		order.OrderType,
		order.Quantity,
		order.Price,
		order.Fees,
		order.TradeDate,
		order.Settled,
		order.Comment,
	).Scan(&orderID)
	if err != nil {
		return 0, err
	}

	return orderID, nil
}

func (r *Postgres) getOrder(ctx context.Context, orderID int64, query string) (order model.OrderTransaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("getOrder start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getOrder failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getOrder completed", slog.String("rqID", rqID))
		}
	}()

	dbOrder := dbModel.OrderTransaction{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, orderID).StructScan(&dbOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OrderTransaction{}, repository.ErrNotFound
		}
		return model.OrderTransaction{}, err
	}

	return dbConverter.ConvertOrder(dbOrder), nil
}

func (r *Postgres) GetOrder(ctx context.Context, orderID int64) (model.OrderTransaction, error) {
	query := `
		SELECT id, broker_account_id, instrument_id, order_type, quantity, price, fees, trade_date, status, settled, comment, created_at, cancelled_at
		FROM order_transaction
		WHERE id = $1
	`

	return r.getOrder(ctx, orderID, query)
}

// GetOrderForUpdate locks the order row for the rest of the transaction.
func (r *Postgres) GetOrderForUpdate(ctx context.Context, orderID int64) (model.OrderTransaction, error) {
	query := `
		SELECT id, broker_account_id, instrument_id, order_type, quantity, price, fees, trade_date, status, settled, comment, created_at, cancelled_at
		FROM order_transaction
		WHERE id = $1
		FOR UPDATE
	`

	return r.getOrder(ctx, orderID, query)
}

func (r *Postgres) UpdateOrder(ctx context.Context, order model.OrderTransaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateOrder"
	query := `
		UPDATE order_transaction
		SET quantity = $1,
			price = $2,
			fees = $3,
			settled = $4,
			comment = NULLIF($5, '')
		WHERE id = $6
	`

	slog.Debug("UpdateOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateOrder completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, order.Quantity, order.Price, order.Fees, order.Settled, order.Comment, order.ID)
	return err
}

func (r *Postgres) CancelOrder(ctx context.Context, orderID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE order_transaction
		SET status = 'CANCELLED', cancelled_at = now()
		WHERE id = $1
	`

	slog.Debug("CancelOrder start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CancelOrder failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CancelOrder completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, orderID)
	return err
}

func (r *Postgres) DeleteOrder(ctx context.Context, orderID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM order_transaction WHERE id = $1`

	slog.Debug("DeleteOrder start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteOrder failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteOrder completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, orderID)
	return err
}

func (r *Postgres) GetOrdersPage(ctx context.Context, brokerAccountID int64, limit, offset int) (orders []model.OrderTransaction, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetOrdersPage"
	params := map[string]any{
		"brokerAccountID": brokerAccountID,
		"limit":           limit,
		"offset":          offset,
	}
	query := `
		SELECT id, broker_account_id, instrument_id, order_type, quantity, price, fees, trade_date, status, settled, comment, created_at, cancelled_at
		FROM order_transaction
		WHERE broker_account_id = $1
		ORDER BY trade_date DESC, id DESC
		LIMIT $2
		OFFSET $3
	`

	slog.Debug("GetOrdersPage start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("GetOrdersPage failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOrdersPage completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, brokerAccountID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}

	defer rows.Close()

	i := 0
	orders = make([]model.OrderTransaction, 0, limit)
	for rows.Next() {
		i++
		var dbOrder dbModel.OrderTransaction
		err = rows.StructScan(&dbOrder)
		if err != nil {
			return nil, false, err
		}

		if i > limit {
			hasNextPage = true
			break
		}
		orders = append(orders, dbConverter.ConvertOrder(dbOrder))
	}

	return orders, hasNextPage, nil
}

// CountOpenPositions counts instruments whose net ACTIVE quantity is not zero.
// Cancelled orders carry reversal ledger rows instead, so they are excluded
// from position math.
func (r *Postgres) CountOpenPositions(ctx context.Context, brokerAccountID int64) (openPositions int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CountOpenPositions"
	query := `
		SELECT COUNT(*)
		FROM (
			SELECT instrument_id,
				SUM(
					CASE
						WHEN order_type = 'BUY' THEN quantity
						WHEN order_type = 'SELL' THEN -quantity
						ELSE 0
					END
				) AS net_qty
			FROM order_transaction
			WHERE broker_account_id = $1
			AND status = 'ACTIVE'
			GROUP BY instrument_id
			HAVING SUM(
				CASE
					WHEN order_type = 'BUY' THEN quantity
					WHEN order_type = 'SELL' THEN -quantity
					ELSE 0
				END
			) <> 0
		) AS open_positions
	`

	slog.Debug("CountOpenPositions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CountOpenPositions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CountOpenPositions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, brokerAccountID).Scan(&openPositions)
	if err != nil {
		return 0, err
	}

	return openPositions, nil
}

func (r *Postgres) GetHoldings(ctx context.Context, brokerAccountID int64) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHoldings"
	query := `
		SELECT o.broker_account_id,
			o.instrument_id,
			i.symbol,
			i.label,
			SUM(
				CASE
					WHEN o.order_type = 'BUY' THEN o.quantity
					WHEN o.order_type = 'SELL' THEN -o.quantity
					ELSE 0
				END
			) AS net_quantity,
			(
				SELECT p.close_price FROM instrument_price p
				WHERE p.instrument_id = o.instrument_id
				ORDER BY p.price_date DESC
				LIMIT 1
			) AS last_price
		FROM order_transaction o
		JOIN instrument i ON i.id = o.instrument_id
		WHERE o.broker_account_id = $1
		AND o.status = 'ACTIVE'
		GROUP BY o.broker_account_id, o.instrument_id, i.symbol, i.label
		HAVING SUM(
			CASE
				WHEN o.order_type = 'BUY' THEN o.quantity
				WHEN o.order_type = 'SELL' THEN -o.quantity
				ELSE 0
			END
		) <> 0
		ORDER BY i.symbol
	`

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldings completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, brokerAccountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbHolding dbModel.Holding
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(dbHolding))
	}

	return holdings, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/model/dbModel"
	"github.com/cashcue/cashcue/utils"
)

// GetUserByTokenHash resolves an API token to its owner. Revoked, expired
// and deactivated-user tokens resolve to ErrNotFound.
func (r *Postgres) GetUserByTokenHash(ctx context.Context, tokenHash string) (tokenUser dbModel.TokenUser, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserByTokenHash"
	query := `
		SELECT t.token_id, u.user_id, u.email, u.is_super_admin
		FROM user_api_token t
		JOIN app_user u ON u.user_id = t.user_id
		WHERE t.token_hash = $1
		  AND NOT t.is_revoked
		  AND (t.expires_at IS NULL OR t.expires_at > now())
		  AND u.is_active
	`

	slog.Debug("GetUserByTokenHash start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserByTokenHash failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByTokenHash completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowxContext(ctx, query, tokenHash).StructScan(&tokenUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.TokenUser{}, repository.ErrNotFound
		}
		return dbModel.TokenUser{}, err
	}

	return tokenUser, nil
}

func (r *Postgres) TouchToken(ctx context.Context, tokenID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE user_api_token SET last_used_at = now() WHERE token_id = $1`

	slog.Debug("TouchToken start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("TouchToken failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("TouchToken completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.db.ExecContext(ctx, query, tokenID)
	return err
}

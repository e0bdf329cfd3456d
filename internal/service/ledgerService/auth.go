package ledgerService

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/service"
	"github.com/cashcue/cashcue/utils"
)

// Authenticate resolves a bearer token to a session. Only the sha256 of the
// token is ever stored or compared.
func (s *LedgerService) Authenticate(ctx context.Context, token string) (session model.Session, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.Authenticate"

	slog.Debug("Authenticate start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Authenticate finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if token == "" {
		return model.Session{}, service.ErrAccessDenied
	}

	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	tokenUser, err := s.repo.GetUserByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("rejected unknown or expired token", slog.String("rqID", rqID), slog.String("op", op))
			return model.Session{}, service.ErrAccessDenied
		}
		slog.Error("got error from repo.GetUserByTokenHash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Session{}, err
	}

	go s.repo.TouchToken(context.WithoutCancel(ctx), tokenUser.TokenID)

	return model.Session{UserID: tokenUser.UserID, IsSuperAdmin: tokenUser.IsSuperAdmin}, nil
}

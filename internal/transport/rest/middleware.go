package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/utils"
)

type sessionKey struct{}

func sessionFromCtx(ctx context.Context) model.Session {
	if session, ok := ctx.Value(sessionKey{}).(model.Session); ok {
		return session
	}
	return model.Session{}
}

// RequestID gives every request a fresh request ID for log correlation and
// stamps the request facts that access denial audit logs pick up downstream.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := utils.CtxWithNewRqID(r.Context())
		ctx = utils.CtxWithRequestInfo(ctx, utils.RequestInfo{
			RemoteAddr: r.RemoteAddr,
			Method:     r.Method,
			URI:        r.RequestURI,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		rqID := utils.GetRequestIDFromCtx(r.Context())

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", r.Method),
			slog.String("uri", r.RequestURI),
		)

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(w, r)
	})
}

// Auth resolves the bearer token to a session and stores it in the context.
func (ctrl *Controller) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rqID := utils.GetRequestIDFromCtx(r.Context())

		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			slog.Warn(
				"rejected request without bearer token",
				slog.String("rqID", rqID),
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("remoteAddr", r.RemoteAddr),
			)
			writeError(w, http.StatusForbidden, "authorization required")
			return
		}

		session, err := ctrl.ledgerService.Authenticate(r.Context(), token)
		if err != nil {
			writeServiceError(r.Context(), w, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

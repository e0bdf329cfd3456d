package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cashcue/cashcue/config"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/utils"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func summaryKey(brokerAccountID int64) string {
	return fmt.Sprintf("cash_summary:%d", brokerAccountID)
}

func (r *RedisCache) SetCashSummary(ctx context.Context, summary model.CashSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetCashSummary start", slog.String("rqID", rqID))

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		slog.Error(
			"can't marshall summary in SetCashSummary",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("summary", summary),
		)
		return errors.New("can't marshall summary")
	}

	_, err = r.redis.Set(ctx, summaryKey(summary.BrokerAccountID), summaryJson, r.cfg.Cache.SummaryExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetCashSummary completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetCashSummary(ctx context.Context, brokerAccountID int64) (model.CashSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetCashSummary start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, summaryKey(brokerAccountID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.CashSummary{}, err
	}

	summary := model.CashSummary{}
	err = json.Unmarshal([]byte(res), &summary)
	if err != nil {
		slog.Error(
			"can't unmarshall summary in GetCashSummary",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.CashSummary{}, errors.New("can't unmarshall summary")
	}

	slog.Debug("GetCashSummary finished", slog.String("rqID", rqID))

	return summary, nil
}

// FlushCashSummary drops the cached summary after any ledger mutation so the
// next read recomputes it from the database.
func (r *RedisCache) FlushCashSummary(ctx context.Context, brokerAccountID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushCashSummary start", slog.String("rqID", rqID))

	_, err := r.redis.Del(ctx, summaryKey(brokerAccountID)).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("FlushCashSummary completed", slog.String("rqID", rqID))

	return nil
}

package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadline-ai/engine/internal/agent/model"
	errx "github.com/leadline-ai/engine/internal/core/error"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// RedisCheckpointStore keeps the per-thread checkpoint history as an
// append-only list. A single RPUSH commits the whole snapshot, so a step's
// checkpoint is either fully persisted or not at all.
type RedisCheckpointStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCheckpointStore(rdb redis.Cmdable, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{rdb: rdb, ttl: ttl}
}

func (r *RedisCheckpointStore) checkpointKey(threadID string) string {
	return fmt.Sprintf("thread:%s:checkpoints", threadID)
}

func (r *RedisCheckpointStore) Save(ctx context.Context, cp *model.Checkpoint) error {
	b, err := json.Marshal(cp)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", cp.ThreadID).Msg("failed to marshal checkpoint")
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	key := r.checkpointKey(cp.ThreadID)

	// append checkpoint
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push checkpoint to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on checkpoint key")
		}
	}
	return nil
}

func (r *RedisCheckpointStore) LoadLatest(ctx context.Context, threadID string) (*model.Checkpoint, error) {
	key := r.checkpointKey(threadID)

	raw, err := r.rdb.LIndex(ctx, key, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load latest checkpoint from redis")
		return nil, errx.WrapRedis(err)
	}

	var cp model.Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to unmarshal checkpoint")
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (r *RedisCheckpointStore) History(ctx context.Context, threadID string) ([]*model.Checkpoint, error) {
	key := r.checkpointKey(threadID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []*model.Checkpoint{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load checkpoint history from redis")
		return nil, errx.WrapRedis(err)
	}

	cps := make([]*model.Checkpoint, 0, len(rows))
	for i, s := range rows {
		var cp model.Checkpoint
		if err := json.Unmarshal([]byte(s), &cp); err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Int("index", i).Msg("failed to unmarshal checkpoint")
			return nil, fmt.Errorf("unmarshal checkpoint at index %d: %w", i, err)
		}
		cps = append(cps, &cp)
	}
	return cps, nil
}

var _ model.CheckpointStore = (*RedisCheckpointStore)(nil)

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// RedisDatasetStore keeps the YAML document under a single Redis key. Updates
// run as WATCH/MULTI transactions so concurrent processes cannot overwrite each
// other's changes.
type RedisDatasetStore struct {
	client     *redis.Client
	key        string
	maxRetries int
	logger     *zap.Logger
}

// NewRedisDatasetStore constructs a Redis-backed store.
func NewRedisDatasetStore(client *redis.Client, key string, maxRetries int, logger *zap.Logger) *RedisDatasetStore {
	if key == "" {
		key = "scolarite:dataset"
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDatasetStore{client: client, key: key, maxRetries: maxRetries, logger: logger}
}

// Load returns the stored dataset, or an empty one when the key is missing or unparsable.
func (s *RedisDatasetStore) Load(ctx context.Context) (*models.Dataset, error) {
	return s.load(ctx, s.client)
}

// Save overwrites the document unconditionally.
func (s *RedisDatasetStore) Save(ctx context.Context, dataset *models.Dataset) error {
	payload, err := EncodeDataset(dataset)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Update applies fn inside an optimistic transaction, retrying when another
// writer changed the key in between.
func (s *RedisDatasetStore) Update(ctx context.Context, fn func(*models.Dataset) error) error {
	txf := func(tx *redis.Tx) error {
		dataset, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(dataset); err != nil {
			return err
		}
		payload, err := EncodeDataset(dataset)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.logger.Debug("dataset update conflict, retrying", zap.Int("attempt", attempt))
	}
	return ErrConcurrentUpdate
}

func (s *RedisDatasetStore) load(ctx context.Context, cmd redis.Cmdable) (*models.Dataset, error) {
	raw, err := cmd.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewDataset(), nil
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	dataset, err := DecodeDataset(raw)
	if err != nil {
		s.logger.Warn("stored dataset unparsable, starting empty", zap.String("key", s.key), zap.Error(err))
		return models.NewDataset(), nil
	}
	return dataset, nil
}

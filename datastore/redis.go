package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chainbound/bolt-relay/common"
	"github.com/redis/go-redis/v9"
)

var (
	redisPrefix = "bolt-relay"

	// Constraints are only useful until their slot has been proposed, keep three epochs.
	expiryConstraints = 3 * 32 * 12 * time.Second
)

type RedisCache struct {
	client *redis.Client

	prefixConstraints string
	expiry            time.Duration
}

func connectRedis(redisURI string) (*redis.Client, error) {
	// Handle both URIs and full URLs, assume unencrypted connections
	if !strings.HasPrefix(redisURI, "redis://") && !strings.HasPrefix(redisURI, "rediss://") {
		redisURI = "redis://" + redisURI
	}

	redisOpts, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return redisClient, nil
}

// NewRedisCache connects to redisURI and returns a constraints cache whose keys
// start with prefix.
func NewRedisCache(prefix, redisURI string) (*RedisCache, error) {
	client, err := connectRedis(redisURI)
	if err != nil {
		return nil, err
	}

	return &RedisCache{
		client:            client,
		prefixConstraints: fmt.Sprintf("%s/%s:constraints", redisPrefix, prefix),
		expiry:            expiryConstraints,
	}, nil
}

func (r *RedisCache) keyConstraints(slot uint64) string {
	return fmt.Sprintf("%s:%d", r.prefixConstraints, slot)
}

// SaveConstraints appends the batch to the list of the slot and refreshes its expiry.
func (r *RedisCache) SaveConstraints(ctx context.Context, slot uint64, constraints *common.ConstraintsWithProofData) error {
	if constraints == nil {
		return ErrNilConstraints
	}

	value, err := json.Marshal(constraints)
	if err != nil {
		return fmt.Errorf("could not marshal constraints: %w", err)
	}

	key := r.keyConstraints(slot)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, value)
	pipe.Expire(ctx, key, r.expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("could not save constraints for slot %d: %w", slot, err)
	}
	return nil
}

// GetConstraints returns the batches saved for the slot, in submission order.
func (r *RedisCache) GetConstraints(ctx context.Context, slot uint64) ([]*common.ConstraintsWithProofData, error) {
	values, err := r.client.LRange(ctx, r.keyConstraints(slot), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("could not get constraints for slot %d: %w", slot, err)
	}

	constraints := make([]*common.ConstraintsWithProofData, 0, len(values))
	for _, value := range values {
		c := new(common.ConstraintsWithProofData)
		if err := json.Unmarshal([]byte(value), c); err != nil {
			return nil, fmt.Errorf("could not unmarshal constraints for slot %d: %w", slot, err)
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

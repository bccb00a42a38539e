package dictionary

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the sorted set holding term weights.
const DefaultRedisKey = "wordtree:terms"

const seedBatchSize = 1000

// RedisStore keeps term weights in a Redis sorted set, member = term and
// score = weight. It seeds the engines at startup and records learned deltas
// so rankings survive restarts.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, key string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Debugf("Connected to redis at %s, key %s", addr, key)
	return NewRedisStore(rdb, key), nil
}

// Key returns the sorted set key.
func (r *RedisStore) Key() string {
	return r.key
}

// Load reads every member of the sorted set. Scores are truncated to
// integers; negative scores load as zero.
func (r *RedisStore) Load(ctx context.Context) ([]Entry, error) {
	zs, err := r.rdb.ZRangeWithScores(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", r.key, err)
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		term, ok := z.Member.(string)
		if !ok || term == "" {
			continue
		}
		entries = append(entries, Entry{Term: term, Weight: scoreToWeight(z.Score)})
	}
	return entries, nil
}

// Seed writes entries, overwriting existing scores.
func (r *RedisStore) Seed(ctx context.Context, entries []Entry) error {
	for start := 0; start < len(entries); start += seedBatchSize {
		end := min(start+seedBatchSize, len(entries))

		members := make([]redis.Z, 0, end-start)
		for _, e := range entries[start:end] {
			members = append(members, redis.Z{Score: float64(e.Weight), Member: e.Term})
		}
		if err := r.rdb.ZAdd(ctx, r.key, members...).Err(); err != nil {
			return fmt.Errorf("seeding %s: %w", r.key, err)
		}
	}
	return nil
}

// Incr moves the score of term by delta, clamping at zero, and returns the new weight.
func (r *RedisStore) Incr(ctx context.Context, term string, delta int) (int, error) {
	score, err := r.rdb.ZIncrBy(ctx, r.key, float64(delta), term).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing %q in %s: %w", term, r.key, err)
	}
	if score < 0 {
		if err := r.rdb.ZAdd(ctx, r.key, redis.Z{Score: 0, Member: term}).Err(); err != nil {
			return 0, fmt.Errorf("clamping %q in %s: %w", term, r.key, err)
		}
		score = 0
	}
	return scoreToWeight(score), nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func scoreToWeight(score float64) int {
	switch {
	case score <= 0:
		return 0
	case score >= math.MaxInt:
		return math.MaxInt
	}
	return int(score)
}

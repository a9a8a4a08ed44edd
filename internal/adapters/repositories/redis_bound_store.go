package repositories

import (
	"context"
	"dropoff-route-service/internal/domain"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "dropoff:bounds"

// Compare-and-update of one bound hash, mirroring domain.ShouldReplace.
// KEYS: bound hash, index set. ARGV: cost, optimal, updated_at, run_id,
// tolerance, instance.
var upsertBoundScript = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'cost', 'optimal')
local cost = tonumber(ARGV[1])
local optimal = ARGV[2] == '1'
local tol = tonumber(ARGV[5])
local replace = false
if not cur[1] then
	replace = true
else
	local old = tonumber(cur[1])
	local oldOptimal = cur[2] == '1'
	if cost < old - tol * math.max(1, math.abs(old)) then
		replace = true
	elseif optimal and not oldOptimal and math.abs(cost - old) <= tol * math.max(1, math.abs(cost), math.abs(old)) then
		replace = true
	end
end
if not replace then
	return 0
end
redis.call('HSET', KEYS[1], 'cost', ARGV[1], 'optimal', ARGV[2], 'updated_at', ARGV[3], 'run_id', ARGV[4])
redis.call('SADD', KEYS[2], ARGV[6])
return 1
`)

var markSuboptimalScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HSET', KEYS[1], 'optimal', '0')
end
return 0
`)

// Redis-backed implementation of the BoundStore port, shared between
// machines. Each bound is a hash; an index set lists instance names.
type RedisBoundStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisBoundStore(rdb *redis.Client, prefix string) *RedisBoundStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBoundStore{rdb: rdb, prefix: prefix}
}

// OpenRedisBoundStore connects using a redis:// URL.
func OpenRedisBoundStore(ctx context.Context, url, prefix string) (*RedisBoundStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("open redis bound store: parse url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open redis bound store: ping: %w", err)
	}
	return NewRedisBoundStore(rdb, prefix), nil
}

func (s *RedisBoundStore) key(instance string) string { return s.prefix + ":" + instance }
func (s *RedisBoundStore) indexKey() string           { return s.prefix + ":index" }

func (s *RedisBoundStore) Get(ctx context.Context, instance string) (*domain.Bound, error) {
	if s.rdb == nil {
		return nil, errors.New("redis bound store: client is nil")
	}

	vals, err := s.rdb.HGetAll(ctx, s.key(instance)).Result()
	if err != nil {
		return nil, fmt.Errorf("get bound %s: %w", instance, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	b, err := parseRedisBound(instance, vals)
	if err != nil {
		return nil, fmt.Errorf("get bound %s: %w", instance, err)
	}
	return &b, nil
}

func (s *RedisBoundStore) Upsert(ctx context.Context, b domain.Bound) (bool, error) {
	if s.rdb == nil {
		return false, errors.New("redis bound store: client is nil")
	}
	if b.Instance == "" {
		return false, errors.New("upsert bound: instance must not be empty")
	}

	optimal := "0"
	if b.Optimal {
		optimal = "1"
	}
	n, err := upsertBoundScript.Run(ctx, s.rdb,
		[]string{s.key(b.Instance), s.indexKey()},
		strconv.FormatFloat(b.Cost, 'g', -1, 64),
		optimal,
		updatedAt(b).Format(time.RFC3339Nano),
		b.RunID,
		strconv.FormatFloat(domain.CostTolerance, 'g', -1, 64),
		b.Instance,
	).Int()
	if err != nil {
		return false, fmt.Errorf("upsert bound %s: %w", b.Instance, err)
	}
	return n == 1, nil
}

func (s *RedisBoundStore) MarkSuboptimal(ctx context.Context, instance string) error {
	if s.rdb == nil {
		return errors.New("redis bound store: client is nil")
	}

	if err := markSuboptimalScript.Run(ctx, s.rdb, []string{s.key(instance)}).Err(); err != nil {
		return fmt.Errorf("mark suboptimal %s: %w", instance, err)
	}
	return nil
}

func (s *RedisBoundStore) List(ctx context.Context) ([]domain.Bound, error) {
	if s.rdb == nil {
		return nil, errors.New("redis bound store: client is nil")
	}

	names, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list bounds: read index: %w", err)
	}
	sort.Strings(names)

	out := make([]domain.Bound, 0, len(names))
	for _, name := range names {
		b, err := s.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("list bounds: %w", err)
		}
		if b != nil {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *RedisBoundStore) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func parseRedisBound(instance string, vals map[string]string) (domain.Bound, error) {
	b := domain.Bound{Instance: instance, RunID: vals["run_id"], Optimal: vals["optimal"] == "1"}

	cost, err := strconv.ParseFloat(vals["cost"], 64)
	if err != nil {
		return b, fmt.Errorf("parse cost %q: %w", vals["cost"], err)
	}
	b.Cost = cost

	if ts := vals["updated_at"]; ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return b, fmt.Errorf("parse updated_at %q: %w", ts, err)
		}
		b.UpdatedAt = t
	}
	return b, nil
}

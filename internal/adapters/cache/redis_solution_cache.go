package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/logger"
	"vrp-solution-service/internal/platform/obs"
	"vrp-solution-service/internal/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "vrp:solution:"

// Entry states kept in the "s" hash field.
const (
	stateActual    = "actual"
	stateTombstone = "tombstone"
)

// unknownVersion pins a tombstone when the store state could not be read,
// so no older entry can land until the key expires.
const unknownVersion = math.MaxInt64

// casEntry writes a versioned entry only if it is newer than the cached one.
// At equal versions only a tombstone may replace the entry, since an obsolete
// mark does not bump the version.
//
// KEYS[1] key; ARGV version, state, payload, ttl in ms (0 = no expiry).
var casEntry = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur then
	local have = tonumber(cur)
	local want = tonumber(ARGV[1])
	if want < have then
		return 0
	end
	if want == have and ARGV[2] ~= 'tombstone' then
		return 0
	end
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 's', ARGV[2], 'p', ARGV[3])
if tonumber(ARGV[4]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return 1
`)

// RedisSolutionCache is a read-through cache of ACTUAL payloads in front of
// another SolutionStore.
//
// Entries are hashes of {version, state, payload}. After every write the
// decorator re-reads the record from the wrapped store and publishes it with a
// compare-and-set on the version, so a slow writer can never replace a newer
// entry. Obsolete records leave a tombstone; a tombstone or a missing key sends
// the call to the wrapped store. Redis errors never fail a call.
type RedisSolutionCache struct {
	rdb  *redis.Client
	next ports.SolutionStore
	ttl  time.Duration
}

var _ ports.SolutionStore = (*RedisSolutionCache)(nil)

func NewRedisSolutionCache(rdb *redis.Client, next ports.SolutionStore, ttl time.Duration) *RedisSolutionCache {
	return &RedisSolutionCache{rdb: rdb, next: next, ttl: ttl}
}

func key(schemaID int64) string {
	return keyPrefix + strconv.FormatInt(schemaID, 10)
}

// lookup returns the cached ACTUAL payload, if any.
func (c *RedisSolutionCache) lookup(ctx context.Context, schemaID int64) ([]byte, bool) {
	vals, err := c.rdb.HMGet(ctx, key(schemaID), "s", "p").Result()
	if err != nil {
		obs.CacheLookups.WithLabelValues("error").Inc()
		c.warn(ctx, "hmget", schemaID, err)
		return nil, false
	}

	state, _ := vals[0].(string)
	payload, _ := vals[1].(string)
	if state != stateActual {
		obs.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	obs.CacheLookups.WithLabelValues("hit").Inc()
	return []byte(payload), true
}

func (c *RedisSolutionCache) HasActualSolution(ctx context.Context, schemaID int64) (bool, error) {
	if _, ok := c.lookup(ctx, schemaID); ok {
		return true, nil
	}
	return c.next.HasActualSolution(ctx, schemaID)
}

func (c *RedisSolutionCache) GetSolution(ctx context.Context, schemaID int64) (_ []byte, err error) {
	defer obs.Time(ctx, "cache.GetSolution")(&err)

	if payload, ok := c.lookup(ctx, schemaID); ok {
		return payload, nil
	}

	// the record carries the version the entry is published under
	rec, err := c.next.SolutionRecord(ctx, schemaID)
	if err != nil {
		return nil, fmt.Errorf("get solution schema_id=%d: %w", schemaID, err)
	}
	c.publish(ctx, rec)

	if rec.Status != domain.StatusActual {
		return nil, fmt.Errorf("get solution schema_id=%d: solution is obsolete: %w", schemaID, domain.ErrNotFound)
	}
	return rec.Payload, nil
}

func (c *RedisSolutionCache) SetSolution(ctx context.Context, schemaID int64, payload []byte) error {
	err := c.next.SetSolution(ctx, schemaID, payload)
	// refreshed on failure too, the wrapped store may have committed
	c.refresh(ctx, schemaID)
	return err
}

func (c *RedisSolutionCache) MarkSolutionObsolete(ctx context.Context, schemaID int64) error {
	err := c.next.MarkSolutionObsolete(ctx, schemaID)
	c.refresh(ctx, schemaID)
	return err
}

func (c *RedisSolutionCache) MarkSolutionActual(ctx context.Context, schemaID int64) error {
	err := c.next.MarkSolutionActual(ctx, schemaID)
	c.refresh(ctx, schemaID)
	return err
}

func (c *RedisSolutionCache) SolutionRecord(ctx context.Context, schemaID int64) (domain.SolutionRecord, error) {
	return c.next.SolutionRecord(ctx, schemaID)
}

// Ping reports only the wrapped store; a Redis outage degrades to cache misses.
func (c *RedisSolutionCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.warn(ctx, "ping", 0, err)
	}
	return c.next.Ping(ctx)
}

// refresh re-reads the record after a write and publishes what the store holds now.
func (c *RedisSolutionCache) refresh(ctx context.Context, schemaID int64) {
	// detached so a canceled request still leaves a consistent entry
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	rec, err := c.next.SolutionRecord(ctx, schemaID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return
	case err != nil:
		c.warn(ctx, "refresh", schemaID, err)
		c.write(ctx, schemaID, unknownVersion, stateTombstone, nil)
		return
	}
	c.publish(ctx, rec)
}

func (c *RedisSolutionCache) publish(ctx context.Context, rec domain.SolutionRecord) {
	if rec.Status == domain.StatusActual {
		c.write(ctx, rec.SchemaID, rec.Version, stateActual, rec.Payload)
		return
	}
	c.write(ctx, rec.SchemaID, rec.Version, stateTombstone, nil)
}

func (c *RedisSolutionCache) write(ctx context.Context, schemaID int64, version int64, state string, payload []byte) {
	err := casEntry.Run(ctx, c.rdb, []string{key(schemaID)},
		version, state, payload, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		c.warn(ctx, "publish", schemaID, err)
	}
}

func (c *RedisSolutionCache) warn(ctx context.Context, op string, schemaID int64, err error) {
	logger.L().Warn("redis solution cache",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.String("op", op),
		zap.Int64("schema_id", schemaID),
		zap.Error(err),
	)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis key prefixes for cached availability and its per-doctor generation
const (
	RedisAvailabilityKeyPrefix           = "availability:"
	RedisAvailabilityGenerationKeyPrefix = "availability-gen:"
)

// setIfGenerationScript writes a cache entry only while the doctor's
// generation still equals the one read before the slots were computed.
// A missing generation key counts as 0.
//
// KEYS[1] generation key, KEYS[2] entry key
// ARGV[1] expected generation, ARGV[2] payload, ARGV[3] TTL in milliseconds
var setIfGenerationScript = redis.NewScript(`
	local current = redis.call('GET', KEYS[1]) or '0'
	if current ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// AvailabilityCache stores computed free slots per doctor and day. Entries
// are advisory: the booking transaction never reads them.
//
// Every invalidation bumps the doctor's generation. Writers read Generation
// before loading appointments and pass it to Set, so a slot list computed
// before a booking committed is never written back after its invalidation.
type AvailabilityCache interface {
	Get(ctx context.Context, doctorID uuid.UUID, date string) ([]entity.Slot, bool, error)
	Generation(ctx context.Context, doctorID uuid.UUID) (int64, error)
	// Set stores slots unless the doctor was invalidated since generation was read.
	Set(ctx context.Context, doctorID uuid.UUID, date string, generation int64, slots []entity.Slot) error
	// SetMany writes a batch of entries in a single pipeline.
	SetMany(ctx context.Context, entries []AvailabilityEntry) error
	Invalidate(ctx context.Context, doctorID uuid.UUID, dates ...string) error
	// InvalidateDoctor drops every cached day of the doctor.
	InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) error
}

// AvailabilityEntry is one cached doctor day.
type AvailabilityEntry struct {
	DoctorID   uuid.UUID
	Date       string
	Generation int64
	Slots      []entity.Slot
}

type redisAvailabilityCache struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration
}

// NewAvailabilityCache returns a Redis-backed cache. A non-positive ttl
// disables caching: Get always misses and Set is a no-op.
func NewAvailabilityCache(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) AvailabilityCache {
	return &redisAvailabilityCache{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
	}
}

func availabilityKey(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("%s%s:%s", RedisAvailabilityKeyPrefix, doctorID, date)
}

func generationKey(doctorID uuid.UUID) string {
	return RedisAvailabilityGenerationKeyPrefix + doctorID.String()
}

func encodeSlots(slots []entity.Slot) ([]byte, error) {
	if slots == nil {
		slots = []entity.Slot{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encode availability: %w", err)
	}
	return raw, nil
}

func (c *redisAvailabilityCache) Get(ctx context.Context, doctorID uuid.UUID, date string) ([]entity.Slot, bool, error) {
	if c.ttl <= 0 {
		return nil, false, nil
	}

	raw, err := c.redisClient.Get(ctx, availabilityKey(doctorID, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get availability for doctor %s on %s: %w", doctorID, date, err)
	}

	var slots []entity.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, fmt.Errorf("decode availability for doctor %s on %s: %w", doctorID, date, err)
	}
	return slots, true, nil
}

func (c *redisAvailabilityCache) Generation(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	generation, err := c.redisClient.Get(ctx, generationKey(doctorID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get availability generation for doctor %s: %w", doctorID, err)
	}
	return generation, nil
}

func (c *redisAvailabilityCache) Set(ctx context.Context, doctorID uuid.UUID, date string, generation int64, slots []entity.Slot) error {
	if c.ttl <= 0 {
		return nil
	}

	raw, err := encodeSlots(slots)
	if err != nil {
		return err
	}

	keys := []string{generationKey(doctorID), availabilityKey(doctorID, date)}
	written, err := setIfGenerationScript.Run(ctx, c.redisClient, keys, generation, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("set availability for doctor %s on %s: %w", doctorID, date, err)
	}
	if written == 0 {
		c.log.Debugf("Skipped stale availability for doctor %s on %s (generation %d)", doctorID, date, generation)
		return nil
	}

	c.log.Debugf("Cached %d slots for doctor %s on %s (TTL=%v)", len(slots), doctorID, date, c.ttl)
	return nil
}

func (c *redisAvailabilityCache) SetMany(ctx context.Context, entries []AvailabilityEntry) error {
	if c.ttl <= 0 || len(entries) == 0 {
		return nil
	}

	// Load once so the pipeline can use EVALSHA.
	if err := setIfGenerationScript.Load(ctx, c.redisClient).Err(); err != nil {
		return fmt.Errorf("load availability script: %w", err)
	}

	pipe := c.redisClient.Pipeline()
	for _, entry := range entries {
		raw, err := encodeSlots(entry.Slots)
		if err != nil {
			return err
		}
		keys := []string{generationKey(entry.DoctorID), availabilityKey(entry.DoctorID, entry.Date)}
		setIfGenerationScript.EvalSha(ctx, pipe, keys, entry.Generation, raw, c.ttl.Milliseconds())
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline availability batch of %d: %w", len(entries), err)
	}
	return nil
}

func (c *redisAvailabilityCache) Invalidate(ctx context.Context, doctorID uuid.UUID, dates ...string) error {
	if len(dates) == 0 {
		return nil
	}

	keys := make([]string, 0, len(dates))
	for _, date := range dates {
		keys = append(keys, availabilityKey(doctorID, date))
	}

	pipe := c.redisClient.TxPipeline()
	pipe.Incr(ctx, generationKey(doctorID))
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate availability for doctor %s: %w", doctorID, err)
	}
	return nil
}

func (c *redisAvailabilityCache) InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) error {
	// Bump first so in-flight readers cannot repopulate keys deleted below.
	if err := c.redisClient.Incr(ctx, generationKey(doctorID)).Err(); err != nil {
		return fmt.Errorf("bump availability generation for doctor %s: %w", doctorID, err)
	}

	pattern := fmt.Sprintf("%s%s:*", RedisAvailabilityKeyPrefix, doctorID)

	var keys []string
	iter := c.redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan availability keys for doctor %s: %w", doctorID, err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate availability for doctor %s: %w", doctorID, err)
	}

	c.log.Debugf("Invalidated %d cached availability days for doctor %s", len(keys), doctorID)
	return nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"donation-api/internal/database"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// IDGenerator allocates human-readable transaction identifiers. Each call
// allocates a value at most once.
type IDGenerator interface {
	Next(ctx context.Context) (string, error)
	// Seed makes sure every later value is greater than floor.
	Seed(ctx context.Context, floor int64) error
}

// FloorFunc reports the highest sequence value already in use.
type FloorFunc func(ctx context.Context) (int64, error)

// FormatTransactionID renders an identifier such as ETX-2025-000042.
func FormatTransactionID(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%04d-%06d", prefix, at.Year(), seq)
}

// SequenceFloor returns the highest sequence value already issued, taking the
// larger of the database counter and the stored transaction IDs.
func SequenceFloor(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	counter, err := database.CurrentSequenceValue(ctx, db, database.TransactionSequence)
	if err != nil {
		return 0, err
	}
	highest, err := database.HighestTransactionSequence(ctx, db, prefix)
	if err != nil {
		return 0, err
	}
	if highest > counter {
		return highest, nil
	}
	return counter, nil
}

// DatabaseFloor reads the sequence floor from db on demand.
func DatabaseFloor(db *gorm.DB, prefix string) FloorFunc {
	return func(ctx context.Context) (int64, error) {
		return SequenceFloor(ctx, db, prefix)
	}
}

// incrExistingScript increments the counter only if it exists, -1 otherwise.
var incrExistingScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('INCR', KEYS[1])
end
return -1
`)

// raiseScript lifts the counter to ARGV[1] unless it already holds more.
// With ARGV[2] == "1" it then increments and returns the new value.
var raiseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if current < floor then
	redis.call('SET', KEYS[1], floor)
end
if ARGV[2] == '1' then
	return redis.call('INCR', KEYS[1])
end
return 0
`)

// RedisSequence allocates identifiers with INCR on a Redis counter. A missing
// counter (fresh Redis, or restarted without persistence) is re-seeded from
// floor before the first increment.
type RedisSequence struct {
	client *redis.Client
	prefix string
	floor  FloorFunc
	now    func() time.Time
}

// NewRedisSequence creates a Redis backed identifier sequence. floor may be nil.
func NewRedisSequence(client *redis.Client, prefix string, floor FloorFunc) *RedisSequence {
	return &RedisSequence{client: client, prefix: prefix, floor: floor, now: time.Now}
}

func (r *RedisSequence) key() string {
	return fmt.Sprintf("sequence:%s", database.TransactionSequence)
}

// Next implements IDGenerator.
func (r *RedisSequence) Next(ctx context.Context) (string, error) {
	seq, err := incrExistingScript.Run(ctx, r.client, []string{r.key()}).Int64()
	if err != nil {
		return "", fmt.Errorf("failed to increment sequence: %w", err)
	}

	if seq < 0 {
		var floor int64
		if r.floor != nil {
			if floor, err = r.floor(ctx); err != nil {
				return "", fmt.Errorf("failed to read sequence floor: %w", err)
			}
		}
		seq, err = raiseScript.Run(ctx, r.client, []string{r.key()}, floor, "1").Int64()
		if err != nil {
			return "", fmt.Errorf("failed to seed sequence: %w", err)
		}
	}
	return FormatTransactionID(r.prefix, r.now().UTC(), seq), nil
}

// Seed implements IDGenerator.
func (r *RedisSequence) Seed(ctx context.Context, floor int64) error {
	if err := raiseScript.Run(ctx, r.client, []string{r.key()}, floor, "0").Err(); err != nil {
		return fmt.Errorf("failed to seed sequence: %w", err)
	}
	return nil
}

// DBSequence allocates identifiers from a counter row in the database
type DBSequence struct {
	db     *gorm.DB
	prefix string
	now    func() time.Time
}

// NewDBSequence creates a database backed identifier sequence
func NewDBSequence(db *gorm.DB, prefix string) *DBSequence {
	return &DBSequence{db: db, prefix: prefix, now: time.Now}
}

// Next implements IDGenerator.
func (d *DBSequence) Next(ctx context.Context) (string, error) {
	seq, err := database.NextSequenceValue(ctx, d.db, database.TransactionSequence)
	if err != nil {
		return "", fmt.Errorf("failed to increment sequence: %w", err)
	}
	return FormatTransactionID(d.prefix, d.now().UTC(), seq), nil
}

// Seed implements IDGenerator.
func (d *DBSequence) Seed(ctx context.Context, floor int64) error {
	if err := database.RaiseSequenceValue(ctx, d.db, database.TransactionSequence, floor); err != nil {
		return fmt.Errorf("failed to seed sequence: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"donation-api/internal/models"
	"donation-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// CachedDirectory is a read-through Redis cache in front of a Directory.
// Cache failures are logged and fall back to the underlying directory.
type CachedDirectory struct {
	next   Directory
	client *redis.Client
	ttl    time.Duration
}

// NewCachedDirectory creates a cached directory
func NewCachedDirectory(next Directory, client *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, client: client, ttl: ttl}
}

// ResolveSchool implements Directory.
func (c *CachedDirectory) ResolveSchool(ctx context.Context, id uint) (*models.School, error) {
	var school models.School
	if c.get(ctx, cacheKey("school", id), &school) {
		return &school, nil
	}
	found, err := c.next.ResolveSchool(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, cacheKey("school", id), found)
	return found, nil
}

// ResolveGovernBody implements Directory.
func (c *CachedDirectory) ResolveGovernBody(ctx context.Context, id uint) (*models.GovernBody, error) {
	var body models.GovernBody
	if c.get(ctx, cacheKey("govern_body", id), &body) {
		return &body, nil
	}
	found, err := c.next.ResolveGovernBody(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, cacheKey("govern_body", id), found)
	return found, nil
}

// ResolveEquipment implements Directory.
func (c *CachedDirectory) ResolveEquipment(ctx context.Context, id uint) (*models.Equipment, error) {
	var equipment models.Equipment
	if c.get(ctx, cacheKey("equipment", id), &equipment) {
		return &equipment, nil
	}
	found, err := c.next.ResolveEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, cacheKey("equipment", id), found)
	return found, nil
}

func cacheKey(entity string, id uint) string {
	return fmt.Sprintf("directory:%s:%d", entity, id)
}

func (c *CachedDirectory) get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warnf("Directory cache read failed - key: %s, error: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logging.Warnf("Directory cache entry corrupt - key: %s, error: %v", key, err)
		return false
	}
	return true
}

func (c *CachedDirectory) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Warnf("Directory cache write failed - key: %s, error: %v", key, err)
	}
}

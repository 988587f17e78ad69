package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// DeleteCacheByPrefix deletes every key matching prefix*. Used to
// invalidate all cached pages of a listing after a write.
func DeleteCacheByPrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	iter := rdb.Scan(ctx, 0, prefix+"*", 0).Iterator() // Scan matching keys
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err // Stop on the first delete failure
		}
	}
	return iter.Err()
}

// Denylist marks a JWT as logged out until it would have expired
func Denylist(ctx context.Context, rdb *redis.Client, token string, ttl time.Duration) error {
	return rdb.Set(ctx, "denylist:"+token, "1", ttl).Err() // Flag the raw token
}

// IsDenylisted reports whether a JWT has been logged out
func IsDenylisted(ctx context.Context, rdb *redis.Client, token string) (bool, error) {
	n, err := rdb.Exists(ctx, "denylist:"+token).Result() // Check the flag
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

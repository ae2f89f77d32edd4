package utils

import (
	"context"
	"log"
	"time"

	"reservo/config"

	"github.com/go-redis/redis/v8"
)

var (
	// ContextCacheClient backs the short-TTL conversation context cache.
	ContextCacheClient *redis.Client
	// ConfigCacheClient backs the long-TTL business configuration cache.
	ConfigCacheClient *redis.Client
)

// InitContextCache initializes the Redis client for conversation context caching.
func InitContextCache() {
	ContextCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisContextDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := ContextCacheClient.Ping(ctx).Result(); err != nil {
		log.Printf("Redis (context cache) unavailable, falling back to local cache: %v", err)
		ContextCacheClient = nil
	}
}

// GetContextCacheClient returns the conversation context cache client; nil
// means Redis is down and callers should use the local fallback.
func GetContextCacheClient() *redis.Client {
	return ContextCacheClient
}

// InitConfigCache initializes the Redis client for business config caching.
func InitConfigCache() {
	ConfigCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisConfigDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := ConfigCacheClient.Ping(ctx).Result(); err != nil {
		log.Printf("Redis (config cache) unavailable, falling back to local cache: %v", err)
		ConfigCacheClient = nil
	}
}

// GetConfigCacheClient returns the business config cache client.
func GetConfigCacheClient() *redis.Client {
	return ConfigCacheClient
}

// InitRedis initializes both cache clients.
func InitRedis() {
	InitContextCache()
	InitConfigCache()
}

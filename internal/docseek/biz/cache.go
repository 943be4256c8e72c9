package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docseek/internal/model"
	"github.com/kart-io/docseek/pkg/utils/json"
)

// QueryCacheConfig 查询缓存配置。
type QueryCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// QueryCache 查询结果缓存。
// 仅缓存不带历史对话的查询；键由租户与问题共同决定，
// 保证租户之间不会命中彼此的缓存。
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache 创建查询缓存实例。
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "docseek:query:",
		}
	}
	return &QueryCache{
		redis:  redis,
		config: config,
	}
}

// cacheKey 基于租户和问题生成缓存键。
func (c *QueryCache) cacheKey(tenantID, question string) string {
	hash := sha256.Sum256([]byte(tenantID + "\x00" + question))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 从缓存获取查询结果。未命中或缓存不可用时返回 nil。
func (c *QueryCache) Get(ctx context.Context, tenantID, question string) *model.QueryResult {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	key := c.cacheKey(tenantID, question)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("failed to get from cache", "error", err.Error(), "key", key)
		}
		return nil
	}

	var result model.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached result", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil
	}

	logger.Infow("query cache hit", "tenant_id", tenantID, "key", key)
	return &result
}

// Set 将查询结果写入缓存。写入失败只记录日志。
func (c *QueryCache) Set(ctx context.Context, tenantID, question string, result *model.QueryResult) {
	if !c.config.Enabled || c.redis == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal result for caching", "error", err.Error())
		return
	}

	key := c.cacheKey(tenantID, question)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", key)
	}
}

// Stats 获取缓存统计信息。
func (c *QueryCache) Stats(ctx context.Context) map[string]any {
	if !c.config.Enabled || c.redis == nil {
		return map[string]any{"enabled": false}
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("cache scan failed", "error", err.Error())
	}

	return map[string]any{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}
}

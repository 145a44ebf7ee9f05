package cache

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"adgp/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// PermissionCache 权限决策二级缓存
//
// 第一级为可选的Redis缓存，第二级为进程内TTL映射。读取时先查Redis，
// 未命中再查本地；写入时两级同时写入。Redis任何故障只记录日志并降级为
// 仅本地缓存，绝不影响权限检查本身。
//
// 缓存键格式：{level}:{tenant_id}:{user_id}:{resource_id}:{action}
type PermissionCache struct {
	ttl    time.Duration
	prefix string

	mu    sync.RWMutex
	local map[string]localEntry

	redis *redis.Client // 可为nil（未启用Redis二级缓存）
}

type localEntry struct {
	value      []byte
	insertedAt time.Time
}

// NewPermissionCache 创建权限缓存
//
// redisClient 为nil时只使用本地缓存。
func NewPermissionCache(ttl time.Duration, redisClient *redis.Client, prefix string) *PermissionCache {
	if prefix == "" {
		prefix = "adgp:perm"
	}
	return &PermissionCache{
		ttl:    ttl,
		prefix: prefix,
		local:  make(map[string]localEntry),
		redis:  redisClient,
	}
}

// Get 查询缓存，返回序列化的决策结果
//
// 对nil接收者安全（缓存整体禁用时直接视为未命中）。
func (c *PermissionCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	// 先查Redis
	if c.redis != nil {
		ctx := context.Background()
		data, err := c.redis.Get(ctx, c.redisKey(key)).Bytes()
		if err == nil {
			return data, true
		}
		if err != redis.Nil {
			logger.GetLogger().Warnf("权限缓存Redis读取失败，降级为本地缓存: %v", err)
		}
	}

	// 再查本地缓存
	c.mu.RLock()
	entry, ok := c.local[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	// 惰性过期：过期条目在访问时删除
	if time.Since(entry.insertedAt) >= c.ttl {
		c.mu.Lock()
		// 二次检查，避免删除并发写入的新条目
		if cur, ok := c.local[key]; ok && time.Since(cur.insertedAt) >= c.ttl {
			delete(c.local, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set 写入缓存（两级同时写入）
func (c *PermissionCache) Set(key string, value []byte) {
	if c == nil {
		return
	}

	if c.redis != nil {
		ctx := context.Background()
		if err := c.redis.Set(ctx, c.redisKey(key), value, c.ttl).Err(); err != nil {
			logger.GetLogger().Warnf("权限缓存Redis写入失败: %v", err)
		}
	}

	c.mu.Lock()
	c.local[key] = localEntry{value: value, insertedAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate 按glob模式失效缓存，"*"清空全部
func (c *PermissionCache) Invalidate(pattern string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if pattern == "*" {
		c.local = make(map[string]localEntry)
	} else {
		for key := range c.local {
			if matched, err := path.Match(pattern, key); err == nil && matched {
				delete(c.local, key)
			}
		}
	}
	c.mu.Unlock()

	if c.redis != nil {
		c.invalidateRedis(pattern)
	}
}

// invalidateRedis 按模式删除Redis中的缓存键
func (c *PermissionCache) invalidateRedis(pattern string) {
	ctx := context.Background()
	match := c.redisKey(pattern)

	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			logger.GetLogger().Warnf("权限缓存Redis失效扫描失败: %v", err)
			return
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				logger.GetLogger().Warnf("权限缓存Redis删除失败: %v", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
}

// Size 当前本地缓存条目数（含未被访问到的过期条目）
func (c *PermissionCache) Size() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.local)
}

func (c *PermissionCache) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

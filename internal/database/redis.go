package database

import (
	"adgp/pkg/config"
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

var (
	redisClientInstance *redis.Client
	redisClientOnce     sync.Once
)

// GetRedisClient 获取Redis客户端的单例实例
func GetRedisClient() *redis.Client {
	redisClientOnce.Do(func() {
		cfg := config.GetConfig()
		redisClientInstance = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	})
	return redisClientInstance
}

// PingRedis 测试Redis连接
func PingRedis() error {
	return GetRedisClient().Ping(context.Background()).Err()
}

// CloseRedis 关闭Redis连接
func CloseRedis() error {
	if redisClientInstance != nil {
		return redisClientInstance.Close()
	}
	return nil
}

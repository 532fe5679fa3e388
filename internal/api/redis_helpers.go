package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 登录保护使用的 Redis 键。account 为规范化后的小写邮箱。
func loginRateKey(clientIP, account string, now time.Time) string {
	return "rate:login:" + clientIP + ":" + account + ":" + now.UTC().Format("2006010215")
}

func loginFailKey(account string) string { return "lock:login:fail:" + account }

func loginLockKey(account string) string { return "lock:login:" + account }

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// incrWithTTL 递增计数器并保证它带有过期时间。
// 首次递增时设置 TTL；若之前的 Expire 失败导致键永不过期，则在后续调用时补上。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
		return count, nil
	}
	// TTL -1 表示键存在但没有过期时间
	if remaining, err := client.TTL(ctx, key).Result(); err == nil && remaining == -1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

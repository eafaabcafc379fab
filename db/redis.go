package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

const UpdateCooldownKey = "macrodash:update:cooldown"

func ConnectRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		fmt.Println("REDIS_URL environment variable is not set")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	Redis = redis.NewClient(opt)

	_, err = Redis.Ping(Ctx).Result()
	return err
}

func CloseRedis() {
	if Redis != nil {
		Redis.Close()
	}
}

// RedisCooldown gates manual update triggers across API replicas using a
// SetNX key with a TTL.
type RedisCooldown struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisCooldown(client *redis.Client, ttl time.Duration) *RedisCooldown {
	return &RedisCooldown{client: client, key: UpdateCooldownKey, ttl: ttl}
}

// TryAcquire reports whether a manual update may start now. When the
// cooldown is still active it returns the remaining wait time.
func (c *RedisCooldown) TryAcquire() (bool, time.Duration) {
	ok, err := c.client.SetNX(Ctx, c.key, time.Now().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		// Redis being down should not block manual updates.
		return true, 0
	}
	if ok {
		return true, 0
	}

	remaining, err := c.client.TTL(Ctx, c.key).Result()
	if err != nil || remaining < 0 {
		return false, c.ttl
	}
	return false, remaining
}

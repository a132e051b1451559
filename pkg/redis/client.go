package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options describes the Redis connection used for the usage cache and rate limiting
type Options struct {
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

func (o Options) toClientOptions() *redis.Options {
	pool := o.PoolSize
	if pool <= 0 {
		pool = 10
	}
	dial := o.DialTimeout
	if dial <= 0 {
		dial = 3 * time.Second
	}
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", o.Host, o.Port),
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     pool,
		DialTimeout:  dial,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// NewClient connects and pings. Callers treat an error as "run without Redis".
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(opts.toClientOptions())

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

// Package redis owns the one shared connection to the cache backing
// both the session store and the payment ledger.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// pingTimeout bounds the startup reachability check.
const pingTimeout = 2 * time.Second

type Client struct {
	*goredis.Client
}

// New connects and verifies the server is reachable before anything
// starts depending on it.
func New(addr, password string) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{Client: client}, nil
}

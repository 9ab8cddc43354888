package redis

import "time"

// Config holds Redis connection settings.
type Config struct {
	// Addr is the Redis server address in host:port form.
	Addr string

	// Password for AUTH. Empty disables authentication.
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix is prepended to every key the store writes, so several
	// deployments can share one Redis instance.
	KeyPrefix string

	// PoolSize is the maximum number of socket connections (default: 10).
	PoolSize int

	// DialTimeout bounds connection establishment and the startup ping
	// (default: 5s).
	DialTimeout time.Duration
}

func (c *Config) defaults() {
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

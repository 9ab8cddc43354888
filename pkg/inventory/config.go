package inventory

import "time"

// Config holds inventory service settings.
type Config struct {
	// OperationTimeout bounds every store interaction made on behalf of a
	// single call (default: 5s).
	OperationTimeout time.Duration

	// LowStockThreshold is the quantity below which an item counts as low
	// stock in Stats (default: 10).
	LowStockThreshold int
}

func (c *Config) defaults() {
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 5 * time.Second
	}
	if c.LowStockThreshold <= 0 {
		c.LowStockThreshold = 10
	}
}

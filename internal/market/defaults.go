package market

import "time"

const (
	defaultInitialRetryDelay = time.Second
	defaultMaxRetryDelay     = 30 * time.Second
)

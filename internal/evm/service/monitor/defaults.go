package monitor

import "time"

const (
	defaultHydrationWorkers = 16

	headBufferSize = 16

	resubscribeDelay    = 1 * time.Second
	maxResubscribeDelay = 30 * time.Second

	writerQueueCapacity   = 64
	writerShutdownTimeout = 30 * time.Second
)

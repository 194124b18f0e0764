package events

import "time"

// waitTimeout/waitTick bound require.Eventually polls against the
// dispatcher's background worker goroutines throughout this package's
// tests.
const (
	waitTimeout = 2 * time.Second
	waitTick    = 5 * time.Millisecond
)

package retry

import "github.com/btcsuite/btclog"

// log is this package's logging backend (spec.md's ambient logging stack,
// mirrored from sweep/txgenerator.go and htlcswitch/switch.go's use of
// btclog). It is disabled until a host application calls UseLogger.
var log = btclog.Disabled

// UseLogger sets the logging backend used by the retry package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

package client

import "github.com/btcsuite/btclog"

// log is the root package's logging backend, following the same
// UseLogger(btclog.Logger) convention every I/O-bearing subsystem package
// exposes (nodeclient, nodepool, transfer, retry, events). A host
// application typically wires all of them to one backend at once via
// UseLogger here plus the per-package setters.
var log = btclog.Disabled

// UseLogger sets the logging backend for the root package's own log
// statements (Builder validation, Client lifecycle).
func UseLogger(logger btclog.Logger) {
	log = logger
}

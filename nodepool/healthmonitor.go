package nodepool

import (
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/healthcheck"
)

// errNoSyncedNodes is the liveness failure the pool-wide health observation
// reports; distinct from iotaerr.KindNoSyncedNodes, which is the error a
// caller sees from Select/QuorumBytes.
var errNoSyncedNodes = errors.New("synced node set is empty")

// newSyncedSetObservation builds a healthcheck.Observation that fails
// whenever the synced set is empty. Unlike the per-node monitor loop in
// pool.go, which only ever blacklists or restores individual nodes, this
// gives an operator a single pool-wide liveness signal with its own
// retry/backoff policy, the same role server.go's chain-backend healthcheck
// observation plays alongside the wallet's own per-request error handling.
func (p *Pool) newSyncedSetObservation() *healthcheck.Observation {
	return healthcheck.NewObservation(
		"synced-node-set",
		func() error {
			if len(p.Synced()) == 0 {
				return errNoSyncedNodes
			}
			return nil
		},
		p.cfg.NodeSyncInterval,
		p.cfg.GetInfoTimeout,
		time.Second,
		3,
	)
}

// startHealthMonitor wires cfg.OnUnhealthy into a healthcheck.Monitor, if
// configured. A nil OnUnhealthy leaves the pool's own per-node monitor as
// the only liveness signal.
func (p *Pool) startHealthMonitor() {
	if p.cfg.OnUnhealthy == nil {
		return
	}

	p.hcMonitor = healthcheck.NewMonitor(&healthcheck.Config{
		Checks: []*healthcheck.Observation{p.newSyncedSetObservation()},
		Shutdown: func(format string, args ...interface{}) {
			p.cfg.OnUnhealthy(errNoSyncedNodes.Error())
			log.Warnf(format, args...)
		},
	})
	if err := p.hcMonitor.Start(); err != nil {
		log.Warnf("node pool: healthcheck monitor failed to start: %v", err)
		p.hcMonitor = nil
	}
}

func (p *Pool) stopHealthMonitor() {
	if p.hcMonitor != nil {
		p.hcMonitor.Stop()
	}
}

package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iota-go/client/codec"
	"github.com/iota-go/client/statestore"
)

// Config is the resolved configuration surface of spec.md §6, assembled by
// a Builder's With* options and validated by Build.
type Config struct {
	Network codec.Network

	Nodes        []string
	NodePoolURLs []string

	NodeSyncInterval time.Duration

	GetInfoTimeout      time.Duration
	GetHealthTimeout    time.Duration
	GetMilestoneTimeout time.Duration
	GetTipsTimeout      time.Duration

	PostMessageTimeout          time.Duration
	PostMessageRemotePoWTimeout time.Duration

	LocalPoW         bool
	TargetDifficulty int

	QuorumSize      int
	QuorumThreshold float64

	SubscriptionsEnabled bool

	// MQTTPort is the pool-wide default broker port a healthy node is
	// assumed to expose for subscriptions. MQTTPortOverrides takes
	// priority per node URL.
	MQTTPort          int
	MQTTPortOverrides map[string]int

	StateAdapter statestore.Adapter

	MetricsRegistry *prometheus.Registry

	// OnUnhealthy, if set, is invoked when the Node Pool's synced set has
	// been found empty by three checks in a row (one second apart).
	OnUnhealthy func(reason string)
}

// DefaultConfig returns spec.md §6.2's documented defaults for the given
// network.
func DefaultConfig(network codec.Network) Config {
	return Config{
		Network:                     network,
		NodeSyncInterval:            60 * time.Second,
		GetInfoTimeout:              2000 * time.Millisecond,
		GetHealthTimeout:            2000 * time.Millisecond,
		GetMilestoneTimeout:         2000 * time.Millisecond,
		GetTipsTimeout:              2000 * time.Millisecond,
		PostMessageTimeout:          2000 * time.Millisecond,
		PostMessageRemotePoWTimeout: 30000 * time.Millisecond,
		LocalPoW:                    true,
		TargetDifficulty:            14,
		MQTTPort:                    1883,
	}
}

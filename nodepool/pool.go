package nodepool

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/healthcheck"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodeclient"
)

// Pool owns every configured node's health state and hands out a synced
// node per call (spec.md §4.4). Its Start/Stop lifecycle and
// started/shutdown/wg/quit fields mirror server.go's own daemon lifecycle.
type Pool struct {
	started int32 // atomic
	shutdown int32 // atomic

	cfg Config

	clientFactory func(url string) *nodeclient.Client

	mu      sync.RWMutex
	nodes   map[string]*Node
	clients map[string]*nodeclient.Client

	tick    ticker.Ticker
	metrics *poolMetrics
	clk     clock.Clock

	hcMonitor *healthcheck.Monitor

	wg   sync.WaitGroup
	quit chan struct{}
}

// New builds a Pool over the given node URLs. clientFactory lets callers
// (and tests) control how *nodeclient.Client values are constructed per
// URL, e.g. to inject Tor/TLS DialOptions.
func New(urls []string, cfg Config, clientFactory func(url string) *nodeclient.Client, reg *prometheus.Registry) *Pool {
	if clientFactory == nil {
		clientFactory = func(url string) *nodeclient.Client {
			return nodeclient.NewClient(url, nodeclient.DefaultTimeouts())
		}
	}

	nodes := make(map[string]*Node, len(urls))
	clients := make(map[string]*nodeclient.Client, len(urls))
	for _, u := range urls {
		nodes[u] = &Node{URL: u, Health: HealthUnresponsive}
		clients[u] = clientFactory(u)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	return &Pool{
		cfg:           cfg,
		clientFactory: clientFactory,
		nodes:         nodes,
		clients:       clients,
		tick:          ticker.New(cfg.NodeSyncInterval),
		metrics:       newPoolMetrics(reg),
		clk:           clk,
		quit:          make(chan struct{}),
	}
}

// Start launches the background monitor goroutine, probing every node once
// immediately and then every NodeSyncInterval.
func (p *Pool) Start() error {
	if atomic.AddInt32(&p.started, 1) != 1 {
		return nil
	}

	log.Infof("node pool monitor starting, probing %d nodes every %s",
		len(p.nodes), p.cfg.NodeSyncInterval)

	p.probeAll()
	p.startHealthMonitor()

	p.tick.Start()
	p.wg.Add(1)
	go p.monitor()

	return nil
}

// Stop signals the monitor goroutine to exit and waits for it.
func (p *Pool) Stop() error {
	if atomic.AddInt32(&p.shutdown, 1) != 1 {
		return nil
	}

	close(p.quit)
	p.tick.Stop()
	p.wg.Wait()
	p.stopHealthMonitor()

	return nil
}

// monitor is the pool's only background goroutine (spec.md §4.4's
// invariant: "the monitor loop must not block user calls").
func (p *Pool) monitor() {
	defer p.wg.Done()

	for {
		select {
		case <-p.tick.Ticks():
			p.probeAll()
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) probeAll() {
	var wg sync.WaitGroup
	p.mu.RLock()
	urls := make([]string, 0, len(p.nodes))
	for u := range p.nodes {
		urls = append(urls, u)
	}
	p.mu.RUnlock()

	for _, u := range urls {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.probeOne(u)
		}()
	}
	wg.Wait()
}

func (p *Pool) probeOne(url string) {
	p.mu.RLock()
	client := p.clients[url]
	p.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.GetInfoTimeout)
	defer cancel()

	info, err := client.GetInfo(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	node, ok := p.nodes[url]
	if !ok {
		return
	}
	node.LastProbeAt = p.clk.Now()

	reason, healthy := p.evaluate(info, err)
	if healthy {
		if node.Health != HealthHealthy {
			log.Infof("node %s restored to synced set", url)
		}
		node.Health = HealthHealthy
		node.Reason = ""
		node.MQTTPort = p.resolveMQTTPort(url, info)
		node.RemotePoW = !p.cfg.LocalPoW
	} else {
		if node.Health == HealthHealthy {
			log.Warnf("node %s blacklisted: %s", url, reason)
		}
		node.Health = HealthBlacklisted
		node.Reason = reason
		p.metrics.probeFailures.Inc()
	}

	p.refreshGauges()
}

// evaluate applies spec.md §4.4's four network-reachable admission checks
// (the fifth, MQTT reachability, is applied separately by the events
// subsystem once a node is already in the synced set).
func (p *Pool) evaluate(info nodeclient.NodeInfo, err error) (reason string, healthy bool) {
	if err != nil {
		return err.Error(), false
	}
	if !info.IsHealthy {
		return "node reports unhealthy", false
	}
	if p.cfg.Network.String() != info.Network {
		return "network mismatch", false
	}
	if !p.cfg.LocalPoW {
		// The pool needs remote PoW; a node that can't do that for us
		// is useless for sends even though it's otherwise reachable.
		hasPoW := true
		for _, f := range info.Features {
			if f == "noRemotePoW" {
				hasPoW = false
			}
		}
		if !hasPoW {
			return "node lacks remote PoW capability", false
		}
	}
	return "", true
}

func (p *Pool) refreshGauges() {
	var synced, blacklisted int
	for _, n := range p.nodes {
		switch n.Health {
		case HealthHealthy:
			synced++
		case HealthBlacklisted, HealthUnresponsive:
			blacklisted++
		}
	}
	p.metrics.syncedNodes.Set(float64(synced))
	p.metrics.blacklistedNodes.Set(float64(blacklisted))
}

// Synced returns a consistent snapshot of every currently-healthy node.
func (p *Pool) Synced() []Node {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Node, 0, len(p.nodes))
	for _, n := range p.nodes {
		if n.Health == HealthHealthy {
			out = append(out, *n)
		}
	}
	return out
}

// Select picks a node uniformly at random from the synced set (spec.md
// §4.4's selection policy) and returns its Client.
func (p *Pool) Select() (*nodeclient.Client, error) {
	synced := p.Synced()
	if len(synced) == 0 {
		return nil, iotaerr.New(iotaerr.KindNoSyncedNodes, "no synced nodes available")
	}

	n := synced[rand.Intn(len(synced))]

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[n.URL], nil
}

// SelectExcluding picks a node uniformly at random from the synced set,
// skipping any URL present in excluded, and returns its Client and URL.
// It reports KindNoSyncedNodes once every synced node has been excluded.
func (p *Pool) SelectExcluding(excluded map[string]bool) (*nodeclient.Client, string, error) {
	synced := p.Synced()

	candidates := make([]Node, 0, len(synced))
	for _, n := range synced {
		if !excluded[n.URL] {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil, "", iotaerr.New(iotaerr.KindNoSyncedNodes, "no synced nodes available")
	}

	n := candidates[rand.Intn(len(candidates))]

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[n.URL], n.URL, nil
}

// Do selects a synced node and invokes fn against it, retrying against a
// different synced node on a retryable transport/timeout error up to
// len(Synced()) attempts total (spec.md §7: "Network errors on
// selection-time attempts are retried against another synced node up to
// |synced_set| attempts; persistent failure surfaces NoSyncedNodes or the
// last transport error."). A non-retryable error from fn is returned
// immediately without retrying.
func Do[T any](p *Pool, fn func(client *nodeclient.Client) (T, error)) (T, error) {
	var zero T

	attempts := len(p.Synced())
	if attempts == 0 {
		attempts = 1
	}

	excluded := make(map[string]bool, attempts)

	var lastErr error
	for i := 0; i < attempts; i++ {
		client, url, err := p.SelectExcluding(excluded)
		if err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := fn(client)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return zero, err
		}
		excluded[url] = true
	}
	return zero, lastErr
}

func isRetryable(err error) bool {
	return iotaerr.Is(err, iotaerr.KindTransport) || iotaerr.Is(err, iotaerr.KindTimeout)
}

// resolveMQTTPort determines a healthy node's MQTT broker port (spec.md
// §4.4 check 5, §4.7): an explicit per-node override wins, then a
// "mqtt:<port>" entry in NodeInfo.Features, then the pool-wide default.
// Zero means the node has no usable MQTT endpoint and events.pickNode will
// skip it.
func (p *Pool) resolveMQTTPort(url string, info nodeclient.NodeInfo) int {
	if port, ok := p.cfg.MQTTPortOverrides[url]; ok {
		return port
	}
	if port, ok := mqttPortFromFeatures(info.Features); ok {
		return port
	}
	return p.cfg.MQTTPort
}

func mqttPortFromFeatures(features []string) (int, bool) {
	const prefix = "mqtt:"
	for _, f := range features {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		port, err := strconv.Atoi(strings.TrimPrefix(f, prefix))
		if err == nil && port > 0 {
			return port, true
		}
	}
	return 0, false
}

// Package events implements the Subscription Multiplexer (spec.md §4.7,
// C7): a single MQTT session to one currently-synced node per pool, with
// per-topic callback routing, reconnect-with-backoff, and a dispatcher that
// never lets a slow callback stall the broker reader. Grounded on
// peer.go's goroutine-per-concern connection lifecycle and
// chainntfs/chainntfs.go's channel-based registration interface.
package events

import (
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/iota-go/client/iotaerr"
	"github.com/iota-go/client/nodepool"
)

// mqttClient is the subset of mqtt.Client the Multiplexer drives. Narrowing
// the dependency to an interface lets tests substitute a fake broker
// without a real MQTT server.
type mqttClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// dialFunc builds an mqttClient for the given node, installing
// onLost as the connection-lost handler so the Multiplexer can trigger its
// own reconnect-and-reselect logic (spec.md §4.7).
type dialFunc func(node nodepool.Node, onLost func(error)) (mqttClient, error)

// Config configures a Multiplexer's reconnect behavior.
type Config struct {
	// MaxBackoff caps the reconnect backoff interval (spec.md §4.7: capped
	// at 30s).
	MaxBackoff time.Duration

	// TorSOCKSAddr, if set, routes wss:// broker connections to .onion
	// hosts through a local Tor SOCKS5 proxy.
	TorSOCKSAddr string

	// ClientIDPrefix seeds the MQTT client id; a random suffix is appended
	// so multiple Multiplexers against the same broker don't collide.
	ClientIDPrefix string
}

// DefaultConfig returns spec.md §4.7's reconnect defaults.
func DefaultConfig() Config {
	return Config{MaxBackoff: 30 * time.Second, ClientIDPrefix: "iota-go-client"}
}

// Multiplexer owns one MQTT session at a time and routes every incoming
// broker message to the callbacks registered for its topic.
type Multiplexer struct {
	cfg  Config
	pool *nodepool.Pool
	dial dialFunc

	disp *dispatcher

	mu        sync.Mutex
	client    mqttClient
	lostCh    chan struct{}
	connected bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// New builds a Multiplexer that selects its broker node from pool.
func New(pool *nodepool.Pool, cfg Config) *Multiplexer {
	m := &Multiplexer{
		cfg:  cfg,
		pool: pool,
		disp: newDispatcher(),
		quit: make(chan struct{}),
	}
	m.dial = m.defaultDial
	return m
}

// Start launches the reconnect loop. It returns immediately; connection
// happens in the background.
func (m *Multiplexer) Start() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Stop tears down the current connection and background goroutines.
func (m *Multiplexer) Stop() {
	close(m.quit)
	m.mu.Lock()
	if m.client != nil {
		m.client.Disconnect(250)
	}
	m.mu.Unlock()
	m.wg.Wait()
	m.disp.close()
}

// Subscribe registers cb against topic (spec.md §4.7). Multiple
// subscriptions on the same topic share the underlying broker subscription
// and are invoked in registration order.
func (m *Multiplexer) Subscribe(topic string, cb Callback) error {
	if err := ValidateTopic(topic); err != nil {
		return err
	}

	first := m.disp.register(topic, cb)
	if !first {
		return nil
	}

	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil || !client.IsConnected() {
		// Subscription is recorded; it will be (re)issued once connected.
		return nil
	}
	return m.sendSubscribe(client, topic)
}

// Unsubscribe removes callbacks for topic (all topics if topic == "").
// Per spec.md §8, unsubscribing a topic with no prior subscriber is a
// no-op that returns success.
func (m *Multiplexer) Unsubscribe(topic string) error {
	emptied := m.disp.unregister(topic)
	if len(emptied) == 0 {
		return nil
	}

	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil || !client.IsConnected() {
		return nil
	}
	token := client.Unsubscribe(emptied...)
	token.Wait()
	if err := token.Error(); err != nil {
		return iotaerr.Wrap(iotaerr.KindBrokerUnreachable, err)
	}
	return nil
}

func (m *Multiplexer) sendSubscribe(client mqttClient, topic string) error {
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		m.onMessage(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return iotaerr.Wrap(iotaerr.KindBrokerUnreachable, err)
	}
	return nil
}

// onMessage decodes an incoming broker payload and enqueues it for
// dispatch. It must never block: this runs on paho's own reader goroutine.
func (m *Multiplexer) onMessage(topic string, payload []byte) {
	event, err := decodeEvent(topic, payload)
	if err != nil {
		log.Warnf("events: dropping malformed message on topic %s: %v", topic, err)
		return
	}
	m.disp.deliver(topic, event)
}

// reconnectLoop (re)establishes the broker connection with exponential
// backoff capped at cfg.MaxBackoff, re-issuing every active SUBSCRIBE
// before declaring itself healthy, and re-selecting a node via the pool
// when the current one can't be reached (spec.md §4.7).
func (m *Multiplexer) reconnectLoop() {
	defer m.wg.Done()

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = m.cfg.MaxBackoff
	b.MaxElapsedTime = 0

	for {
		select {
		case <-m.quit:
			return
		default:
		}

		node, err := m.pickNode()
		if err != nil {
			if !m.sleep(b.NextBackOff()) {
				return
			}
			continue
		}

		lost := make(chan struct{}, 1)
		client, err := m.dial(node, func(error) {
			select {
			case lost <- struct{}{}:
			default:
			}
		})
		if err != nil {
			log.Warnf("events: failed to connect to %s: %v", node.URL, err)
			if !m.sleep(b.NextBackOff()) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.client = client
		m.connected = true
		m.mu.Unlock()

		m.resubscribeAll(client)
		b.Reset()

		select {
		case <-lost:
		case <-m.quit:
			return
		}

		m.mu.Lock()
		m.connected = false
		m.mu.Unlock()
	}
}

func (m *Multiplexer) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-m.quit:
		return false
	}
}

func (m *Multiplexer) resubscribeAll(client mqttClient) {
	for _, topic := range m.disp.topics() {
		if err := m.sendSubscribe(client, topic); err != nil {
			log.Warnf("events: failed to resubscribe %s: %v", topic, err)
		}
	}
}

// pickNode chooses a synced node exposing an MQTT port (spec.md §4.4 check
// 5: MQTT reachability is part of a node's admission to the synced set once
// subscriptions are active).
func (m *Multiplexer) pickNode() (nodepool.Node, error) {
	synced := m.pool.Synced()
	var candidates []nodepool.Node
	for _, n := range synced {
		if n.MQTTPort > 0 {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nodepool.Node{}, iotaerr.New(iotaerr.KindNoSyncedNodes, "no synced node exposes an MQTT port")
	}
	return candidates[rand.Intn(len(candidates))], nil
}

func (m *Multiplexer) defaultDial(node nodepool.Node, onLost func(error)) (mqttClient, error) {
	broker := fmt.Sprintf("tcp://%s:%d", stripScheme(node.URL), node.MQTTPort)

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("%s-%d", m.cfg.ClientIDPrefix, rand.Int63())).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			onLost(err)
		})

	if m.cfg.TorSOCKSAddr != "" && usesOnion(stripScheme(node.URL)) {
		opts.SetCustomOpenConnectionFn(func(uri *url.URL, _ mqtt.ClientOptions) (net.Conn, error) {
			return torWebsocketDialer(m.cfg.TorSOCKSAddr)(uri, 10*time.Second)
		})
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, iotaerr.Wrap(iotaerr.KindBrokerUnreachable, err)
	}
	return client, nil
}

func stripScheme(url string) string {
	for _, scheme := range []string{"https://", "http://", "wss://", "ws://"} {
		if len(url) > len(scheme) && url[:len(scheme)] == scheme {
			return url[len(scheme):]
		}
	}
	return url
}

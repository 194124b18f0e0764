package events

import (
	"sync"

	"github.com/lightningnetwork/lnd/queue"
)

// Callback is invoked once per delivered event on a subscribed topic, in
// registration order (spec.md §4.7's delivery contract).
type Callback func(topic string, event interface{})

// job is one decoded broker message queued for delivery to a topic's
// callbacks.
type job struct {
	topic string
	event interface{}
}

// dispatcher fans inbound broker messages out to registered callbacks
// without ever blocking the MQTT reader goroutine (spec.md §4.7, §5). Each
// topic gets its own queue.ConcurrentQueue and worker goroutine, so
// callbacks for one topic never stall delivery on another, while delivery
// order within a single topic is preserved exactly as received. Grounded on
// peer.go's readHandler/writeHandler/queueHandler split: the reader here is
// the MQTT message callback, which only ever pushes onto a queue and never
// runs user code directly.
type dispatcher struct {
	mu      sync.Mutex
	callbacks map[string][]Callback
	queues    map[string]*queue.ConcurrentQueue
	quit      chan struct{}
	wg        sync.WaitGroup
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		callbacks: make(map[string][]Callback),
		queues:    make(map[string]*queue.ConcurrentQueue),
		quit:      make(chan struct{}),
	}
}

// register adds cb as a subscriber of topic, lazily starting that topic's
// worker the first time it gains a subscriber. It reports whether this is
// the first subscriber for topic (the caller must then issue an MQTT
// SUBSCRIBE).
func (d *dispatcher) register(topic string, cb Callback) (first bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	first = len(d.callbacks[topic]) == 0
	d.callbacks[topic] = append(d.callbacks[topic], cb)

	if _, ok := d.queues[topic]; !ok {
		q := queue.NewConcurrentQueue(64)
		q.Start()
		d.queues[topic] = q
		d.wg.Add(1)
		go d.worker(topic, q)
	}
	return first
}

// unregister drops every callback for topic (or every topic, if topic ==
// ""), reporting which topics lost their last subscriber (the caller must
// then issue an MQTT UNSUBSCRIBE for each).
func (d *dispatcher) unregister(topic string) (emptied []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if topic == "" {
		for t := range d.callbacks {
			emptied = append(emptied, t)
			d.stopQueue(t)
		}
		d.callbacks = make(map[string][]Callback)
		return emptied
	}

	if len(d.callbacks[topic]) == 0 {
		return nil
	}
	delete(d.callbacks, topic)
	d.stopQueue(topic)
	return []string{topic}
}

// stopQueue must be called with d.mu held.
func (d *dispatcher) stopQueue(topic string) {
	if q, ok := d.queues[topic]; ok {
		q.Stop()
		delete(d.queues, topic)
	}
}

// deliver enqueues a decoded event for topic. It never blocks on callback
// execution.
func (d *dispatcher) deliver(topic string, event interface{}) {
	d.mu.Lock()
	q, ok := d.queues[topic]
	d.mu.Unlock()
	if !ok {
		return
	}
	q.ChanIn() <- job{topic: topic, event: event}
}

func (d *dispatcher) worker(topic string, q *queue.ConcurrentQueue) {
	defer d.wg.Done()
	for {
		select {
		case raw, ok := <-q.ChanOut():
			if !ok {
				return
			}
			j := raw.(job)
			d.mu.Lock()
			cbs := make([]Callback, len(d.callbacks[j.topic]))
			copy(cbs, d.callbacks[j.topic])
			d.mu.Unlock()
			for _, cb := range cbs {
				cb(j.topic, j.event)
			}
		case <-d.quit:
			return
		}
	}
}

// close stops every worker goroutine and queue.
func (d *dispatcher) close() {
	close(d.quit)
	d.mu.Lock()
	for t := range d.queues {
		d.stopQueue(t)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// topics returns every topic with at least one active subscriber.
func (d *dispatcher) topics() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.callbacks))
	for t := range d.callbacks {
		out = append(out, t)
	}
	return out
}

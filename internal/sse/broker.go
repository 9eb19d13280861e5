// Package sse implements a Server-Sent Events broker that streams
// content-tree changes to connected dashboards.
package sse

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// nodeEventTypes maps service mutation kinds to wire event types.
var nodeEventTypes = map[string]string{
	"created":  "node.created",
	"updated":  "node.updated",
	"deleted":  "node.deleted",
	"uploaded": "node.uploaded",
}

// Broker fans node-change events out to subscribed SSE connections.
//
// All mutable state lives in brokerState, owned by a single goroutine;
// public methods submit closures to that goroutine over the ops channel,
// so the broker needs no locks.
type Broker struct {
	refreshMin time.Duration

	ops    chan func(*brokerState)
	stopCh chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

type brokerState struct {
	subs        map[chan []byte]struct{}
	lastRefresh time.Time
}

// broadcast frames the event and hands it to every subscriber. A
// subscriber whose buffer is full misses the event rather than stalling
// the loop.
func (st *brokerState) broadcast(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	frame := []byte("event: " + ev.Type + "\ndata: " + string(payload) + "\n\n")
	for ch := range st.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// NewBroker creates a new SSE broker. refreshThrottle bounds how often
// the coarse tree.updated refresh event is emitted.
func NewBroker(refreshThrottle time.Duration) *Broker {
	if refreshThrottle <= 0 {
		refreshThrottle = 2 * time.Second
	}
	b := &Broker{
		refreshMin: refreshThrottle,
		ops:        make(chan func(*brokerState), 256),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.done)
	st := &brokerState{subs: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stopCh:
			for ch := range st.subs {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(st)
		}
	}
}

// send submits an op to the loop. It reports false when the broker is
// closed, in which case the op never runs.
func (b *Broker) send(op func(*brokerState)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes all subscriber channels. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.done
}

// Subscribe registers a new subscriber and returns its channel. The
// channel is closed immediately if the broker is already shut down.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if !b.send(func(st *brokerState) { st.subs[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.send(func(st *brokerState) {
		if _, ok := st.subs[ch]; ok {
			delete(st.subs, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected subscribers.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.send(func(st *brokerState) { resp <- len(st.subs) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// Publish broadcasts an arbitrary event to all subscribers.
func (b *Broker) Publish(event Event) {
	b.send(func(st *brokerState) { st.broadcast(event) })
}

// PublishNodeEvent broadcasts a node change plus, at most once per
// throttle window, a coarse tree.updated refresh hint.
func (b *Broker) PublishNodeEvent(kind, id string) {
	typ, ok := nodeEventTypes[kind]
	if !ok {
		return
	}
	b.send(func(st *brokerState) {
		st.broadcast(Event{Type: typ, Data: map[string]string{"id": id}})
		if now := time.Now(); now.Sub(st.lastRefresh) >= b.refreshMin {
			st.lastRefresh = now
			st.broadcast(Event{Type: "tree.updated", Data: map[string]string{}})
		}
	})
}

// ServeHTTP streams events to one dashboard connection (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}

package fastview

import (
	"sync"

	channerics "github.com/niceyeti/channerics/channels"
)

// subscriberBuffer is how many batches a slow subscriber may fall behind
// before it starts missing them.
const subscriberBuffer = 8

// Hub fans one stream of element updates out to every connected page. Each
// batch is also kept as the latest known value of its elements, so a page
// that connects late starts from the current state.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan []EleUpdate]struct{}
	latest map[string]EleUpdate
	order  []string
}

func NewHub() *Hub {
	return &Hub{
		subs:   map[chan []EleUpdate]struct{}{},
		latest: map[string]EleUpdate{},
	}
}

// Run forwards source to the subscribers until source closes or done fires,
// then closes every subscriber channel.
func (hub *Hub) Run(done <-chan struct{}, source <-chan []EleUpdate) {
	defer hub.closeAll()
	for batch := range channerics.OrDone(done, source) {
		hub.publish(batch)
	}
}

// Subscribe returns a channel of batches starting with the current state,
// and a function to unsubscribe.
func (hub *Hub) Subscribe() (<-chan []EleUpdate, func()) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	ch := make(chan []EleUpdate, subscriberBuffer)
	if snapshot := hub.snapshot(); len(snapshot) > 0 {
		ch <- snapshot
	}
	hub.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			hub.mu.Lock()
			defer hub.mu.Unlock()
			if _, ok := hub.subs[ch]; ok {
				delete(hub.subs, ch)
				close(ch)
			}
		})
	}
}

func (hub *Hub) publish(batch []EleUpdate) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for _, update := range batch {
		if _, seen := hub.latest[update.EleId]; !seen {
			hub.order = append(hub.order, update.EleId)
		}
		hub.latest[update.EleId] = update
	}
	for ch := range hub.subs {
		select {
		case ch <- batch:
		default:
			// Full: this page is behind. It resyncs from the next batches,
			// which carry whole element states.
		}
	}
}

func (hub *Hub) snapshot() []EleUpdate {
	snapshot := make([]EleUpdate, 0, len(hub.order))
	for _, id := range hub.order {
		snapshot = append(snapshot, hub.latest[id])
	}
	return snapshot
}

func (hub *Hub) closeAll() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for ch := range hub.subs {
		delete(hub.subs, ch)
		close(ch)
	}
}

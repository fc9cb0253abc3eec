package sensor

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cobslink",
		Name:      "subscribers",
		Help:      "Number of active reading subscriptions.",
	})
	readingsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cobslink",
		Name:      "readings_published_total",
		Help:      "Sensor readings published to the hub.",
	}, []string{"kind"})
	readingsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cobslink",
		Name:      "readings_dropped_total",
		Help:      "Readings dropped because a subscriber was not keeping up.",
	})
)

// DefaultSubscriptionSize is the channel buffer used when Subscribe
// is given a non-positive size.
const DefaultSubscriptionSize = 16

// Hub fans readings out to subscriptions.
// The zero value is ready to use.
type Hub struct {
	subs   map[*Subscription]struct{}
	closed bool
	lock   sync.RWMutex
}

// Subscription receives readings of selected kinds from a Hub.
type Subscription struct {
	hub     *Hub
	ch      chan Reading
	kinds   map[Kind]bool
	dropped atomic.Uint64
	once    sync.Once
}

// Subscribe creates a subscription. With no kinds, all readings are
// delivered. A subscriber not keeping up loses readings instead of
// blocking the publisher.
func (h *Hub) Subscribe(size int, kinds ...Kind) *Subscription {
	if size <= 0 {
		size = DefaultSubscriptionSize
	}
	s := &Subscription{hub: h, ch: make(chan Reading, size)}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool)
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closed {
		close(s.ch)
		return s
	}
	if h.subs == nil {
		h.subs = make(map[*Subscription]struct{})
	}
	h.subs[s] = struct{}{}
	subscribers.Inc()
	return s
}

// Publish delivers readings to all interested subscriptions.
func (h *Hub) Publish(readings ...Reading) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	for _, r := range readings {
		readingsPublished.WithLabelValues(r.Kind.String()).Inc()
		for s := range h.subs {
			if s.kinds != nil && !s.kinds[r.Kind] {
				continue
			}
			select {
			case s.ch <- r:
			default:
				s.dropped.Add(1)
				readingsDropped.Inc()
			}
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.subs)
}

// Close closes all subscriptions. Later subscriptions are closed
// immediately.
func (h *Hub) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.closed = true
	for s := range h.subs {
		s.close()
	}
	return nil
}

// C is the channel delivering readings. It is closed when the
// subscription or the hub is closed.
func (s *Subscription) C() <-chan Reading {
	return s.ch
}

// Dropped returns the number of readings lost by this subscription.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops the subscription.
func (s *Subscription) Close() error {
	s.hub.lock.Lock()
	defer s.hub.lock.Unlock()
	if _, ok := s.hub.subs[s]; ok {
		s.close()
	}
	return nil
}

// must be called with hub locked.
func (s *Subscription) close() {
	s.once.Do(func() {
		delete(s.hub.subs, s)
		close(s.ch)
		subscribers.Dec()
	})
}

// Package bus is the in-process broadcast used by storefront components to
// tell each other that shared state changed.
//
// Delivery is synchronous, in registration order, to the subscribers present
// when Publish is called. Handlers run outside the channel lock, so they may
// publish or unsubscribe themselves.
package bus

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Channel is a typed broadcast channel.
type Channel[T any] struct {
	name string
	log  *zap.Logger

	mu   sync.Mutex
	subs []*subscriber[T]
}

type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe detaches the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// NewChannel creates an empty channel. A nil logger disables logging.
func NewChannel[T any](name string, log *zap.Logger) *Channel[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel[T]{name: name, log: log}
}

// Name of the channel.
func (c *Channel[T]) Name() string { return c.name }

// Subscribe registers fn for every later Publish.
func (c *Channel[T]) Subscribe(fn func(T)) *Subscription {
	s := &subscriber[T]{fn: fn}
	s.active.Store(true)

	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	return &Subscription{cancel: func() { c.remove(s) }}
}

func (c *Channel[T]) remove(s *subscriber[T]) {
	s.active.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.subs {
		if cur == s {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to the current subscribers and returns how many received it.
func (c *Channel[T]) Publish(ev T) int {
	c.mu.Lock()
	snapshot := make([]*subscriber[T], len(c.subs))
	copy(snapshot, c.subs)
	c.mu.Unlock()

	delivered := 0
	for _, s := range snapshot {
		// a handler earlier in the loop may have unsubscribed this one
		if !s.active.Load() {
			continue
		}
		s.fn(ev)
		delivered++
	}
	c.log.Debug("bus publish", zap.String("channel", c.name), zap.Int("delivered", delivered))
	return delivered
}

// Len returns the number of live subscriptions.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Bus groups the process-wide channels.
type Bus struct {
	CartUpdates       *Channel[CartUpdateEvent]
	PerformanceAlerts *Channel[PerformanceAlert]
}

// New creates the process-wide channels.
func New(log *zap.Logger) *Bus {
	return &Bus{
		CartUpdates:       NewChannel[CartUpdateEvent](CartUpdateChannel, log),
		PerformanceAlerts: NewChannel[PerformanceAlert](PerformanceAlertChannel, log),
	}
}

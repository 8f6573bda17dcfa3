// Package pubsub fans canvas events out to in-process subscribers such as
// websocket streams and the broadcast relay.
package pubsub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Subscribe after Shutdown.
var ErrClosed = errors.New("pubsub closed")

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 100

// Message is the envelope delivered to subscribers.
type Message struct {
	Topic  string    `json:"topic"`
	Type   string    `json:"type"`
	Canvas string    `json:"canvas"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data,omitempty"`
	// Origin names the remote relay a message arrived from. Empty for
	// locally published messages.
	Origin string `json:"origin,omitempty"`
}

// Topic names.
func ViewTopic(canvasID string) string   { return "canvas." + canvasID + ".view" }
func GraphTopic(canvasID string) string  { return "canvas." + canvasID + ".graph" }
func CommitTopic(canvasID string) string { return "canvas." + canvasID + ".commit" }

// CanvasTopics matches every topic of one canvas.
func CanvasTopics(canvasID string) string { return "canvas." + canvasID + ".*" }

// Match reports whether topic matches pattern. A pattern ending in ".*"
// matches any topic sharing its prefix.
func Match(pattern, topic string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(topic, prefix)
	}
	return pattern == topic
}

// PubSub provides non-blocking publish/subscribe. A slow subscriber loses
// messages instead of stalling the publisher.
type PubSub struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	buffer      int
	dropped     atomic.Int64
	onDrop      func(Message)
}

// Option configures a PubSub.
type Option func(*PubSub)

// WithBuffer sets the per-subscription channel capacity.
func WithBuffer(n int) Option {
	return func(ps *PubSub) {
		if n > 0 {
			ps.buffer = n
		}
	}
}

// WithDropHandler is called for every message a full subscriber missed.
func WithDropHandler(fn func(Message)) Option {
	return func(ps *PubSub) { ps.onDrop = fn }
}

// Subscription is one subscriber's view of a topic pattern.
type Subscription struct {
	pattern   string
	channel   chan Message
	ps        *PubSub
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func New(opts ...Option) *PubSub {
	ps := &PubSub{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
		buffer:      DefaultBuffer,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Subscribe registers interest in pattern until ctx is done or Unsubscribe
// is called.
func (ps *PubSub) Subscribe(ctx context.Context, pattern string) (*Subscription, error) {
	ps.shutdownMu.Lock()
	closed := ps.isShutdown
	ps.shutdownMu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		pattern: pattern,
		channel: make(chan Message, ps.buffer),
		ps:      ps,
		cancel:  cancel,
	}

	ps.mu.Lock()
	if ps.subscribers[pattern] == nil {
		ps.subscribers[pattern] = make(map[*Subscription]bool)
	}
	ps.subscribers[pattern][sub] = true
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish delivers msg to every subscription whose pattern matches
// msg.Topic and returns how many received it.
func (ps *PubSub) Publish(msg Message) int {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return 0
	}
	ps.shutdownMu.Unlock()

	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}

	// snapshot so sends happen outside the lock
	ps.mu.RLock()
	var subs []*Subscription
	for pattern, set := range ps.subscribers {
		if !Match(pattern, msg.Topic) {
			continue
		}
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	ps.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		sent, live := sub.send(msg)
		if sent {
			delivered++
		}
		if sent || !live {
			continue
		}
		ps.dropped.Add(1)
		if ps.onDrop != nil {
			ps.onDrop(msg)
		}
	}
	return delivered
}

// Dropped returns the number of messages lost to full subscribers.
func (ps *PubSub) Dropped() int64 {
	return ps.dropped.Load()
}

// SubscriberCount returns the number of subscriptions registered for pattern.
func (ps *PubSub) SubscriberCount(pattern string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[pattern])
}

// Shutdown closes all subscriptions.
func (ps *PubSub) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	ps.mu.Lock()
	for pattern, set := range ps.subscribers {
		for sub := range set {
			sub.close()
		}
		delete(ps.subscribers, pattern)
	}
	ps.mu.Unlock()
}

// Channel returns the delivery channel. It is closed on Unsubscribe or Shutdown.
func (s *Subscription) Channel() <-chan Message {
	return s.channel
}

// Pattern returns the topic pattern this subscription matches.
func (s *Subscription) Pattern() string {
	return s.pattern
}

// Unsubscribe removes the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	if set := s.ps.subscribers[s.pattern]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.ps.subscribers, s.pattern)
		}
	}
	s.close()
	s.ps.mu.Unlock()
}

// send holds the read lock so close cannot race with the channel send.
// live is false when the subscription went away after the snapshot.
func (s *Subscription) send(msg Message) (sent, live bool) {
	s.ps.mu.RLock()
	defer s.ps.mu.RUnlock()
	if !s.ps.subscribers[s.pattern][s] {
		return false, false
	}
	select {
	case s.channel <- msg:
		return true, true
	default:
		return false, true
	}
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}

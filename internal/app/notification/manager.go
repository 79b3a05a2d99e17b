// Package notification fans status messages out to subscribed sinks.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// DefaultSendTimeout bounds a single sink delivery.
const DefaultSendTimeout = 500 * time.Millisecond

// Sink delivers a message to one destination.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Reporter is where session status messages are written.
type Reporter interface {
	Report(ctx context.Context, msg Message) error
}

// subscription represents a subscribed sink.
type subscription struct {
	id   string
	sink Sink
}

// Manager manages sink subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	timeout       time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		timeout:       DefaultSendTimeout,
	}
}

// Subscribe adds a new sink and returns the subscription ID.
func (m *Manager) Subscribe(sink Sink) string {
	id := uuid.New().String()
	m.SubscribeAs(id, sink)
	return id
}

// SubscribeAs adds sink under id, replacing any sink already subscribed with it.
func (m *Manager) SubscribeAs(id string, sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[id] = &subscription{
		id:   id,
		sink: sink,
	}
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Report implements Reporter by broadcasting msg.
func (m *Manager) Report(ctx context.Context, msg Message) error {
	return m.Broadcast(ctx, msg)
}

// Broadcast sends a message to all sinks in parallel, each bounded by the
// send timeout. Failed deliveries are logged and returned combined; they never
// block the other sinks.
func (m *Manager) Broadcast(ctx context.Context, msg Message) error {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	msg.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		result error
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.sink.Send(sendCtx, msg)
			}()

			var err error
			select {
			case err = <-done:
			case <-sendCtx.Done():
				err = errors.Wrap(sendCtx.Err(), "send timed out")
			}
			if err != nil {
				zlog.Warn().Err(err).Msgf("failed to deliver notification: sink=%s, seq=%d", s.id, msg.SequenceNo)
				errMu.Lock()
				result = errors.CombineErrors(result, err)
				errMu.Unlock()
			}
		}(sub)
	}

	// Wait for all sends to complete or timeout
	wg.Wait()
	return result
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}

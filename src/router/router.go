package router

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"snapnote/src/messages"
)

// subscriber holds one registered listener.
type subscriber struct {
	ch     chan messages.MessageEnvelope
	name   string
	active bool
	// dropped counts envelopes skipped because the buffer was full.
	dropped int
}

// Router fans lifecycle notifications out to named subscribers. Publishing
// never blocks the caller: a full subscriber loses the envelope.
type Router struct {
	subs        map[string]*subscriber
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	logMessages bool
}

// NewRouter creates a new message router
func NewRouter() *Router {
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		subs:        make(map[string]*subscriber),
		ctx:         ctx,
		cancel:      cancel,
		logMessages: true,
	}
}

// Subscribe registers a listener with the given buffer size.
func (r *Router) Subscribe(name string, bufferSize int) (<-chan messages.MessageEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.healthyLocked() {
		return nil, fmt.Errorf("router is shutting down")
	}
	if _, exists := r.subs[name]; exists {
		return nil, fmt.Errorf("subscriber %s already registered", name)
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}

	ch := make(chan messages.MessageEnvelope, bufferSize)
	r.subs[name] = &subscriber{ch: ch, name: name, active: true}

	log.Printf("Router: Registered subscriber %s with buffer size %d", name, bufferSize)
	return ch, nil
}

// Unsubscribe removes a listener and closes its channel.
func (r *Router) Unsubscribe(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.subs[name]; exists {
		s.active = false
		close(s.ch)
		delete(r.subs, name)
		log.Printf("Router: Unregistered subscriber %s", name)
	}
}

// Publish broadcasts msg to every subscriber except the sender.
func (r *Router) Publish(from string, msg messages.Message) {
	r.Send(messages.MessageEnvelope{From: from, To: "*", Message: msg})
}

// Send delivers an envelope to one subscriber, or to all for To == "*".
// It returns the number of subscribers that received it.
func (r *Router) Send(envelope messages.MessageEnvelope) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.healthyLocked() {
		return 0
	}
	if r.logMessages {
		log.Printf("Router: %s -> %s: %s", envelope.From, envelope.To, envelope.Message.Type())
	}

	delivered := 0
	for name, s := range r.subs {
		if !s.active || name == envelope.From {
			continue
		}
		if envelope.To != "*" && envelope.To != name {
			continue
		}
		envCopy := envelope
		envCopy.To = name
		select {
		case s.ch <- envCopy:
			delivered++
		default:
			s.dropped++
			log.Printf("Router: subscriber %s full, dropped %s", name, envelope.Message.Type())
		}
	}
	return delivered
}

// Dropped returns how many envelopes a subscriber has lost.
func (r *Router) Dropped(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.subs[name]; ok {
		return s.dropped
	}
	return 0
}

// Subscribers returns the names of active subscribers.
func (r *Router) Subscribers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []string
	for name, s := range r.subs {
		if s.active {
			active = append(active, name)
		}
	}
	return active
}

// SetMessageLogging enables or disables message logging
func (r *Router) SetMessageLogging(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logMessages = enabled
}

// Shutdown closes every subscriber channel.
func (r *Router) Shutdown() {
	log.Printf("Router: Shutting down...")

	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, s := range r.subs {
		if s.active {
			s.active = false
			close(s.ch)
			log.Printf("Router: Closed channel for subscriber %s", name)
		}
	}
	r.subs = make(map[string]*subscriber)

	log.Printf("Router: Shutdown complete")
}

// IsHealthy returns true until Shutdown is called.
func (r *Router) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthyLocked()
}

func (r *Router) healthyLocked() bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
		return true
	}
}

// WaitForMessage waits for a specific message type from a channel with timeout
func WaitForMessage(ch <-chan messages.MessageEnvelope, messageType string, timeout time.Duration) (messages.MessageEnvelope, error) {
	deadline := time.After(timeout)

	for {
		select {
		case envelope, ok := <-ch:
			if !ok {
				return messages.MessageEnvelope{}, fmt.Errorf("channel closed waiting for message type %s", messageType)
			}
			if envelope.Message.Type() == messageType {
				return envelope, nil
			}
		case <-deadline:
			return messages.MessageEnvelope{}, fmt.Errorf("timeout waiting for message type %s", messageType)
		}
	}
}

// DrainChannel drains all messages from a channel (useful for cleanup)
func DrainChannel(ch <-chan messages.MessageEnvelope) int {
	count := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}

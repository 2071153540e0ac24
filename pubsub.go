package main

import "sync"

// subBufSize bounds each subscriber's queue; a slow subscriber gets its
// oldest-pending publish dropped rather than blocking the match actor
// (spec §5: "publishing must not block the simulation").
const subBufSize = 64

// topic is a single match's fan-out channel: many producers (only the match
// actor in practice), many subscribers (one per connected client). Grounded
// on the teacher's Game.broadcastState non-blocking select/default send,
// generalized from "iterate a client map" to "publish to N subscriber
// channels of a named topic."
type topic struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func newTopic() *topic {
	return &topic{subs: make(map[chan []byte]struct{})}
}

func (t *topic) subscribe() chan []byte {
	ch := make(chan []byte, subBufSize)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()
	return ch
}

func (t *topic) unsubscribe(ch chan []byte) {
	t.mu.Lock()
	delete(t.subs, ch)
	t.mu.Unlock()
}

// publish fans data out to every current subscriber without blocking.
func (t *topic) publish(data []byte) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

// PubSub is the process-wide match:{id} topic registry (spec §5, §9: one of
// the two pieces of global mutable state, alongside the match registry).
type PubSub struct {
	mu     sync.Mutex
	topics map[string]*topic
}

func NewPubSub() *PubSub {
	return &PubSub{topics: make(map[string]*topic)}
}

func (ps *PubSub) topicFor(matchID string) *topic {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	t, ok := ps.topics[matchID]
	if !ok {
		t = newTopic()
		ps.topics[matchID] = t
	}
	return t
}

// Subscribe registers a new subscriber channel for a match's topic.
func (ps *PubSub) Subscribe(matchID string) chan []byte {
	return ps.topicFor(matchID).subscribe()
}

// Unsubscribe removes a subscriber channel from a match's topic.
func (ps *PubSub) Unsubscribe(matchID string, ch chan []byte) {
	ps.mu.Lock()
	t, ok := ps.topics[matchID]
	ps.mu.Unlock()
	if ok {
		t.unsubscribe(ch)
	}
}

// Publish fans a pre-encoded message out to every subscriber of a match.
func (ps *PubSub) Publish(matchID string, data []byte) {
	ps.topicFor(matchID).publish(data)
}

// RemoveTopic drops a match's topic entirely, called when the match actor
// terminates so long-idle empty topics don't accumulate.
func (ps *PubSub) RemoveTopic(matchID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.topics, matchID)
}

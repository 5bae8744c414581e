package state

import (
	"sync"
)

type EventType int

const (
	HEAD_MSG_CHAN_LENGTH = 16
)

const (
	EventUnknown EventType = iota
	HeadMessage
	HeadStatusChanged
	WalletConnected
	WalletDisconnected
	TxSubmitted
)

func (e EventType) String() string {
	return [...]string{"EventUnknown", "HeadMessage", "HeadStatusChanged", "WalletConnected", "WalletDisconnected", "TxSubmitted"}[e]
}

// EventBus fans head and session events out to subscriber channels. Publish
// never blocks: a subscriber that cannot receive is pruned, so a waiter that
// already settled and walked away does not wedge the feed.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[EventType][]chan interface{}
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]chan interface{}),
	}
}

func (eb *EventBus) Subscribe(eventType EventType, ch chan interface{}) {
	if ch == nil {
		panic("channel == nil")
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
}

func (eb *EventBus) Publish(eventType EventType, data interface{}) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[eventType]
	if len(subs) == 0 {
		return
	}
	alive := subs[:0]
	for _, ch := range subs {
		select {
		case ch <- data:
			alive = append(alive, ch)
		default:
			// Cannot receive, drop the subscriber
		}
	}
	if len(alive) == 0 {
		delete(eb.subscribers, eventType)
		return
	}
	eb.subscribers[eventType] = alive
}

func (eb *EventBus) Unsubscribe(eventType EventType, ch chan interface{}) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[eventType]
	for i, subscriber := range subs {
		if subscriber == ch {
			eb.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(eb.subscribers[eventType]) == 0 {
		delete(eb.subscribers, eventType)
	}
}

// SubscriberCount reports the live subscriber count for an event type.
func (eb *EventBus) SubscriberCount(eventType EventType) int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.subscribers[eventType])
}

package bus

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is a single value delivered on a topic.
type Message struct {
	Topic   Topic
	Payload any
	At      time.Time
}

// Publisher sends fire-and-forget messages.
type Publisher interface {
	Publish(topic Topic, payload any)
}

// Subscriber opens a stream of messages for one topic.
type Subscriber interface {
	Subscribe(topic Topic, buffer int) *Subscription
}

// Subscription is a buffered stream for one topic.
type Subscription struct {
	topic  Topic
	ch     chan Message
	once   sync.Once
	cancel func(*Subscription)
}

// NewSubscription builds a subscription around ch. cancel runs once on Close
// and must close ch.
func NewSubscription(topic Topic, ch chan Message, cancel func(*Subscription)) *Subscription {
	return &Subscription{topic: topic, ch: ch, cancel: cancel}
}

// Topic returns the subscribed topic.
func (sub *Subscription) Topic() Topic {
	return sub.topic
}

// C returns the delivery channel. It is closed when the subscription ends.
func (sub *Subscription) C() <-chan Message {
	return sub.ch
}

// Close ends the subscription. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		if sub.cancel != nil {
			sub.cancel(sub)
		}
	})
}

// Bus relays messages between the surfaces of one process. Delivery is
// best effort and in order per subscriber: a subscriber whose buffer is
// full misses the message.
type Bus struct {
	mu     sync.Mutex
	subs   map[Topic][]*Subscription
	last   map[Topic]Message
	closed bool
	logger *logrus.Entry
	now    func() time.Time
}

// New creates an empty bus.
func New(logger *logrus.Entry) *Bus {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bus{
		subs:   make(map[Topic][]*Subscription),
		last:   make(map[Topic]Message),
		logger: logger,
		now:    time.Now,
	}
}

// Publish records payload as the last value of topic and fans it out.
func (bus *Bus) Publish(topic Topic, payload any) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		return
	}

	message := Message{Topic: topic, Payload: payload, At: bus.now()}
	bus.last[topic] = message
	for _, sub := range bus.subs[topic] {
		select {
		case sub.ch <- message:
		default:
			bus.logger.WithField("topic", topic).Debug("subscriber buffer full, message dropped")
		}
	}
}

// Subscribe opens a stream for topic. After Close the returned
// subscription is already closed.
func (bus *Bus) Subscribe(topic Topic, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	sub := NewSubscription(topic, make(chan Message, buffer), bus.unsubscribe)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	bus.subs[topic] = append(bus.subs[topic], sub)
	return sub
}

// Last returns the most recent message published on topic.
func (bus *Bus) Last(topic Topic) (Message, bool) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	message, ok := bus.last[topic]
	return message, ok
}

// Close ends every subscription. Later publishes are dropped.
func (bus *Bus) Close() {
	bus.mu.Lock()
	if bus.closed {
		bus.mu.Unlock()
		return
	}
	bus.closed = true
	subs := bus.subs
	bus.subs = make(map[Topic][]*Subscription)
	bus.mu.Unlock()

	for _, list := range subs {
		for _, sub := range list {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
}

func (bus *Bus) unsubscribe(target *Subscription) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	list := bus.subs[target.topic]
	for i, sub := range list {
		if sub == target {
			bus.subs[target.topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	close(target.ch)
}

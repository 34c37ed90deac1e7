// Package eventbus is the internal tagged-event pub/sub the Dispatcher
// publishes onto and the Device Manager/Connection Manager each subscribe
// to with one goroutine apiece (spec.md §4.F, §9 design notes). Adapted
// from the teacher's api/eventbus/{emitter.go,events.go}, which wraps
// cskr/pubsub/v2 behind a topic-string API; this version narrows the topic
// space to the five tagged dispatcher.Event kinds instead of the teacher's
// open string topics, since bluecore's Dispatcher is the sole publisher.
package eventbus

import (
	"github.com/cskr/pubsub/v2"
)

// Topic identifies one of the tagged event kinds a Dispatcher publishes.
type Topic string

// The topics a Dispatcher publishes (spec.md §9 design notes).
const (
	TopicDeviceAdded           Topic = "device-added"
	TopicDevicePropertyChanged Topic = "device-property-changed"
	TopicDeviceRemoved         Topic = "device-removed"
	TopicAdapterFound          Topic = "adapter-found"
	TopicAdapterRemoved        Topic = "adapter-removed"
)

// capacity is the per-subscriber channel buffer pubsub allocates. A slow
// subscriber backpressures the Dispatcher's publish call rather than
// losing events silently.
const capacity = 32

// Bus is the publish side the Dispatcher owns, and the subscribe side the
// Device Manager and Connection Manager each use once.
type Bus struct {
	ps *pubsub.PubSub[Topic, any]
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{ps: pubsub.New[Topic, any](capacity)}
}

// Publish delivers event to every current subscriber of topic. It blocks
// while a subscriber's buffer is full — pubsub.TryPub would drop on a full
// channel, so bluecore uses the blocking Pub deliberately: a stalled
// subscriber must not make the Dispatcher silently lose events, since that
// would violate spec.md §3's "in-order, no gaps" cache-freshness
// invariant.
func (b *Bus) Publish(topic Topic, event any) {
	b.ps.Pub(event, topic)
}

// Subscription is a single subscriber's receive channel.
type Subscription struct {
	ch <-chan any
}

// Subscribe registers a new subscriber to one or more topics. The returned
// Subscription's channel closes when Shutdown is called on the Bus.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	return &Subscription{ch: b.ps.Sub(topics...)}
}

// Events returns the receive-only channel events for the subscribed
// topics arrive on.
func (s *Subscription) Events() <-chan any {
	return s.ch
}

// Shutdown closes every subscriber channel and stops the Bus. Called once
// at core teardown.
func (b *Bus) Shutdown() {
	b.ps.Shutdown()
}

package ports

import "errors"

// ErrSubscriptionNotFound is returned when unsubscribing an unknown id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// AnyTopic subscribes a client to every event topic.
const AnyTopic = "*"

// UnspecifiedTopic selects subscriptions regardless of their topic.
const UnspecifiedTopic = ""

// Subscription is the portable view of a pubsub subscription.
type Subscription interface {
	Topic() string
	Id() string
	IsSecured() bool
	NotifyAt() string
}

// PubSubStore defines the methods to manage the internal store of a
// SecurePubSub service.
type PubSubStore interface {
	// Init initializes the store.
	Init() error
	// Close should be used to gracefully close the connection with the store.
	Close() error
}

// SecurePubSub defines the methods of a pubsub service and its internal
// store. Subscriptions survive restarts, therefore the service needs an
// internal persistent storage.
type SecurePubSub interface {
	// Store returns the internal store.
	Store() PubSubStore
	// Subscribe adds a new subscription for the requested topic.
	Subscribe(topic, endpoint, secret string) (string, error)
	// SubscribeWithID adds a subscription for the requested topic by using
	// the given id instead of assigning a new one.
	SubscribeWithID(id, topic, endpoint, secret string) (string, error)
	// Unsubscribe removes some client defined by its id for a topic.
	Unsubscribe(topic, id string) error
	// ListSubscriptionsForTopic returns the info of all clients subscribed
	// for a certain topic.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Publish publishes a message for a certain topic. All clients
	// subscribed for such topic will receive the message.
	Publish(topic string, message string) error
}

// Package mqtt provides the broker session used by the control loop, with an
// abstraction for testing.
package mqtt

import (
	"errors"
	"time"
)

// ErrNotConnected is returned by operations that need an open connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// Message is an inbound message taken from the subscription.
type Message struct {
	Topic   string
	Payload []byte
}

// Will is the last-will message held by the broker for an unclean disconnect.
type Will struct {
	Topic    string
	Payload  string
	Retained bool
}

// Options are the connection parameters, fixed for the lifetime of a session.
type Options struct {
	ClientID  string
	Broker    string // e.g. tcp://192.168.1.200:1883
	User      string
	Password  string
	Keepalive time.Duration
	Will      Will
}

// Client is the messaging capability used by the session loop.
// All methods are called from the loop goroutine only.
type Client interface {
	// Connect opens the session, registering opts.Will with the broker.
	Connect(opts Options) error

	// Subscribe adds a topic filter whose messages become available to
	// CheckMessage.
	Subscribe(filter string) error

	// Publish sends payload to topic.
	Publish(topic string, payload []byte, retained bool) error

	// CheckMessage returns one pending inbound message without blocking.
	// ok is false when nothing is pending.
	CheckMessage() (msg Message, ok bool, err error)

	// Ping verifies the session is alive.
	Ping() error

	// Disconnect closes the session cleanly; the will is not published.
	Disconnect() error

	// IsConnected reports whether the session is open.
	IsConnected() bool
}

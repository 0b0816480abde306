package mqtt

import (
	"sync"
)

// Published is one message recorded by FakeClient.
type Published struct {
	Topic    string
	Payload  string
	Retained bool
}

// FakeClient records session activity for test assertions.
type FakeClient struct {
	mu sync.Mutex

	// Calls lists every method invoked, in order ("connect", "subscribe",
	// "publish", "check", "ping", "disconnect").
	Calls []string

	// Options holds the options of the last Connect.
	Options Options

	// Subscriptions contains every subscribed filter.
	Subscriptions []string

	// Published contains every successful publish.
	Published []Published

	// Pings counts successful pings.
	Pings int

	// Inbox holds messages returned by CheckMessage, oldest first.
	Inbox []Message

	// Connected controls the return value of IsConnected.
	Connected bool

	// Disconnects counts Disconnect calls.
	Disconnects int

	// ConnectError, SubscribeError, PublishError and PingError, if set, are
	// returned by the matching method.
	ConnectError   error
	SubscribeError error
	PublishError   error
	PingError      error

	// CheckErrors are returned by successive CheckMessage calls, one each,
	// before normal behaviour resumes.
	CheckErrors []error
}

// NewFakeClient creates a FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (f *FakeClient) record(call string) {
	f.Calls = append(f.Calls, call)
}

// Connect records opts and marks the client connected.
func (f *FakeClient) Connect(opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("connect")
	if f.ConnectError != nil {
		return f.ConnectError
	}
	f.Options = opts
	f.Connected = true
	return nil
}

// Subscribe records the filter.
func (f *FakeClient) Subscribe(filter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("subscribe")
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.Subscriptions = append(f.Subscriptions, filter)
	return nil
}

// Publish records the message.
func (f *FakeClient) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("publish")
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Published{Topic: topic, Payload: string(payload), Retained: retained})
	return nil
}

// CheckMessage pops the next scripted error or inbox message.
func (f *FakeClient) CheckMessage() (Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("check")
	if len(f.CheckErrors) > 0 {
		err := f.CheckErrors[0]
		f.CheckErrors = f.CheckErrors[1:]
		return Message{}, false, err
	}
	if len(f.Inbox) == 0 {
		return Message{}, false, nil
	}
	msg := f.Inbox[0]
	f.Inbox = f.Inbox[1:]
	return msg, true, nil
}

// Ping counts the ping.
func (f *FakeClient) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ping")
	if f.PingError != nil {
		return f.PingError
	}
	f.Pings++
	return nil
}

// Disconnect marks the client disconnected.
func (f *FakeClient) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("disconnect")
	f.Disconnects++
	f.Connected = false
	return nil
}

// IsConnected reports the Connected field.
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Deliver queues an inbound message.
func (f *FakeClient) Deliver(topic, payload string) {
	f.mu.Lock()
	f.Inbox = append(f.Inbox, Message{Topic: topic, Payload: []byte(payload)})
	f.mu.Unlock()
}

// PublishedTo returns the messages published to topic, in order.
func (f *FakeClient) PublishedTo(topic string) []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Published
	for _, p := range f.Published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears recorded activity and scripted errors.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
	f.Options = Options{}
	f.Subscriptions = nil
	f.Published = nil
	f.Pings = 0
	f.Inbox = nil
	f.Connected = false
	f.Disconnects = 0
	f.ConnectError = nil
	f.SubscribeError = nil
	f.PublishError = nil
	f.PingError = nil
	f.CheckErrors = nil
}

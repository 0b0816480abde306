package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/pcmonitor/internal/logging"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds

	// QoS 0 (at-most-once) for status and commands, QoS 1 for the will.
	qos     byte = 0
	willQoS byte = 1
)

// pahoClient is the subset of paho.Client used by PahoClient.
type pahoClient interface {
	IsConnectionOpen() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newPahoClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoClient implements Client on an Eclipse Paho connection.
// Paho delivers messages on its own goroutine; they are queued in a bounded
// inbox and handed to the loop by CheckMessage.
type PahoClient struct {
	cli pahoClient
	log logging.Logger

	mu    sync.Mutex
	inbox *ringBuffer
}

// NewPahoClient creates an unconnected client.
func NewPahoClient(log logging.Logger) *PahoClient {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &PahoClient{
		log:   log,
		inbox: newRingBuffer(inboxCapacity, log),
	}
}

// buildClientOptions translates Options into paho options. Paho's own
// reconnect is disabled: the session loop owns the reconnect policy.
func buildClientOptions(o Options) *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(o.Keepalive)

	if o.User != "" {
		opts.SetUsername(o.User)
		opts.SetPassword(o.Password)
	}
	if o.Will.Topic != "" {
		opts.SetWill(o.Will.Topic, o.Will.Payload, willQoS, o.Will.Retained)
	}
	return opts
}

// Connect dials the broker with the will registered.
func (c *PahoClient) Connect(o Options) error {
	opts := buildClientOptions(o)
	opts.SetDefaultPublishHandler(c.receive)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warnf("connection lost: %v", err)
	})

	cli := newPahoClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %s: timeout after %v", o.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", o.Broker, err)
	}

	c.mu.Lock()
	c.inbox.reset()
	c.mu.Unlock()
	c.cli = cli
	return nil
}

func (c *PahoClient) receive(_ paho.Client, m paho.Message) {
	c.mu.Lock()
	c.inbox.push(Message{Topic: m.Topic(), Payload: m.Payload()})
	c.mu.Unlock()
}

// Subscribe adds filter to the session.
func (c *PahoClient) Subscribe(filter string) error {
	if c.cli == nil {
		return ErrNotConnected
	}
	token := c.cli.Subscribe(filter, qos, c.receive)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	return nil
}

// Publish sends payload to topic and waits for it to leave.
func (c *PahoClient) Publish(topic string, payload []byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.cli.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// CheckMessage pops the oldest queued message. Messages received before a
// connection loss are still handed out; once the inbox is empty a closed
// connection is reported as ErrNotConnected.
func (c *PahoClient) CheckMessage() (Message, bool, error) {
	c.mu.Lock()
	msg, ok := c.inbox.pop()
	c.mu.Unlock()
	if ok {
		return msg, true, nil
	}
	if !c.IsConnected() {
		return Message{}, false, ErrNotConnected
	}
	return Message{}, false, nil
}

// Ping checks the connection is still open. Paho sends the PINGREQ packets
// itself at the keepalive interval and closes the connection when the broker
// stops answering, so an open connection is a live one.
func (c *PahoClient) Ping() error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Disconnect closes the connection and drops queued messages.
func (c *PahoClient) Disconnect() error {
	if c.cli == nil {
		return nil
	}
	c.cli.Disconnect(disconnectQuiesce)
	c.cli = nil

	c.mu.Lock()
	c.inbox.reset()
	c.mu.Unlock()
	return nil
}

// IsConnected reports whether the connection is open.
func (c *PahoClient) IsConnected() bool {
	return c.cli != nil && c.cli.IsConnectionOpen()
}

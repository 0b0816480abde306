package mqtt

import "github.com/sweeney/pcmonitor/internal/logging"

// inboxCapacity bounds the messages received between two loop ticks.
const inboxCapacity = 32

// ringBuffer is a fixed-capacity FIFO of received messages.
// Not safe for concurrent use; callers hold PahoClient.mu.
type ringBuffer struct {
	buf      []Message
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since the buffer last emptied
	log      logging.Logger
}

func newRingBuffer(capacity int, log logging.Logger) *ringBuffer {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &ringBuffer{
		buf:      make([]Message, capacity),
		capacity: capacity,
		log:      log,
	}
}

func (r *ringBuffer) push(msg Message) {
	if r.count == r.capacity {
		if !r.overflow {
			r.log.Warnf("inbox full (%d messages), dropping oldest", r.capacity)
			r.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// pop removes and returns the oldest message.
func (r *ringBuffer) pop() (Message, bool) {
	if r.count == 0 {
		return Message{}, false
	}
	start := (r.head - r.count + r.capacity) % r.capacity
	msg := r.buf[start]
	r.buf[start] = Message{}
	r.count--
	if r.count == 0 {
		r.overflow = false
	}
	return msg, true
}

func (r *ringBuffer) reset() {
	for i := range r.buf {
		r.buf[i] = Message{}
	}
	r.head = 0
	r.count = 0
	r.overflow = false
}

func (r *ringBuffer) len() int {
	return r.count
}

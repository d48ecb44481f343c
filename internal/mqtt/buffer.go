package mqtt

import "log"

// pending is a serialized message held for replay once the broker is back.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO of pending messages. When full, the oldest
// message is overwritten. Not safe for concurrent use.
type outbox struct {
	slots   []pending
	next    int // write position
	size    int
	dropped int // overwritten since the last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{slots: make([]pending, capacity)}
}

func (o *outbox) push(msg pending) {
	c := len(o.slots)
	if o.size == c {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", c)
		}
		o.dropped++
	} else {
		o.size++
	}
	o.slots[o.next] = msg
	o.next = (o.next + 1) % c
}

// drain returns the pending messages oldest first and empties the outbox.
func (o *outbox) drain() []pending {
	if o.size == 0 {
		return nil
	}

	c := len(o.slots)
	out := make([]pending, o.size)
	first := (o.next - o.size + c) % c
	for i := range out {
		out[i] = o.slots[(first+i)%c]
		o.slots[(first+i)%c] = pending{}
	}

	if o.dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while disconnected", o.dropped)
	}
	o.size = 0
	o.next = 0
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return o.size
}

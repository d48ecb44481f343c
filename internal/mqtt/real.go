package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultOutboxSize is the number of messages kept while disconnected.
const DefaultOutboxSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	Prefix     string
	ClientID   string
	BootID     string
	OutboxSize int
	Now        func() time.Time
}

// RealPublisher publishes to a broker without blocking the caller. While the
// connection is down, messages wait in a fixed outbox that is replayed on
// (re)connect.
type RealPublisher struct {
	client      paho.Client
	eventsTopic string
	systemTopic string
	bootID      string
	now         func() time.Time

	mu        sync.Mutex
	outbox    *outbox
	connected bool
	everUp    bool
}

// NewRealPublisher starts connecting to the broker in the background and
// returns immediately. The broker's last will marks the node OFFLINE.
func NewRealPublisher(o Options) *RealPublisher {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.OutboxSize == 0 {
		o.OutboxSize = DefaultOutboxSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ClientID == "" {
		o.ClientID = "net-watchdog"
	}

	p := &RealPublisher{
		eventsTopic: EventsTopic(o.Prefix),
		systemTopic: SystemTopic(o.Prefix),
		bootID:      o.BootID,
		now:         o.Now,
		outbox:      newOutbox(o.OutboxSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: o.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
		BootID:    o.BootID,
	})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.systemTopic, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.everUp
	p.connected = true
	p.everUp = true
	queued := p.outbox.drain()
	p.mu.Unlock()

	log.Printf("mqtt: connected, replaying %d queued messages", len(queued))

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED", BootID: p.bootID})
		p.send(pending{topic: p.systemTopic, payload: payload, qos: 1})
	}
	for _, m := range queued {
		p.send(m)
	}
}

func (p *RealPublisher) onConnectionLost(c paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// send hands the message to paho and reports failures in the background.
func (p *RealPublisher) send(m pending) {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish to %s timed out", m.topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish to %s: %v", m.topic, err)
		}
	}()
}

func (p *RealPublisher) enqueue(m pending) {
	p.mu.Lock()
	if !p.connected {
		p.outbox.push(m)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.send(m)
}

// Publish sends a watchdog event (QoS 0, not retained).
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	p.enqueue(pending{topic: p.eventsTopic, payload: payload})
	return nil
}

// PublishSystem sends a lifecycle event (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	p.enqueue(pending{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Queued returns the number of messages waiting for a connection.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}

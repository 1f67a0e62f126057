package tilt

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher pushes ball telemetry to MQTT. Ball state goes out every
// publish interval; game events (resets, re-levels, new mazes) go out as
// they happen.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	last          BallState
	hasLast       bool
	mu            sync.RWMutex
}

// GameEvent is a one-shot notification published on the events topic.
type GameEvent struct {
	Event     string `json:"event"`
	Seed      int64  `json:"seed,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewPublisher creates a ball state publisher.
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client, config *Config) *Publisher {
	return &Publisher{
		client:        client,
		publishPrefix: publishPrefix(config),
		qos:           0,    // fire and forget, the next frame supersedes it
		retain:        true, // latest state survives for late subscribers
	}
}

// PublishBallState publishes the current ball snapshot to {prefix}/ball.
func (p *Publisher) PublishBallState(state BallState) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.last = state
	p.hasLast = true
	p.mu.Unlock()

	topic := fmt.Sprintf("%s/ball", p.publishPrefix)

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling ball state: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// PublishEvent publishes a game event to {prefix}/events. Events are not
// retained; only live subscribers see them.
func (p *Publisher) PublishEvent(event string, seed int64) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	topic := fmt.Sprintf("%s/events", p.publishPrefix)

	payload, err := json.Marshal(GameEvent{
		Event:     event,
		Seed:      seed,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	token := p.client.Publish(topic, p.qos, false, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	log.Printf("Published event: %s", event)
	return nil
}

// LastState returns the most recently published ball state.
func (p *Publisher) LastState() (BallState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.hasLast
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}

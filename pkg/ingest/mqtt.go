package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscriber receives routed events published to an MQTT topic
type Subscriber struct {
	client   mqtt.Client
	topic    string
	ingestor *Ingestor
	timeout  time.Duration
}

// NewSubscriber creates a subscriber for topic on broker
func NewSubscriber(broker, clientID, topic string, ingestor *Ingestor) *Subscriber {
	s := &Subscriber{
		topic:    topic,
		ingestor: ingestor,
		timeout:  30 * time.Second,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetCleanSession(false).
		SetAutoAckDisabled(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("⚠ MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			// the broker keeps the session, resubscribing is harmless and covers a session it dropped
			if token := c.Subscribe(s.topic, 1, s.handleMessage); token.Wait() && token.Error() != nil {
				log.Printf("❌ MQTT subscribe to %s failed: %v", s.topic, token.Error())
				return
			}
			log.Printf("✓ Subscribed to MQTT topic %s", s.topic)
		})
	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker; the subscription is made once connected
func (s *Subscriber) Start(ctx context.Context) error {
	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Stop disconnects from the broker
func (s *Subscriber) Stop() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.topic).WaitTimeout(time.Second)
	}
	s.client.Disconnect(250)
}

// handleMessage ingests one message and acknowledges it once it is stored or rejected.
// A storage failure leaves it unacknowledged so the broker redelivers it on the next session.
func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.ingestor.Ingest(ctx, TransportMQTT, msg.Payload())
	switch {
	case err == nil:
		msg.Ack()
	case IsRejected(err):
		log.Printf("❌ Dropping MQTT message on %s: %v", msg.Topic(), err)
		msg.Ack()
	default:
		log.Printf("⚠ MQTT message on %s left unacknowledged for redelivery: %v", msg.Topic(), err)
	}
}

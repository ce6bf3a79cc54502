package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	DefaultTopicPrefix = "sessions"

	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesce     = 250 // milliseconds
)

// MQTTClient is the part of the paho client the publisher needs.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// MQTTPublisher publishes events as JSON to <prefix>/<event type>, e.g. sessions/user.login.
type MQTTPublisher struct {
	client  MQTTClient
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTPublisher wraps an existing client. QoS is 1.
func NewMQTTPublisher(client MQTTClient, topicPrefix string) *MQTTPublisher {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &MQTTPublisher{
		client:  client,
		prefix:  strings.TrimRight(topicPrefix, "/"),
		qos:     1,
		timeout: defaultPublishTimeout,
	}
}

// ConnectMQTT dials broker (e.g. tcp://localhost:1883) and returns a publisher bound to it.
func ConnectMQTT(broker, clientID, topicPrefix string) (*MQTTPublisher, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("[events.ConnectMQTT] timeout connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("[events.ConnectMQTT] connect to %s: %w", broker, err)
	}
	return NewMQTTPublisher(client, topicPrefix), nil
}

// Topic returns the topic an event type is published on.
func (p *MQTTPublisher) Topic(t Type) string {
	return p.prefix + "/" + string(t)
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("[MQTTPublisher.Publish] marshal: %w", err)
	}

	token := p.client.Publish(p.Topic(e.Type), p.qos, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("[MQTTPublisher.Publish] timeout publishing %s", e.Type)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("[MQTTPublisher.Publish] %s: %w", e.Type, err)
	}
	return nil
}

// Close disconnects the underlying client when it supports it.
func (p *MQTTPublisher) Close() error {
	if c, ok := p.client.(interface{ Disconnect(quiesce uint) }); ok {
		c.Disconnect(disconnectQuiesce)
	}
	return nil
}

// Package mqtt bridges the light registry to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dchest/uniuri"
	pm "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/config"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// MessageHandler receives messages of a subscription.
type MessageHandler func(topic string, payload []byte)

// Client is a paho client with blocking operations. Subscriptions are
// restored after every reconnect.
type Client struct {
	client  pm.Client
	qos     byte
	timeout time.Duration

	mu   sync.Mutex
	subs map[string]MessageHandler
}

// NewClient creates a client for the configured broker. The client id is the
// configured prefix with a random suffix.
func NewClient(cfg config.MQTTConfig) *Client {
	c := &Client{
		qos:     cfg.QoS,
		timeout: cfg.ConnectTimeout.Duration(),
		subs:    make(map[string]MessageHandler),
	}

	opts := pm.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "_" + uniuri.New()).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetOrderMatters(false). // Handlers publish errors and must not block the router
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ pm.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetReconnectingHandler(func(_ pm.Client, _ *pm.ClientOptions) {
			log.Info().Msg("MQTT reconnecting")
		})

	c.client = pm.NewClient(opts)
	return c
}

// Connect connects to the broker.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.wait(ctx, c.client.Connect()); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Disconnect waits up to 250ms for pending work and disconnects.
func (c *Client) Disconnect() {
	log.Info().Msg("Disconnecting from MQTT")
	c.client.Disconnect(250)
}

// Publish sends a message and waits for the broker.
func (c *Client) Publish(topic string, retained bool, payload []byte) error {
	if err := c.wait(context.Background(), c.client.Publish(topic, c.qos, retained, payload)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for a topic filter.
func (c *Client) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if err := c.wait(ctx, c.client.Subscribe(topic, c.qos, wrap(handler))); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	log.Info().Str("topic", topic).Msg("Subscribed to MQTT topic")
	return nil
}

func (c *Client) onConnect(client pm.Client) {
	log.Info().Msg("Connected to MQTT")

	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, handler := range c.subs {
		// Blocking here would stall the paho router
		client.Subscribe(topic, c.qos, wrap(handler))
	}
}

func (c *Client) wait(ctx context.Context, token pm.Token) error {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func wrap(handler MessageHandler) pm.MessageHandler {
	return func(_ pm.Client, msg pm.Message) {
		handler(msg.Topic(), msg.Payload())
	}
}

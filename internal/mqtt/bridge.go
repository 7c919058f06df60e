package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/light"
	"github.com/dokzlo13/lightstate/internal/registry"
	"github.com/dokzlo13/lightstate/internal/wire"
)

// Source recorded in the ledger for MQTT changes
const Source = "mqtt"

// Topic suffixes
const (
	topicSet     = "set"
	topicReading = "reading"
	topicState   = "state"
	topicError   = "error"
)

// Publisher sends messages to the broker.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// Bridge routes command and reading topics into the registry and publishes
// light state. State publishes are coalesced per light and rate limited.
type Bridge struct {
	pub      Publisher
	lights   *registry.Registry
	cfg      config.MQTTConfig
	limiter  *rate.Limiter
	interval time.Duration

	mu      sync.Mutex
	pending map[string][]byte
	trigger chan struct{}
}

// NewBridge creates a bridge and registers it as a registry observer.
func NewBridge(pub Publisher, lights *registry.Registry, cfg config.MQTTConfig) *Bridge {
	rps := cfg.PublishRPS
	if rps <= 0 {
		rps = 10.0
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	b := &Bridge{
		pub:      pub,
		lights:   lights,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		interval: cfg.PollInterval.Duration(),
		pending:  make(map[string][]byte),
		trigger:  make(chan struct{}, 1),
	}
	lights.AddObserver(b)
	return b
}

// Topic returns the topic of a light for the given suffix.
func (b *Bridge) Topic(id, suffix string) string {
	return b.cfg.TopicPrefix + "/" + id + "/" + suffix
}

// Subscriptions returns the topic filters the bridge handles.
func (b *Bridge) Subscriptions() []string {
	return []string{
		b.cfg.TopicPrefix + "/+/" + topicSet,
		b.cfg.TopicPrefix + "/+/" + topicReading,
	}
}

// Subscribe registers the bridge's handlers on the client.
func (b *Bridge) Subscribe(ctx context.Context, c *Client) error {
	for _, topic := range b.Subscriptions() {
		if err := c.Subscribe(ctx, topic, b.HandleMessage); err != nil {
			return err
		}
	}
	return nil
}

// HandleMessage applies a command or reading received on a light topic.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	id, suffix, ok := b.parseTopic(topic)
	if !ok {
		log.Debug().Str("topic", topic).Msg("Ignoring message on unknown topic")
		return
	}

	log.Debug().Str("light", id).Str("topic", suffix).Bytes("payload", payload).Msg("Received MQTT message")

	var change registry.Change
	switch suffix {
	case topicSet:
		set, err := wire.DecodeSet(payload)
		if err != nil {
			b.reject(id, err)
			return
		}
		change = registry.Change{Kind: set.Kind(), Source: Source, Payload: map[string]any{"set": set}, Apply: set.Apply}
	case topicReading:
		reading, err := wire.DecodeReading(payload)
		if err != nil {
			b.reject(id, err)
			return
		}
		change = registry.Change{Kind: reading.Kind(), Source: Source, Payload: map[string]any{"reading": reading}, Reading: true, Apply: reading.Apply}
	}

	if err := b.lights.Update(id, change); err != nil {
		b.reject(id, err)
	}
}

func (b *Bridge) parseTopic(topic string) (id, suffix string, ok bool) {
	rest, found := strings.CutPrefix(topic, b.cfg.TopicPrefix+"/")
	if !found {
		return "", "", false
	}
	id, suffix, found = strings.Cut(rest, "/")
	if !found || id == "" || (suffix != topicSet && suffix != topicReading) {
		return "", "", false
	}
	return id, suffix, true
}

// reject logs a failed message and reports it on the light's error topic.
func (b *Bridge) reject(id string, err error) {
	log.Warn().Err(err).Str("light", id).Msg("Rejected MQTT message")
	if errors.Is(err, registry.ErrUnknownLight) {
		return
	}
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	if perr := b.pub.Publish(b.Topic(id, topicError), false, payload); perr != nil {
		log.Warn().Err(perr).Str("light", id).Msg("Failed to publish error")
	}
}

// LightChanged queues the state of a changed light for publishing.
func (b *Bridge) LightChanged(id, kind string, m *light.Model, err error) {
	if err != nil {
		return
	}
	b.queue(id, m)
}

func (b *Bridge) queue(id string, m *light.Model) {
	payload, err := json.Marshal(wire.StateFromModel(m))
	if err != nil {
		log.Error().Err(err).Str("light", id).Msg("Failed to encode light state")
		return
	}

	b.mu.Lock()
	b.pending[id] = payload
	b.mu.Unlock()

	select {
	case b.trigger <- struct{}{}:
	default:
		// Already triggered
	}
}

// PublishDiscovery publishes a Home Assistant discovery document per light.
func (b *Bridge) PublishDiscovery() error {
	for _, id := range b.lights.IDs() {
		m, err := b.lights.View(id)
		if err != nil {
			return err
		}
		name, _ := b.lights.Name(id)
		doc := wire.NewDiscovery(id, name, b.Topic(id, topicSet), b.Topic(id, topicState), m)
		payload, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		topic := b.cfg.DiscoveryPrefix + "/light/lightctl_" + id + "/config"
		if err := b.pub.Publish(topic, true, payload); err != nil {
			return err
		}
		log.Info().Str("light", id).Str("topic", topic).Msg("Registered light with Home Assistant")
	}
	return nil
}

// Run publishes the state of every light, then publishes changes and picks
// up state written by other processes until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	if b.cfg.Discovery {
		if err := b.PublishDiscovery(); err != nil {
			return err
		}
	}
	for _, id := range b.lights.IDs() {
		if m, err := b.lights.View(id); err == nil {
			b.queue(id, m)
		}
	}

	var poll <-chan time.Time
	if b.interval > 0 {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		poll = ticker.C
	}

	log.Info().Int("lights", len(b.lights.IDs())).Msg("MQTT bridge started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("MQTT bridge stopping")
			return nil
		case <-b.trigger:
			b.flush(ctx)
		case <-poll:
			changed, err := b.lights.Refresh()
			if err != nil {
				log.Warn().Err(err).Msg("Failed to refresh light state")
			} else if len(changed) > 0 {
				log.Info().Strs("lights", changed).Msg("Picked up external light changes")
			}
		}
	}
}

func (b *Bridge) flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.pending
	b.pending = make(map[string][]byte)
	b.mu.Unlock()

	for id, payload := range batch {
		if err := b.limiter.Wait(ctx); err != nil {
			return
		}
		if err := b.pub.Publish(b.Topic(id, topicState), true, payload); err != nil {
			log.Error().Err(err).Str("light", id).Msg("Failed to publish light state")
		}
	}
}

package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/light"
	"github.com/dokzlo13/lightstate/internal/registry"
)

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
}

func (p *fakePublisher) Publish(topic string, retained bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message{topic, retained, payload})
	return nil
}

func (p *fakePublisher) find(topic string) (message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.messages) - 1; i >= 0; i-- {
		if p.messages[i].topic == topic {
			return p.messages[i], true
		}
	}
	return message{}, false
}

func newBridge(t *testing.T) (*Bridge, *registry.Registry, *fakePublisher) {
	t.Helper()
	lights, err := registry.New([]config.LightConfig{
		{ID: "kitchen", Name: "Kitchen", Capabilities: "color_with_color_temperature", RGBDataType: "rgb_c_w"},
		{ID: "hall", Name: "Hall", Capabilities: "brightness", RGBDataType: "rgb_w"},
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	pub := &fakePublisher{}
	b := NewBridge(pub, lights, config.MQTTConfig{
		TopicPrefix:     "lights",
		PublishRPS:      100,
		Discovery:       true,
		DiscoveryPrefix: "homeassistant",
	})
	return b, lights, pub
}

func TestBridge_Topics(t *testing.T) {
	b, _, _ := newBridge(t)

	subs := b.Subscriptions()
	if len(subs) != 2 || subs[0] != "lights/+/set" || subs[1] != "lights/+/reading" {
		t.Errorf("subscriptions = %v", subs)
	}

	tests := []struct {
		topic  string
		id     string
		suffix string
		ok     bool
	}{
		{"lights/kitchen/set", "kitchen", "set", true},
		{"lights/hall/reading", "hall", "reading", true},
		{"lights/hall/state", "", "", false},
		{"lights//set", "", "", false},
		{"other/hall/set", "", "", false},
		{"lights/hall/set/extra", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, suffix, ok := b.parseTopic(tt.topic)
			if id != tt.id || suffix != tt.suffix || ok != tt.ok {
				t.Errorf("parseTopic = (%q, %q, %v), want (%q, %q, %v)", id, suffix, ok, tt.id, tt.suffix, tt.ok)
			}
		})
	}
}

func TestBridge_HandleMessage(t *testing.T) {
	b, lights, pub := newBridge(t)

	b.HandleMessage("lights/hall/set", []byte(`{"state":"ON","brightness":102}`))
	m, err := lights.View("hall")
	if err != nil {
		t.Fatal(err)
	}
	if bri, _ := m.Brightness(false); bri != 40 {
		t.Errorf("brightness = %v, want 40", bri)
	}

	b.HandleMessage("lights/kitchen/reading", []byte(`{"mirek":300}`))
	m, _ = lights.View("kitchen")
	if m.Mirek() != 300 {
		t.Errorf("mirek = %v, want 300", m.Mirek())
	}

	b.HandleMessage("lights/hall/set", []byte(`{"brightness":999}`))
	msg, ok := pub.find("lights/hall/error")
	if !ok || !strings.Contains(string(msg.payload), "brightness") {
		t.Errorf("error message = %+v", msg)
	}
	if msg.retained {
		t.Error("error messages must not be retained")
	}

	b.HandleMessage("lights/garage/set", []byte(`ON`))
	if _, ok := pub.find("lights/garage/error"); ok {
		t.Error("unknown lights must not get an error topic")
	}
}

func TestBridge_Run(t *testing.T) {
	b, lights, pub := newBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	waitFor(t, func() bool {
		_, ok := pub.find("lights/kitchen/state")
		return ok
	})

	if err := lights.Dispatch("hall", light.PercentCommand(60), "test"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		msg, ok := pub.find("lights/hall/state")
		if !ok {
			return false
		}
		var state map[string]any
		if err := json.Unmarshal(msg.payload, &state); err != nil {
			t.Fatal(err)
		}
		return state["state"] == "ON" && state["brightness"] == float64(153) && msg.retained
	})

	msg, ok := pub.find("homeassistant/light/lightctl_kitchen/config")
	if !ok {
		t.Fatal("discovery document was not published")
	}
	var doc map[string]any
	if err := json.Unmarshal(msg.payload, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["command_topic"] != "lights/kitchen/set" || doc["state_topic"] != "lights/kitchen/state" {
		t.Errorf("discovery = %v", doc)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

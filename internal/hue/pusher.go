package hue

import (
	"context"
	"sync"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/lightstate/internal/light"
)

// StateSetter writes a light state to a bridge.
type StateSetter interface {
	SetLightState(id int, state huego.State) (*huego.Response, error)
}

// Pusher mirrors changed lights to the bridge. Changes are coalesced per
// light, the latest state wins, and writes are rate limited.
type Pusher struct {
	bridge  StateSetter
	ids     map[string]int // light id -> bridge light id
	limiter *rate.Limiter

	mu      sync.Mutex
	pending map[string]huego.State
	trigger chan struct{}
}

// NewPusher creates a pusher for the given light id mapping.
func NewPusher(bridge StateSetter, ids map[string]int, rateLimitRPS float64) *Pusher {
	if rateLimitRPS <= 0 {
		rateLimitRPS = 10.0
	}
	burst := int(rateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	return &Pusher{
		bridge:  bridge,
		ids:     ids,
		limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), burst),
		pending: make(map[string]huego.State),
		trigger: make(chan struct{}, 1),
	}
}

// NewBridge connects to a bridge by host and user token.
func NewBridge(host, token string) *huego.Bridge {
	return huego.New(host, token)
}

// LightChanged queues the new state of a mirrored light.
func (p *Pusher) LightChanged(id, kind string, m *light.Model, err error) {
	if err != nil {
		return
	}
	if _, ok := p.ids[id]; !ok {
		return
	}

	state := StateFromModel(m)

	p.mu.Lock()
	p.pending[id] = state
	p.mu.Unlock()

	select {
	case p.trigger <- struct{}{}:
	default:
		// Already triggered
	}
}

// Run pushes queued states until the context is cancelled.
func (p *Pusher) Run(ctx context.Context) error {
	log.Info().Int("lights", len(p.ids)).Msg("Hue pusher started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Hue pusher stopping")
			return nil
		case <-p.trigger:
			p.flush(ctx)
		}
	}
}

func (p *Pusher) flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string]huego.State)
	p.mu.Unlock()

	for id, state := range batch {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		hueID := p.ids[id]
		log.Info().
			Str("light", id).
			Int("hue_id", hueID).
			Interface("state", state).
			Msg("Applying state to Hue light")

		if _, err := p.bridge.SetLightState(hueID, state); err != nil {
			log.Error().Err(err).Str("light", id).Int("hue_id", hueID).Msg("Failed to apply Hue state")
		}
	}
}

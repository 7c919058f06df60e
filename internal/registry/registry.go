// Package registry holds the configured lights and serializes access to them.
//
// Each light owns one model guarded by its own mutex. Every change runs on a
// copy of the model that replaces the original only on success, is persisted
// as a snapshot, recorded in the ledger and reported to observers.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/ledger"
	"github.com/dokzlo13/lightstate/internal/light"
	"github.com/dokzlo13/lightstate/internal/storage"
)

// ErrUnknownLight is returned for ids that are not configured.
var ErrUnknownLight = errors.New("unknown light")

// Observer is notified after every change attempt. It is called with the
// light locked and must not retain the model.
type Observer interface {
	LightChanged(id, kind string, m *light.Model, err error)
}

// Change is a unit of work on one light.
type Change struct {
	Kind    string         // Command kind or reading name, for history and metrics
	Source  string         // Where the change came from (cli, mqtt, lua)
	Payload map[string]any // Recorded in the ledger
	Reading bool           // Raw device reading rather than a user command
	Apply   func(m *light.Model) error
}

// CommandChange wraps a command for Update.
func CommandChange(cmd light.Command, source string) Change {
	kind := "unknown"
	if cmd != nil {
		kind = cmd.Kind()
	}
	return Change{
		Kind:    kind,
		Source:  source,
		Payload: map[string]any{"command": cmd},
		Apply:   func(m *light.Model) error { return m.Dispatch(cmd) },
	}
}

type entry struct {
	mu      sync.Mutex
	id      string
	name    string
	def     config.LightConfig
	model   *light.Model
	version int64 // snapshot version last loaded or written
}

// Registry is the set of configured lights.
type Registry struct {
	lights    map[string]*entry
	ids       []string
	snapshots *storage.Snapshots[light.Snapshot] // nil disables persistence
	history   *ledger.Ledger                      // nil disables history

	obsMu     sync.RWMutex
	observers []Observer
}

// New builds a model for every light definition and restores persisted state
// where it matches the definition. snapshots and history may be nil.
func New(defs []config.LightConfig, snapshots *storage.Snapshots[light.Snapshot], history *ledger.Ledger) (*Registry, error) {
	r := &Registry{
		lights:    make(map[string]*entry, len(defs)),
		snapshots: snapshots,
		history:   history,
	}

	var stored map[string]light.Snapshot
	var versions map[string]int64
	if snapshots != nil {
		var err error
		stored, versions, err = snapshots.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to load light snapshots: %w", err)
		}
	}

	for _, def := range defs {
		if _, dup := r.lights[def.ID]; dup {
			return nil, fmt.Errorf("light %q: duplicate id", def.ID)
		}
		model, err := def.Model()
		if err != nil {
			return nil, fmt.Errorf("light %q: %w", def.ID, err)
		}

		e := &entry{id: def.ID, name: def.Name, def: def, model: model}
		if snap, ok := stored[def.ID]; ok {
			e.version = versions[def.ID]
			if restored := restoreMatching(def.ID, model, snap); restored != nil {
				e.model = restored
			}
		}

		r.lights[def.ID] = e
		r.ids = append(r.ids, def.ID)
	}
	sort.Strings(r.ids)

	log.Info().Int("lights", len(r.ids)).Bool("persistent", snapshots != nil).Msg("Light registry ready")
	return r, nil
}

// restoreMatching rebuilds the model from a snapshot taken with the same
// configuration. Snapshots of an older configuration are dropped.
func restoreMatching(id string, fresh *light.Model, snap light.Snapshot) *light.Model {
	want := fresh.Snapshot()
	if snap.Capabilities != want.Capabilities || snap.RGBDataType != want.RGBDataType || !reflect.DeepEqual(snap.Options, want.Options) {
		log.Warn().Str("light", id).Msg("Stored state was taken with a different configuration, starting fresh")
		return nil
	}
	restored, err := light.Restore(snap)
	if err != nil {
		log.Warn().Err(err).Str("light", id).Msg("Stored state is invalid, starting fresh")
		return nil
	}
	return restored
}

// AddObserver registers an observer for all lights.
func (r *Registry) AddObserver(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// IDs returns the configured light ids in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Name returns the display name of a light.
func (r *Registry) Name(id string) (string, bool) {
	e, ok := r.lights[id]
	if !ok {
		return "", false
	}
	return e.name, true
}

// View returns an independent copy of a light's model.
func (r *Registry) View(id string) (*light.Model, error) {
	e, ok := r.lights[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLight, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Copy(), nil
}

// Dispatch applies a command to a light.
func (r *Registry) Dispatch(id string, cmd light.Command, source string) error {
	return r.Update(id, CommandChange(cmd, source))
}

// Update applies a change to a light. The change runs on a copy of the model
// and replaces it only on success, so a failing multi-step change leaves no trace.
func (r *Registry) Update(id string, c Change) error {
	e, ok := r.lights[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLight, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.model.Copy()
	applyErr := c.Apply(next)
	if applyErr == nil {
		e.model = next
	}

	if r.history != nil {
		if _, err := r.history.Record(id, c.Kind, c.Source, c.Payload, c.Reading, applyErr); err != nil {
			log.Warn().Err(err).Str("light", id).Msg("Failed to record ledger entry")
		}
	}

	r.notify(id, c.Kind, e.model, applyErr)

	if applyErr != nil {
		log.Debug().Err(applyErr).Str("light", id).Str("kind", c.Kind).Msg("Change rejected")
		return applyErr
	}

	log.Debug().Str("light", id).Str("kind", c.Kind).Str("source", c.Source).Msg("Change applied")
	return r.persist(e)
}

func (r *Registry) persist(e *entry) error {
	if r.snapshots == nil {
		return nil
	}
	version, err := r.snapshots.Save(e.id, e.model.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to persist light %q: %w", e.id, err)
	}
	e.version = version
	return nil
}

func (r *Registry) notify(id, kind string, m *light.Model, err error) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.LightChanged(id, kind, m, err)
	}
}

// Refresh reloads lights whose stored state was written by another process
// and returns their ids. Observers see such reloads with kind "refresh".
func (r *Registry) Refresh() ([]string, error) {
	if r.snapshots == nil {
		return nil, nil
	}

	last := make(map[string]int64, len(r.lights))
	for id, e := range r.lights {
		e.mu.Lock()
		last[id] = e.version
		e.mu.Unlock()
	}

	dirty, err := r.snapshots.Changed(last)
	if err != nil {
		return nil, fmt.Errorf("failed to check stored state: %w", err)
	}

	var changed []string
	for id := range dirty {
		e, ok := r.lights[id]
		if !ok {
			continue
		}
		snap, version, err := r.snapshots.Load(id)
		if err != nil {
			return changed, err
		}

		e.mu.Lock()
		if version > e.version {
			fresh, err := e.def.Model()
			if err == nil {
				if restored := restoreMatching(id, fresh, snap); restored != nil {
					e.model = restored
					changed = append(changed, id)
					r.notify(id, "refresh", e.model, nil)
				}
			}
			e.version = version
		}
		e.mu.Unlock()
	}
	sort.Strings(changed)
	return changed, nil
}

// SaveAll persists every light.
func (r *Registry) SaveAll() error {
	var errs []error
	for _, id := range r.ids {
		e := r.lights[id]
		e.mu.Lock()
		if err := r.persist(e); err != nil {
			errs = append(errs, err)
		}
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}

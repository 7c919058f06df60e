// Package metrics exports light activity as Prometheus metrics.
package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/light"
)

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics records light changes. It implements registry.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	commands   *prometheus.CounterVec
	brightness *prometheus.GaugeVec
	mirek      *prometheus.GaugeVec
	on         *prometheus.GaugeVec
}

// New registers the light metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lightctl_commands_total",
			Help: "The total number of changes applied to lights",
		}, []string{"light", "kind", "result"}),
		brightness: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lightctl_brightness_percent",
			Help: "Current brightness of a light in percent",
		}, []string{"light"}),
		mirek: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lightctl_mirek",
			Help: "Current color temperature of a light in mirek",
		}, []string{"light"}),
		on: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lightctl_on",
			Help: "Whether a light is switched on",
		}, []string{"light"}),
	}
}

// Gatherer returns the registry holding the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// LightChanged counts the change and updates the state gauges.
func (m *Metrics) LightChanged(id, kind string, model *light.Model, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.commands.WithLabelValues(id, kind, result).Inc()
	m.Observe(id, model)
}

// Observe sets the state gauges of a light.
func (m *Metrics) Observe(id string, model *light.Model) {
	m.brightness.WithLabelValues(id).Set(model.HSB().Brightness)

	on, _ := model.OnOff(true)
	if on {
		m.on.WithLabelValues(id).Set(1)
	} else {
		m.on.WithLabelValues(id).Set(0)
	}

	if mirek := model.Mirek(); !math.IsNaN(mirek) {
		m.mirek.WithLabelValues(id).Set(mirek)
	} else {
		m.mirek.DeleteLabelValues(id)
	}
}

// WriteTextfile dumps the current metrics in the text exposition format,
// for collection by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return err
	}
	log.Debug().Str("path", path).Msg("Wrote metrics textfile")
	return nil
}

package wire

import (
	"fmt"
	"math"

	"github.com/dokzlo13/lightstate/internal/light"
)

// Discovery is a Home Assistant MQTT discovery document for a light using the
// JSON schema.
type Discovery struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	CommandTopic        string   `json:"command_topic"`
	StateTopic          string   `json:"state_topic"`
	Schema              string   `json:"schema"`
	Brightness          bool     `json:"brightness"`
	SupportedColorModes []string `json:"supported_color_modes"`
	MinMireds           int      `json:"min_mireds,omitempty"`
	MaxMireds           int      `json:"max_mireds,omitempty"`
}

// NewDiscovery describes a light from its capabilities.
func NewDiscovery(id, name, commandTopic, stateTopic string, m *light.Model) Discovery {
	d := Discovery{
		Name:         name,
		UniqueID:     fmt.Sprintf("lightctl_%s", id),
		CommandTopic: commandTopic,
		StateTopic:   stateTopic,
		Schema:       "json",
	}

	caps := m.Capabilities()
	d.Brightness = caps.SupportsBrightness()
	if caps.SupportsColor() {
		d.SupportedColorModes = append(d.SupportedColorModes, ColorModeHS)
	}
	if caps.SupportsColorTemperature() {
		d.SupportedColorModes = append(d.SupportedColorModes, ColorModeColorTemp)
		d.MinMireds = int(math.Ceil(m.MirekControlCoolest()))
		d.MaxMireds = int(math.Floor(m.MirekControlWarmest()))
	}
	if len(d.SupportedColorModes) == 0 {
		if d.Brightness {
			d.SupportedColorModes = []string{ColorModeBrightness}
		} else {
			d.SupportedColorModes = []string{ColorModeOnOff}
		}
	}
	return d
}

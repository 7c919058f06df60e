package wire

import (
	"math"

	"go.yhsif.com/lifxlan"

	"github.com/dokzlo13/lightstate/internal/lifx"
	"github.com/dokzlo13/lightstate/internal/light"
)

// Color modes reported in the state
const (
	ColorModeOnOff      = "onoff"
	ColorModeBrightness = "brightness"
	ColorModeColorTemp  = "color_temp"
	ColorModeHS         = "hs"
)

// StateColor is the color part of a published state.
type StateColor struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the published state of a light.
type State struct {
	State            string         `json:"state"`
	ColorMode        string         `json:"color_mode"`
	Brightness       *int           `json:"brightness,omitempty"` // 0-255
	Color            *StateColor    `json:"color,omitempty"`
	ColorTemp        *int           `json:"color_temp,omitempty"` // mirek
	ColorTempPercent *float64       `json:"color_temp_percent,omitempty"`
	LEDMode          string         `json:"led_mode"`
	RGBx             []float64      `json:"rgbx,omitempty"`
	HSBK             *lifxlan.Color `json:"hsbk,omitempty"`
}

// StateFromModel builds the published state from the capability aware getters.
func StateFromModel(m *light.Model) State {
	on, _ := m.OnOff(true)
	s := State{
		State:     StateOff,
		ColorMode: ColorModeOnOff,
		LEDMode:   m.LEDMode().String(),
		HSBK:      lifx.ColorFromModel(m),
	}
	if on {
		s.State = StateOn
	}

	caps := m.Capabilities()
	if bri, ok := m.Brightness(true); ok {
		v := int(math.Round(bri * 255 / 100))
		s.Brightness = &v
		s.ColorMode = ColorModeBrightness
	}
	if t, ok := m.ColorTemperature(); ok {
		if mirek, err := t.Mirek(); err == nil {
			v := int(math.Round(mirek))
			s.ColorTemp = &v
			s.ColorMode = ColorModeColorTemp
		}
		if pct, ok := m.ColorTemperaturePercent(); ok {
			s.ColorTempPercent = &pct
		}
	}
	if hsb, ok := m.Color(); ok {
		xy := m.XY()
		s.Color = &StateColor{H: hsb.Hue, S: hsb.Saturation, X: xy.X, Y: xy.Y}
		if m.LEDMode() != light.ModeWhiteOnly || !caps.SupportsColorTemperature() {
			s.ColorMode = ColorModeHS
		}
	}
	if rgbx, err := m.RGBx(); err == nil {
		s.RGBx = rgbx
	}
	return s
}

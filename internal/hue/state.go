// Package hue mirrors light models to a Philips Hue bridge.
package hue

import (
	"math"

	"github.com/amimof/huego"

	"github.com/dokzlo13/lightstate/internal/light"
)

// Hue API value ranges
const (
	maxBri = 254
	maxSat = 254
	maxHue = 65535
)

// Color modes reported by the bridge
const (
	colorModeXY = "xy"
	colorModeHS = "hs"
	colorModeCT = "ct"
)

// StateFromModel encodes the model as a Hue light state. Color lights outside
// white only mode are sent as hue/sat plus xy, white lights as ct.
func StateFromModel(m *light.Model) huego.State {
	on, _ := m.OnOff(true)
	state := huego.State{On: on}

	caps := m.Capabilities()
	if !caps.SupportsBrightness() {
		return state
	}
	if on {
		state.Bri = briFromPercent(m.HSB().Brightness)
	}

	switch {
	case caps.SupportsColor() && m.LEDMode() != light.ModeWhiteOnly:
		hsb := m.HSB()
		xy := m.XY()
		state.Hue = uint16(math.Round(hsb.Hue / 360 * maxHue))
		state.Sat = uint8(math.Round(hsb.Saturation / 100 * maxSat))
		state.Xy = []float32{float32(xy.X), float32(xy.Y)}
		state.ColorMode = colorModeXY
	case caps.SupportsColorTemperature():
		if t, ok := m.ColorTemperature(); ok {
			if mirek, err := t.Mirek(); err == nil {
				state.Ct = uint16(math.Round(mirek))
				state.ColorMode = colorModeCT
			}
		}
	}

	return state
}

// ApplyState feeds a state reported by the bridge into the model.
// Color temperatures outside the model's control range are clamped.
func ApplyState(m *light.Model, state huego.State) error {
	caps := m.Capabilities()

	switch state.ColorMode {
	case colorModeCT:
		if caps.SupportsColorTemperature() && state.Ct > 0 {
			mirek := math.Min(math.Max(float64(state.Ct), m.MirekControlCoolest()), m.MirekControlWarmest())
			if err := m.SetMirek(mirek); err != nil {
				return err
			}
		}
	case colorModeXY:
		if caps.SupportsColor() && len(state.Xy) == 2 {
			if err := m.SetXY(float64(state.Xy[0]), float64(state.Xy[1])); err != nil {
				return err
			}
		}
	case colorModeHS:
		if caps.SupportsColor() {
			if err := m.SetHue(float64(state.Hue) / maxHue * 360); err != nil {
				return err
			}
			if err := m.SetSaturation(float64(state.Sat) / maxSat * 100); err != nil {
				return err
			}
		}
	}

	if !state.On || !caps.SupportsBrightness() {
		m.SetOnOff(state.On)
		return nil
	}
	// Hue's lowest brightness is still ON
	p := math.Max(float64(state.Bri)/maxBri*100, m.MinimumOnBrightness())
	return m.SetBrightness(math.Min(p, 100))
}

func briFromPercent(p float64) uint8 {
	return uint8(math.Min(math.Max(math.Round(p/100*maxBri), 1), maxBri))
}

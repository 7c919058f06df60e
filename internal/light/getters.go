package light

import (
	"fmt"
	"math"

	"github.com/dokzlo13/lightstate/internal/color"
)

// =============================================================================
// Runtime state getters
//
// The capability aware getters report ok=false when the light does not expose
// the value as a separate channel.
// =============================================================================

// Brightness returns the brightness in percent. Color lights carry brightness
// inside their color, so it is only reported for them when force is set.
func (m *Model) Brightness(force bool) (float64, bool) {
	if !m.capabilities.SupportsBrightness() || (m.capabilities.SupportsColor() && !force) {
		return 0, false
	}
	return m.hsb.Brightness, true
}

// Color returns the hue/saturation/brightness triple of a color light.
func (m *Model) Color() (color.HSB, bool) {
	if !m.capabilities.SupportsColor() {
		return color.HSB{}, false
	}
	return m.hsb, true
}

// ColorTemperature returns the color temperature, if supported and known.
func (m *Model) ColorTemperature() (Temperature, bool) {
	if !m.capabilities.SupportsColorTemperature() || math.IsNaN(m.mirek) {
		return Temperature{}, false
	}
	return Mirek(m.mirek), true
}

// ColorTemperaturePercent returns the warmth in percent, 0 being the coolest
// and 100 the warmest controllable temperature.
func (m *Model) ColorTemperaturePercent() (float64, bool) {
	if !m.capabilities.SupportsColorTemperature() || math.IsNaN(m.mirek) {
		return 0, false
	}
	p := 100 * (m.mirek - m.mirekCoolest) / (m.mirekWarmest - m.mirekCoolest)
	return math.Min(math.Max(p, 0), 100), true
}

// OnOff returns the switch state. Dimmable and color lights report it only
// when force is set.
func (m *Model) OnOff(force bool) (bool, bool) {
	if (m.capabilities.SupportsBrightness() || m.capabilities.SupportsColor()) && !force {
		return false, false
	}
	return m.on, true
}

// Hue returns the hue in degrees regardless of capabilities.
func (m *Model) Hue() float64 {
	return m.hsb.Hue
}

// Saturation returns the saturation in percent regardless of capabilities.
func (m *Model) Saturation() float64 {
	return m.hsb.Saturation
}

// Mirek returns the color temperature in Mirek, NaN if unknown.
func (m *Model) Mirek() float64 {
	return m.mirek
}

// HSB returns the color regardless of capabilities.
func (m *Model) HSB() color.HSB {
	return m.hsb
}

// XY returns the chromaticity of the current color, ignoring brightness.
func (m *Model) XY() color.XY {
	return color.HSBToXY(m.hsb)
}

// RGBx returns the channel values in [0..255] for the data type and mode:
// three values for plain RGB, four for RGBW, five for RGBCW.
func (m *Model) RGBx() ([]float64, error) {
	hsb := m.hsb
	if m.rgbDataType == RGBNoBrightness {
		hsb.Brightness = 100
	}

	switch m.mode {
	case ModeWhiteOnly:
		level := hsb.Brightness * 255 / 100
		switch m.rgbDataType {
		case RGBW:
			return []float64{0, 0, 0, level}, nil
		case RGBCW:
			warm := roundTenth(level * m.warmRatio())
			return []float64{0, 0, 0, roundTenth(level - warm), warm}, nil
		}

	case ModeRGBOnly:
		rgb := color.HSBToRGBPercent(hsb)
		out := make([]float64, m.rgbDataType.Channels())
		copy(out, percentTo255(rgb[:]))
		return out, nil

	case ModeCombined:
		switch m.rgbDataType {
		case RGBCW:
			rgb := color.HSBToRGBPercent(hsb)
			v := color.Decompose(
				[3]float64{rgb[0] / 100, rgb[1] / 100, rgb[2] / 100},
				m.coolLED.Profile(), m.warmLED.Profile(),
			)
			out := v.Slice()
			for i := range out {
				out[i] = roundTenth(out[i] * 255)
			}
			return out, nil
		case RGBW:
			rgbw := color.HSBToRGBWPercent(hsb)
			return percentTo255(rgbw[:]), nil
		default:
			// No white channel to combine with
			rgb := color.HSBToRGBPercent(hsb)
			return percentTo255(rgb[:]), nil
		}
	}

	return nil, fmt.Errorf("%w: LED mode %s not compatible with RGB data type %s", ErrState, m.mode, m.rgbDataType)
}

// warmRatio is the share of the warm LED needed to hit the current
// temperature: 0 at the cool LED, 1 at the warm LED.
func (m *Model) warmRatio() float64 {
	coolM, warmM := m.coolLED.Mirek(), m.warmLED.Mirek()
	if math.IsNaN(m.mirek) || coolM == warmM {
		return 0.5
	}
	r := (m.mirek - coolM) / (warmM - coolM)
	return math.Min(math.Max(r, 0), 1)
}

func percentTo255(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v * 255 / 100
	}
	return out
}

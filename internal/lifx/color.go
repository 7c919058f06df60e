// Package lifx converts light models to and from LIFX HSBK colors.
package lifx

import (
	"math"

	"go.yhsif.com/lifxlan"

	"github.com/dokzlo13/lightstate/internal/light"
)

// Kelvin range accepted by LIFX bulbs
const (
	MinKelvin     = 1500
	MaxKelvin     = 9000
	DefaultKelvin = 3500
)

// ColorFromModel encodes the model as HSBK. An OFF light has zero
// brightness. White only lights carry only brightness and kelvin.
func ColorFromModel(m *light.Model) *lifxlan.Color {
	c := &lifxlan.Color{Kelvin: DefaultKelvin}

	if t, ok := m.ColorTemperature(); ok {
		if k, err := t.Kelvin(); err == nil {
			c.Kelvin = uint16(math.Min(math.Max(math.Round(k), MinKelvin), MaxKelvin))
		}
	}

	on, _ := m.OnOff(true)
	if !on {
		return c
	}

	hsb := m.HSB()
	if m.Capabilities().SupportsBrightness() {
		c.Brightness = percentToUint16(hsb.Brightness)
	} else {
		c.Brightness = math.MaxUint16
	}
	if m.Capabilities().SupportsColor() && m.LEDMode() != light.ModeWhiteOnly {
		c.Hue = uint16(math.Round(hsb.Hue / 360 * math.MaxUint16))
		c.Saturation = percentToUint16(hsb.Saturation)
	}
	return c
}

// ApplyColor feeds a color reported by a bulb into the model. A zero
// saturation is read as white at the reported kelvin.
func ApplyColor(m *light.Model, c *lifxlan.Color) error {
	if c == nil {
		return nil
	}
	caps := m.Capabilities()

	switch {
	case caps.SupportsColor() && c.Saturation > 0:
		if err := m.SetHue(float64(c.Hue) / math.MaxUint16 * 360); err != nil {
			return err
		}
		if err := m.SetSaturation(uint16ToPercent(c.Saturation)); err != nil {
			return err
		}
	case caps.SupportsColorTemperature() && c.Kelvin > 0:
		mirek := 1e6 / float64(c.Kelvin)
		mirek = math.Min(math.Max(mirek, m.MirekControlCoolest()), m.MirekControlWarmest())
		if err := m.SetMirek(mirek); err != nil {
			return err
		}
	}

	if !caps.SupportsBrightness() {
		m.SetOnOff(c.Brightness > 0)
		return nil
	}
	return m.SetBrightness(uint16ToPercent(c.Brightness))
}

// SameColor reports whether two colors are equal. Nil equals only nil.
func SameColor(a, b *lifxlan.Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func percentToUint16(p float64) uint16 {
	return uint16(math.Round(p / 100 * math.MaxUint16))
}

func uint16ToPercent(v uint16) float64 {
	return math.Round(float64(v)/math.MaxUint16*1000) / 10
}

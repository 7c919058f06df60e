package light

import (
	"fmt"
	"math"

	"github.com/dokzlo13/lightstate/internal/color"
)

// Snapshot is the serializable form of a Model, configuration included.
type Snapshot struct {
	Capabilities     Capabilities `json:"capabilities"`
	RGBDataType      RGBDataType  `json:"rgb_data_type"`
	Mode             LEDMode      `json:"mode"`
	Options          Options      `json:"options"`
	HSB              color.HSB    `json:"hsb"`
	Mirek            *float64     `json:"mirek,omitempty"` // nil if unknown
	On               bool         `json:"on"`
	CachedBrightness float64      `json:"cached_brightness"`
}

// Snapshot exports the model.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Capabilities: m.capabilities,
		RGBDataType:  m.rgbDataType,
		Mode:         m.mode,
		Options: Options{
			MinimumOnBrightness: m.minimumOnBrightness,
			MirekControlCoolest: m.mirekCoolest,
			MirekControlWarmest: m.mirekWarmest,
			StepSize:            m.stepSize,
			CoolWhiteLEDMirek:   m.coolLED.Mirek(),
			WarmWhiteLEDMirek:   m.warmLED.Mirek(),
		},
		HSB:              m.hsb,
		On:               m.on,
		CachedBrightness: m.cachedBrightness,
	}
	if !math.IsNaN(m.mirek) {
		mirek := m.mirek
		s.Mirek = &mirek
	}
	return s
}

// Restore rebuilds a model from a snapshot. The snapshot is validated like
// any other input; on/off is derived from the restored brightness.
func Restore(s Snapshot) (*Model, error) {
	m, err := New(s.Capabilities, s.RGBDataType, s.Options)
	if err != nil {
		return nil, err
	}
	if !s.Mode.valid() {
		return nil, fmt.Errorf("%w: unknown LED mode %d", ErrRange, int(s.Mode))
	}
	if !m.capabilities.SupportsColor() && s.Mode != m.mode {
		return nil, fmt.Errorf("%w: LED mode %s not supported by %s", ErrState, s.Mode, s.Capabilities)
	}

	if err := checkRange("hue", s.HSB.Hue, 0, 360); err != nil {
		return nil, err
	}
	if err := checkPercent("saturation", s.HSB.Saturation); err != nil {
		return nil, err
	}
	if err := checkPercent("brightness", s.HSB.Brightness); err != nil {
		return nil, err
	}
	if err := checkPercent("cached brightness", s.CachedBrightness); err != nil {
		return nil, err
	}
	mirek := math.NaN()
	if s.Mirek != nil {
		mirek = *s.Mirek
		if mirek < m.mirekCoolest || mirek > m.mirekWarmest {
			return nil, fmt.Errorf("%w: mirek %.1f not in [%.1f..%.1f]", ErrRange, mirek, m.mirekCoolest, m.mirekWarmest)
		}
	}

	m.mode = s.Mode
	m.hsb = color.HSB{Hue: color.NormalizeHue(s.HSB.Hue), Saturation: s.HSB.Saturation}
	m.mirek = mirek
	m.cachedBrightness = s.CachedBrightness
	m.on = s.On
	m.applyBrightness(s.HSB.Brightness)
	m.cachedBrightness = s.CachedBrightness
	return m, nil
}

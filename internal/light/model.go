// Package light provides a device agnostic state model of a controllable light.
//
// A Model tracks on/off, brightness, color and color temperature, keeps them
// mutually consistent, and converts between the representations a device
// driver needs (HSB, RGB/RGBW/RGBCW channels, CIE xy, Mirek and Kelvin).
// Commands from users go through Dispatch; raw readings from the device go
// straight to the Set* methods.
//
// A Model is not safe for concurrent use. Callers serialize access per light,
// or hand readers a Copy.
package light

import (
	"fmt"
	"math"

	"github.com/dokzlo13/lightstate/internal/color"
)

// Default tuning parameters.
const (
	DefaultMinimumOnBrightness = 1.0
	DefaultMirekControlCoolest = 153.0
	DefaultMirekControlWarmest = 500.0
	DefaultStepSize            = 10.0
	DefaultCoolWhiteLEDMirek   = 153.0
	DefaultWarmWhiteLEDMirek   = 500.0
)

// Bounds of the tuning parameters.
const (
	minMinimumOnBrightness = 0.1
	maxMinimumOnBrightness = 10.0
	minMirek               = 100.0
	maxMirek               = 1000.0
	minStepSize            = 1.0
	maxStepSize            = 50.0
)

// Projection target when entering RGB only mode without a known temperature (4000 K).
const fallbackMirek = 250.0

// Options holds optional tuning parameters. Zero values mean the default.
type Options struct {
	MinimumOnBrightness float64 `yaml:"minimum_on_brightness" json:"minimum_on_brightness,omitempty"`
	MirekControlCoolest float64 `yaml:"mirek_control_coolest" json:"mirek_control_coolest,omitempty"`
	MirekControlWarmest float64 `yaml:"mirek_control_warmest" json:"mirek_control_warmest,omitempty"`
	StepSize            float64 `yaml:"step_size" json:"step_size,omitempty"`
	CoolWhiteLEDMirek   float64 `yaml:"cool_white_led_mirek" json:"cool_white_led_mirek,omitempty"`
	WarmWhiteLEDMirek   float64 `yaml:"warm_white_led_mirek" json:"warm_white_led_mirek,omitempty"`
}

// withDefaults returns a copy with zero values replaced by defaults.
func (o Options) withDefaults() Options {
	if o.MinimumOnBrightness == 0 {
		o.MinimumOnBrightness = DefaultMinimumOnBrightness
	}
	if o.MirekControlCoolest == 0 {
		o.MirekControlCoolest = DefaultMirekControlCoolest
	}
	if o.MirekControlWarmest == 0 {
		o.MirekControlWarmest = DefaultMirekControlWarmest
	}
	if o.StepSize == 0 {
		o.StepSize = DefaultStepSize
	}
	if o.CoolWhiteLEDMirek == 0 {
		o.CoolWhiteLEDMirek = DefaultCoolWhiteLEDMirek
	}
	if o.WarmWhiteLEDMirek == 0 {
		o.WarmWhiteLEDMirek = DefaultWarmWhiteLEDMirek
	}
	return o
}

// Model is the state of a single light.
type Model struct {
	// Configuration
	capabilities        Capabilities
	rgbDataType         RGBDataType
	minimumOnBrightness float64
	mirekCoolest        float64
	mirekWarmest        float64
	stepSize            float64
	coolLED             color.WhiteLED
	warmLED             color.WhiteLED

	// Runtime state
	mode             LEDMode
	hsb              color.HSB // single source of truth for color and brightness
	mirek            float64   // NaN if unknown
	on               bool
	cachedBrightness float64 // last brightness while ON, restored on OFF -> ON
}

// New creates a model for a light with the given capabilities and RGB data type.
// The LED operating mode is derived from both.
func New(capabilities Capabilities, rgbDataType RGBDataType, opts Options) (*Model, error) {
	m := &Model{mirek: math.NaN()}

	if err := m.SetCapabilities(capabilities); err != nil {
		return nil, err
	}
	if err := m.SetRGBDataType(rgbDataType); err != nil {
		return nil, err
	}

	opts = opts.withDefaults()

	if err := checkRange("minimum on brightness", opts.MinimumOnBrightness, minMinimumOnBrightness, maxMinimumOnBrightness); err != nil {
		return nil, err
	}
	if err := checkRange("coolest mirek", opts.MirekControlCoolest, minMirek, maxMirek); err != nil {
		return nil, err
	}
	if err := checkRange("warmest mirek", opts.MirekControlWarmest, minMirek, maxMirek); err != nil {
		return nil, err
	}
	if opts.MirekControlWarmest <= opts.MirekControlCoolest {
		return nil, fmt.Errorf("%w: warmest mirek %.1f must be greater than coolest %.1f",
			ErrRange, opts.MirekControlWarmest, opts.MirekControlCoolest)
	}
	if err := checkRange("step size", opts.StepSize, minStepSize, maxStepSize); err != nil {
		return nil, err
	}
	if err := checkRange("cool white LED mirek", opts.CoolWhiteLEDMirek, minMirek, maxMirek); err != nil {
		return nil, err
	}
	if err := checkRange("warm white LED mirek", opts.WarmWhiteLEDMirek, minMirek, maxMirek); err != nil {
		return nil, err
	}

	m.minimumOnBrightness = opts.MinimumOnBrightness
	m.mirekCoolest = opts.MirekControlCoolest
	m.mirekWarmest = opts.MirekControlWarmest
	m.stepSize = opts.StepSize
	m.coolLED = color.NewWhiteLED(opts.CoolWhiteLEDMirek)
	m.warmLED = color.NewWhiteLED(opts.WarmWhiteLEDMirek)

	return m, nil
}

// NewDefault creates a color light with color temperature, plain RGB and default parameters.
func NewDefault() *Model {
	m, err := New(CapabilityColorWithColorTemperature, RGBDefault, Options{})
	if err != nil {
		panic(err) // defaults are always valid
	}
	return m
}

// Copy returns an independent model with the same configuration and state.
func (m *Model) Copy() *Model {
	c := *m
	return &c
}

// =============================================================================
// Configuration
// =============================================================================

// Capabilities returns the capability profile.
func (m *Model) Capabilities() Capabilities {
	return m.capabilities
}

// RGBDataType returns the RGBx channel layout.
func (m *Model) RGBDataType() RGBDataType {
	return m.rgbDataType
}

// LEDMode returns the current LED operating mode.
func (m *Model) LEDMode() LEDMode {
	return m.mode
}

// MinimumOnBrightness returns the brightness below which the light is OFF.
func (m *Model) MinimumOnBrightness() float64 {
	return m.minimumOnBrightness
}

// MirekControlCoolest returns the coolest controllable temperature.
func (m *Model) MirekControlCoolest() float64 {
	return m.mirekCoolest
}

// MirekControlWarmest returns the warmest controllable temperature.
func (m *Model) MirekControlWarmest() float64 {
	return m.mirekWarmest
}

// StepSize returns the brightness step of increase/decrease commands.
func (m *Model) StepSize() float64 {
	return m.stepSize
}

// WhiteLEDMirek returns the color temperature of the given white LED.
func (m *Model) WhiteLEDMirek(kind WhiteLEDKind) float64 {
	return m.whiteLED(kind).Mirek()
}

// WhiteLED returns the profile of the given white LED.
func (m *Model) WhiteLED(kind WhiteLEDKind) color.WhiteLED {
	return m.whiteLED(kind)
}

func (m *Model) whiteLED(kind WhiteLEDKind) color.WhiteLED {
	if kind == WhiteLEDWarm {
		return m.warmLED
	}
	return m.coolLED
}

// SetCapabilities sets the capability profile and the single LED mode it implies.
func (m *Model) SetCapabilities(c Capabilities) error {
	if !c.valid() {
		return fmt.Errorf("%w: unknown capabilities %d", ErrRange, int(c))
	}
	m.capabilities = c
	switch c {
	case CapabilityColor:
		m.mode = ModeRGBOnly
	case CapabilityColorWithColorTemperature:
		m.mode = ModeCombined
	default:
		m.mode = ModeWhiteOnly
	}
	return nil
}

// SetRGBDataType sets the channel layout. Three channel layouts force RGB only mode.
func (m *Model) SetRGBDataType(t RGBDataType) error {
	if !t.valid() {
		return fmt.Errorf("%w: unknown RGB data type %d", ErrRange, int(t))
	}
	m.rgbDataType = t
	if t == RGBDefault || t == RGBNoBrightness {
		m.mode = ModeRGBOnly
	}
	return nil
}

// SetMinimumOnBrightness sets the ON threshold in percent [0.1..10.0].
func (m *Model) SetMinimumOnBrightness(p float64) error {
	if err := checkRange("minimum on brightness", p, minMinimumOnBrightness, maxMinimumOnBrightness); err != nil {
		return err
	}
	m.minimumOnBrightness = p
	if m.on {
		m.applyBrightness(m.hsb.Brightness)
	}
	return nil
}

// SetMirekControlCoolest sets the coolest controllable temperature [100..1000],
// which must stay below the warmest.
func (m *Model) SetMirekControlCoolest(mirek float64) error {
	if err := checkRange("coolest mirek", mirek, minMirek, maxMirek); err != nil {
		return err
	}
	if m.mirekWarmest <= mirek {
		return fmt.Errorf("%w: warmest mirek %.1f must be greater than coolest %.1f", ErrRange, m.mirekWarmest, mirek)
	}
	m.mirekCoolest = mirek
	m.reclampMirek()
	return nil
}

// SetMirekControlWarmest sets the warmest controllable temperature [100..1000],
// which must stay above the coolest.
func (m *Model) SetMirekControlWarmest(mirek float64) error {
	if err := checkRange("warmest mirek", mirek, minMirek, maxMirek); err != nil {
		return err
	}
	if mirek <= m.mirekCoolest {
		return fmt.Errorf("%w: warmest mirek %.1f must be greater than coolest %.1f", ErrRange, mirek, m.mirekCoolest)
	}
	m.mirekWarmest = mirek
	m.reclampMirek()
	return nil
}

// SetStepSize sets the increase/decrease step in percent [1.0..50.0].
func (m *Model) SetStepSize(p float64) error {
	if err := checkRange("step size", p, minStepSize, maxStepSize); err != nil {
		return err
	}
	m.stepSize = p
	return nil
}

// SetWhiteLEDMirek rebuilds the profile of a white LED at the given
// temperature [100..1000]. A light with a single white LED uses the same
// value for both kinds.
func (m *Model) SetWhiteLEDMirek(kind WhiteLEDKind, mirek float64) error {
	if err := checkRange(kind.String()+" white LED mirek", mirek, minMirek, maxMirek); err != nil {
		return err
	}
	if kind == WhiteLEDWarm {
		m.warmLED = color.NewWhiteLED(mirek)
	} else {
		m.coolLED = color.NewWhiteLED(mirek)
	}
	return nil
}

// checkRange rejects NaN and values outside [lo..hi].
func checkRange(name string, v, lo, hi float64) error {
	if !(v >= lo && v <= hi) {
		return fmt.Errorf("%w: %s %.1f not in [%.1f..%.1f]", ErrRange, name, v, lo, hi)
	}
	return nil
}

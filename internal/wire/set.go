// Package wire holds the JSON payloads exchanged with bridges and HTTP
// clients: commands in the Home Assistant JSON light schema, raw device
// readings, and the published light state.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dokzlo13/lightstate/internal/color"
	"github.com/dokzlo13/lightstate/internal/light"
)

// ErrInvalidPayload is returned for payloads that cannot be decoded or carry nothing to apply.
var ErrInvalidPayload = errors.New("invalid payload")

// Switch states
const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// Color is the color part of a command. Exactly one of h/s, x/y or r/g/b is expected.
type Color struct {
	H *float64 `json:"h,omitempty"`
	S *float64 `json:"s,omitempty"`
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	R *float64 `json:"r,omitempty"`
	G *float64 `json:"g,omitempty"`
	B *float64 `json:"b,omitempty"`
	C *float64 `json:"c,omitempty"` // Cool white channel
	W *float64 `json:"w,omitempty"` // Warm (or single) white channel
}

// Set is a command payload. Brightness is 0-255, color_temp is in mirek.
type Set struct {
	State            *string            `json:"state,omitempty"`
	Brightness       *float64           `json:"brightness,omitempty"`
	Color            *Color             `json:"color,omitempty"`
	ColorTemp        *float64           `json:"color_temp,omitempty"`
	Kelvin           *float64           `json:"kelvin,omitempty"`
	ColorTempPercent *float64           `json:"color_temp_percent,omitempty"`
	Step             *light.StepCommand `json:"step,omitempty"`
	LEDMode          *light.LEDMode     `json:"led_mode,omitempty"`
	Transition       *float64           `json:"transition,omitempty"` // Accepted and ignored
}

// DecodeSet parses a command payload. A bare ON or OFF (quoted or not) is
// accepted as a state-only command.
func DecodeSet(data []byte) (*Set, error) {
	data = bytes.TrimSpace(data)
	if s := strings.ToUpper(strings.Trim(string(data), `"`)); s == StateOn || s == StateOff {
		return &Set{State: &s}, nil
	}

	var p Set
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.State != nil {
		s := strings.ToUpper(*p.State)
		if s != StateOn && s != StateOff {
			return nil, fmt.Errorf("%w: state %q", ErrInvalidPayload, *p.State)
		}
		p.State = &s
	}
	if p.Kind() == "" {
		return nil, fmt.Errorf("%w: nothing to apply", ErrInvalidPayload)
	}
	return &p, nil
}

// Kind lists the parts present in the payload.
func (p *Set) Kind() string {
	var parts []string
	add := func(present bool, name string) {
		if present {
			parts = append(parts, name)
		}
	}
	add(p.LEDMode != nil, "led_mode")
	add(p.Color != nil, "color")
	add(p.ColorTemp != nil, "color_temp")
	add(p.Kelvin != nil, "kelvin")
	add(p.ColorTempPercent != nil, "color_temp_percent")
	add(p.Brightness != nil, "brightness")
	add(p.Step != nil, "step")
	add(p.State != nil, "state")
	return strings.Join(parts, ",")
}

// Apply runs the payload against a model. Parts are applied in a fixed
// order: mode, color, temperature, brightness, step, then the switch state.
// The model may be partly updated when an error is returned; callers apply
// to a copy.
func (p *Set) Apply(m *light.Model) error {
	if p.LEDMode != nil {
		if err := m.SetLEDMode(*p.LEDMode); err != nil {
			return err
		}
	}

	brightnessDone := false
	if p.Color != nil {
		done, err := p.applyColor(m)
		if err != nil {
			return err
		}
		brightnessDone = done
	}

	switch {
	case p.ColorTemp != nil:
		if err := m.Dispatch(light.TemperatureCommand(light.Mirek(*p.ColorTemp))); err != nil {
			return err
		}
	case p.Kelvin != nil:
		if err := m.Dispatch(light.TemperatureCommand(light.Kelvin(*p.Kelvin))); err != nil {
			return err
		}
	case p.ColorTempPercent != nil:
		if err := m.Dispatch(light.TemperaturePercentCommand(*p.ColorTempPercent)); err != nil {
			return err
		}
	}

	if p.Brightness != nil && !brightnessDone {
		pct, err := brightnessPercent(m, *p.Brightness)
		if err != nil {
			return err
		}
		if err := m.Dispatch(light.PercentCommand(pct)); err != nil {
			return err
		}
	}

	if p.Step != nil {
		if err := m.Dispatch(*p.Step); err != nil {
			return err
		}
	}

	if p.State != nil {
		on := *p.State == StateOn
		// An explicit brightness already switched the light
		if !on || p.Brightness == nil {
			return m.Dispatch(light.OnOffCommand(on))
		}
	}
	return nil
}

// applyColor reports whether the brightness was consumed along with the color.
func (p *Set) applyColor(m *light.Model) (bool, error) {
	c := p.Color
	switch {
	case c.H != nil && c.S != nil:
		if p.Brightness == nil {
			if err := m.SetHue(*c.H); err != nil {
				return false, err
			}
			return false, m.SetSaturation(*c.S)
		}
		pct, err := brightnessPercent(m, *p.Brightness)
		if err != nil {
			return false, err
		}
		return true, m.Dispatch(light.HSBCommand(color.HSB{Hue: *c.H, Saturation: *c.S, Brightness: pct}))
	case c.X != nil && c.Y != nil:
		return false, m.SetXY(*c.X, *c.Y)
	case c.R != nil && c.G != nil && c.B != nil:
		return false, m.SetRGBx(c.channels(m))
	default:
		return false, fmt.Errorf("%w: color needs h/s, x/y or r/g/b", ErrInvalidPayload)
	}
}

// channels builds the raw channel array for the light's data type. Missing
// white channels are zero.
func (c *Color) channels(m *light.Model) []float64 {
	ch := []float64{*c.R, *c.G, *c.B}
	if m.LEDMode() == light.ModeRGBOnly {
		return ch
	}
	switch m.RGBDataType() {
	case light.RGBW:
		ch = append(ch, deref(c.W))
	case light.RGBCW:
		ch = append(ch, deref(c.C), deref(c.W))
	}
	return ch
}

// brightnessPercent converts 0-255 to percent. Any non-zero value keeps the
// light on.
func brightnessPercent(m *light.Model, b float64) (float64, error) {
	if !(b >= 0 && b <= 255) {
		return 0, fmt.Errorf("%w: brightness %.1f not in [0..255]", light.ErrRange, b)
	}
	if b == 0 {
		return 0, nil
	}
	return math.Min(math.Max(b*100/255, m.MinimumOnBrightness()), 100), nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

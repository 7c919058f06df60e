package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amimof/huego"
	"go.yhsif.com/lifxlan"

	"github.com/dokzlo13/lightstate/internal/color"
	"github.com/dokzlo13/lightstate/internal/hue"
	"github.com/dokzlo13/lightstate/internal/lifx"
	"github.com/dokzlo13/lightstate/internal/light"
)

// Reading is a raw state report from a device. It bypasses command dispatch
// and goes straight to the model setters. Brightness is in percent.
type Reading struct {
	Hue        *huego.State   `json:"hue,omitempty"`  // As reported by a Hue bridge
	LIFX       *lifxlan.Color `json:"lifx,omitempty"` // As reported by a LIFX bulb
	RGBx       []float64      `json:"rgbx,omitempty"`
	HSB        *color.HSB     `json:"hsb,omitempty"`
	XY         []float64      `json:"xy,omitempty"`
	Mirek      *float64       `json:"mirek,omitempty"`
	Kelvin     *float64       `json:"kelvin,omitempty"`
	Brightness *float64       `json:"brightness,omitempty"`
	On         *bool          `json:"on,omitempty"`
}

// DecodeReading parses a reading payload.
func DecodeReading(data []byte) (*Reading, error) {
	var r Reading
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if r.XY != nil && len(r.XY) != 2 {
		return nil, fmt.Errorf("%w: xy needs 2 values, got %d", ErrInvalidPayload, len(r.XY))
	}
	if r.Kind() == "" {
		return nil, fmt.Errorf("%w: empty reading", ErrInvalidPayload)
	}
	return &r, nil
}

// Kind lists the parts present in the reading.
func (r *Reading) Kind() string {
	var parts []string
	add := func(present bool, name string) {
		if present {
			parts = append(parts, name)
		}
	}
	add(r.Hue != nil, "hue")
	add(r.LIFX != nil, "lifx")
	add(r.RGBx != nil, "rgbx")
	add(r.HSB != nil, "hsb")
	add(r.XY != nil, "xy")
	add(r.Mirek != nil, "mirek")
	add(r.Kelvin != nil, "kelvin")
	add(r.Brightness != nil, "brightness")
	add(r.On != nil, "on")
	return strings.Join(parts, ",")
}

// Apply feeds the reading into the model.
func (r *Reading) Apply(m *light.Model) error {
	if r.Hue != nil {
		if err := hue.ApplyState(m, *r.Hue); err != nil {
			return err
		}
	}
	if r.LIFX != nil {
		if err := lifx.ApplyColor(m, r.LIFX); err != nil {
			return err
		}
	}
	if r.RGBx != nil {
		if err := m.SetRGBx(r.RGBx); err != nil {
			return err
		}
	}
	if r.HSB != nil {
		if err := m.SetHSB(*r.HSB); err != nil {
			return err
		}
	}
	if r.XY != nil {
		if err := m.SetXY(r.XY[0], r.XY[1]); err != nil {
			return err
		}
	}
	if r.Mirek != nil {
		if err := m.SetMirek(*r.Mirek); err != nil {
			return err
		}
	}
	if r.Kelvin != nil {
		mirek, err := light.Kelvin(*r.Kelvin).Mirek()
		if err != nil {
			return err
		}
		if err := m.SetMirek(mirek); err != nil {
			return err
		}
	}
	if r.Brightness != nil {
		if err := m.SetBrightness(*r.Brightness); err != nil {
			return err
		}
	}
	if r.On != nil {
		m.SetOnOff(*r.On)
	}
	return nil
}

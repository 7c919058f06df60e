package wire

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/dokzlo13/lightstate/internal/color"
	"github.com/dokzlo13/lightstate/internal/light"
)

func newModel(t *testing.T, caps light.Capabilities, rgb light.RGBDataType) *light.Model {
	t.Helper()
	m, err := light.New(caps, rgb, light.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 0.05
}

func TestDecodeSet(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind string
		wantErr  bool
	}{
		{"bare_on", `ON`, "state", false},
		{"quoted_off", `"off"`, "state", false},
		{"state_brightness", `{"state":"on","brightness":128}`, "brightness,state", false},
		{"color_hs", `{"color":{"h":120,"s":50}}`, "color", false},
		{"step", `{"step":"increase"}`, "step", false},
		{"mode", `{"led_mode":"white_only","color_temp":300}`, "led_mode,color_temp", false},
		{"transition_ignored", `{"state":"ON","transition":2}`, "state", false},
		{"bad_state", `{"state":"TOGGLE"}`, "", true},
		{"bad_step", `{"step":"sideways"}`, "", true},
		{"unknown_field", `{"effect":"colorloop"}`, "", true},
		{"empty", `{}`, "", true},
		{"garbage", `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeSet([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("err = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := p.Kind(); got != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestSetApply(t *testing.T) {
	t.Run("brightness_and_state", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightness, light.RGBW)
		p, err := DecodeSet([]byte(`{"state":"ON","brightness":51}`))
		if err != nil {
			t.Fatal(err)
		}
		if err := p.Apply(m); err != nil {
			t.Fatal(err)
		}
		if bri, _ := m.Brightness(false); !near(bri, 20) {
			t.Errorf("brightness = %v, want 20", bri)
		}
	})

	t.Run("lowest_brightness_stays_on", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightness, light.RGBW)
		p, _ := DecodeSet([]byte(`{"brightness":1}`))
		if err := p.Apply(m); err != nil {
			t.Fatal(err)
		}
		if on, _ := m.OnOff(true); !on {
			t.Error("light should be ON")
		}
	})

	t.Run("off_last", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightness, light.RGBW)
		p, _ := DecodeSet([]byte(`{"state":"OFF","brightness":255}`))
		if err := p.Apply(m); err != nil {
			t.Fatal(err)
		}
		if on, _ := m.OnOff(true); on {
			t.Error("light should be OFF")
		}
		m.SetOnOff(true)
		if bri, _ := m.Brightness(false); bri != 100 {
			t.Errorf("restored brightness = %v, want 100", bri)
		}
	})

	t.Run("hs_with_brightness", func(t *testing.T) {
		m := newModel(t, light.CapabilityColor, light.RGBDefault)
		p, _ := DecodeSet([]byte(`{"color":{"h":240,"s":100},"brightness":255}`))
		if err := p.Apply(m); err != nil {
			t.Fatal(err)
		}
		hsb := m.HSB()
		if hsb.Hue != 240 || hsb.Saturation != 100 || hsb.Brightness != 100 {
			t.Errorf("hsb = %+v", hsb)
		}
	})

	t.Run("rgb_padded_white", func(t *testing.T) {
		m := newModel(t, light.CapabilityColorWithColorTemperature, light.RGBW)
		p, _ := DecodeSet([]byte(`{"color":{"r":255,"g":0,"b":0}}`))
		if err := p.Apply(m); err != nil {
			t.Fatal(err)
		}
		if h := m.Hue(); !near(h, 0) {
			t.Errorf("hue = %v, want 0", h)
		}
	})

	t.Run("color_temp", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightnessWithColorTemperature, light.RGBCW)
		p, _ := DecodeSet([]byte(`{"color_temp":370}`))
		if err := p.Apply(m); err != nil {
			t.Fatal(err)
		}
		if m.Mirek() != 370 {
			t.Errorf("mirek = %v, want 370", m.Mirek())
		}
	})

	t.Run("warmth", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightnessWithColorTemperature, light.RGBCW)
		p, _ := DecodeSet([]byte(`{"color_temp_percent":100}`))
		if err := p.Apply(m); err != nil {
			t.Fatal(err)
		}
		if m.Mirek() != light.DefaultMirekControlWarmest {
			t.Errorf("mirek = %v, want %v", m.Mirek(), light.DefaultMirekControlWarmest)
		}
	})

	t.Run("out_of_range", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightness, light.RGBW)
		p, _ := DecodeSet([]byte(`{"brightness":300}`))
		if err := p.Apply(m); !errors.Is(err, light.ErrRange) {
			t.Errorf("err = %v, want ErrRange", err)
		}
	})

	t.Run("incomplete_color", func(t *testing.T) {
		m := newModel(t, light.CapabilityColor, light.RGBDefault)
		p, _ := DecodeSet([]byte(`{"color":{"h":10}}`))
		if err := p.Apply(m); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("err = %v, want ErrInvalidPayload", err)
		}
	})
}

func TestStateFromModel(t *testing.T) {
	t.Run("white", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightnessWithColorTemperature, light.RGBCW)
		if err := m.SetMirek(250); err != nil {
			t.Fatal(err)
		}
		if err := m.SetBrightness(100); err != nil {
			t.Fatal(err)
		}
		s := StateFromModel(m)
		if s.State != StateOn || s.ColorMode != ColorModeColorTemp || s.LEDMode != "white_only" {
			t.Errorf("state = %+v", s)
		}
		if s.Brightness == nil || *s.Brightness != 255 {
			t.Errorf("brightness = %v", s.Brightness)
		}
		if s.ColorTemp == nil || *s.ColorTemp != 250 {
			t.Errorf("color_temp = %v", s.ColorTemp)
		}
		if s.Color != nil {
			t.Errorf("color = %+v, want none", s.Color)
		}
		if len(s.RGBx) != 5 {
			t.Errorf("rgbx = %v", s.RGBx)
		}
	})

	t.Run("on_off_json", func(t *testing.T) {
		m := newModel(t, light.CapabilityOnOff, light.RGBW)
		data, err := json.Marshal(StateFromModel(m))
		if err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got["state"] != StateOff || got["color_mode"] != ColorModeOnOff {
			t.Errorf("state = %s", data)
		}
		if _, ok := got["brightness"]; ok {
			t.Errorf("on/off light must not report brightness: %s", data)
		}
	})

	t.Run("color", func(t *testing.T) {
		m := newModel(t, light.CapabilityColor, light.RGBDefault)
		if err := m.SetHSB(color.HSB{Hue: 30, Saturation: 80, Brightness: 50}); err != nil {
			t.Fatal(err)
		}
		s := StateFromModel(m)
		if s.ColorMode != ColorModeHS || s.Color == nil || s.Color.H != 30 || s.Color.S != 80 {
			t.Errorf("state = %+v", s)
		}
		if s.ColorTemp != nil {
			t.Errorf("color only light must not report color_temp")
		}
	})
}

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind string
		wantErr  bool
	}{
		{"rgbx", `{"rgbx":[255,0,0]}`, "rgbx", false},
		{"mirek_and_brightness", `{"mirek":300,"brightness":40}`, "mirek,brightness", false},
		{"hue", `{"hue":{"on":true,"bri":254}}`, "hue", false},
		{"xy_short", `{"xy":[0.3]}`, "", true},
		{"empty", `{}`, "", true},
		{"unknown", `{"temperature":20}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeReading([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("err = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := r.Kind(); got != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestReadingApply(t *testing.T) {
	t.Run("rgbx_bypasses_dispatch", func(t *testing.T) {
		m := newModel(t, light.CapabilityColor, light.RGBDefault)
		r, _ := DecodeReading([]byte(`{"rgbx":[0,255,0]}`))
		if err := r.Apply(m); err != nil {
			t.Fatal(err)
		}
		if h := m.Hue(); !near(h, 120) {
			t.Errorf("hue = %v, want 120", h)
		}
	})

	t.Run("rgbx_rgb_only_white_leds", func(t *testing.T) {
		m := newModel(t, light.CapabilityColor, light.RGBCW)
		r, _ := DecodeReading([]byte(`{"rgbx":[255,0,0]}`))
		if err := r.Apply(m); err != nil {
			t.Fatal(err)
		}
		if h, s := m.Hue(), m.Saturation(); !near(h, 0) || !near(s, 100) {
			t.Errorf("hue, saturation = %v, %v, want 0, 100", h, s)
		}
	})

	t.Run("kelvin", func(t *testing.T) {
		m := newModel(t, light.CapabilityBrightnessWithColorTemperature, light.RGBCW)
		r, _ := DecodeReading([]byte(`{"kelvin":4000}`))
		if err := r.Apply(m); err != nil {
			t.Fatal(err)
		}
		if !near(m.Mirek(), 250) {
			t.Errorf("mirek = %v, want 250", m.Mirek())
		}
	})

	t.Run("shape_error", func(t *testing.T) {
		m := newModel(t, light.CapabilityColor, light.RGBDefault)
		r, _ := DecodeReading([]byte(`{"rgbx":[1,2,3,4]}`))
		if err := r.Apply(m); !errors.Is(err, light.ErrShape) {
			t.Errorf("err = %v, want ErrShape", err)
		}
	})

	t.Run("on", func(t *testing.T) {
		m := newModel(t, light.CapabilityOnOff, light.RGBW)
		r, _ := DecodeReading([]byte(`{"on":true}`))
		if err := r.Apply(m); err != nil {
			t.Fatal(err)
		}
		if on, _ := m.OnOff(false); !on {
			t.Error("light should be ON")
		}
	})
}

func TestNewDiscovery(t *testing.T) {
	tests := []struct {
		caps       light.Capabilities
		modes      []string
		brightness bool
	}{
		{light.CapabilityOnOff, []string{"onoff"}, false},
		{light.CapabilityBrightness, []string{"brightness"}, true},
		{light.CapabilityBrightnessWithColorTemperature, []string{"color_temp"}, true},
		{light.CapabilityColor, []string{"hs"}, true},
		{light.CapabilityColorWithColorTemperature, []string{"hs", "color_temp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.caps.String(), func(t *testing.T) {
			m := newModel(t, tt.caps, light.RGBCW)
			d := NewDiscovery("desk", "Desk", "lights/desk/set", "lights/desk/state", m)
			if d.Brightness != tt.brightness || d.UniqueID != "lightctl_desk" || d.Schema != "json" {
				t.Errorf("discovery = %+v", d)
			}
			if len(d.SupportedColorModes) != len(tt.modes) {
				t.Fatalf("modes = %v, want %v", d.SupportedColorModes, tt.modes)
			}
			for i := range tt.modes {
				if d.SupportedColorModes[i] != tt.modes[i] {
					t.Errorf("modes = %v, want %v", d.SupportedColorModes, tt.modes)
				}
			}
			if tt.caps.SupportsColorTemperature() && (d.MinMireds != 153 || d.MaxMireds != 500) {
				t.Errorf("mireds = %d..%d", d.MinMireds, d.MaxMireds)
			}
		})
	}
}

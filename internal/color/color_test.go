package color

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestKelvinMirekConversion(t *testing.T) {
	if got := KelvinToMirek(4000); got != 250 {
		t.Errorf("KelvinToMirek(4000) = %v, want 250", got)
	}
	if got := MirekToKelvin(500); got != 2000 {
		t.Errorf("MirekToKelvin(500) = %v, want 2000", got)
	}
}

func TestKelvinToXY(t *testing.T) {
	xy := KelvinToXY(4000)
	if !approx(xy.X, 0.3805, 0.001) || !approx(xy.Y, 0.3767, 0.001) {
		t.Errorf("KelvinToXY(4000) = %+v, want ~{0.3805 0.3767}", xy)
	}

	// Outside the spline range the temperature is clamped
	if KelvinToXY(1000) != KelvinToXY(minLocusKelvin) {
		t.Error("KelvinToXY should clamp temperatures below the locus range")
	}
	if KelvinToXY(40000) != KelvinToXY(maxLocusKelvin) {
		t.Error("KelvinToXY should clamp temperatures above the locus range")
	}

	// Warmer temperatures move towards red
	if KelvinToXY(2000).X <= KelvinToXY(6500).X {
		t.Error("x should decrease with increasing temperature")
	}
}

func TestXYToKelvin_RoundTrip(t *testing.T) {
	for _, k := range []float64{2700, 3000, 4000, 5000, 6500} {
		got := XYToKelvin(KelvinToXY(k))
		if !approx(got, k, k*0.01) {
			t.Errorf("XYToKelvin(KelvinToXY(%v)) = %v, want within 1%%", k, got)
		}
	}
}

func TestXYToHSB_WhitePoint(t *testing.T) {
	hsb := XYToHSB(D65)
	if hsb.Saturation > 1 {
		t.Errorf("D65 saturation = %v, want ~0", hsb.Saturation)
	}
	if hsb.Brightness != 100 {
		t.Errorf("XYToHSB brightness = %v, want 100", hsb.Brightness)
	}
}

func TestXYToHSB_Degenerate(t *testing.T) {
	hsb := XYToHSB(XY{X: 0.3, Y: 0})
	if hsb != (HSB{Brightness: 100}) {
		t.Errorf("XYToHSB(y=0) = %+v, want white", hsb)
	}
}

func TestHSBToXY_RoundTrip(t *testing.T) {
	tests := []HSB{
		{Hue: 0, Saturation: 100, Brightness: 100},
		{Hue: 120, Saturation: 100, Brightness: 100},
		{Hue: 240, Saturation: 100, Brightness: 100},
		{Hue: 30, Saturation: 50, Brightness: 100},
		{Hue: 200, Saturation: 20, Brightness: 40},
	}

	for _, in := range tests {
		out := XYToHSB(HSBToXY(in))
		hueDiff := math.Abs(out.Hue - in.Hue)
		if hueDiff > 180 {
			hueDiff = 360 - hueDiff
		}
		if hueDiff > 0.5 || !approx(out.Saturation, in.Saturation, 0.5) {
			t.Errorf("round trip of %+v = %+v", in, out)
		}
	}
}

func TestHSBToXY_IgnoresBrightness(t *testing.T) {
	a := HSBToXY(HSB{Hue: 60, Saturation: 80, Brightness: 100})
	b := HSBToXY(HSB{Hue: 60, Saturation: 80, Brightness: 10})
	if !approx(a.X, b.X, 1e-12) || !approx(a.Y, b.Y, 1e-12) {
		t.Errorf("HSBToXY depends on brightness: %+v vs %+v", a, b)
	}
}

func TestHSBToRGBPercent(t *testing.T) {
	tests := []struct {
		name string
		in   HSB
		want [3]float64
	}{
		{"red", HSB{0, 100, 100}, [3]float64{100, 0, 0}},
		{"half_green", HSB{120, 100, 50}, [3]float64{0, 50, 0}},
		{"white", HSB{0, 0, 100}, [3]float64{100, 100, 100}},
		{"black", HSB{200, 100, 0}, [3]float64{0, 0, 0}},
		{"hue_360_is_red", HSB{360, 100, 100}, [3]float64{100, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HSBToRGBPercent(tt.in)
			for i := range got {
				if !approx(got[i], tt.want[i], 1e-9) {
					t.Fatalf("HSBToRGBPercent(%+v) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}

func TestHSBToRGBWPercent(t *testing.T) {
	got := HSBToRGBWPercent(HSB{Hue: 0, Saturation: 50, Brightness: 100})
	want := [4]float64{50, 0, 0, 50}
	for i := range got {
		if !approx(got[i], want[i], 1e-9) {
			t.Fatalf("HSBToRGBWPercent = %v, want %v", got, want)
		}
	}

	got = HSBToRGBWPercent(HSB{Hue: 0, Saturation: 0, Brightness: 100})
	if !approx(got[3], 100, 1e-9) || got[0]+got[1]+got[2] > 1e-9 {
		t.Errorf("white should map to the white channel only, got %v", got)
	}
}

func TestRGBPercentToHSB(t *testing.T) {
	hsb := RGBPercentToHSB([3]float64{0, 0, 100})
	if !approx(hsb.Hue, 240, 1e-9) || !approx(hsb.Saturation, 100, 1e-9) || !approx(hsb.Brightness, 100, 1e-9) {
		t.Errorf("RGBPercentToHSB(blue) = %+v", hsb)
	}

	hsb = RGBPercentToHSB([3]float64{50, 0, 0})
	if hsb.Hue != 0 || !approx(hsb.Brightness, 50, 1e-9) {
		t.Errorf("RGBPercentToHSB(half red) = %+v", hsb)
	}
}

func TestRGBWPercentToHSB(t *testing.T) {
	hsb := RGBWPercentToHSB([4]float64{0, 0, 0, 100})
	if hsb.Saturation != 0 || !approx(hsb.Brightness, 100, 1e-9) {
		t.Errorf("RGBWPercentToHSB(white) = %+v", hsb)
	}

	in := HSB{Hue: 300, Saturation: 40, Brightness: 80}
	out := RGBWPercentToHSB(HSBToRGBWPercent(in))
	if !approx(out.Hue, in.Hue, 1e-6) || !approx(out.Saturation, in.Saturation, 1e-6) || !approx(out.Brightness, in.Brightness, 1e-6) {
		t.Errorf("RGBW round trip of %+v = %+v", in, out)
	}
}

func TestNormalizeHue(t *testing.T) {
	tests := map[float64]float64{0: 0, 360: 0, 370: 10, -30: 330, 359.5: 359.5}
	for in, want := range tests {
		if got := NormalizeHue(in); !approx(got, want, 1e-9) {
			t.Errorf("NormalizeHue(%v) = %v, want %v", in, got, want)
		}
	}
}

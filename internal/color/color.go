// Package color provides the colorimetric conversions used by the light model:
// color temperature (Kelvin and Mirek) to CIE xy chromaticity along the
// Planckian locus, chromaticity to hue/saturation, and HSB to RGB(W) percent.
//
// All functions are pure. Inputs are expected to be validated by the caller.
package color

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Valid range of the cubic spline approximation of the Planckian locus.
const (
	minLocusKelvin = 1667.0
	maxLocusKelvin = 25000.0
)

// HSB is a hue/saturation/brightness triple.
// Hue is in degrees [0..360), saturation and brightness are percent [0..100].
type HSB struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
}

// XY is a CIE 1931 chromaticity coordinate.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// D65 is the chromaticity of the sRGB reference white.
var D65 = XY{X: 0.3127, Y: 0.3290}

// MirekToKelvin converts a reciprocal color temperature to Kelvin.
func MirekToKelvin(mirek float64) float64 {
	return 1000000.0 / mirek
}

// KelvinToMirek converts a color temperature in Kelvin to Mirek.
func KelvinToMirek(kelvin float64) float64 {
	return 1000000.0 / kelvin
}

// KelvinToXY returns the point on the Planckian locus for the given color
// temperature. Temperatures outside [1667..25000] K are clamped to that range.
func KelvinToXY(kelvin float64) XY {
	t := math.Min(math.Max(kelvin, minLocusKelvin), maxLocusKelvin)
	t2 := t * t
	t3 := t2 * t

	var x float64
	if t <= 4000 {
		x = -0.2661239e9/t3 - 0.2343589e6/t2 + 0.8776956e3/t + 0.179910
	} else {
		x = -3.0258469e9/t3 + 2.1070379e6/t2 + 0.2226347e3/t + 0.240390
	}

	x2 := x * x
	x3 := x2 * x

	var y float64
	switch {
	case t <= 2222:
		y = -1.1063814*x3 - 1.34811020*x2 + 2.18555832*x - 0.20219683
	case t <= 4000:
		y = -0.9549476*x3 - 1.37418593*x2 + 2.09137015*x - 0.16748867
	default:
		y = 3.0817580*x3 - 5.87338670*x2 + 3.75112997*x - 0.37001483
	}

	return XY{X: x, Y: y}
}

// MirekToXY returns the point on the Planckian locus for the given Mirek value.
func MirekToXY(mirek float64) XY {
	return KelvinToXY(MirekToKelvin(mirek))
}

// XYToKelvin returns the correlated color temperature of a chromaticity
// using McCamy's approximation. Points far from the locus give values that
// are only meaningful after clamping by the caller.
func XYToKelvin(xy XY) float64 {
	n := (xy.X - 0.3320) / (0.1858 - xy.Y)
	return 437*n*n*n + 3601*n*n + 6861*n + 5517
}

// XYToHSB returns the fully bright color with the given chromaticity.
// Out of gamut components are clipped to the sRGB gamut.
func XYToHSB(xy XY) HSB {
	if xy.Y <= 0 {
		return HSB{Brightness: 100}
	}

	X, Y, Z := colorful.XyyToXyz(xy.X, xy.Y, 1.0)
	r, g, b := colorful.XyzToLinearRgb(X, Y, Z)
	r, g, b = math.Max(r, 0), math.Max(g, 0), math.Max(b, 0)

	peak := math.Max(r, math.Max(g, b))
	if peak <= 0 {
		return HSB{Brightness: 100}
	}

	h, s, _ := colorful.LinearRgb(r/peak, g/peak, b/peak).Clamped().Hsv()
	return HSB{Hue: NormalizeHue(h), Saturation: clampPercent(s * 100), Brightness: 100}
}

// HSBToXY returns the chromaticity of the color, ignoring its brightness.
func HSBToXY(hsb HSB) XY {
	x, y, _ := colorful.Hsv(NormalizeHue(hsb.Hue), hsb.Saturation/100, 1.0).Xyy()
	return XY{X: x, Y: y}
}

// HSBToRGBPercent converts to RGB channels in percent [0..100].
func HSBToRGBPercent(hsb HSB) [3]float64 {
	c := colorful.Hsv(NormalizeHue(hsb.Hue), hsb.Saturation/100, hsb.Brightness/100).Clamped()
	return [3]float64{c.R * 100, c.G * 100, c.B * 100}
}

// HSBToRGBWPercent converts to RGBW channels in percent [0..100]. The white
// channel carries the common part of the three RGB channels.
func HSBToRGBWPercent(hsb HSB) [4]float64 {
	rgb := HSBToRGBPercent(hsb)
	w := math.Min(rgb[0], math.Min(rgb[1], rgb[2]))
	return [4]float64{rgb[0] - w, rgb[1] - w, rgb[2] - w, w}
}

// RGBPercentToHSB converts RGB channels in percent [0..100] to HSB.
func RGBPercentToHSB(rgb [3]float64) HSB {
	c := colorful.Color{R: rgb[0] / 100, G: rgb[1] / 100, B: rgb[2] / 100}
	h, s, v := c.Hsv()
	return HSB{Hue: NormalizeHue(h), Saturation: clampPercent(s * 100), Brightness: clampPercent(v * 100)}
}

// RGBWPercentToHSB converts RGBW channels in percent [0..100] to HSB by
// adding the white channel back onto each RGB channel.
func RGBWPercentToHSB(rgbw [4]float64) HSB {
	w := rgbw[3]
	return RGBPercentToHSB([3]float64{
		math.Min(rgbw[0]+w, 100),
		math.Min(rgbw[1]+w, 100),
		math.Min(rgbw[2]+w, 100),
	})
}

// NormalizeHue maps any hue in degrees into [0..360).
func NormalizeHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clampPercent(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}

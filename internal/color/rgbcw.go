package color

import "math"

const (
	// Below this channel value no white contribution is attempted.
	conversionThreshold = 0.01
	// Step of the downward scan over cool white scalars.
	conversionStep = 0.01
)

// Default LED profiles for a 153 Mirek cool white and a 500 Mirek warm white LED.
var (
	DefaultCoolProfile = [3]float64{0.95562, 0.976449753, 1.0}
	DefaultWarmProfile = [3]float64{1.0, 0.695614289308524, 0.25572}
)

// RGBCW is a five channel drive value. All channels are normalized to [0..1].
// Cool and Warm are the scalars applied to the respective white LED profiles.
type RGBCW struct {
	R    float64 `json:"r"`
	G    float64 `json:"g"`
	B    float64 `json:"b"`
	Cool float64 `json:"cool"`
	Warm float64 `json:"warm"`
}

// Slice returns the channels in [R, G, B, Cool, Warm] order.
func (v RGBCW) Slice() []float64 {
	return []float64{v.R, v.G, v.B, v.Cool, v.Warm}
}

// WhiteLED describes the RGB contribution of a white LED per unit of drive.
type WhiteLED struct {
	mirek   float64
	profile [3]float64
}

// NewWhiteLED builds the profile of a white LED with the given color temperature.
// The profile is the fully bright RGB color of that point on the Planckian locus.
func NewWhiteLED(mirek float64) WhiteLED {
	rgb := HSBToRGBPercent(XYToHSB(MirekToXY(mirek)))
	return WhiteLED{
		mirek:   mirek,
		profile: [3]float64{rgb[0] / 100, rgb[1] / 100, rgb[2] / 100},
	}
}

// Mirek returns the color temperature of the LED.
func (l WhiteLED) Mirek() float64 {
	return l.mirek
}

// Profile returns the RGB weighting of the LED, each component in [0..1].
func (l WhiteLED) Profile() [3]float64 {
	return l.profile
}

// Decompose splits an RGB value into a remainder RGB plus cool and warm white
// scalars such that
//
//	rgb = remainder + cool*coolProfile + warm*warmProfile
//
// with no remainder channel negative. The cool scalar is scanned downward from
// its maximum in fixed steps; for each candidate the warm scalar takes as much
// as the reduced RGB allows, and the candidate with the smallest remainder sum
// wins (first one on ties).
func Decompose(rgb [3]float64, coolProfile, warmProfile [3]float64) RGBCW {
	best := RGBCW{R: rgb[0], G: rgb[1], B: rgb[2]}

	if rgb[0] < conversionThreshold || rgb[1] < conversionThreshold || rgb[2] < conversionThreshold {
		return best
	}

	lowest := 3.0
	coolMax := maxScalar(rgb, coolProfile)

	for cool := coolMax; cool >= 0.0; cool -= conversionStep {
		prime := [3]float64{
			rgb[0] - coolProfile[0]*cool,
			rgb[1] - coolProfile[1]*cool,
			rgb[2] - coolProfile[2]*cool,
		}

		warm := maxScalar(prime, warmProfile)
		prime[0] -= warmProfile[0] * warm
		prime[1] -= warmProfile[1] * warm
		prime[2] -= warmProfile[2] * warm

		if delta := prime[0] + prime[1] + prime[2]; delta < lowest {
			lowest = delta
			best = RGBCW{
				R:    math.Max(prime[0], 0),
				G:    math.Max(prime[1], 0),
				B:    math.Max(prime[2], 0),
				Cool: cool,
				Warm: warm,
			}
		}
	}

	return best
}

// Compose adds the white LED contributions back onto the remainder RGB.
// Channels are clamped at 1.0.
func Compose(v RGBCW, coolProfile, warmProfile [3]float64) [3]float64 {
	return [3]float64{
		math.Min(1, v.R+coolProfile[0]*v.Cool+warmProfile[0]*v.Warm),
		math.Min(1, v.G+coolProfile[1]*v.Cool+warmProfile[1]*v.Warm),
		math.Min(1, v.B+coolProfile[2]*v.Cool+warmProfile[2]*v.Warm),
	}
}

// DecomposeDefault is Decompose with the default LED profiles.
func DecomposeDefault(rgb [3]float64) RGBCW {
	return Decompose(rgb, DefaultCoolProfile, DefaultWarmProfile)
}

// ComposeDefault is Compose with the default LED profiles.
func ComposeDefault(v RGBCW) [3]float64 {
	return Compose(v, DefaultCoolProfile, DefaultWarmProfile)
}

// maxScalar returns the largest scalar that can be subtracted along profile
// without driving any channel negative. Zero weights do not constrain.
func maxScalar(rgb, profile [3]float64) float64 {
	scalar := math.Inf(1)
	for i := range rgb {
		if profile[i] > 0 {
			scalar = math.Min(scalar, rgb[i]/profile[i])
		}
	}
	if math.IsInf(scalar, 1) {
		return 0
	}
	return math.Max(scalar, 0)
}

package light

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/color"
)

// =============================================================================
// Runtime state setters
//
// Every setter validates its input before touching the state, so a returned
// error always leaves the model as it was.
// =============================================================================

// SetBrightness sets the brightness in percent [0..100]. Values below the
// minimum on brightness turn the light OFF.
func (m *Model) SetBrightness(p float64) error {
	if err := checkPercent("brightness", p); err != nil {
		return err
	}
	m.applyBrightness(p)
	return nil
}

// SetOnOff switches the light. Switching ON restores the brightness the light
// had before it was switched OFF. Setting the current state is a no-op.
func (m *Model) SetOnOff(on bool) {
	if on == m.on {
		return
	}
	if !on {
		m.applyBrightness(0)
		return
	}
	restore := m.cachedBrightness
	if restore < m.minimumOnBrightness {
		restore = 100
	}
	m.applyBrightness(restore)
}

// SetHue sets the hue in degrees [0..360]. 360 is the same as 0.
func (m *Model) SetHue(h float64) error {
	if err := checkRange("hue", h, 0, 360); err != nil {
		return err
	}
	m.hsb.Hue = color.NormalizeHue(h)
	m.mirek = m.mirekFrom(m.hsb)
	return nil
}

// SetSaturation sets the saturation in percent [0..100].
func (m *Model) SetSaturation(s float64) error {
	if err := checkPercent("saturation", s); err != nil {
		return err
	}
	m.hsb.Saturation = s
	m.mirek = m.mirekFrom(m.hsb)
	return nil
}

// SetHSB sets hue, saturation and brightness as one update.
func (m *Model) SetHSB(hsb color.HSB) error {
	if err := checkRange("hue", hsb.Hue, 0, 360); err != nil {
		return err
	}
	if err := checkPercent("saturation", hsb.Saturation); err != nil {
		return err
	}
	if err := checkPercent("brightness", hsb.Brightness); err != nil {
		return err
	}
	m.hsb.Hue = color.NormalizeHue(hsb.Hue)
	m.hsb.Saturation = hsb.Saturation
	m.applyBrightness(hsb.Brightness)
	m.mirek = m.mirekFrom(m.hsb)
	return nil
}

// SetMirek sets the color temperature. The value must lie within the
// controllable range; NaN marks the temperature as unknown and leaves the
// color untouched. Hue and saturation follow the Planckian locus, brightness
// is kept.
func (m *Model) SetMirek(mirek float64) error {
	if math.IsNaN(mirek) {
		m.mirek = mirek
		return nil
	}
	if mirek < m.mirekCoolest || mirek > m.mirekWarmest {
		return fmt.Errorf("%w: mirek %.1f not in [%.1f..%.1f]", ErrRange, mirek, m.mirekCoolest, m.mirekWarmest)
	}
	m.projectMirek(mirek)
	return nil
}

// SetXY sets the color from a CIE 1931 chromaticity, keeping brightness.
func (m *Model) SetXY(x, y float64) error {
	if err := checkRange("x", x, 0, 1); err != nil {
		return err
	}
	if !(y > 0 && y <= 1) {
		return fmt.Errorf("%w: y %.4f not in (0..1]", ErrRange, y)
	}
	xy := color.XY{X: x, Y: y}
	hs := color.XYToHSB(xy)
	m.hsb.Hue = hs.Hue
	m.hsb.Saturation = hs.Saturation
	m.mirek = m.clampMirek(color.KelvinToMirek(color.XYToKelvin(xy)))
	return nil
}

// SetRGBx sets the state from raw channel values in [0..255].
//
// In RGB only mode exactly three channels are expected. In the other modes
// the white channels are mandatory: four values for RGBW, five for RGBCW.
// With the no-brightness data type only hue and saturation are taken from
// the channels; brightness is controlled separately.
func (m *Model) SetRGBx(channels []float64) error {
	if err := m.checkShape(len(channels)); err != nil {
		return err
	}
	for i, v := range channels {
		if !(v >= 0 && v <= 255) {
			return fmt.Errorf("%w: channel %d value %.1f not in [0.0..255.0]", ErrRange, i, v)
		}
	}

	if m.mode == ModeWhiteOnly {
		m.setWhiteChannels(channels[3:])
		return nil
	}

	// RGB only mode ignores the white LEDs, so the channels are plain RGB
	dataType := m.rgbDataType
	if m.mode == ModeRGBOnly {
		dataType = RGBDefault
	}

	var hsb color.HSB
	switch dataType {
	case RGBCW:
		composed := color.Compose(color.RGBCW{
			R:    channels[0] / 255,
			G:    channels[1] / 255,
			B:    channels[2] / 255,
			Cool: channels[3] / 255,
			Warm: channels[4] / 255,
		}, m.coolLED.Profile(), m.warmLED.Profile())
		hsb = color.RGBPercentToHSB([3]float64{
			roundTenth(composed[0]*255) * 100 / 255,
			roundTenth(composed[1]*255) * 100 / 255,
			roundTenth(composed[2]*255) * 100 / 255,
		})
	case RGBW:
		hsb = color.RGBWPercentToHSB([4]float64{
			channels[0] * 100 / 255,
			channels[1] * 100 / 255,
			channels[2] * 100 / 255,
			channels[3] * 100 / 255,
		})
	default:
		hsb = color.RGBPercentToHSB([3]float64{
			channels[0] * 100 / 255,
			channels[1] * 100 / 255,
			channels[2] * 100 / 255,
		})
	}

	// Black carries no hue information
	if hsb.Brightness > 0 {
		m.hsb.Hue = hsb.Hue
		m.hsb.Saturation = hsb.Saturation
		m.mirek = m.mirekFrom(m.hsb)
	}
	if m.rgbDataType != RGBNoBrightness {
		m.applyBrightness(hsb.Brightness)
	}
	return nil
}

// setWhiteChannels handles white only mode: brightness comes from the white
// channel(s), the temperature from their ratio, and the color is the white
// point of that temperature.
func (m *Model) setWhiteChannels(white []float64) {
	coolM, warmM := m.coolLED.Mirek(), m.warmLED.Mirek()

	var level, mirek float64
	if len(white) == 2 {
		c, w := white[0], white[1]
		level = math.Min(c+w, 255)
		if c+w > 0 {
			mirek = (coolM*c + warmM*w) / (c + w)
		} else {
			mirek = (coolM + warmM) / 2
		}
	} else {
		level = white[0]
		mirek = (coolM + warmM) / 2
	}

	m.projectMirek(m.clampMirek(mirek))
	m.applyBrightness(level * 100 / 255)
}

// SetLEDMode changes the LED operating mode. Lights without color support
// are always white only. Brightness is kept; entering white only derives the
// temperature from the color, entering RGB only derives the color from the
// temperature (4000 K if unknown).
func (m *Model) SetLEDMode(mode LEDMode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: unknown LED mode %d", ErrRange, int(mode))
	}
	if !m.capabilities.SupportsColor() {
		m.mode = ModeWhiteOnly
		return nil
	}
	if mode == m.mode {
		return nil
	}

	log.Debug().
		Str("from", m.mode.String()).
		Str("to", mode.String()).
		Msg("Changing LED operating mode")

	m.mode = mode
	switch mode {
	case ModeRGBOnly:
		mirek := m.mirek
		if math.IsNaN(mirek) {
			mirek = fallbackMirek
		}
		m.projectMirek(m.clampMirek(mirek))
	case ModeWhiteOnly:
		m.projectMirek(m.mirekFrom(m.hsb))
	}
	return nil
}

// applyBrightness keeps brightness, on/off and the restore cache consistent.
// p must already be validated.
func (m *Model) applyBrightness(p float64) {
	if p >= m.minimumOnBrightness {
		m.hsb.Brightness = p
		m.cachedBrightness = p
		m.on = true
		return
	}
	if m.on {
		m.cachedBrightness = m.hsb.Brightness
	}
	m.hsb.Brightness = 0
	m.on = false
}

// projectMirek sets the temperature and moves hue and saturation to its
// point on the Planckian locus. mirek must be within the controllable range.
func (m *Model) projectMirek(mirek float64) {
	if math.IsNaN(mirek) {
		m.mirek = mirek
		return
	}
	hs := color.XYToHSB(color.MirekToXY(mirek))
	m.hsb.Hue = hs.Hue
	m.hsb.Saturation = hs.Saturation
	m.mirek = mirek
}

// mirekFrom returns the correlated color temperature of the color, clamped
// to the controllable range.
func (m *Model) mirekFrom(hsb color.HSB) float64 {
	return m.clampMirek(color.KelvinToMirek(color.XYToKelvin(color.HSBToXY(hsb))))
}

func (m *Model) clampMirek(mirek float64) float64 {
	if math.IsNaN(mirek) {
		return mirek
	}
	return math.Min(math.Max(mirek, m.mirekCoolest), m.mirekWarmest)
}

// reclampMirek moves a known temperature back into a changed control range.
func (m *Model) reclampMirek() {
	if math.IsNaN(m.mirek) {
		return
	}
	if c := m.clampMirek(m.mirek); c != m.mirek {
		m.projectMirek(c)
	}
}

// checkShape validates the RGBx channel count for the data type and mode.
func (m *Model) checkShape(n int) error {
	if m.mode == ModeRGBOnly {
		if n != 3 {
			return fmt.Errorf("%w: %d channels, LED mode %s takes exactly 3", ErrShape, n, m.mode)
		}
		return nil
	}
	if m.rgbDataType.Channels() == 3 {
		return fmt.Errorf("%w: RGB data type %s has no white channel for LED mode %s", ErrShape, m.rgbDataType, m.mode)
	}
	if n != m.rgbDataType.Channels() {
		return fmt.Errorf("%w: %d channels, RGB data type %s in LED mode %s takes %d",
			ErrShape, n, m.rgbDataType, m.mode, m.rgbDataType.Channels())
	}
	return nil
}

func checkPercent(name string, p float64) error {
	return checkRange(name, p, 0, 100)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

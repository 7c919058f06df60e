package light

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/color"
)

// Command is a user or automation intent for a light.
type Command interface {
	// Kind names the command type for logging and metrics.
	Kind() string
}

// HSBCommand sets hue, saturation and brightness at once.
type HSBCommand color.HSB

// PercentCommand sets the brightness. Through DispatchColorTemperature it sets
// the warmth instead.
type PercentCommand float64

// OnOffCommand switches the light.
type OnOffCommand bool

// StepCommand changes the brightness by the configured step size.
type StepCommand int

const (
	StepIncrease StepCommand = iota
	StepDecrease
)

var stepNames = map[StepCommand]string{
	StepIncrease: "increase",
	StepDecrease: "decrease",
}

// String returns "increase" or "decrease".
func (c StepCommand) String() string {
	return enumString(stepNames, c)
}

// MarshalText implements encoding.TextMarshaler.
func (c StepCommand) MarshalText() ([]byte, error) {
	return enumMarshal(stepNames, c)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *StepCommand) UnmarshalText(text []byte) error {
	return enumUnmarshal(stepNames, string(text), c)
}

// TemperatureCommand sets the color temperature.
type TemperatureCommand Temperature

// TemperaturePercentCommand sets the color temperature as warmth in percent
// between the coolest (0) and warmest (100) controllable temperature.
type TemperaturePercentCommand float64

func (HSBCommand) Kind() string { return "hsb" }
func (PercentCommand) Kind() string { return "percent" }
func (OnOffCommand) Kind() string { return "on_off" }
func (StepCommand) Kind() string { return "step" }
func (TemperatureCommand) Kind() string { return "temperature" }
func (TemperaturePercentCommand) Kind() string { return "temperature_percent" }

// TemperatureUnit is the unit of a Temperature value.
type TemperatureUnit int

const (
	UnitMirek TemperatureUnit = iota
	UnitKelvin
)

var temperatureUnitNames = map[TemperatureUnit]string{
	UnitMirek:  "mirek",
	UnitKelvin: "K",
}

// String returns "mirek" or "K".
func (u TemperatureUnit) String() string {
	return enumString(temperatureUnitNames, u)
}

// MarshalText implements encoding.TextMarshaler.
func (u TemperatureUnit) MarshalText() ([]byte, error) {
	return enumMarshal(temperatureUnitNames, u)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *TemperatureUnit) UnmarshalText(text []byte) error {
	return enumUnmarshal(temperatureUnitNames, string(text), u)
}

// Temperature is a color temperature quantity.
type Temperature struct {
	Value float64         `json:"value"`
	Unit  TemperatureUnit `json:"unit"`
}

// Mirek returns a temperature in Mirek.
func Mirek(v float64) Temperature {
	return Temperature{Value: v, Unit: UnitMirek}
}

// Kelvin returns a temperature in Kelvin.
func Kelvin(v float64) Temperature {
	return Temperature{Value: v, Unit: UnitKelvin}
}

// Mirek converts the quantity to Mirek.
func (t Temperature) Mirek() (float64, error) {
	if !(t.Value > 0) || math.IsInf(t.Value, 1) {
		return 0, fmt.Errorf("%w: temperature %v %s not convertible to mirek", ErrRange, t.Value, t.Unit)
	}
	if t.Unit == UnitKelvin {
		return color.KelvinToMirek(t.Value), nil
	}
	return t.Value, nil
}

// Kelvin converts the quantity to Kelvin.
func (t Temperature) Kelvin() (float64, error) {
	if !(t.Value > 0) || math.IsInf(t.Value, 1) {
		return 0, fmt.Errorf("%w: temperature %v %s not convertible to kelvin", ErrRange, t.Value, t.Unit)
	}
	if t.Unit == UnitMirek {
		return color.MirekToKelvin(t.Value), nil
	}
	return t.Value, nil
}

// Dispatch applies a command to the model.
func (m *Model) Dispatch(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrUnsupportedCommand)
	}
	log.Debug().Str("kind", cmd.Kind()).Interface("command", cmd).Msg("Dispatching light command")

	switch c := cmd.(type) {
	case HSBCommand:
		return m.SetHSB(color.HSB(c))
	case PercentCommand:
		return m.SetBrightness(float64(c))
	case OnOffCommand:
		m.SetOnOff(bool(c))
		return nil
	case StepCommand:
		return m.step(c)
	case TemperatureCommand:
		mirek, err := Temperature(c).Mirek()
		if err != nil {
			return err
		}
		return m.SetMirek(mirek)
	case TemperaturePercentCommand:
		return m.setWarmth(float64(c))
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)
	}
}

// DispatchColorTemperature applies a command received on a color temperature
// channel, where a plain percent means warmth. Other commands are handled as
// by Dispatch.
func (m *Model) DispatchColorTemperature(cmd Command) error {
	if p, ok := cmd.(PercentCommand); ok {
		log.Debug().Float64("warmth", float64(p)).Msg("Dispatching color temperature percent")
		return m.setWarmth(float64(p))
	}
	return m.Dispatch(cmd)
}

func (m *Model) step(dir StepCommand) error {
	delta := m.stepSize
	switch dir {
	case StepIncrease:
	case StepDecrease:
		delta = -delta
	default:
		return fmt.Errorf("%w: step direction %d", ErrRange, int(dir))
	}
	m.applyBrightness(math.Min(math.Max(m.hsb.Brightness+delta, 0), 100))
	return nil
}

func (m *Model) setWarmth(p float64) error {
	if err := checkPercent("color temperature percent", p); err != nil {
		return err
	}
	m.projectMirek(m.clampMirek(m.mirekCoolest + (m.mirekWarmest-m.mirekCoolest)*p/100))
	return nil
}

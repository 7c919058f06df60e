package light

import "fmt"

// Capabilities describes what a light can do. It is chosen once at construction.
type Capabilities int

const (
	CapabilityOnOff Capabilities = iota
	CapabilityBrightness
	CapabilityBrightnessWithColorTemperature
	CapabilityColor
	CapabilityColorWithColorTemperature
)

var capabilityNames = map[Capabilities]string{
	CapabilityOnOff:                          "on_off",
	CapabilityBrightness:                     "brightness",
	CapabilityBrightnessWithColorTemperature: "brightness_with_color_temperature",
	CapabilityColor:                          "color",
	CapabilityColorWithColorTemperature:      "color_with_color_temperature",
}

// SupportsBrightness reports whether the light can be dimmed.
func (c Capabilities) SupportsBrightness() bool {
	return c != CapabilityOnOff
}

// SupportsColor reports whether the light has RGB color control.
func (c Capabilities) SupportsColor() bool {
	return c == CapabilityColor || c == CapabilityColorWithColorTemperature
}

// SupportsColorTemperature reports whether the light has white temperature control.
func (c Capabilities) SupportsColorTemperature() bool {
	return c == CapabilityBrightnessWithColorTemperature || c == CapabilityColorWithColorTemperature
}

func (c Capabilities) valid() bool {
	_, ok := capabilityNames[c]
	return ok
}

// String returns the configuration name of the capability profile.
func (c Capabilities) String() string {
	return enumString(capabilityNames, c)
}

// MarshalText implements encoding.TextMarshaler.
func (c Capabilities) MarshalText() ([]byte, error) {
	return enumMarshal(capabilityNames, c)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Capabilities) UnmarshalText(text []byte) error {
	return enumUnmarshal(capabilityNames, string(text), c)
}

// RGBDataType is the channel layout used by the light for RGBx values.
type RGBDataType int

const (
	// RGBDefault is 3-channel RGB carrying hue, saturation and brightness.
	RGBDefault RGBDataType = iota
	// RGBNoBrightness is 3-channel RGB carrying hue and saturation only.
	RGBNoBrightness
	// RGBW is 4-channel RGB with one white channel.
	RGBW
	// RGBCW is 5-channel RGB with cool and warm white channels.
	RGBCW
)

var rgbDataTypeNames = map[RGBDataType]string{
	RGBDefault:      "default",
	RGBNoBrightness: "rgb_no_brightness",
	RGBW:            "rgb_w",
	RGBCW:           "rgb_c_w",
}

// Channels returns the number of channels in a full RGBx array.
func (t RGBDataType) Channels() int {
	switch t {
	case RGBW:
		return 4
	case RGBCW:
		return 5
	default:
		return 3
	}
}

func (t RGBDataType) valid() bool {
	_, ok := rgbDataTypeNames[t]
	return ok
}

// String returns the configuration name of the data type.
func (t RGBDataType) String() string {
	return enumString(rgbDataTypeNames, t)
}

// MarshalText implements encoding.TextMarshaler.
func (t RGBDataType) MarshalText() ([]byte, error) {
	return enumMarshal(rgbDataTypeNames, t)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RGBDataType) UnmarshalText(text []byte) error {
	return enumUnmarshal(rgbDataTypeNames, string(text), t)
}

// LEDMode is the LED operating mode: which LED groups are driven together.
type LEDMode int

const (
	ModeRGBOnly LEDMode = iota
	ModeCombined
	ModeWhiteOnly
)

var ledModeNames = map[LEDMode]string{
	ModeRGBOnly:   "rgb_only",
	ModeCombined:  "combined",
	ModeWhiteOnly: "white_only",
}

func (m LEDMode) valid() bool {
	_, ok := ledModeNames[m]
	return ok
}

// String returns the configuration name of the mode.
func (m LEDMode) String() string {
	return enumString(ledModeNames, m)
}

// MarshalText implements encoding.TextMarshaler.
func (m LEDMode) MarshalText() ([]byte, error) {
	return enumMarshal(ledModeNames, m)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *LEDMode) UnmarshalText(text []byte) error {
	return enumUnmarshal(ledModeNames, string(text), m)
}

// WhiteLEDKind selects one of the two white LED profiles.
type WhiteLEDKind int

const (
	WhiteLEDCool WhiteLEDKind = iota
	WhiteLEDWarm
)

// String returns "cool" or "warm".
func (k WhiteLEDKind) String() string {
	if k == WhiteLEDWarm {
		return "warm"
	}
	return "cool"
}

func enumString[T comparable](names map[T]string, v T) string {
	if name, ok := names[v]; ok {
		return name
	}
	return "unknown"
}

func enumMarshal[T comparable](names map[T]string, v T) ([]byte, error) {
	name, ok := names[v]
	if !ok {
		return nil, fmt.Errorf("%w: unknown value %v", ErrRange, v)
	}
	return []byte(name), nil
}

func enumUnmarshal[T comparable](names map[T]string, s string, out *T) error {
	for v, name := range names {
		if name == s {
			*out = v
			return nil
		}
	}
	return fmt.Errorf("%w: unknown name %q", ErrRange, s)
}

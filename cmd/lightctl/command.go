package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dokzlo13/lightstate/internal/color"
	"github.com/dokzlo13/lightstate/internal/light"
	"github.com/dokzlo13/lightstate/internal/registry"
)

// source recorded in the ledger for CLI changes
const source = "cli"

var errUsage = errors.New("invalid command")

const commandUsage = `commands:
  on | off | increase | decrease
  brightness <percent>
  hsb <hue> <saturation> <brightness>
  kelvin <K> | mirek <mirek> | ct-percent <warmth>
  rgb <r> <g> <b> [<c>] [<w>]
  xy <x> <y>
  mode rgb_only|combined|white_only`

// parseCommand turns CLI arguments into a registry change.
func parseCommand(args []string) (registry.Change, error) {
	if len(args) == 0 {
		return registry.Change{}, fmt.Errorf("%w: missing command", errUsage)
	}
	name, params := args[0], args[1:]

	nums, err := parseNumbers(params)
	if err != nil && name != "mode" {
		return registry.Change{}, fmt.Errorf("%w: %s: %v", errUsage, name, err)
	}

	arity := func(n int) error {
		if len(params) != n {
			return fmt.Errorf("%w: %s takes %d argument(s), got %d", errUsage, name, n, len(params))
		}
		return nil
	}
	cmd := func(n int, build func() light.Command) (registry.Change, error) {
		if err := arity(n); err != nil {
			return registry.Change{}, err
		}
		return registry.CommandChange(build(), source), nil
	}

	switch name {
	case "on":
		return cmd(0, func() light.Command { return light.OnOffCommand(true) })
	case "off":
		return cmd(0, func() light.Command { return light.OnOffCommand(false) })
	case "increase":
		return cmd(0, func() light.Command { return light.StepIncrease })
	case "decrease":
		return cmd(0, func() light.Command { return light.StepDecrease })
	case "brightness":
		return cmd(1, func() light.Command { return light.PercentCommand(nums[0]) })
	case "hsb":
		return cmd(3, func() light.Command {
			return light.HSBCommand(color.HSB{Hue: nums[0], Saturation: nums[1], Brightness: nums[2]})
		})
	case "kelvin":
		return cmd(1, func() light.Command { return light.TemperatureCommand(light.Kelvin(nums[0])) })
	case "mirek":
		return cmd(1, func() light.Command { return light.TemperatureCommand(light.Mirek(nums[0])) })
	case "ct-percent":
		return cmd(1, func() light.Command { return light.TemperaturePercentCommand(nums[0]) })
	case "rgb":
		if len(nums) < 3 || len(nums) > 5 {
			return registry.Change{}, fmt.Errorf("%w: rgb takes 3 to 5 channels, got %d", errUsage, len(nums))
		}
		return registry.Change{
			Kind:    "rgbx",
			Source:  source,
			Payload: map[string]any{"rgbx": nums},
			Apply:   func(m *light.Model) error { return m.SetRGBx(nums) },
		}, nil
	case "xy":
		if err := arity(2); err != nil {
			return registry.Change{}, err
		}
		return registry.Change{
			Kind:    "xy",
			Source:  source,
			Payload: map[string]any{"x": nums[0], "y": nums[1]},
			Apply:   func(m *light.Model) error { return m.SetXY(nums[0], nums[1]) },
		}, nil
	case "mode":
		if err := arity(1); err != nil {
			return registry.Change{}, err
		}
		var mode light.LEDMode
		if err := mode.UnmarshalText([]byte(params[0])); err != nil {
			return registry.Change{}, fmt.Errorf("%w: %v", errUsage, err)
		}
		return registry.Change{
			Kind:    "led_mode",
			Source:  source,
			Payload: map[string]any{"mode": mode},
			Apply:   func(m *light.Model) error { return m.SetLEDMode(mode) },
		}, nil
	default:
		return registry.Change{}, fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func parseNumbers(params []string) ([]float64, error) {
	nums := make([]float64, len(params))
	for i, p := range params {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", p)
		}
		nums[i] = v
	}
	return nums, nil
}

package lua

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lightstate/internal/color"
	"github.com/dokzlo13/lightstate/internal/light"
	"github.com/dokzlo13/lightstate/internal/registry"
	"github.com/dokzlo13/lightstate/internal/wire"
)

const lightTypeName = "light"

// Source recorded in the ledger for script changes
const Source = "lua"

// lightModule provides light.get(id) and light.ids() to scripts.
//
//	local light = require("light")
//	light.get("kitchen"):on():brightness(40):kelvin(2700)
//	for _, id in ipairs(light.ids()) do light.get(id):off() end
//
// Failed changes raise a Lua error carrying the Go error message and leave
// the light unchanged.
type lightModule struct {
	lights *registry.Registry
}

// lightHandle is the userdata value behind light.get(id).
type lightHandle struct {
	id string
}

func (m *lightModule) loader(L *lua.LState) int {
	mt := L.NewTypeMetatable(lightTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), m.methods()))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("light(" + m.check(L).id + ")"))
		return 1
	}))

	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "ids", L.NewFunction(m.ids))
	L.Push(mod)
	return 1
}

func (m *lightModule) methods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		// Getters
		"id":    m.getID,
		"state": m.state,
		"is_on": m.isOn,
		"rgbx":  m.rgbx,

		// Chainable setters
		"on": m.command(func(L *lua.LState) light.Command {
			return light.OnOffCommand(true)
		}),
		"off": m.command(func(L *lua.LState) light.Command {
			return light.OnOffCommand(false)
		}),
		"brightness": m.command(func(L *lua.LState) light.Command {
			return light.PercentCommand(L.CheckNumber(2))
		}),
		"increase": m.command(func(L *lua.LState) light.Command {
			return light.StepIncrease
		}),
		"decrease": m.command(func(L *lua.LState) light.Command {
			return light.StepDecrease
		}),
		"hsb": m.command(func(L *lua.LState) light.Command {
			return light.HSBCommand(color.HSB{
				Hue:        float64(L.CheckNumber(2)),
				Saturation: float64(L.CheckNumber(3)),
				Brightness: float64(L.CheckNumber(4)),
			})
		}),
		"mirek": m.command(func(L *lua.LState) light.Command {
			return light.TemperatureCommand(light.Mirek(float64(L.CheckNumber(2))))
		}),
		"kelvin": m.command(func(L *lua.LState) light.Command {
			return light.TemperatureCommand(light.Kelvin(float64(L.CheckNumber(2))))
		}),
		"ct_percent": m.command(func(L *lua.LState) light.Command {
			return light.TemperaturePercentCommand(L.CheckNumber(2))
		}),
		"xy":   m.setXY,
		"mode": m.setMode,
	}
}

func (m *lightModule) push(L *lua.LState, id string) {
	ud := L.NewUserData()
	ud.Value = &lightHandle{id: id}
	L.SetMetatable(ud, L.GetTypeMetatable(lightTypeName))
	L.Push(ud)
}

func (m *lightModule) check(L *lua.LState) *lightHandle {
	ud := L.CheckUserData(1)
	if h, ok := ud.Value.(*lightHandle); ok {
		return h
	}
	L.ArgError(1, "light expected")
	return nil
}

// light.get(id) -> light
func (m *lightModule) get(L *lua.LState) int {
	id := L.CheckString(1)
	if _, ok := m.lights.Name(id); !ok {
		L.RaiseError("unknown light: %s", id)
		return 0
	}
	m.push(L, id)
	return 1
}

// light.ids() -> {id, ...}
func (m *lightModule) ids(L *lua.LState) int {
	tbl := L.NewTable()
	for _, id := range m.lights.IDs() {
		tbl.Append(lua.LString(id))
	}
	L.Push(tbl)
	return 1
}

// update applies a change and returns self, raising on failure.
func (m *lightModule) update(L *lua.LState, change registry.Change) int {
	h := m.check(L)
	ud := L.Get(1)
	if err := m.lights.Update(h.id, change); err != nil {
		L.RaiseError("%s: %s", h.id, err.Error())
		return 0
	}
	L.Push(ud)
	return 1
}

func (m *lightModule) command(build func(L *lua.LState) light.Command) lua.LGFunction {
	return func(L *lua.LState) int {
		return m.update(L, registry.CommandChange(build(L), Source))
	}
}

func (m *lightModule) setRGBx(L *lua.LState) int {
	channels := checkNumbers(L, 2)
	return m.update(L, registry.Change{
		Kind:    "rgbx",
		Source:  Source,
		Payload: map[string]any{"rgbx": channels},
		Apply:   func(model *light.Model) error { return model.SetRGBx(channels) },
	})
}

// light:xy(x, y) -> self
func (m *lightModule) setXY(L *lua.LState) int {
	x, y := float64(L.CheckNumber(2)), float64(L.CheckNumber(3))
	return m.update(L, registry.Change{
		Kind:    "xy",
		Source:  Source,
		Payload: map[string]any{"x": x, "y": y},
		Apply:   func(model *light.Model) error { return model.SetXY(x, y) },
	})
}

// light:mode("rgb_only" | "combined" | "white_only") -> self
func (m *lightModule) setMode(L *lua.LState) int {
	var mode light.LEDMode
	if err := mode.UnmarshalText([]byte(L.CheckString(2))); err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	return m.update(L, registry.Change{
		Kind:    "led_mode",
		Source:  Source,
		Payload: map[string]any{"mode": mode},
		Apply:   func(model *light.Model) error { return model.SetLEDMode(mode) },
	})
}

// view returns a copy of the light's model, raising on failure.
func (m *lightModule) view(L *lua.LState) (*light.Model, bool) {
	h := m.check(L)
	model, err := m.lights.View(h.id)
	if err != nil {
		L.RaiseError("%s: %s", h.id, err.Error())
		return nil, false
	}
	return model, true
}

// light:id() -> string
func (m *lightModule) getID(L *lua.LState) int {
	L.Push(lua.LString(m.check(L).id))
	return 1
}

// light:state() -> table with the published state fields
func (m *lightModule) state(L *lua.LState) int {
	model, ok := m.view(L)
	if !ok {
		return 0
	}
	tbl, err := structToLua(L, wire.StateFromModel(model))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(tbl)
	return 1
}

// light:is_on() -> bool
func (m *lightModule) isOn(L *lua.LState) int {
	model, ok := m.view(L)
	if !ok {
		return 0
	}
	on, _ := model.OnOff(true)
	L.Push(lua.LBool(on))
	return 1
}

// light:rgbx() -> {r, g, b, ...}
// light:rgbx({r, g, b, ...}) -> self
func (m *lightModule) rgbx(L *lua.LState) int {
	if L.GetTop() >= 2 {
		return m.setRGBx(L)
	}
	model, ok := m.view(L)
	if !ok {
		return 0
	}
	channels, err := model.RGBx()
	if err != nil {
		L.RaiseError("%s: %s", m.check(L).id, err.Error())
		return 0
	}
	tbl := L.NewTable()
	for _, v := range channels {
		tbl.Append(lua.LNumber(v))
	}
	L.Push(tbl)
	return 1
}

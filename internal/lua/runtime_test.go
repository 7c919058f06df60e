package lua

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/registry"
)

func newRuntime(t *testing.T) (*Runtime, *registry.Registry) {
	t.Helper()
	lights, err := registry.New([]config.LightConfig{
		{ID: "kitchen", Name: "Kitchen", Capabilities: "color_with_color_temperature", RGBDataType: "rgb_c_w"},
		{ID: "hall", Name: "Hall", Capabilities: "brightness", RGBDataType: "rgb_w"},
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRuntime(lights)
	t.Cleanup(r.Close)
	return r, lights
}

func TestRuntime_ChainedCommands(t *testing.T) {
	r, lights := newRuntime(t)

	err := r.RunString(context.Background(), `
		local light = require("light")
		light.get("hall"):on():brightness(40):increase()
		light.get("kitchen"):hsb(120, 100, 50):kelvin(2500)
	`)
	if err != nil {
		t.Fatal(err)
	}

	hall, _ := lights.View("hall")
	if bri, _ := hall.Brightness(false); bri != 50 {
		t.Errorf("hall brightness = %v, want 50", bri)
	}
	kitchen, _ := lights.View("kitchen")
	if kitchen.Mirek() != 400 {
		t.Errorf("kitchen mirek = %v, want 400", kitchen.Mirek())
	}
	if kitchen.HSB().Brightness != 50 {
		t.Errorf("kitchen brightness = %v, want 50", kitchen.HSB().Brightness)
	}
}

func TestRuntime_Getters(t *testing.T) {
	r, _ := newRuntime(t)

	err := r.RunString(context.Background(), `
		local light = require("light")
		local ids = light.ids()
		assert(#ids == 2 and ids[1] == "hall" and ids[2] == "kitchen", "ids")

		local hall = light.get("hall")
		assert(hall:id() == "hall")
		assert(not hall:is_on(), "hall starts off")
		hall:brightness(100)
		assert(hall:is_on(), "hall is on")

		local st = hall:state()
		assert(st.state == "ON", "state")
		assert(st.brightness == 255, "brightness " .. tostring(st.brightness))

		local ch = hall:rgbx()
		assert(#ch == 4 and ch[4] == 255, "rgbx")

		local kitchen = light.get("kitchen"):mode("rgb_only"):rgbx({255, 0, 0})
		assert(#kitchen:rgbx() == 5, "rgb only pads white channels")
		assert(tostring(kitchen) == "light(kitchen)")
	`)
	if err != nil {
		t.Fatal(err)
	}
}

func TestRuntime_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"unknown_light", `require("light").get("garage")`, "unknown light: garage"},
		{"range", `require("light").get("hall"):brightness(200)`, "hall: value out of range"},
		{"bad_mode", `require("light").get("hall"):mode("disco")`, "bad argument"},
		{"bad_channels", `require("light").get("hall"):rgbx({1, "x"})`, "element 2 is not a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRuntime(t)
			err := r.RunString(context.Background(), tt.script)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestRuntime_ErrorLeavesLightUnchanged(t *testing.T) {
	r, lights := newRuntime(t)

	err := r.RunString(context.Background(), `
		local hall = require("light").get("hall")
		hall:brightness(30)
		local ok = pcall(function() hall:brightness(-1) end)
		assert(not ok)
	`)
	if err != nil {
		t.Fatal(err)
	}
	hall, _ := lights.View("hall")
	if bri, _ := hall.Brightness(false); bri != 30 {
		t.Errorf("brightness = %v, want 30", bri)
	}
}

func TestRuntime_RunFile(t *testing.T) {
	r, lights := newRuntime(t)

	path := filepath.Join(t.TempDir(), "scene.lua")
	script := `
		local light = require("light")
		local log = require("log")
		for _, id in ipairs(light.ids()) do
			light.get(id):on()
			log.info("switched on", {light = id})
		end
	`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.RunFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	for _, id := range lights.IDs() {
		m, _ := lights.View(id)
		if on, _ := m.OnOff(true); !on {
			t.Errorf("%s should be ON", id)
		}
	}
}

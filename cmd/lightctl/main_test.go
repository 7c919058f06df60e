package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/light"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args     []string
		wantKind string
		wantErr  bool
	}{
		{[]string{"on"}, "on_off", false},
		{[]string{"off"}, "on_off", false},
		{[]string{"increase"}, "step", false},
		{[]string{"brightness", "40"}, "percent", false},
		{[]string{"hsb", "120", "100", "50"}, "hsb", false},
		{[]string{"kelvin", "2700"}, "temperature", false},
		{[]string{"mirek", "300"}, "temperature", false},
		{[]string{"ct-percent", "25"}, "temperature_percent", false},
		{[]string{"rgb", "255", "0", "0"}, "rgbx", false},
		{[]string{"rgb", "255", "0", "0", "10", "20"}, "rgbx", false},
		{[]string{"xy", "0.3", "0.3"}, "xy", false},
		{[]string{"mode", "white_only"}, "led_mode", false},
		{nil, "", true},
		{[]string{"on", "now"}, "", true},
		{[]string{"brightness"}, "", true},
		{[]string{"brightness", "bright"}, "", true},
		{[]string{"hsb", "1", "2"}, "", true},
		{[]string{"rgb", "1", "2"}, "", true},
		{[]string{"mode", "disco"}, "", true},
		{[]string{"dance"}, "", true},
	}
	for _, tt := range tests {
		name := "empty"
		if len(tt.args) > 0 {
			name = tt.args[0]
		}
		t.Run(name, func(t *testing.T) {
			change, err := parseCommand(tt.args)
			if tt.wantErr {
				if !errors.Is(err, errUsage) {
					t.Fatalf("err = %v, want errUsage", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if change.Kind != tt.wantKind || change.Source != source || change.Apply == nil {
				t.Errorf("change = %+v, want kind %q", change, tt.wantKind)
			}
		})
	}
}

func TestParseCommand_Applies(t *testing.T) {
	m, err := light.New(light.CapabilityColorWithColorTemperature, light.RGBCW, light.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{
		{"hsb", "200", "40", "60"},
		{"mirek", "320"},
		{"decrease"},
	} {
		change, err := parseCommand(args)
		if err != nil {
			t.Fatal(err)
		}
		if err := change.Apply(m); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	if m.Mirek() != 320 {
		t.Errorf("mirek = %v, want 320", m.Mirek())
	}
	if m.HSB().Brightness != 50 {
		t.Errorf("brightness = %v, want 50", m.HSB().Brightness)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
database:
  path: ` + filepath.Join(t.TempDir(), "lightctl.sqlite") + `
lights:
  - id: desk
    name: Desk
    capabilities: brightness
  - id: strip
    capabilities: color
`))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRun_ApplyStateHistory(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	if err := run(cfg, "apply", []string{"desk", "brightness", "40"}, &out); err != nil {
		t.Fatal(err)
	}
	var st map[string]any
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("apply output: %v\n%s", err, out.String())
	}
	if st["id"] != "desk" || st["state"] != "ON" || st["brightness"] != float64(102) {
		t.Errorf("apply output = %v", st)
	}

	out.Reset()
	if err := run(cfg, "state", nil, &out); err != nil {
		t.Fatal(err)
	}
	var all []map[string]any
	if err := json.Unmarshal(out.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0]["id"] != "desk" || all[0]["brightness"] != float64(102) {
		t.Errorf("state output = %v", all)
	}

	out.Reset()
	if err := run(cfg, "history", []string{"5"}, &out); err != nil {
		t.Fatal(err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0]["kind"] != "percent" || entries[0]["source"] != "cli" {
		t.Errorf("history = %v", entries)
	}
}

func TestRun_Script(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "evening.lua")
	if err := os.WriteFile(path, []byte(`require("light").get("strip"):hsb(30, 80, 70)`), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(cfg, "run", []string{path}, &out); err != nil {
		t.Fatal(err)
	}
	if err := run(cfg, "state", []string{"strip"}, &out); err != nil {
		t.Fatal(err)
	}
	var st map[string]any
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	c, _ := st["color"].(map[string]any)
	if c == nil || c["h"] != float64(30) || c["s"] != float64(80) {
		t.Errorf("state = %v", st)
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	tests := []struct {
		subcommand string
		args       []string
	}{
		{"apply", []string{"desk"}},
		{"apply", []string{"desk", "warp"}},
		{"history", []string{"-1"}},
		{"run", nil},
		{"frobnicate", nil},
	}
	for _, tt := range tests {
		t.Run(tt.subcommand, func(t *testing.T) {
			if err := run(cfg, tt.subcommand, tt.args, &out); !errors.Is(err, errUsage) {
				t.Errorf("err = %v, want errUsage", err)
			}
		})
	}

	if err := run(cfg, "apply", []string{"desk", "brightness", "140"}, &out); !errors.Is(err, light.ErrRange) {
		t.Errorf("err = %v, want ErrRange", err)
	}
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/light"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(`
database:
  path: ` + filepath.Join(dir, "lightctl.sqlite") + `
metrics:
  textfile: ` + filepath.Join(dir, "lightctl.prom") + `
lights:
  - id: desk
    capabilities: brightness_with_color_temperature
    rgb_data_type: rgb_c_w
    hue_id: 3
`))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestServices_StatePersistsAcrossRuns(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewServices(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Lights.Dispatch("desk", light.TemperatureCommand(light.Kelvin(2500)), "test"); err != nil {
		t.Fatal(err)
	}
	if err := s.Lights.Dispatch("desk", light.PercentCommand(35), "test"); err != nil {
		t.Fatal(err)
	}
	s.WriteMetrics()
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(cfg.Metrics.Textfile); err != nil {
		t.Errorf("metrics textfile not written: %v", err)
	}

	s, err = NewServices(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	m, err := s.Lights.View("desk")
	if err != nil {
		t.Fatal(err)
	}
	if m.Mirek() != 400 {
		t.Errorf("mirek = %v, want 400", m.Mirek())
	}
	if bri, _ := m.Brightness(false); bri != 35 {
		t.Errorf("brightness = %v, want 35", bri)
	}

	entries, err := s.Ledger.ForLight("desk", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("ledger has %d entries, want 2", len(entries))
	}

	// Recent entries survive the retention cleanup
	s.CleanupLedger()
	if entries, _ := s.Ledger.ForLight("desk", 10); len(entries) != 2 {
		t.Errorf("cleanup removed recent entries, %d left", len(entries))
	}
}

func TestApp_StartStop(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	a.Wait()
	if err := a.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestHueIDs(t *testing.T) {
	ids := hueIDs([]config.LightConfig{
		{ID: "desk", HueID: 3},
		{ID: "hall"},
	})
	if len(ids) != 1 || ids["desk"] != 3 {
		t.Errorf("ids = %v", ids)
	}
}

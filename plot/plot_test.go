package plot

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"rover_sensor_logger/config"
	"rover_sensor_logger/models"
)

func testRenderer(dir string) *Renderer {
	cfg := config.Default()
	cfg.Plot.OutputDir = dir
	return NewRenderer(cfg.Plot)
}

func sampleTable() *models.Table {
	table := &models.Table{Schema: models.SchemaEnv}
	for ms := int64(0); ms < 10000; ms += 1000 {
		table.Records = append(table.Records,
			models.Record{TimeMs: ms, Site: 1, Sensor: "MQ4_CH4", Value: 12.5 + float64(ms)/1000, Unit: "ppm"},
			models.Record{TimeMs: ms, Site: 1, Sensor: "BME_TEMP", Value: 24.0, Unit: "C"},
		)
	}
	return table
}

func decodeBounds(t *testing.T, path string) image.Rectangle {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return img.Bounds()
}

func TestRenderGasWritesPNG(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(dir)
	path := filepath.Join(dir, "gas.png")

	if err := r.RenderGas(sampleTable(), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bounds := decodeBounds(t, path)
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		t.Errorf("degenerate image: %v", bounds)
	}
}

func TestRenderEmptyTableUsesPlaceholders(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(dir)
	path := filepath.Join(dir, "empty.png")

	// No records at all: every panel is a placeholder, never a crash.
	table := &models.Table{Schema: models.SchemaEnv}
	if err := r.RenderGas(table, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bounds := decodeBounds(t, path)
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		t.Errorf("degenerate image: %v", bounds)
	}
}

func TestRenderMissingSensorKeepsGrid(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(dir)

	// Only one of the four gas sensors has data; the figure must still
	// cover the full fixed grid.
	full := filepath.Join(dir, "full.png")
	sparse := filepath.Join(dir, "sparse.png")

	if err := r.RenderGas(sampleTable(), full); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table := &models.Table{Schema: models.SchemaEnv, Records: []models.Record{
		{TimeMs: 1000, Site: 1, Sensor: "MQ8_H2", Value: 25.0, Unit: "ppm"},
	}}
	if err := r.RenderGas(table, sparse); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decodeBounds(t, full) != decodeBounds(t, sparse) {
		t.Error("sparse table changed the figure dimensions")
	}
}

func TestRenderIdempotent(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(dir)
	table := sampleTable()

	first := filepath.Join(dir, "first.png")
	second := filepath.Join(dir, "second.png")
	if err := r.RenderEnvironment(table, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.RenderEnvironment(table, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decodeBounds(t, first) != decodeBounds(t, second) {
		t.Error("re-rendering the same table changed the layout")
	}
}

func TestSiteFilterDisabledForGasLayout(t *testing.T) {
	r := testRenderer(t.TempDir())

	gasTable := &models.Table{Schema: models.SchemaGas}
	if got := r.siteFilter(gasTable); got != 0 {
		t.Errorf("gas layout site filter = %d, want 0 (disabled)", got)
	}
	envTable := &models.Table{Schema: models.SchemaEnv}
	if got := r.siteFilter(envTable); got != r.Site {
		t.Errorf("env layout site filter = %d, want %d", got, r.Site)
	}
}

func TestUnitLabelFallsBackToPanelUnit(t *testing.T) {
	pc := config.PanelConfig{Sensor: "MQ4_CH4", Title: "MQ-4", Unit: "ppm"}

	if got := unitLabel(models.Record{Unit: "mg/m3"}, pc); got != "mg/m3" {
		t.Errorf("unit = %q, want captured unit", got)
	}
	if got := unitLabel(models.Record{}, pc); got != "ppm" {
		t.Errorf("unit = %q, want panel fallback", got)
	}
}

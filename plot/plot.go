// Package plot renders capture tables into fixed-layout PNG figures:
// a 2x2 gas sensor grid and a 1x3 environment grid.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"rover_sensor_logger/config"
	"rover_sensor_logger/logger"
	"rover_sensor_logger/models"
)

const (
	panelWidth  = 5 * vg.Inch
	panelHeight = 3.5 * vg.Inch
)

// Matches the matplotlib tab palette the rover team uses in reports.
var palette = []color.Color{
	colornames.Steelblue,
	colornames.Darkorange,
	colornames.Forestgreen,
	colornames.Firebrick,
}

// Renderer draws capture tables with a fixed panel layout. The panel
// lists come from configuration so tests can substitute fixtures.
type Renderer struct {
	Site      int
	OutputDir string
	GasPanels []config.PanelConfig
	EnvPanels []config.PanelConfig
}

// NewRenderer builds a renderer from the plot configuration.
func NewRenderer(cfg config.PlotConfig) *Renderer {
	return &Renderer{
		Site:      cfg.Site,
		OutputDir: cfg.OutputDir,
		GasPanels: cfg.GasPanels,
		EnvPanels: cfg.EnvPanels,
	}
}

// RenderAll renders the gas and environment figures with a shared
// timestamp and returns the written file paths. Rendering the same
// table twice produces figures with identical dimensions and layout.
func (r *Renderer) RenderAll(table *models.Table) ([]string, error) {
	stamp := time.Now().Format("20060102_150405")

	gasPath := filepath.Join(r.OutputDir, fmt.Sprintf("mq_sensors_%s.png", stamp))
	if err := r.RenderGas(table, gasPath); err != nil {
		return nil, err
	}
	logger.Printf("Saved: %s\n", gasPath)

	envPath := filepath.Join(r.OutputDir, fmt.Sprintf("environment_%s.png", stamp))
	if err := r.RenderEnvironment(table, envPath); err != nil {
		return []string{gasPath}, err
	}
	logger.Printf("Saved: %s\n", envPath)

	return []string{gasPath, envPath}, nil
}

// RenderGas draws the 2x2 gas sensor grid.
func (r *Renderer) RenderGas(table *models.Table, path string) error {
	return r.renderGrid(table, r.GasPanels, 2, 2, path)
}

// RenderEnvironment draws the 1x3 environment grid.
func (r *Renderer) RenderEnvironment(table *models.Table, path string) error {
	return r.renderGrid(table, r.EnvPanels, 1, 3, path)
}

func (r *Renderer) renderGrid(table *models.Table, panels []config.PanelConfig, rows, cols int, path string) error {
	grid := make([][]*plot.Plot, rows)
	for i := range grid {
		grid[i] = make([]*plot.Plot, cols)
		for j := range grid[i] {
			k := i*cols + j
			if k < len(panels) {
				grid[i][j] = r.panel(table, panels[k], palette[k%len(palette)])
			} else {
				// Unused grid cell: keep the layout fixed.
				grid[i][j] = placeholder("")
			}
		}
	}

	img := vgimg.New(vg.Length(cols)*panelWidth, vg.Length(rows)*panelHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter * 4,
		PadY: vg.Millimeter * 4,
	}

	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		for j := range grid[i] {
			if grid[i][j] != nil {
				grid[i][j].Draw(canvases[i][j])
			}
		}
	}

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	defer w.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// panel draws one sensor series, or a placeholder when the table has
// no matching records.
func (r *Renderer) panel(table *models.Table, pc config.PanelConfig, lineColor color.Color) *plot.Plot {
	series := table.Series(pc.Sensor, r.siteFilter(table))
	if len(series) == 0 {
		return placeholder(pc.Title + " (no data)")
	}

	p := plot.New()
	p.Title.Text = pc.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = unitLabel(series[0], pc)
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(series))
	for i, rec := range series {
		pts[i].X = rec.TimeSeconds()
		pts[i].Y = rec.Value
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		logger.Errorf("failed to build line for %s: %v\n", pc.Sensor, err)
		return placeholder(pc.Title + " (no data)")
	}
	line.Color = lineColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	return p
}

// siteFilter returns the configured site for the site-aware layout and
// disables filtering for the headerless gas layout, whose scripts
// always plotted all sites.
func (r *Renderer) siteFilter(table *models.Table) int {
	if table.Schema == models.SchemaGas {
		return 0
	}
	return r.Site
}

// unitLabel prefers the unit captured with the data over the panel's
// configured fallback (the gas layout has no unit column).
func unitLabel(rec models.Record, pc config.PanelConfig) string {
	if rec.Unit != "" {
		return rec.Unit
	}
	return pc.Unit
}

func placeholder(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	return p
}

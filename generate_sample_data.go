//go:build ignore

// Generates synthetic capture CSV files in both layouts so the plot
// and import commands can be exercised without the rover attached.
//
// Usage: go run generate_sample_data.go <output_directory>
package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

const (
	sessionSeconds = 420
	sampleEveryMs  = 2000
	site           = 1
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run generate_sample_data.go <output_directory>")
		fmt.Println("Example: go run generate_sample_data.go sample_data")
		return
	}

	outputDir := os.Args[1]
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Failed to create directory: %v\n", err)
		return
	}

	if err := writeGasSession(filepath.Join(outputDir, "data_gas_sample.csv")); err != nil {
		fmt.Printf("Failed to write gas sample: %v\n", err)
		return
	}
	if err := writeEnvSession(filepath.Join(outputDir, "data_env_sample.csv")); err != nil {
		fmt.Printf("Failed to write env sample: %v\n", err)
		return
	}

	fmt.Println("Sample capture data generated.")
}

// writeGasSession emits the headerless 6-column layout:
// time_ms,site,sensor,rs_kohm,rs_ro,ppm
func writeGasSession(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sensors := []struct {
		name    string
		basePpm float64
	}{
		{"MQ4_CH4", 12.0},
		{"MQ136_H2S", 3.5},
		{"MQ8_H2", 25.0},
		{"MQ135_CO2", 410.0},
	}

	for ms := int64(0); ms < sessionSeconds*1000; ms += sampleEveryMs {
		t := float64(ms) / 1000.0
		for i, s := range sensors {
			// Warmup spike decaying over the first minute, then noise.
			spike := s.basePpm * 2 * math.Exp(-t/30)
			noise := rand.Float64()*s.basePpm*0.1 - s.basePpm*0.05
			ppm := s.basePpm + spike + noise
			rsKohm := 10.0 + float64(i) + rand.Float64()
			rsRo := rsKohm / (9.8 + float64(i))
			line := fmt.Sprintf("%d,%d,%s,%.2f,%.3f,%.2f\n", ms, site, s.name, rsKohm, rsRo, ppm)
			if _, err := f.WriteString(line); err != nil {
				return err
			}
		}
	}

	fmt.Printf("Generated %s\n", path)
	return nil
}

// writeEnvSession emits the 8-column layout with its header:
// time_ms,site,sensor,value,unit,temp_C,hum_pct,press_hPa
func writeEnvSession(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString("time_ms,site,sensor,value,unit,temp_C,hum_pct,press_hPa\n"); err != nil {
		return err
	}

	gas := []struct {
		name string
		base float64
		unit string
	}{
		{"MQ4_CH4", 12.0, "ppm"},
		{"MQ136_H2S", 3.5, "ppm"},
		{"MQ8_H2", 25.0, "ppm"},
		{"MQ135_CO2", 410.0, "ppm"},
	}

	for ms := int64(0); ms < sessionSeconds*1000; ms += sampleEveryMs {
		t := float64(ms) / 1000.0
		temp := 24.0 + 2.0*math.Sin(t/60) + rand.Float64()*0.4 - 0.2
		hum := 55.0 - t/100 + rand.Float64()*2 - 1
		press := 1013.25 + math.Sin(t/120) + rand.Float64()*0.2 - 0.1

		for _, g := range gas {
			value := g.base + g.base*2*math.Exp(-t/30) + rand.Float64()*g.base*0.1
			line := fmt.Sprintf("%d,%d,%s,%.2f,%s,%.2f,%.2f,%.2f\n",
				ms, site, g.name, value, g.unit, temp, hum, press)
			if _, err := f.WriteString(line); err != nil {
				return err
			}
		}

		env := []struct {
			name  string
			value float64
			unit  string
		}{
			{"BME_TEMP", temp, "C"},
			{"BME_HUM", hum, "%"},
			{"BME_PRESS", press, "hPa"},
		}
		for _, e := range env {
			line := fmt.Sprintf("%d,%d,%s,%.2f,%s,%.2f,%.2f,%.2f\n",
				ms, site, e.name, e.value, e.unit, temp, hum, press)
			if _, err := f.WriteString(line); err != nil {
				return err
			}
		}
	}

	fmt.Printf("Generated %s\n", path)
	return nil
}

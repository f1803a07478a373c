package models

import "testing"

func TestTimeSecondsExact(t *testing.T) {
	cases := []struct {
		ms   int64
		want float64
	}{
		{0, 0},
		{500, 0.5},
		{1000, 1.0},
		{60000, 60.0},
		{419999, 419.999},
	}
	for _, c := range cases {
		r := Record{TimeMs: c.ms}
		if got := r.TimeSeconds(); got != c.want {
			t.Errorf("TimeSeconds(%d) = %v, want %v", c.ms, got, c.want)
		}
	}
}

func TestSeriesFiltersSensorAndSite(t *testing.T) {
	table := &Table{
		Schema: SchemaEnv,
		Records: []Record{
			{TimeMs: 1000, Site: 1, Sensor: "MQ4_CH4", Value: 12.5},
			{TimeMs: 1000, Site: 2, Sensor: "MQ4_CH4", Value: 13.0},
			{TimeMs: 2000, Site: 1, Sensor: "MQ4_CH4", Value: 12.6},
			{TimeMs: 1000, Site: 1, Sensor: "BME_TEMP", Value: 24.1},
		},
	}

	series := table.Series("MQ4_CH4", 1)
	if len(series) != 2 {
		t.Fatalf("series length = %d, want 2", len(series))
	}
	// Table order is capture order; the series must preserve it.
	if series[0].TimeMs != 1000 || series[1].TimeMs != 2000 {
		t.Errorf("series out of order: %+v", series)
	}

	if got := table.Series("MQ4_CH4", 0); len(got) != 3 {
		t.Errorf("unfiltered site series = %d, want 3", len(got))
	}
	if got := table.Series("MQ9_CO", 1); got != nil {
		t.Errorf("missing sensor series = %v, want nil", got)
	}
}

func TestSensorsFirstSeenOrder(t *testing.T) {
	table := &Table{Records: []Record{
		{Sensor: "MQ8_H2"},
		{Sensor: "MQ4_CH4"},
		{Sensor: "MQ8_H2"},
		{Sensor: "BME_TEMP"},
	}}

	got := table.Sensors()
	want := []string{"MQ8_H2", "MQ4_CH4", "BME_TEMP"}
	if len(got) != len(want) {
		t.Fatalf("sensors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sensors = %v, want %v", got, want)
		}
	}
}

func TestNewReading(t *testing.T) {
	rec := Record{TimeMs: 1000, Site: 1, Sensor: "MQ4_CH4", Value: 12.5, Unit: "ppm"}
	reading := NewReading(rec, "data_20260131_120000.csv")

	if reading.TimeMs != 1000 || reading.Site != 1 || reading.Sensor != "MQ4_CH4" {
		t.Errorf("reading fields: %+v", reading)
	}
	if reading.Value != 12.5 || reading.Unit != "ppm" {
		t.Errorf("reading value/unit: %+v", reading)
	}
	if reading.SourceCSV != "data_20260131_120000.csv" {
		t.Errorf("source = %q", reading.SourceCSV)
	}
}

package models

// Schema identifies which of the two capture CSV layouts a table uses.
type Schema int

const (
	// SchemaGas is the headerless 6-column layout:
	// time_ms,site,sensor,rs_kohm,rs_ro,ppm
	SchemaGas Schema = iota
	// SchemaEnv is the 8-column layout with a header row:
	// time_ms,site,sensor,value,unit,temp_C,hum_pct,press_hPa
	SchemaEnv
)

func (s Schema) String() string {
	switch s {
	case SchemaGas:
		return "gas (headerless, 6 columns)"
	case SchemaEnv:
		return "env (header, 8 columns)"
	}
	return "unknown"
}

// EnvHeader is the header line written at the start of every capture
// session. It matches the line the firmware prints itself, which the
// capture loop filters out as a duplicate.
const EnvHeader = "time_ms,site,sensor,value,unit,temp_C,hum_pct,press_hPa"

// Record is one parsed observation. TimeMs/Site/Sensor/Value are
// populated for both schemas; the remaining fields depend on the
// schema (zero values otherwise).
type Record struct {
	TimeMs int64
	Site   int
	Sensor string
	Value  float64
	Unit   string

	// SchemaGas tail
	RsKohm float64
	RsRo   float64

	// SchemaEnv tail
	TempC    float64
	HumPct   float64
	PressHPa float64
}

// TimeSeconds returns the elapsed time of the observation in seconds.
func (r Record) TimeSeconds() float64 {
	return float64(r.TimeMs) / 1000.0
}

// Table is the ordered contents of one capture CSV file. Record order
// is capture order; the loader never reorders or deduplicates.
type Table struct {
	Schema  Schema
	Records []Record
}

// Series returns the subsequence of records for one sensor at one
// site, in table order. Site filtering only applies when the schema
// carries a meaningful site column for the query (site <= 0 disables
// the filter).
func (t *Table) Series(sensor string, site int) []Record {
	var out []Record
	for _, r := range t.Records {
		if r.Sensor != sensor {
			continue
		}
		if site > 0 && r.Site != site {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sensors returns the distinct sensor ids present, in first-seen order.
func (t *Table) Sensors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Records {
		if !seen[r.Sensor] {
			seen[r.Sensor] = true
			out = append(out, r.Sensor)
		}
	}
	return out
}

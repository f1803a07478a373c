package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SerialConfig holds the serial link settings
type SerialConfig struct {
	Port          string   `yaml:"port"` // empty means autodetect
	BaudRate      int      `yaml:"baud_rate"`
	ReadTimeoutMs int      `yaml:"read_timeout_ms"`
	ResetDelayMs  int      `yaml:"reset_delay_ms"`
	PortFragments []string `yaml:"port_fragments"`
}

// CaptureConfig holds the capture session settings
type CaptureConfig struct {
	DurationSeconds int      `yaml:"duration_seconds"`
	OutputDir       string   `yaml:"output_dir"`
	LatestFile      string   `yaml:"latest_file"`
	NoiseMarkers    []string `yaml:"noise_markers"`
}

// PanelConfig describes one chart panel
type PanelConfig struct {
	Sensor string `yaml:"sensor"`
	Title  string `yaml:"title"`
	Unit   string `yaml:"unit"`
}

// PlotConfig holds the chart rendering settings
type PlotConfig struct {
	Site      int           `yaml:"site"`
	OutputDir string        `yaml:"output_dir"`
	GasPanels []PanelConfig `yaml:"gas_panels"`
	EnvPanels []PanelConfig `yaml:"env_panels"`
}

// MySQLConfig holds MySQL specific configuration
type MySQLConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	DBName    string `yaml:"dbname"`
	Charset   string `yaml:"charset"`
	ParseTime bool   `yaml:"parse_time"`
	Loc       string `yaml:"loc"`
}

// PostgresConfig holds PostgreSQL specific configuration
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	TimeZone string `yaml:"timezone"`
}

// SQLiteConfig holds SQLite specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxIdleConns    int `yaml:"max_idle_conns"`
	MaxOpenConns    int `yaml:"max_open_conns"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime"`
}

// DatabaseConfig holds the archive database configuration
type DatabaseConfig struct {
	Driver         string         `yaml:"driver"`
	MySQL          MySQLConfig    `yaml:"mysql"`
	PostgreSQL     PostgresConfig `yaml:"postgres"`
	SQLite         SQLiteConfig   `yaml:"sqlite"`
	ConnectionPool PoolConfig     `yaml:"connection_pool"`
}

// MigrationConfig holds migration specific configuration
type MigrationConfig struct {
	AutoMigrate    bool   `yaml:"auto_migrate"`
	MigrationTable string `yaml:"migration_table"`
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	LogFile      string `yaml:"log_file"`
	LogToConsole bool   `yaml:"log_to_console"`
	LogLevel     string `yaml:"log_level"`
}

// Config holds the complete application configuration
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Capture   CaptureConfig   `yaml:"capture"`
	Plot      PlotConfig      `yaml:"plot"`
	Database  DatabaseConfig  `yaml:"database"`
	Migration MigrationConfig `yaml:"migration"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the built-in configuration used when no config.yaml
// is present. The noise markers and panel lists match the rover
// firmware's serial output.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from the specified YAML file. A missing
// file is not an error; the tool runs on defaults so capture works on
// a bare checkout.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = 9600
	}
	if c.Serial.ReadTimeoutMs == 0 {
		c.Serial.ReadTimeoutMs = 1000
	}
	if c.Serial.ResetDelayMs == 0 {
		c.Serial.ResetDelayMs = 2000
	}
	if len(c.Serial.PortFragments) == 0 {
		c.Serial.PortFragments = []string{"usbmodem", "usbserial", "ttyUSB", "ttyACM", "wchusbserial"}
	}

	if c.Capture.DurationSeconds == 0 {
		c.Capture.DurationSeconds = 420
	}
	if c.Capture.OutputDir == "" {
		c.Capture.OutputDir = "."
	}
	if c.Capture.LatestFile == "" {
		c.Capture.LatestFile = "data.csv"
	}
	if len(c.Capture.NoiseMarkers) == 0 {
		c.Capture.NoiseMarkers = []string{"Warming", "remaining", "Calibrat", "complete", "Ro:", "time_ms"}
	}

	if c.Plot.Site == 0 {
		c.Plot.Site = 1
	}
	if c.Plot.OutputDir == "" {
		c.Plot.OutputDir = c.Capture.OutputDir
	}
	if len(c.Plot.GasPanels) == 0 {
		c.Plot.GasPanels = []PanelConfig{
			{Sensor: "MQ4_CH4", Title: "MQ-4 Methane (CH4)", Unit: "ppm"},
			{Sensor: "MQ136_H2S", Title: "MQ-136 H2S", Unit: "ppm"},
			{Sensor: "MQ8_H2", Title: "MQ-8 Hydrogen (H2)", Unit: "ppm"},
			{Sensor: "MQ135_CO2", Title: "MQ-135 CO2", Unit: "ppm"},
		}
	}
	if len(c.Plot.EnvPanels) == 0 {
		c.Plot.EnvPanels = []PanelConfig{
			{Sensor: "BME_TEMP", Title: "Temperature", Unit: "C"},
			{Sensor: "BME_HUM", Title: "Humidity", Unit: "%"},
			{Sensor: "BME_PRESS", Title: "Pressure", Unit: "hPa"},
		}
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "rover_archive.db"
	}
	if c.Database.ConnectionPool.MaxOpenConns == 0 {
		c.Database.ConnectionPool.MaxOpenConns = 10
	}
	if c.Database.ConnectionPool.MaxIdleConns == 0 {
		c.Database.ConnectionPool.MaxIdleConns = 2
	}
	if c.Database.ConnectionPool.ConnMaxLifetime == 0 {
		c.Database.ConnectionPool.ConnMaxLifetime = 300
	}

	if c.Migration.MigrationTable == "" {
		c.Migration.MigrationTable = "schema_migrations"
	}

	if c.Logging.LogFile == "" {
		c.Logging.LogFile = "session.log"
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = "info"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial baud rate must be positive")
	}
	if c.Capture.DurationSeconds < 0 {
		return fmt.Errorf("capture duration cannot be negative")
	}

	switch c.Database.Driver {
	case "mysql":
		if c.Database.MySQL.Host == "" {
			return fmt.Errorf("mysql host is required")
		}
		if c.Database.MySQL.User == "" {
			return fmt.Errorf("mysql user is required")
		}
		if c.Database.MySQL.DBName == "" {
			return fmt.Errorf("mysql database name is required")
		}
	case "postgres":
		if c.Database.PostgreSQL.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Database.PostgreSQL.User == "" {
			return fmt.Errorf("postgres user is required")
		}
		if c.Database.PostgreSQL.DBName == "" {
			return fmt.Errorf("postgres database name is required")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}

// GetDSN returns the database connection string based on the configured driver
func (c *Config) GetDSN() string {
	switch c.Database.Driver {
	case "mysql":
		mysql := c.Database.MySQL
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
			mysql.User, mysql.Password, mysql.Host, mysql.Port, mysql.DBName,
			mysql.Charset, mysql.ParseTime, mysql.Loc)
		return dsn
	case "postgres":
		pg := c.Database.PostgreSQL
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode, pg.TimeZone)
		return dsn
	case "sqlite":
		return c.Database.SQLite.Path
	default:
		return ""
	}
}

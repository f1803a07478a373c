package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rover_sensor_logger/capture"
	"rover_sensor_logger/config"
	"rover_sensor_logger/database"
	"rover_sensor_logger/logger"
	"rover_sensor_logger/models"
	"rover_sensor_logger/plot"
	"rover_sensor_logger/ports"
	"rover_sensor_logger/scanner"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]
	cfg := loadConfig()

	// Initialize logging only for commands that need it
	if needsLogging(command) {
		if err := logger.Init(cfg); err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer func() {
			if err := logger.Close(); err != nil {
				log.Fatalf("Failed to close logging: %v", err)
			}
		}()
		logger.LogCommand(os.Args[0], os.Args)
	}

	switch command {
	case "ports":
		portsCommand(cfg)
	case "capture":
		captureCommand(cfg, parseDurationArg(cfg, os.Args[2:]))
	case "run":
		runCommand(cfg, parseDurationArg(cfg, os.Args[2:]))
	case "plot":
		if len(os.Args) < 3 {
			fmt.Println("Error: CSV file required")
			fmt.Println("Usage: go run main.go plot <data.csv>")
			return
		}
		plotCommand(cfg, os.Args[2])
	case "import":
		if len(os.Args) < 3 {
			fmt.Println("Error: directory path required")
			fmt.Println("Usage: go run main.go import <directory_path>")
			return
		}
		importCommand(cfg, os.Args[2])
	case "migrate":
		migrateCommand(cfg)
	case "migrate:create":
		if len(os.Args) < 3 {
			fmt.Println("Error: migration name required")
			fmt.Println("Usage: go run main.go migrate:create <migration_name>")
			return
		}
		createMigrationCommand(cfg, os.Args[2])
	case "migrate:status":
		migrationStatusCommand(cfg)
	case "db:info":
		dbInfoCommand(cfg)
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showHelp()
	}
}

// needsLogging determines which commands need logging
func needsLogging(command string) bool {
	loggingCommands := map[string]bool{
		"capture":        true,
		"run":            true,
		"plot":           true,
		"import":         true,
		"migrate":        true,
		"migrate:create": true,
		"migrate:status": true,
	}
	return loggingCommands[command]
}

func showHelp() {
	fmt.Println("Rover Sensor Logger - Serial Capture and Plotting Tool")
	fmt.Println("")
	fmt.Println("Usage: go run main.go <command> [arguments]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  ports                     List serial devices and the autodetected rover port")
	fmt.Println("  capture [duration_sec]    Log serial data to a timestamped CSV (default 420s)")
	fmt.Println("  plot <data.csv>           Render gas and environment charts from a capture file")
	fmt.Println("  run [duration_sec]        Capture, render charts, and refresh data.csv")
	fmt.Println("  import <directory>        Import capture CSV files into the readings archive")
	fmt.Println("  migrate                   Run pending archive migrations")
	fmt.Println("  migrate:create <name>     Create a new migration file")
	fmt.Println("  migrate:status            Show migration status")
	fmt.Println("  db:info                   Show archive information")
	fmt.Println("  help                      Show this help message")
	fmt.Println("")
	fmt.Println("Configuration:")
	fmt.Println("  Edit config.yaml to change serial, capture, plot and archive settings")
	fmt.Println("")
	fmt.Println("Capture CSV formats:")
	fmt.Println("  time_ms,site,sensor,rs_kohm,rs_ro,ppm                       (headerless)")
	fmt.Println("  time_ms,site,sensor,value,unit,temp_C,hum_pct,press_hPa    (with header)")
}

func loadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// parseDurationArg reads the optional positional duration. Anything
// that is not a non-negative integer prints usage and exits non-zero.
func parseDurationArg(cfg *config.Config, args []string) time.Duration {
	seconds := cfg.Capture.DurationSeconds
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			fmt.Println("Usage: go run main.go <capture|run> [duration_seconds]")
			logger.Close()
			os.Exit(1)
		}
		seconds = n
	}
	return time.Duration(seconds) * time.Second
}

func portsCommand(cfg *config.Config) {
	candidates, err := ports.List()
	if err != nil {
		log.Fatalf("Failed to enumerate serial ports: %v", err)
	}

	if len(candidates) == 0 {
		fmt.Println("No serial ports found")
		return
	}

	fmt.Println("Available ports:")
	for _, c := range candidates {
		fmt.Printf("  %s - %s\n", c.Name, c.Description)
	}

	device, err := ports.Match(candidates, cfg.Serial.PortFragments)
	if err != nil {
		fmt.Println("No rover device detected")
		return
	}
	fmt.Printf("Rover device: %s\n", device)
}

// resolvePort returns the configured port or autodetects one. No port
// is a hard failure: capture is never attempted.
func resolvePort(cfg *config.Config) string {
	if cfg.Serial.Port != "" {
		return cfg.Serial.Port
	}

	device, err := ports.Find(cfg.Serial.PortFragments)
	if err != nil {
		var notFound *ports.ErrNotFound
		if errors.As(err, &notFound) {
			logger.Println("Available ports:")
			for _, c := range notFound.Available {
				logger.Printf("  %s - %s\n", c.Name, c.Description)
			}
		}
		logger.Fatalf("No rover device found: %v\nMake sure the rover is connected via USB\n", err)
	}

	logger.Printf("Found rover device at: %s\n", device)
	return device
}

// captureSession runs one capture and returns the CSV path and whether
// any data line was accepted. SIGINT cancels the loop but keeps the
// partial file.
func captureSession(cfg *config.Config, duration time.Duration) (string, bool) {
	device := resolvePort(cfg)

	stamp := time.Now().Format("20060102_150405")
	csvPath := filepath.Join(cfg.Capture.OutputDir, fmt.Sprintf("data_%s.csv", stamp))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ok, err := capture.Capture(ctx, device, cfg, duration, csvPath)
	if err != nil {
		logger.Errorf("Capture session failed: %v\n", err)
	}
	return csvPath, ok
}

func captureCommand(cfg *config.Config, duration time.Duration) {
	logger.Printf("Duration: %d seconds (%.1f minutes)\n", int(duration.Seconds()), duration.Minutes())

	csvPath, ok := captureSession(cfg, duration)
	if !ok {
		logger.Println("No data logged.")
		logger.Println("Check the serial connection and ensure the firmware is flashed.")
		return
	}
	logger.Printf("Capture saved: %s\n", csvPath)
}

func runCommand(cfg *config.Config, duration time.Duration) {
	logger.Printf("Duration: %d seconds (%.1f minutes)\n", int(duration.Seconds()), duration.Minutes())

	csvPath, ok := captureSession(cfg, duration)
	if !ok {
		// Distinct no-data outcome: plotting is skipped entirely.
		logger.Println("No data logged.")
		logger.Println("Check the serial connection and ensure the firmware is flashed.")
		return
	}

	plotCommand(cfg, csvPath)

	latest := filepath.Join(cfg.Capture.OutputDir, cfg.Capture.LatestFile)
	if err := copyFile(csvPath, latest); err != nil {
		logger.Errorf("Failed to copy to %s: %v\n", latest, err)
		return
	}
	logger.Printf("Also copied to: %s\n", latest)
}

func plotCommand(cfg *config.Config, csvPath string) {
	logger.Println("Generating plots...")

	table, parseErrors, err := scanner.LoadTable(csvPath)
	if err != nil {
		logger.Fatalf("Failed to load %s: %v\n", csvPath, err)
	}
	if parseErrors > 0 {
		logger.Warnf("%d row(s) skipped while loading %s\n", parseErrors, csvPath)
	}
	logger.Printf("Loaded %d record(s), schema: %s\n", len(table.Records), table.Schema)

	renderer := plot.NewRenderer(cfg.Plot)
	if _, err := renderer.RenderAll(table); err != nil {
		logger.Fatalf("Failed to render plots: %v\n", err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func connectDatabase(cfg *config.Config) {
	if _, err := database.Connect(cfg); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
}

func importCommand(cfg *config.Config, directoryPath string) {
	logger.Printf("Importing captures from: %s\n", directoryPath)

	connectDatabase(cfg)
	db := database.GetDB()

	if cfg.Migration.AutoMigrate {
		if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
			logger.Fatalf("Auto-migration failed: %v", err)
		}
	}

	csvScanner := scanner.NewCSVScanner(db)
	if err := csvScanner.ScanDirectory(directoryPath); err != nil {
		logger.Fatalf("Import failed: %v", err)
	}

	logger.Println("Directory import completed successfully")
}

func migrateCommand(cfg *config.Config) {
	logger.Println("Running archive migrations...")

	connectDatabase(cfg)
	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	if err := runner.RunMigrations(); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
}

func createMigrationCommand(cfg *config.Config, name string) {
	logger.Printf("Creating migration: %s\n", name)

	runner := database.NewMigrationRunner(nil, cfg) // no connection needed to create files
	filePath, err := runner.CreateMigration(name)
	if err != nil {
		logger.Fatalf("Failed to create migration: %v", err)
	}

	logger.Printf("Migration created: %s\n", filePath)
}

func migrationStatusCommand(cfg *config.Config) {
	logger.Println("Checking migration status...")

	connectDatabase(cfg)
	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	migrations, err := runner.GetMigrationStatus()
	if err != nil {
		logger.Fatalf("Failed to get migration status: %v", err)
	}

	if len(migrations) == 0 {
		logger.Println("No migrations found")
		return
	}

	logger.Printf("%-20s %-40s %s\n", "Version", "Name", "Status")
	logger.LogDivider()

	for _, migration := range migrations {
		status := "Pending"
		if migration.Applied {
			status = "Applied"
		}
		logger.Printf("%-20s %-40s %s\n", migration.Version, migration.Name, status)
	}
}

func dbInfoCommand(cfg *config.Config) {
	fmt.Println("Archive Information:")
	fmt.Println(strings.Repeat("=", 50))

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	info := database.GetDatabaseInfo(cfg)

	infoJSON, _ := json.MarshalIndent(info, "", "  ")
	fmt.Printf("Connection info: %s\n", infoJSON)

	if info["connected"] == true {
		db := database.GetDB()

		var count int64
		db.Model(&models.Reading{}).Count(&count)
		fmt.Println("\nData Information:")
		fmt.Printf("  Total Readings:  %d\n", count)

		var sensorCount int64
		db.Model(&models.Reading{}).Distinct("sensor").Count(&sensorCount)
		fmt.Printf("  Unique Sensors:  %d\n", sensorCount)

		if count > 0 {
			var earliest, latest int64
			db.Model(&models.Reading{}).Select("MIN(time_ms)").Scan(&earliest)
			db.Model(&models.Reading{}).Select("MAX(time_ms)").Scan(&latest)
			fmt.Printf("  Time Range:      %dms to %dms\n", earliest, latest)
		}
	} else {
		fmt.Println("\nConnection failed - unable to retrieve detailed information")
	}

	fmt.Println(strings.Repeat("=", 50))
}

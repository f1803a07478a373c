// Package scanner loads capture CSV files into tables and imports
// directories of them into the readings archive.
package scanner

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"rover_sensor_logger/logger"
	"rover_sensor_logger/models"
)

// Column counts of the two capture layouts.
const (
	gasColumns = 6 // time_ms,site,sensor,rs_kohm,rs_ro,ppm
	envColumns = 8 // time_ms,site,sensor,value,unit,temp_C,hum_pct,press_hPa
)

// LoadTable reads one capture CSV into a Table. The layout is detected
// from the file itself: a non-numeric first field on the first row
// means a header, and the column count picks the schema. Rows that do
// not parse are counted and skipped, not fatal.
func LoadTable(path string) (*models.Table, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // layouts differ, validated per row below

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("empty CSV file")
	}

	startRow := 0
	if isHeaderRow(rows[0]) {
		startRow = 1
	}
	if startRow == len(rows) {
		// Header-only file: a valid zero-record table (e.g. a
		// duration=0 capture session).
		return &models.Table{Schema: schemaForRow(rows[0])}, 0, nil
	}

	schema := schemaForRow(rows[startRow])
	table := &models.Table{Schema: schema}
	errorCount := 0

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		record, err := parseRow(row, schema)
		if err != nil {
			errorCount++
			logger.Warnf("Row %d in %s: %v\n", i+1, filepath.Base(path), err)
			continue
		}
		table.Records = append(table.Records, record)
	}

	return table, errorCount, nil
}

// isHeaderRow checks whether the first field fails to parse as the
// millisecond timestamp every data row starts with.
func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	return err != nil
}

func schemaForRow(row []string) models.Schema {
	if len(row) >= envColumns {
		return models.SchemaEnv
	}
	return models.SchemaGas
}

func parseRow(row []string, schema models.Schema) (models.Record, error) {
	var rec models.Record

	want := gasColumns
	if schema == models.SchemaEnv {
		want = envColumns
	}
	if len(row) < want {
		return rec, fmt.Errorf("insufficient columns (expected %d, got %d)", want, len(row))
	}

	timeMs, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid time_ms %q", row[0])
	}
	if timeMs < 0 {
		return rec, fmt.Errorf("negative time_ms %d", timeMs)
	}
	site, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil {
		return rec, fmt.Errorf("invalid site %q", row[1])
	}
	sensor := strings.TrimSpace(row[2])
	if sensor == "" {
		return rec, fmt.Errorf("empty sensor id")
	}

	rec.TimeMs = timeMs
	rec.Site = site
	rec.Sensor = sensor

	parse := func(field string, name string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, field)
		}
		return v, nil
	}

	switch schema {
	case models.SchemaGas:
		if rec.RsKohm, err = parse(row[3], "rs_kohm"); err != nil {
			return rec, err
		}
		if rec.RsRo, err = parse(row[4], "rs_ro"); err != nil {
			return rec, err
		}
		if rec.Value, err = parse(row[5], "ppm"); err != nil {
			return rec, err
		}
	case models.SchemaEnv:
		if rec.Value, err = parse(row[3], "value"); err != nil {
			return rec, err
		}
		rec.Unit = strings.TrimSpace(row[4])
		if rec.TempC, err = parse(row[5], "temp_C"); err != nil {
			return rec, err
		}
		if rec.HumPct, err = parse(row[6], "hum_pct"); err != nil {
			return rec, err
		}
		if rec.PressHPa, err = parse(row[7], "press_hPa"); err != nil {
			return rec, err
		}
	}

	return rec, nil
}

// CSVScanner imports capture CSV files into the readings archive.
type CSVScanner struct {
	db          *gorm.DB
	workerCount int
}

// FileJob represents a CSV file to be processed
type FileJob struct {
	FilePath string
	FileName string
}

// ProcessResult contains the result of importing one CSV file
type ProcessResult struct {
	FilePath    string
	RecordCount int
	ErrorCount  int
	Duration    time.Duration
	Error       error
}

// NewCSVScanner creates a new CSV scanner
func NewCSVScanner(db *gorm.DB) *CSVScanner {
	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8 // keep the archive database responsive
	}

	return &CSVScanner{
		db:          db,
		workerCount: workerCount,
	}
}

// SetWorkerCount sets the number of parallel workers
func (cs *CSVScanner) SetWorkerCount(count int) {
	if count > 0 {
		cs.workerCount = count
	}
}

// ScanDirectory imports every CSV file in a directory (non-recursive)
// into the readings archive.
func (cs *CSVScanner) ScanDirectory(directoryPath string) error {
	logger.Printf("Scanning directory: %s\n", directoryPath)

	if _, err := os.Stat(directoryPath); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", directoryPath)
	}

	csvFiles, err := cs.findCSVFiles(directoryPath)
	if err != nil {
		return fmt.Errorf("failed to find CSV files: %w", err)
	}

	if len(csvFiles) == 0 {
		logger.Println("No CSV files found in the directory")
		return nil
	}

	logger.Printf("Found %d CSV file(s) to import\n", len(csvFiles))
	logger.Printf("Importing with %d parallel workers\n", cs.workerCount)

	results := cs.processFilesParallel(csvFiles)
	cs.displaySummary(results)

	return nil
}

// findCSVFiles finds all CSV files in the specified directory (non-recursive)
func (cs *CSVScanner) findCSVFiles(directoryPath string) ([]FileJob, error) {
	var csvFiles []FileJob

	entries, err := os.ReadDir(directoryPath)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".csv" {
			csvFiles = append(csvFiles, FileJob{
				FilePath: filepath.Join(directoryPath, entry.Name()),
				FileName: entry.Name(),
			})
		}
	}

	return csvFiles, nil
}

// processFilesParallel imports CSV files in parallel using worker goroutines
func (cs *CSVScanner) processFilesParallel(files []FileJob) []ProcessResult {
	jobs := make(chan FileJob, len(files))
	results := make(chan ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < cs.workerCount; i++ {
		wg.Add(1)
		go cs.worker(jobs, results, &wg)
	}

	go func() {
		for _, file := range files {
			jobs <- file
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var allResults []ProcessResult
	for result := range results {
		allResults = append(allResults, result)
	}

	return allResults
}

// worker imports CSV files from the job channel
func (cs *CSVScanner) worker(jobs <-chan FileJob, results chan<- ProcessResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		results <- cs.importCSVFile(job)
	}
}

// importCSVFile loads one capture file and folds it into the archive
func (cs *CSVScanner) importCSVFile(job FileJob) ProcessResult {
	startTime := time.Now()
	result := ProcessResult{
		FilePath: job.FilePath,
	}

	logger.Printf("Importing file: %s\n", job.FileName)

	table, errorCount, err := LoadTable(job.FilePath)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(startTime)
		return result
	}
	result.ErrorCount = errorCount
	result.RecordCount = len(table.Records)

	readings := make([]models.Reading, 0, len(table.Records))
	for _, rec := range table.Records {
		readings = append(readings, models.NewReading(rec, job.FileName))
	}

	if len(readings) > 0 {
		if err := cs.batchInsertReadings(readings); err != nil {
			result.Error = fmt.Errorf("failed to insert data: %w", err)
			result.Duration = time.Since(startTime)
			return result
		}
	}

	result.Duration = time.Since(startTime)
	logger.Printf("Completed %s: %d records imported, %d parse errors in %v\n",
		job.FileName, result.RecordCount, result.ErrorCount, result.Duration)

	return result
}

// batchInsertReadings inserts readings in batches to improve performance
func (cs *CSVScanner) batchInsertReadings(readings []models.Reading) error {
	const batchSize = 1000

	for i := 0; i < len(readings); i += batchSize {
		end := i + batchSize
		if end > len(readings) {
			end = len(readings)
		}

		batch := readings[i:end]
		if err := cs.db.CreateInBatches(batch, batchSize).Error; err != nil {
			// A failed batch usually means one duplicate row; retry
			// one by one to keep the rest.
			return cs.individualInsert(batch)
		}
	}

	return nil
}

// individualInsert attempts to insert readings individually when batch insert fails
func (cs *CSVScanner) individualInsert(readings []models.Reading) error {
	var lastError error
	successCount := 0

	for _, reading := range readings {
		if err := cs.db.Create(&reading).Error; err != nil {
			lastError = err
			logger.Warnf("Failed to insert %s at %dms: %v\n", reading.Sensor, reading.TimeMs, err)
		} else {
			successCount++
		}
	}

	if successCount == 0 && lastError != nil {
		return fmt.Errorf("failed to insert any readings: %w", lastError)
	}

	if lastError != nil {
		logger.Printf("Inserted %d out of %d readings with some errors\n", successCount, len(readings))
	}

	return nil
}

// displaySummary displays a summary of the import results
func (cs *CSVScanner) displaySummary(results []ProcessResult) {
	logger.Println("\n" + strings.Repeat("=", 60))
	logger.Println("IMPORT SUMMARY")
	logger.Println(strings.Repeat("=", 60))

	totalRecords := 0
	totalErrors := 0
	successfulFiles := 0
	failedFiles := 0
	totalDuration := time.Duration(0)

	for _, result := range results {
		if result.Error != nil {
			failedFiles++
			logger.Printf("FAILED %s: %v\n", filepath.Base(result.FilePath), result.Error)
		} else {
			successfulFiles++
			totalRecords += result.RecordCount
			totalErrors += result.ErrorCount
			logger.Printf("OK %s: %d records, %d errors (%v)\n",
				filepath.Base(result.FilePath), result.RecordCount, result.ErrorCount, result.Duration)
		}
		totalDuration += result.Duration
	}

	logger.Println(strings.Repeat("-", 60))
	logger.Printf("Total files processed: %d\n", len(results))
	logger.Printf("Successful: %d\n", successfulFiles)
	logger.Printf("Failed: %d\n", failedFiles)
	logger.Printf("Total readings imported: %d\n", totalRecords)
	logger.Printf("Total parsing errors: %d\n", totalErrors)
	logger.Printf("Total processing time: %v\n", totalDuration)
	logger.Println(strings.Repeat("=", 60))
}

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"rover_sensor_logger/config"
)

var (
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	logFile     *os.File
	logLevel    string
)

// LogLevel constants
const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
)

// Init initializes the logging system using configuration. Output goes
// to the configured session log file, and to the console as well when
// log_to_console is set.
func Init(cfg *config.Config) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}

	logLevel = cfg.Logging.LogLevel

	logPath := filepath.Join(cwd, cfg.Logging.LogFile)
	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	var out, errOut io.Writer = logFile, logFile
	if cfg.Logging.LogToConsole {
		out = io.MultiWriter(os.Stdout, logFile)
		errOut = io.MultiWriter(os.Stderr, logFile)
	}

	infoLogger = log.New(out, "", 0)
	debugLogger = log.New(out, "", 0)
	warnLogger = log.New(out, "", 0)
	errorLogger = log.New(errOut, "", 0)

	infoLogger.Printf("=== Session started at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
	LogDivider()

	return nil
}

// Close closes the log file
func Close() error {
	if logFile != nil {
		LogDivider()
		infoLogger.Printf("=== Session ended at %s ===\n\n", time.Now().Format("2006-01-02 15:04:05"))
		return logFile.Close()
	}
	return nil
}

// shouldLog determines if a message should be logged based on log level
func shouldLog(messageLevel string) bool {
	levels := map[string]int{
		DEBUG: 0,
		INFO:  1,
		WARN:  2,
		ERROR: 3,
	}

	currentLevel, exists := levels[logLevel]
	if !exists {
		currentLevel = levels[INFO]
	}

	messageLogLevel, exists := levels[messageLevel]
	if !exists {
		return true
	}

	return messageLogLevel >= currentLevel
}

// Printf prints formatted text to log (respects log level)
func Printf(format string, v ...interface{}) {
	if !shouldLog(INFO) {
		return
	}
	if infoLogger != nil {
		infoLogger.Printf(format, v...)
	} else {
		fmt.Printf(format, v...)
	}
}

// Println prints a line to log (respects log level)
func Println(v ...interface{}) {
	if !shouldLog(INFO) {
		return
	}
	if infoLogger != nil {
		infoLogger.Println(v...)
	} else {
		fmt.Println(v...)
	}
}

// Debugf prints formatted debug text
func Debugf(format string, v ...interface{}) {
	if !shouldLog(DEBUG) {
		return
	}
	if debugLogger != nil {
		debugLogger.Printf("DEBUG: "+format, v...)
	} else {
		fmt.Printf("DEBUG: "+format, v...)
	}
}

// Warnf prints formatted warning text
func Warnf(format string, v ...interface{}) {
	if !shouldLog(WARN) {
		return
	}
	if warnLogger != nil {
		warnLogger.Printf("WARN: "+format, v...)
	} else {
		fmt.Printf("WARN: "+format, v...)
	}
}

// Errorf prints formatted error text (always logged regardless of level)
func Errorf(format string, v ...interface{}) {
	if errorLogger != nil {
		errorLogger.Printf("ERROR: "+format, v...)
	} else {
		fmt.Fprintf(os.Stderr, "ERROR: "+format, v...)
	}
}

// Fatalf prints formatted fatal error and exits (always logged)
func Fatalf(format string, v ...interface{}) {
	if errorLogger != nil {
		errorLogger.Printf("FATAL: "+format, v...)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: "+format, v...)
	}
	Close()
	os.Exit(1)
}

// LogCommand logs the command being executed
func LogCommand(command string, args []string) {
	Printf("Command executed: %s", command)
	if len(args) > 1 {
		Printf(" %v", args[1:])
	}
	Println("")
}

// LogDivider prints a divider line for better log organization
func LogDivider() {
	Println("------------------------------------------------------------")
}

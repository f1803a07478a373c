// Package capture implements the serial logging session: read
// newline-terminated records from the rover firmware for a bounded
// duration, drop warmup chatter, and append validated CSV lines to the
// output file.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"

	"rover_sensor_logger/config"
	"rover_sensor_logger/logger"
	"rover_sensor_logger/models"
)

// Port is the slice of a serial connection the session uses. The real
// implementation is a go.bug.st/serial port with a read timeout, so
// Read returns (0, nil) when the device is idle.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// Sink receives the header and accepted lines. *os.File satisfies it;
// Sync runs after every accepted line so an interrupted session never
// loses a record it already reported as accepted.
type Sink interface {
	io.Writer
	Sync() error
}

// Class is the disposition of one received line.
type Class int

const (
	// ClassData lines start with a decimal digit and are persisted verbatim.
	ClassData Class = iota
	// ClassNoise lines match a noise marker and are dropped.
	ClassNoise
	// ClassInfo lines are firmware status text, reported but not persisted.
	ClassInfo
)

// Classify decides what to do with a received line. Noise markers win
// over the leading-digit check, so a marker match is never persisted
// no matter how the line starts.
func Classify(line string, noiseMarkers []string) Class {
	for _, marker := range noiseMarkers {
		if strings.Contains(line, marker) {
			return ClassNoise
		}
	}
	if len(line) > 0 && line[0] >= '0' && line[0] <= '9' {
		return ClassData
	}
	return ClassInfo
}

// Open connects to the device at the configured baud rate and waits
// out its reset-on-connect cycle. Opening the port resets the
// microcontroller, so reading before the delay sees boot garbage.
func Open(device string, cfg config.SerialConfig) (Port, error) {
	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}
	if err := p.SetReadTimeout(time.Duration(cfg.ReadTimeoutMs) * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", device, err)
	}
	time.Sleep(time.Duration(cfg.ResetDelayMs) * time.Millisecond)
	return p, nil
}

// Session is one capture run. Port and Out are owned by the session:
// the port is closed when Run returns, the sink is not.
type Session struct {
	Port         Port
	Out          Sink
	Header       string
	NoiseMarkers []string
	PollInterval time.Duration // sleep when the device yields nothing, default 10ms

	Accepted int
	Skipped  int
	Info     int
}

// Run logs lines until the duration elapses or the context is
// cancelled, then closes the port. It returns whether at least one
// line was accepted. The duration check is advisory: a slow read can
// push loop exit past the nominal duration by up to one read timeout.
// A device that goes silent mid-session is waited out passively.
func (s *Session) Run(ctx context.Context, duration time.Duration) (bool, error) {
	defer s.Port.Close()

	poll := s.PollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}

	if err := s.writeLine(s.Header); err != nil {
		return false, fmt.Errorf("failed to write header: %w", err)
	}

	reader := &lineReader{port: s.Port}
	start := time.Now()
	durationSec := int(duration.Seconds())

	for time.Since(start) < duration {
		select {
		case <-ctx.Done():
			logger.Printf("Capture interrupted after %ds, keeping partial data\n", int(time.Since(start).Seconds()))
			return s.Accepted > 0, nil
		default:
		}

		raw, ok, err := reader.next()
		if err != nil {
			return s.Accepted > 0, fmt.Errorf("serial read failed: %w", err)
		}
		if !ok {
			time.Sleep(poll)
			continue
		}
		if !utf8.Valid(raw) {
			// Corrupted bytes on the wire: drop the line, keep the session.
			continue
		}
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		switch Classify(line, s.NoiseMarkers) {
		case ClassNoise:
			s.Skipped++
			logger.Printf("[SKIP] %s\n", line)
		case ClassData:
			if err := s.writeLine(line); err != nil {
				return s.Accepted > 0, fmt.Errorf("failed to write data line: %w", err)
			}
			s.Accepted++
			elapsed := int(time.Since(start).Seconds())
			logger.Printf("[%ds/%ds] Lines: %d | %s\n", elapsed, durationSec, s.Accepted, truncate(line, 60))
		default:
			s.Info++
			logger.Printf("[INFO] %s\n", line)
		}
	}

	logger.Printf("Logging complete, total lines: %d\n", s.Accepted)
	return s.Accepted > 0, nil
}

// writeLine appends one line and flushes it before the next read.
func (s *Session) writeLine(line string) error {
	if _, err := io.WriteString(s.Out, line+"\n"); err != nil {
		return err
	}
	return s.Out.Sync()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// lineReader accumulates port reads and hands out one newline-
// terminated line at a time. It cannot use bufio.Scanner: a serial
// read timeout surfaces as (0, nil), which bufio treats as a
// no-progress error, and the loop has to wake up between reads to
// re-check the wall clock anyway.
type lineReader struct {
	port Port
	buf  []byte
}

// next returns the next complete line without its terminator. ok is
// false when no full line is buffered yet (idle tick or stream end).
func (lr *lineReader) next() ([]byte, bool, error) {
	if line, ok := lr.pop(); ok {
		return line, true, nil
	}

	var chunk [256]byte
	n, err := lr.port.Read(chunk[:])
	if n > 0 {
		lr.buf = append(lr.buf, chunk[:n]...)
	}
	if line, ok := lr.pop(); ok {
		return line, true, nil
	}
	if err != nil && err != io.EOF {
		return nil, false, err
	}
	return nil, false, nil
}

func (lr *lineReader) pop() ([]byte, bool) {
	i := bytes.IndexByte(lr.buf, '\n')
	if i < 0 {
		return nil, false
	}
	line := lr.buf[:i]
	lr.buf = append([]byte(nil), lr.buf[i+1:]...)
	return bytes.TrimSuffix(line, []byte("\r")), true
}

// Capture runs one full session against a real device: open the port,
// create the output file, log for the duration. A failed open reports
// the error and yields a no-data session without retrying.
func Capture(ctx context.Context, device string, cfg *config.Config, duration time.Duration, outputPath string) (bool, error) {
	logger.Printf("Connecting to %s at %d baud...\n", device, cfg.Serial.BaudRate)

	port, err := Open(device, cfg.Serial)
	if err != nil {
		logger.Errorf("%v\n", err)
		return false, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		port.Close()
		return false, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	logger.Printf("Connected! Logging for %d seconds...\n", int(duration.Seconds()))
	logger.Printf("Output file: %s\n", outputPath)
	logger.LogDivider()

	session := &Session{
		Port:         port,
		Out:          out,
		Header:       models.EnvHeader,
		NoiseMarkers: cfg.Capture.NoiseMarkers,
	}
	return session.Run(ctx, duration)
}

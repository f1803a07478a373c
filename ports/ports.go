// Package ports locates the rover's USB-serial device among the
// machine's serial ports.
package ports

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Candidate is one attached serial device.
type Candidate struct {
	Name        string
	Description string
}

// ErrNotFound is returned by Find when no attached device matches.
type ErrNotFound struct {
	Available []Candidate
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no matching serial device among %d available port(s)", len(e.Available))
}

// List returns a single snapshot of the attached serial devices.
func List() ([]Candidate, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	candidates := make([]Candidate, 0, len(details))
	for _, d := range details {
		desc := d.Product
		if desc == "" {
			desc = "n/a"
		}
		candidates = append(candidates, Candidate{Name: d.Name, Description: desc})
	}
	return candidates, nil
}

// Find returns the first attached device whose name contains one of
// the given fragments (usbmodem, ttyACM and friends). When nothing
// matches it returns an ErrNotFound carrying the full device list so
// the caller can print it for manual inspection.
func Find(fragments []string) (string, error) {
	candidates, err := List()
	if err != nil {
		return "", err
	}
	return Match(candidates, fragments)
}

// Match applies the fragment search to an already-enumerated list.
func Match(candidates []Candidate, fragments []string) (string, error) {
	for _, c := range candidates {
		for _, frag := range fragments {
			if strings.Contains(c.Name, frag) {
				return c.Name, nil
			}
		}
	}
	return "", &ErrNotFound{Available: candidates}
}

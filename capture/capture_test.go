package capture

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

var testNoiseMarkers = []string{"Warming", "remaining", "Calibrat", "complete", "Ro:", "time_ms"}

// fakePort replays a byte stream, then reports idle forever the way a
// serial port with a read timeout does.
type fakePort struct {
	data   []byte
	pos    int
	closed bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.pos >= len(p.data) {
		return 0, nil
	}
	n := copy(b, p.data[p.pos:])
	p.pos += n
	return n, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

type memSink struct {
	bytes.Buffer
	syncs int
}

func (s *memSink) Sync() error {
	s.syncs++
	return nil
}

func newTestSession(input string, sink *memSink) (*Session, *fakePort) {
	port := &fakePort{data: []byte(input)}
	return &Session{
		Port:         port,
		Out:          sink,
		Header:       "time_ms,site,sensor,value,unit,temp_C,hum_pct,press_hPa",
		NoiseMarkers: testNoiseMarkers,
		PollInterval: time.Millisecond,
	}, port
}

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want Class
	}{
		{"1000,1,MQ4_CH4,12.5,ppm", ClassData},
		{"Warming up...", ClassNoise},
		{"Calibrating MQ4... 30s remaining", ClassNoise},
		{"time_ms,site,sensor,value,unit", ClassNoise},
		{"MQ4 Ro: 9.83 kOhm", ClassNoise},
		{"Sensors ready", ClassInfo},
		{"not-a-number", ClassInfo},
		// Marker match wins even with a leading digit.
		{"42s remaining", ClassNoise},
		{"", ClassInfo},
	}

	for _, c := range cases {
		if got := Classify(c.line, testNoiseMarkers); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestSessionEndToEnd(t *testing.T) {
	input := "Warming up...\n" +
		"time_ms,site,sensor,value,unit\n" +
		"1000,1,MQ4_CH4,12.5,ppm\n" +
		"not-a-number\n"

	sink := &memSink{}
	session, port := newTestSession(input, sink)

	ok, err := session.Run(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected session to report accepted data")
	}

	lines := strings.Split(strings.TrimRight(sink.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 data line, got %d lines: %q", len(lines), lines)
	}
	if lines[0] != session.Header {
		t.Errorf("first line is not the header: %q", lines[0])
	}
	if lines[1] != "1000,1,MQ4_CH4,12.5,ppm" {
		t.Errorf("data line altered: %q", lines[1])
	}

	if session.Accepted != 1 {
		t.Errorf("accepted = %d, want 1", session.Accepted)
	}
	if session.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", session.Skipped)
	}
	if session.Info != 1 {
		t.Errorf("info = %d, want 1", session.Info)
	}
	if !port.closed {
		t.Error("port not closed after session")
	}
}

func TestAcceptedCounterMatchesSinkLines(t *testing.T) {
	var input strings.Builder
	input.WriteString("Sensors ready\n")
	for i := 0; i < 5; i++ {
		input.WriteString("1000,1,MQ4_CH4,12.5,ppm\n")
	}

	sink := &memSink{}
	session, _ := newTestSession(input.String(), sink)

	if _, err := session.Run(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sinkLines := strings.Count(sink.String(), "\n")
	if session.Accepted != sinkLines-1 {
		t.Errorf("accepted = %d, sink lines - header = %d", session.Accepted, sinkLines-1)
	}
	if session.Accepted != 5 {
		t.Errorf("accepted = %d, want 5", session.Accepted)
	}
}

func TestZeroDurationWritesHeaderOnly(t *testing.T) {
	sink := &memSink{}
	session, port := newTestSession("1000,1,MQ4_CH4,12.5,ppm\n", sink)

	ok, err := session.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no accepted data for duration 0")
	}
	if got := sink.String(); got != session.Header+"\n" {
		t.Errorf("sink = %q, want header only", got)
	}
	if session.Accepted != 0 {
		t.Errorf("accepted = %d, want 0", session.Accepted)
	}
	if !port.closed {
		t.Error("port not closed after session")
	}
}

func TestNoiseNeverPersisted(t *testing.T) {
	// Lines with leading digits that still match noise markers.
	input := "30s remaining\n" +
		"12 Ro: 9.83\n" +
		"2000,1,MQ8_H2,25.0,ppm\n"

	sink := &memSink{}
	session, _ := newTestSession(input, sink)

	if _, err := session.Run(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := sink.String()
	if strings.Contains(out, "remaining") || strings.Contains(out, "Ro:") {
		t.Errorf("noise line persisted: %q", out)
	}
	if session.Accepted != 1 || session.Skipped != 2 {
		t.Errorf("accepted=%d skipped=%d, want 1/2", session.Accepted, session.Skipped)
	}
}

func TestInvalidUTF8LineDropped(t *testing.T) {
	input := "\xff\xfe\xfd\n" + "1000,1,MQ4_CH4,12.5,ppm\n"

	sink := &memSink{}
	session, _ := newTestSession(input, sink)

	if _, err := session.Run(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Accepted != 1 {
		t.Errorf("accepted = %d, want 1 (corrupt line skipped, session alive)", session.Accepted)
	}
	if session.Skipped != 0 || session.Info != 0 {
		t.Errorf("corrupt line should be dropped silently, got skipped=%d info=%d", session.Skipped, session.Info)
	}
}

func TestCarriageReturnStripped(t *testing.T) {
	sink := &memSink{}
	session, _ := newTestSession("1000,1,MQ4_CH4,12.5,ppm\r\n", sink)

	if _, err := session.Run(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sink.String(), "1000,1,MQ4_CH4,12.5,ppm\n") {
		t.Errorf("CRLF line not normalized: %q", sink.String())
	}
	if strings.Contains(sink.String(), "\r") {
		t.Errorf("carriage return persisted: %q", sink.String())
	}
}

func TestCancellationKeepsPartialData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{}
	session, port := newTestSession("1000,1,MQ4_CH4,12.5,ppm\n", sink)

	done := make(chan struct{})
	var ok bool
	go func() {
		defer close(done)
		ok, _ = session.Run(ctx, time.Hour)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not exit on cancellation")
	}

	if ok {
		t.Error("no line was accepted before cancellation")
	}
	if !strings.HasPrefix(sink.String(), session.Header) {
		t.Errorf("header missing from partial output: %q", sink.String())
	}
	if !port.closed {
		t.Error("port not closed after cancellation")
	}
}

func TestEverySyncedLineFlushedBeforeNextRead(t *testing.T) {
	sink := &memSink{}
	session, _ := newTestSession("1000,1,MQ4_CH4,12.5,ppm\n2000,1,MQ4_CH4,12.6,ppm\n", sink)

	if _, err := session.Run(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Header + two data lines, one Sync each.
	if sink.syncs != 3 {
		t.Errorf("syncs = %d, want 3", sink.syncs)
	}
}

package sink_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/schema"
	"github.com/m-lab/tcpdiag/sink"
)

// TestTabularSentinelOnNonFinalRows verifies the deferred-duration state
// machine directly: every row but a sweep's last closes with the "_"
// duration sentinel, and only the last row carries the real duration.
func TestTabularSentinelOnNonFinalRows(t *testing.T) {
	var buf bytes.Buffer
	tab := sink.NewTabular(&buf)
	if err := tab.Start(100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	payload := sampleExtraBytes(t)
	if err := tab.Out(payload); err != nil {
		t.Fatalf("Out: %v", err)
	}
	if err := tab.Out(payload); err != nil {
		t.Fatalf("Out: %v", err)
	}
	if err := tab.End(50); err != nil {
		t.Fatalf("End: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 rows): %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "time ") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], " _") {
		t.Errorf("first row must close with sentinel duration, got %q", lines[1])
	}
	if strings.HasSuffix(lines[2], " _") {
		t.Errorf("last row must not close with sentinel duration, got %q", lines[2])
	}
	if !strings.HasSuffix(lines[2], " 50") {
		t.Errorf("last row must close with real duration, got %q", lines[2])
	}
}

// TestTabularZeroSamplePlaceholderRow verifies that a sweep with no
// samples still emits exactly one row, its Extra columns all sentinel.
func TestTabularZeroSamplePlaceholderRow(t *testing.T) {
	var buf bytes.Buffer
	tab := sink.NewTabular(&buf)
	if err := tab.Start(100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tab.End(7); err != nil {
		t.Fatalf("End: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (header + placeholder row): %q", len(lines), buf.String())
	}
	fields := strings.Fields(lines[1])
	extraColumns := schema.Columns(inetdiag.ExtraDesc)
	if len(fields) != 1+extraColumns+1 {
		t.Fatalf("placeholder row has %d fields, want %d", len(fields), 1+extraColumns+1)
	}
	if fields[0] != "100" {
		t.Errorf("time column = %s, want 100", fields[0])
	}
	if fields[len(fields)-1] != "7" {
		t.Errorf("duration column = %s, want 7", fields[len(fields)-1])
	}
	for _, f := range fields[1 : len(fields)-1] {
		if f != "_" {
			t.Errorf("expected every Extra column sentinel, found %q in %v", f, fields)
		}
	}
}

func TestTabularRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tab := sink.NewTabular(&buf)
	if err := tab.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	payload := sampleExtraBytes(t)
	if err := tab.Out(payload); err != nil {
		t.Fatalf("Out: %v", err)
	}
	if err := tab.End(9); err != nil {
		t.Fatalf("End: %v", err)
	}

	rec := &recorder{}
	if err := sink.DecodeTabular(bytes.NewReader(buf.Bytes()), rec); err != nil {
		t.Fatalf("DecodeTabular: %v", err)
	}
	want := []string{"start", "out", "end"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, rec.events[i], want[i])
		}
	}
}

// TestTabularReaderSkipsCommentLines verifies "#"-prefixed lines never
// reach the header or row parser.
func TestTabularReaderSkipsCommentLines(t *testing.T) {
	var buf bytes.Buffer
	tab := sink.NewTabular(&buf)
	if err := tab.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tab.End(9); err != nil {
		t.Fatalf("End: %v", err)
	}
	input := "# a leading comment\n" + buf.String() + "# a trailing comment\n"
	rec := &recorder{}
	if err := sink.DecodeTabular(strings.NewReader(input), rec); err != nil {
		t.Fatalf("DecodeTabular: %v", err)
	}
	want := []string{"start", "end"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

// TestTabularReaderHandlesReorderedHeader verifies the permutation
// fallback: a header whose columns are reordered still parses, mapping
// each expected column name back to its actual position.
func TestTabularReaderHandlesReorderedHeader(t *testing.T) {
	var buf bytes.Buffer
	tab := sink.NewTabular(&buf)
	if err := tab.Start(42); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tab.End(9); err != nil {
		t.Fatalf("End: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	headerCols := strings.Fields(lines[0])
	dataCols := strings.Fields(lines[1])

	// Reverse both header and data columns together so the fallback
	// permutation path (not the fast prefix-match path) is exercised.
	reversedHeader := make([]string, len(headerCols))
	reversedData := make([]string, len(dataCols))
	for i := range headerCols {
		reversedHeader[len(headerCols)-1-i] = headerCols[i]
		reversedData[len(dataCols)-1-i] = dataCols[i]
	}

	input := strings.Join(reversedHeader, " ") + "\n" + strings.Join(reversedData, " ") + "\n"
	rec := &recorder{}
	if err := sink.DecodeTabular(strings.NewReader(input), rec); err != nil {
		t.Fatalf("DecodeTabular: %v", err)
	}
	want := []string{"start", "end"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

func TestTabularReaderDefensiveEndOnUnterminatedSweep(t *testing.T) {
	var buf bytes.Buffer
	tab := sink.NewTabular(&buf)
	if err := tab.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	payload := sampleExtraBytes(t)
	if err := tab.Out(payload); err != nil {
		t.Fatalf("Out: %v", err)
	}
	// Deliberately omit End: strip the trailing sentinel-closed row's
	// final newline state by feeding only the header and the open row.
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// The open row lacks a duration column entirely (no End was called),
	// so pad it with the sentinel to make a well-formed, unterminated line.
	input := lines[0] + "\n" + lines[1] + " _\n"
	rec := &recorder{}
	if err := sink.DecodeTabular(strings.NewReader(input), rec); err != nil {
		t.Fatalf("DecodeTabular: %v", err)
	}
	want := []string{"start", "out", "end"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	if rec.events[len(rec.events)-1] != "end" {
		t.Errorf("expected a defensive End call when EOF arrives mid-sweep")
	}
}

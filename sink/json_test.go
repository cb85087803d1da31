package sink_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/m-lab/tcpdiag/sink"
)

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	j := sink.NewJSON(&buf)
	if err := j.Start(100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	payload := sampleExtraBytes(t)
	if err := j.Out(payload); err != nil {
		t.Fatalf("Out: %v", err)
	}
	if err := j.Out(payload); err != nil {
		t.Fatalf("Out: %v", err)
	}
	if err := j.End(50); err != nil {
		t.Fatalf("End: %v", err)
	}

	line := buf.String()
	if !strings.HasPrefix(line, `{"time":100,"samples":[`) {
		t.Fatalf("unexpected prefix: %s", line)
	}
	if !strings.HasSuffix(line, `],"duration":50}`+"\n") {
		t.Fatalf("unexpected suffix: %s", line)
	}

	rec := &recorder{}
	if err := sink.DecodeJSON(strings.NewReader(line), rec); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	want := []string{"start", "out", "out", "end"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

func TestJSONZeroSample(t *testing.T) {
	var buf bytes.Buffer
	j := sink.NewJSON(&buf)
	if err := j.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := j.End(2); err != nil {
		t.Fatalf("End: %v", err)
	}
	want := `{"time":1,"samples":[],"duration":2}` + "\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

// TestJSONDecodeSkipsUnparseableLines verifies the tolerant-reader
// property: a line that fails to parse as a sweep object is skipped,
// not treated as a fatal error, so injected comment-like lines survive.
func TestJSONDecodeSkipsUnparseableLines(t *testing.T) {
	input := "not json at all\n" +
		`{"time":1,"samples":[],"duration":2}` + "\n" +
		"# a stray comment line\n" +
		`{"time":3,"samples":[],"duration":4}` + "\n"
	rec := &recorder{}
	if err := sink.DecodeJSON(strings.NewReader(input), rec); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	want := []string{"start", "end", "start", "end"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, rec.events[i], want[i])
		}
	}
}

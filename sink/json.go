package sink

import (
	"bufio"
	jsonlib "encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/metrics"
)

// JSON writes each sweep as one newline-terminated JSON object:
// {"time":<u64>,"samples":[<sample>,...],"duration":<u64>}.
type JSON struct {
	w     io.Writer
	comma bool
}

// NewJSON wraps w as a JSON sink.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

// Start opens the sweep object and the samples array.
func (j *JSON) Start(wallclockMicros uint64) error {
	j.comma = false
	_, err := fmt.Fprintf(j.w, `{"time":%d,"samples":[`, wallclockMicros)
	return err
}

// Out parses payload into an Extra record and appends its JSON
// representation to the samples array.
func (j *JSON) Out(payload []byte) error {
	extra, err := inetdiag.Parse(payload)
	if err != nil {
		return err
	}
	b, err := jsonlib.Marshal(extra)
	if err != nil {
		return err
	}
	if j.comma {
		if _, err := io.WriteString(j.w, ","); err != nil {
			return err
		}
	}
	j.comma = true
	_, err = j.w.Write(b)
	return err
}

// End closes the samples array and the sweep object.
func (j *JSON) End(durationMicros uint32) error {
	_, err := fmt.Fprintf(j.w, `],"duration":%d}`+"\n", durationMicros)
	return err
}

type jsonSweep struct {
	Time     uint64                `json:"time"`
	Samples  []inetdiag.OwnedExtra `json:"samples"`
	Duration uint32                `json:"duration"`
}

// DecodeJSON reads newline-delimited sweep objects from r and replays
// each onto sink. A line that fails to parse is skipped rather than
// treated as fatal, so hand-edited comment-like lines between sweeps
// don't abort the whole stream.
func DecodeJSON(r io.Reader, sink Sink) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sweep jsonSweep
		if err := jsonlib.Unmarshal(line, &sweep); err != nil {
			metrics.ErrorCount.With(prometheus.Labels{"type": "json_decode"}).Inc()
			continue
		}
		if err := sink.Start(sweep.Time); err != nil {
			return err
		}
		for i := range sweep.Samples {
			if err := sink.Out(sweep.Samples[i].ToBytes()); err != nil {
				return err
			}
		}
		if err := sink.End(sweep.Duration); err != nil {
			return err
		}
	}
	return scanner.Err()
}

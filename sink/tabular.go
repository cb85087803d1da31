package sink

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/schema"
)

// sentinel is the placeholder token for an absent optional leaf.
const sentinel = "_"

// header is the compile-time tabular header line, shared by the writer
// and the reader's fast-path prefix check.
var header = schema.Header(LineDesc)

// extraColumns is the number of leaf columns the flattened, optional
// Extra record occupies between the time and duration columns.
var extraColumns = schema.Columns(inetdiag.ExtraDesc)

// Tabular writes one header line followed by one data line per sample.
// The trailing duration column is deferred: it isn't known until End,
// so every row but the sweep's last is closed with the sentinel "_" the
// moment the next row starts, and only the sweep's final row (closed
// from End) carries the real duration.
type Tabular struct {
	w             io.Writer
	headerWritten bool
	time          uint64
	// pendingClose, if non-empty, is written before the next row starts,
	// closing the previous row.
	pendingClose string
}

// NewTabular wraps w as a Tabular sink.
func NewTabular(w io.Writer) *Tabular {
	return &Tabular{w: w}
}

// Start writes the header line once (lazily, on the very first sweep)
// and resets the per-sweep state.
func (t *Tabular) Start(wallclockMicros uint64) error {
	if !t.headerWritten {
		if _, err := io.WriteString(t.w, header+"\n"); err != nil {
			return err
		}
		t.headerWritten = true
	}
	t.time = wallclockMicros
	t.pendingClose = ""
	return nil
}

// Out closes the previous row (if any is open), then opens a new one
// with the time column and the sample's flattened fields, without a
// trailing newline or duration column.
func (t *Tabular) Out(payload []byte) error {
	if t.pendingClose != "" {
		if _, err := io.WriteString(t.w, t.pendingClose); err != nil {
			return err
		}
	}
	extra, err := inetdiag.Parse(payload)
	if err != nil {
		return err
	}
	owned := extra.ToOwned()
	toks := []string{strconv.FormatUint(t.time, 10)}
	toks = owned.AppendTabular(toks)
	if _, err := io.WriteString(t.w, strings.Join(toks, " ")); err != nil {
		return err
	}
	t.pendingClose = " " + sentinel + "\n"
	return nil
}

// End closes the sweep's final row with the real duration. If no sample
// was emitted this sweep, it first writes a row of sentinel placeholders
// for the Extra columns.
func (t *Tabular) End(durationMicros uint32) error {
	if t.pendingClose == "" {
		toks := []string{strconv.FormatUint(t.time, 10)}
		for i := 0; i < extraColumns; i++ {
			toks = append(toks, sentinel)
		}
		if _, err := io.WriteString(t.w, strings.Join(toks, " ")); err != nil {
			return err
		}
	}
	_, err := io.WriteString(t.w, " "+strconv.FormatUint(uint64(durationMicros), 10)+"\n")
	return err
}

// DecodeTabular reads a tabular stream from r and replays it onto sink.
// Lines starting with "#" are skipped. If the observed header doesn't
// match the compile-time header, a column permutation is built so
// reordered (or partial) input still parses; columns absent from the
// input read as the sentinel.
func DecodeTabular(r io.Reader, sink Sink) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var perm []int // nil means identity
	haveHeader := false
	sweepOpen := false
	var lastTime uint64

	expected := strings.Fields(header)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if !haveHeader {
			if !strings.HasPrefix(line, header) {
				observed := strings.Fields(line)
				perm = buildPermutation(expected, observed)
			}
			haveHeader = true
			continue
		}
		fields := strings.Fields(line)
		projected := project(fields, perm, len(expected))

		timeTok := projected[0]
		durTok := projected[len(projected)-1]
		extraToks := projected[1 : len(projected)-1]

		t, err := strconv.ParseUint(timeTok, 10, 64)
		if err != nil {
			return err
		}
		if !sweepOpen || t != lastTime {
			if sweepOpen {
				// Defensive: a prior sweep never saw its duration
				// column. Close it before opening the next one.
				if err := sink.End(0); err != nil {
					return err
				}
			}
			if err := sink.Start(t); err != nil {
				return err
			}
			sweepOpen = true
			lastTime = t
		}

		if !allSentinelStrings(extraToks) {
			i := 0
			owned, err := inetdiag.ReadOwnedExtraTabular(func() string {
				tok := extraToks[i]
				i++
				return tok
			})
			if err != nil {
				return err
			}
			if err := sink.Out(owned.ToBytes()); err != nil {
				return err
			}
		}

		if durTok != sentinel {
			d, err := strconv.ParseUint(durTok, 10, 32)
			if err != nil {
				return err
			}
			if err := sink.End(uint32(d)); err != nil {
				return err
			}
			sweepOpen = false
		}
	}
	if sweepOpen {
		if err := sink.End(0); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func buildPermutation(expected, observed []string) []int {
	index := make(map[string]int, len(observed))
	for i, name := range observed {
		index[name] = i
	}
	perm := make([]int, len(expected))
	for i, name := range expected {
		if idx, ok := index[name]; ok {
			perm[i] = idx
		} else {
			perm[i] = -1
		}
	}
	return perm
}

func project(fields []string, perm []int, width int) []string {
	if perm == nil {
		return fields
	}
	out := make([]string, width)
	for i, idx := range perm {
		if idx < 0 || idx >= len(fields) {
			out[i] = sentinel
			continue
		}
		out[i] = fields[idx]
	}
	return out
}

func allSentinelStrings(toks []string) bool {
	for _, t := range toks {
		if t != sentinel {
			return false
		}
	}
	return true
}

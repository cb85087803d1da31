// Main package in csvtool implements a command line tool for flattening
// this module's newline-delimited JSON sweep archives into CSV, one row
// per sample, via gocsv.
package main

import (
	"bufio"
	jsonlib "encoding/json"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/zstd"
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	// A variable to enable mocking for testing.
	logFatal = log.Fatal
)

// Row is one flattened sample, shaped the way gocsv expects: a plain
// struct whose `csv` tags name the header gocsv emits.
type Row struct {
	Time uint64 `csv:"time"`

	Family  uint8  `csv:"base.family"`
	State   uint8  `csv:"base.state"`
	SPort   uint16 `csv:"base.id.sport"`
	DPort   uint16 `csv:"base.id.dport"`
	Src     string `csv:"base.id.src"`
	Dst     string `csv:"base.id.dst"`
	Inode   uint32 `csv:"base.inode"`
	UID     uint32 `csv:"base.uid"`
	RQueue  uint32 `csv:"base.rqueue"`
	WQueue  uint32 `csv:"base.wqueue"`
	Cookie  uint64 `csv:"base.id.cookie"`
	Expires uint32 `csv:"base.expires"`

	Cong string `csv:"cong"`

	SndCwnd    uint32 `csv:"tcp_info.snd_cwnd"`
	RTT        uint32 `csv:"tcp_info.rtt"`
	RTTVar     uint32 `csv:"tcp_info.rttvar"`
	MinRTT     uint32 `csv:"tcp_info.min_rtt"`
	Retransmit uint32 `csv:"tcp_info.total_retrans"`

	BBRBW         uint64 `csv:"bbr.bw"`
	BBRMinRTT     uint32 `csv:"bbr.min_rtt"`
	BBRPacingGain uint32 `csv:"bbr.pacing_gain"`
	BBRCwndGain   uint32 `csv:"bbr.cwnd_gain"`

	Duration uint32 `csv:"duration"`
}

// jsonSweep mirrors sink.jsonSweep; kept separate so csvtool only
// depends on inetdiag, not on sink's writer-side internals.
type jsonSweep struct {
	Time     uint64                `json:"time"`
	Samples  []inetdiag.OwnedExtra `json:"samples"`
	Duration uint32                `json:"duration"`
}

// readSweeps parses every newline-delimited sweep object from rdr.
func readSweeps(rdr io.Reader) ([]jsonSweep, error) {
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var sweeps []jsonSweep
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sweep jsonSweep
		if err := jsonlib.Unmarshal(line, &sweep); err != nil {
			return nil, err
		}
		sweeps = append(sweeps, sweep)
	}
	return sweeps, scanner.Err()
}

// flatten renders every sample in sweeps as one CSV Row.
func flatten(sweeps []jsonSweep) []*Row {
	var rows []*Row
	for _, sweep := range sweeps {
		for i := range sweep.Samples {
			s := &sweep.Samples[i]
			row := &Row{
				Time:    sweep.Time,
				Family:  s.Base.Family,
				State:   s.Base.State,
				SPort:   s.Base.ID.SPort.Get(),
				DPort:   s.Base.ID.DPort.Get(),
				Src:     ipString(s.Base.ID.SrcIP(s.Base.Family)),
				Dst:     ipString(s.Base.ID.DstIP(s.Base.Family)),
				Inode:   s.Base.Inode,
				UID:     s.Base.UID,
				RQueue:  s.Base.RQueue,
				WQueue:  s.Base.WQueue,
				Cookie:  s.Base.ID.Cookie.Get(),
				Expires: s.Base.Expires,

				Duration: sweep.Duration,
			}
			if s.Cong != nil {
				row.Cong = *s.Cong
			}
			if s.TCPInfo != nil {
				row.SndCwnd = s.TCPInfo.SndCwnd
				row.RTT = s.TCPInfo.RTT
				row.RTTVar = s.TCPInfo.RTTVar
				row.MinRTT = s.TCPInfo.MinRTT
				row.Retransmit = s.TCPInfo.TotalRetrans
			}
			if s.BBR != nil {
				row.BBRBW = s.BBR.BW.Get()
				row.BBRMinRTT = s.BBR.MinRTT
				row.BBRPacingGain = s.BBR.PacingGain
				row.BBRCwndGain = s.BBR.CwndGain
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

// toCSV flattens sweeps and writes them to wtr as CSV.
func toCSV(sweeps []jsonSweep, wtr io.Writer) error {
	return gocsv.Marshal(flatten(sweeps), wtr)
}

// openFile either opens a file, or opens and unzips a file that ends with .zst
func openFile(fn string) (io.ReadCloser, error) {
	if strings.HasSuffix(fn, ".zst") {
		return zstd.NewReader(fn), nil
	}
	return os.Open(fn)
}

// TODO handle gs: filenames.
func main() {
	args := os.Args[1:]

	var source io.ReadCloser
	var err error
	source = os.Stdin
	if len(args) == 1 {
		source, err = openFile(args[0])
		rtx.Must(err, "Could not open file %q", args[0])
	} else if len(args) > 1 {
		logFatal("Too many command-line arguments.")
	}
	defer source.Close()

	sweeps, err := readSweeps(source)
	rtx.Must(err, "Could not read sweeps")
	rtx.Must(toCSV(sweeps, os.Stdout), "Could not convert input to CSV")
}

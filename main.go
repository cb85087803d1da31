package main

// For comparison, try
// sudo ss -timep | grep -A1 -v -e 127.0.0.1 -e skmem | tail

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"runtime/trace"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	_ "net/http/pprof" // Support profiling

	"github.com/m-lab/tcpdiag/collector"
	"github.com/m-lab/tcpdiag/sink"
	"github.com/m-lab/tcpdiag/wire"
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	inet4 = flag.Bool("4", false, "restrict to IPv4 sockets")
	inet6 = flag.Bool("6", false, "restrict to IPv6 sockets")
	sport = flag.Uint("s", 0, "source port filter, 0 means any")
	dport = flag.Uint("d", 0, "destination port filter, 0 means any")

	allStates     = flag.Bool("a", false, "include all socket states, not just established")
	allExtensions = flag.Bool("x", false, "request all extension attributes")

	period = flag.Float64("p", 0, "pace every sweep at this period, in fractional seconds")
	count  = flag.Uint("c", 0, "run exactly N sweeps (requires -p)")

	output  = flag.String("o", "json", "output format: binary, json, or csv")
	convert = flag.Bool("C", false, "ingest stdin and re-emit in the -o format, instead of collecting")

	enableTrace = flag.Bool("trace", false, "Enable trace")
	promPort    = flag.String("prom", ":9090", "Prometheus metrics export address and port. Default is ':9090'")

	ctx, cancel = context.WithCancel(context.Background())
)

func main() {
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)
	defer cancel()

	if *inet4 && *inet6 {
		rtx.Must(fmt.Errorf("main: -4 and -6 are mutually exclusive"), "bad arguments")
	}
	if *count != 0 && *period == 0 {
		rtx.Must(fmt.Errorf("main: -c requires -p"), "bad arguments")
	}
	if *convert && (*inet4 || *inet6 || *sport != 0 || *dport != 0 || *allStates || *allExtensions || *period != 0 || *count != 0) {
		rtx.Must(fmt.Errorf("main: -C is incompatible with collection flags"), "bad arguments")
	}

	// Performance instrumentation.
	runtime.SetBlockProfileRate(1000000) // 1 sample/msec
	runtime.SetMutexProfileFraction(1000)

	// Expose prometheus and pprof metrics on a separate port.
	promSrv := prometheusx.MustStartPrometheus(*promPort)
	defer promSrv.Shutdown(ctx)

	if *enableTrace {
		traceFile, err := os.Create("trace")
		rtx.Must(err, "Could not creat trace file")
		rtx.Must(trace.Start(traceFile), "failed to start trace: %v", err)
		defer trace.Stop()
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	snk, err := newSink(*output, out)
	rtx.Must(err, "unrecognized output format %q", *output)

	if *convert {
		rtx.Must(convertStdin(snk), "conversion failed")
		return
	}

	cfg := collector.Config{
		Inet4:         *inet4,
		Inet6:         *inet6,
		SPort:         uint16(*sport),
		DPort:         uint16(*dport),
		AllStates:     *allStates,
		AllExtensions: *allExtensions,
		Period:        *period,
		Count:         uint32(*count),
	}
	rtx.Must(collector.Run(ctx, cfg, snk), "collector failed")
}

// newSink constructs the sink.Sink named by format, writing to w.
func newSink(format string, w io.Writer) (sink.Sink, error) {
	switch format {
	case "binary":
		return sink.NewBinary(w), nil
	case "json":
		return sink.NewJSON(w), nil
	case "csv":
		return sink.NewTabular(w), nil
	default:
		return nil, fmt.Errorf("main: unrecognized output format %q", format)
	}
}

// convertStdin peeks at the first few bytes of stdin to detect which of
// the three wire formats is present, then decodes the rest of stdin in
// that format, replaying every event onto out.
func convertStdin(out sink.Sink) error {
	r := bufio.NewReader(os.Stdin)
	peek, err := r.Peek(4)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	if len(peek) == 0 {
		return nil
	}

	nativeOne := make([]byte, 2)
	wire.NativeEndian.PutUint16(nativeOne, 1)

	switch {
	case len(peek) >= 4 && peek[2] == nativeOne[0] && peek[3] == nativeOne[1]:
		return sink.DecodeBinary(r, out)
	case len(peek) >= 4 && peek[2] == nativeOne[1] && peek[3] == nativeOne[0]:
		return fmt.Errorf("main: foreign-endian binary input is not supported")
	case len(peek) >= 2 && peek[0] == '{' && peek[1] == '"':
		return sink.DecodeJSON(r, out)
	case peek[0] == '#' || (peek[0] >= 'a' && peek[0] <= 'z'):
		return sink.DecodeTabular(r, out)
	default:
		return fmt.Errorf("main: unrecognized input format")
	}
}

package collector

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/m-lab/tcpdiag/metrics"
	"github.com/m-lab/tcpdiag/netlink"
	"github.com/m-lab/tcpdiag/sink"
)

// Run executes cfg's paced sweep loop against snk until ctx is canceled,
// cfg.Count sweeps have run, or snk returns an unrecoverable error. A
// zero cfg.Period runs exactly one sweep and returns immediately after.
//
// Pacing uses an absolute CLOCK_MONOTONIC deadline computed once before
// the loop and advanced by cfg.Period every iteration, rather than a
// fixed-interval ticker, so a slow sweep never compounds drift into the
// next one.
func Run(ctx context.Context, cfg Config, snk sink.Sink) error {
	var deadline unix.Timespec
	if cfg.Period != 0 {
		var err error
		deadline, err = unix.ClockGettime(unix.CLOCK_MONOTONIC)
		if err != nil {
			return err
		}
	}

	remaining := cfg.Count
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sweep(cfg, snk); err != nil {
			return err
		}
		metrics.SweepCount.Inc()

		if cfg.Period == 0 {
			return nil
		}
		if remaining != 0 {
			remaining--
			if remaining == 0 {
				return nil
			}
		}

		addPeriod(&deadline, cfg.Period)
		if err := sleepUntil(deadline); err != nil {
			return err
		}
	}
}

// sweep runs one complete round: a sink.Start, one netlink.Dump per
// requested address family with every reply forwarded to sink.Out, and
// a sink.End carrying the sweep's monotonic elapsed duration.
func sweep(cfg Config, snk sink.Sink) error {
	start := time.Now()
	if err := snk.Start(uint64(start.UnixMicro())); err != nil {
		return err
	}

	q := netlink.Query{
		States:     cfg.states(),
		Extensions: cfg.extensions(),
		SPort:      cfg.SPort,
		DPort:      cfg.DPort,
	}
	for _, family := range cfg.families() {
		count := 0
		var outErr error
		err := netlink.Dump(family, q, func(data []byte) error {
			count++
			outErr = snk.Out(data)
			return outErr
		})
		if outErr != nil {
			return outErr
		}
		if err != nil {
			log.Println(err)
			metrics.ErrorCount.With(prometheus.Labels{"type": "dump"}).Inc()
			continue
		}
		metrics.SampleCount.Add(float64(count))
	}

	duration := time.Since(start)
	metrics.SweepDurationHistogram.Observe(duration.Seconds())
	return snk.End(uint32(duration.Microseconds()))
}

// addPeriod advances ts by period seconds, carrying nanosecond overflow
// into the seconds field.
func addPeriod(ts *unix.Timespec, period float64) {
	sec := int64(period)
	nsec := int64((period - float64(sec)) * 1e9)
	ts.Sec += sec
	ts.Nsec += nsec
	if ts.Nsec >= 1e9 {
		ts.Nsec -= 1e9
		ts.Sec++
	}
}

// sleepUntil blocks until the absolute CLOCK_MONOTONIC instant deadline,
// retrying across signal interruptions.
func sleepUntil(deadline unix.Timespec) error {
	for {
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, unix.TIMER_ABSTIME, &deadline, nil)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

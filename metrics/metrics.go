// Package metrics defines prometheus metric types and provides convenience
// methods to add accounting to various parts of the pipeline.
//
// When defining new operations or metrics, these are helpful values to track:
//  - things coming into or go out of the system: requests, files, tests, api calls.
//  - the success or error status of any of the above.
//  - the distribution of processing latency.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyscallTimeHistogram tracks the latency of a single per-family dump
	// request/reply-drain round trip. It includes the time the dump's
	// callback spends handing each sample to the sink.
	SyscallTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tcpdiag_syscall_time_histogram",
			Help: "netlink syscall latency distribution (seconds)",
			Buckets: []float64{
				0.001, 0.00125, 0.0016, 0.002, 0.0025, 0.0032, 0.004, 0.005, 0.0063, 0.0079,
				0.01, 0.0125, 0.016, 0.02, 0.025, 0.032, 0.04, 0.05, 0.063, 0.079,
				0.1, 0.125, 0.16, 0.2,
			},
		},
		[]string{"af"})

	// SweepDurationHistogram tracks the wall-clock duration of a complete
	// sweep, across every requested address family.
	SweepDurationHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcpdiag_sweep_duration_histogram",
			Help:    "sweep duration distribution (seconds)",
			Buckets: prometheus.LinearBuckets(0, .001, 20),
		},
	)

	// ConnectionCountHistogram tracks the number of sockets each
	// per-family dump delivered to its callback without error.
	ConnectionCountHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tcpdiag_connection_count_histogram",
			Help: "connection count histogram",
			Buckets: []float64{
				1, 2, 3, 4, 5, 6, 8,
				10, 12.5, 16, 20, 25, 32, 40, 50, 63, 79,
				100, 125, 160, 200, 250, 320, 400, 500, 630, 790,
				1000, 1250, 1600, 2000, 2500, 3200, 4000, 5000, 6300, 7900,
				10000, 12500, 16000, 20000, 25000, 32000, 40000, 50000, 63000, 79000,
				10000000,
			},
		},
		[]string{"af"})

	// ErrorCount measures the number of errors encountered, labeled by
	// where they were detected.
	//
	// Example usage:
	//    metrics.ErrorCount.With(prometheus.Labels{"type": "decode"}).Inc()
	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcpdiag_error_total",
			Help: "The total number of errors encountered.",
		}, []string{"type"})

	// SweepCount counts the number of sweeps completed.
	SweepCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcpdiag_sweep_total",
			Help: "Number of sweeps completed.",
		},
	)

	// SampleCount counts the total number of samples emitted to the sink
	// across all sweeps.
	SampleCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcpdiag_sample_total",
			Help: "Number of samples emitted to the sink.",
		},
	)
)

// init() prints a log message to let the user know that the package has been
// loaded and the metrics registered. The metrics are auto-registered, which
// means they are registered as soon as this package is loaded, and the exact
// time this occurs (and whether this occurs at all in a given context) can be
// opaque.
func init() {
	log.Println("Prometheus metrics in tcpdiag.metrics are registered.")
}

// Package metrics provides Prometheus instrumentation for rowstream codecs
// and conversions.
//
// # Overview
//
// Metrics are registered on the default Prometheus registry at package
// initialisation through promauto:
//   - rows decoded and encoded, per MIME type
//   - codec errors, per MIME type, codec kind and operation
//   - conversions, per decoder/encoder pair and outcome
//   - conversion duration and throughput
//
// # Basic Usage
//
//	metrics.RowsEncoded.WithLabelValues("text/csv").Inc()
//
//	timer := metrics.NewTimer("convert")
//	stats, err := conv.Run(ctx)
//	metrics.ConversionDuration.WithLabelValues("text/csv", "application/json").
//	    Observe(timer.Stop().Seconds())
//
// A CLI run has no scrape endpoint, so WriteTextfile dumps the default
// registry in the node_exporter textfile format instead.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Codec kinds used as the "kind" label.
const (
	KindDecoder = "decoder"
	KindEncoder = "encoder"
)

// Codec operations used as the "op" label.
const (
	OpOpen  = "open"
	OpRead  = "read"
	OpWrite = "write"
	OpClose = "close"
)

var (
	// RowsDecoded counts rows yielded by decoders.
	// Labels: mime
	RowsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowstream_rows_decoded_total",
			Help: "Total number of rows yielded by decoders",
		},
		[]string{"mime"},
	)

	// RowsEncoded counts rows serialized by encoders.
	// Labels: mime
	RowsEncoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowstream_rows_encoded_total",
			Help: "Total number of rows serialized by encoders",
		},
		[]string{"mime"},
	)

	// CodecErrors counts failures that were logged rather than returned,
	// plus write errors.
	// Labels: mime, kind (decoder/encoder), op (open/read/write/close)
	CodecErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowstream_codec_errors_total",
			Help: "Total number of codec errors",
		},
		[]string{"mime", "kind", "op"},
	)

	// Conversions counts stream converter runs.
	// Labels: decoder, encoder, status (success/failure/cancelled)
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowstream_conversions_total",
			Help: "Total number of stream conversions",
		},
		[]string{"decoder", "encoder", "status"},
	)

	// ConversionDuration tracks stream converter run time in seconds.
	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rowstream_conversion_duration_seconds",
			Help:    "Stream conversion duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"decoder", "encoder"},
	)

	// Throughput tracks rows per second of the last conversion.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rowstream_throughput_rows_per_second",
			Help: "Rows per second of the most recent conversion",
		},
		[]string{"decoder", "encoder"},
	)
)

// WriteTextfile writes every metric of the default registry to path in the
// Prometheus text format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Timer measures elapsed time since its creation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It may be called
// repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks rows per second for a decoder/encoder pair.
// Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	decoder   string
	encoder   string
}

// NewThroughputTracker creates a tracker labelled with both MIME types.
func NewThroughputTracker(decoder, encoder string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		decoder:   decoder,
		encoder:   encoder,
	}
}

// Increment adds n to the row count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset computes rows per second since the last reset, publishes it
// to the Throughput gauge and resets the window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.decoder, t.encoder).Set(throughput)

	return throughput
}

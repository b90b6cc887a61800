// Package compression wraps raw row handles with streaming compression so
// every codec reads and writes compressed files transparently.
//
// # Overview
//
// Supported algorithms and their file extensions:
//   - Gzip (.gz)
//   - Zstd (.zst)
//   - Snappy framed stream (.sz)
//   - S2 (.s2)
//   - LZ4 frame (.lz4)
//   - Deflate (.deflate)
//
// # Basic Usage
//
//	alg, base := compression.FromPath("rows.csv.gz") // Gzip, "rows.csv"
//
//	rc, err := compression.NewReader(file, alg)
//	dec.Open(rc)
//
//	wc, err := compression.NewWriter(out, compression.Zstd, compression.Best)
//	enc.Open(wc)
//
// Closing a wrapped handle finishes the compressed stream first and then
// closes the underlying handle.
package compression

import (
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/rowstream/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents the framed snappy stream format
	Snappy Algorithm = "snappy"
	// LZ4 represents the lz4 frame format
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

var extensions = map[string]Algorithm{
	".gz":      Gzip,
	".gzip":    Gzip,
	".zst":     Zstd,
	".zstd":    Zstd,
	".sz":      Snappy,
	".snappy":  Snappy,
	".s2":      S2,
	".lz4":     LZ4,
	".deflate": Deflate,
}

// Algorithms returns every supported algorithm except None, sorted.
func Algorithms() []Algorithm {
	algs := []Algorithm{Gzip, Snappy, LZ4, Zstd, S2, Deflate}
	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })
	return algs
}

// Parse maps an algorithm name or file extension to an Algorithm. The empty
// string is None.
func Parse(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "none":
		return None, nil
	}
	for _, alg := range Algorithms() {
		if string(alg) == n {
			return alg, nil
		}
	}
	if !strings.HasPrefix(n, ".") {
		n = "." + n
	}
	if alg, ok := extensions[n]; ok {
		return alg, nil
	}
	return None, errors.Newf(errors.ErrorTypeValidation, "unsupported compression algorithm: %s", name)
}

// FromPath infers the algorithm from the last extension of p and returns
// p without it. Paths without a known extension yield None and p unchanged.
func FromPath(p string) (Algorithm, string) {
	ext := strings.ToLower(path.Ext(p))
	if alg, ok := extensions[ext]; ok {
		return alg, p[:len(p)-len(ext)]
	}
	return None, p
}

// Extension returns the canonical file extension for alg.
func Extension(alg Algorithm) string {
	switch alg {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case Snappy:
		return ".sz"
	case S2:
		return ".s2"
	case LZ4:
		return ".lz4"
	case Deflate:
		return ".deflate"
	default:
		return ""
	}
}

// NewReader returns a handle that decompresses r. None returns r itself.
func NewReader(r io.ReadCloser, alg Algorithm) (io.ReadCloser, error) {
	var (
		dec io.Reader
		fin func() error
	)

	switch alg {
	case None, "":
		return r, nil
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read gzip header")
		}
		dec, fin = gz, gz.Close
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create zstd reader")
		}
		dec, fin = zr, func() error { zr.Close(); return nil }
	case Snappy:
		dec = snappy.NewReader(r)
	case S2:
		dec = s2.NewReader(r)
	case LZ4:
		dec = lz4.NewReader(r)
	case Deflate:
		fr := flate.NewReader(r)
		dec, fin = fr, fr.Close
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported compression algorithm: %s", alg)
	}

	return &readCloser{Reader: dec, finish: fin, under: r}, nil
}

// NewWriter returns a handle that compresses into w at level. None returns
// w itself.
func NewWriter(w io.WriteCloser, alg Algorithm, level Level) (io.WriteCloser, error) {
	var enc io.WriteCloser

	switch alg {
	case None, "":
		return w, nil
	case Gzip:
		gz, err := gzip.NewWriterLevel(w, mapGzipLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create gzip writer")
		}
		enc = gz
	case Zstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create zstd writer")
		}
		enc = zw
	case Snappy:
		enc = snappy.NewBufferedWriter(w)
	case S2:
		enc = s2.NewWriter(w)
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to configure lz4 writer")
		}
		enc = lw
	case Deflate:
		fw, err := flate.NewWriter(w, mapDeflateLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create deflate writer")
		}
		enc = fw
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported compression algorithm: %s", alg)
	}

	return &writeCloser{WriteCloser: enc, under: w}, nil
}

type readCloser struct {
	io.Reader
	finish func() error
	under  io.Closer
	closed bool
}

// Close releases the decompressor and closes the underlying handle. The
// first error wins.
func (r *readCloser) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.finish != nil {
		err = r.finish()
	}
	if cerr := r.under.Close(); err == nil {
		err = cerr
	}
	return err
}

type writeCloser struct {
	io.WriteCloser
	under  io.Closer
	closed bool
}

// Close writes the compressed trailer and closes the underlying handle.
// The underlying handle is closed even when the trailer fails.
func (w *writeCloser) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.WriteCloser.Close()
	if cerr := w.under.Close(); err == nil {
		err = cerr
	}
	return err
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

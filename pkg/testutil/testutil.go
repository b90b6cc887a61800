// Package testutil provides testing utilities for rowstream
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/rowstream/pkg/row"
)

// ErrClose is returned by handles configured to fail on close.
var ErrClose = errors.New("testutil: close failed")

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// ObservedLogger returns a logger whose entries at or above Debug can be
// inspected by the test.
func ObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SampleRows returns n rows of the shape
// {"column_1": int32(i), "column_2": "String i", "column_3": "foo"}.
func SampleRows(n int) []*row.Row {
	rows := make([]*row.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = row.FromPairs(
			"column_1", int32(i),
			"column_2", fmt.Sprintf("String %d", i),
			"column_3", "foo",
		)
	}
	return rows
}

// SliceSource serves rows from a slice and counts how often it is pulled.
type SliceSource struct {
	Rows []*row.Row
	// FailAt makes the pull with this zero-based index fail with Err.
	// Negative disables failure.
	FailAt int
	Err    error

	Calls   int
	Removed int
	pos     int
}

// NewSliceSource returns a source over rows that never fails.
func NewSliceSource(rows ...*row.Row) *SliceSource {
	return &SliceSource{Rows: rows, FailAt: -1}
}

// Next returns the next row or io.EOF.
func (s *SliceSource) Next() (*row.Row, error) {
	s.Calls++
	if s.FailAt >= 0 && s.Calls-1 == s.FailAt {
		return nil, s.Err
	}
	if s.pos >= len(s.Rows) {
		return nil, io.EOF
	}
	r := s.Rows[s.pos]
	s.pos++
	return r, nil
}

// Remove counts removals.
func (s *SliceSource) Remove() {
	s.Removed++
}

// Handle is an in-memory read/write handle that records Close calls.
type Handle struct {
	bytes.Buffer
	CloseErr error
	Closed   int
}

// NewHandle returns a handle preloaded with data.
func NewHandle(data []byte) *Handle {
	h := &Handle{}
	h.Write(data)
	return h
}

// Close records the call and returns CloseErr.
func (h *Handle) Close() error {
	h.Closed++
	return h.CloseErr
}

// FailingWriter fails every write after Limit bytes.
type FailingWriter struct {
	Limit   int
	written int
	Closed  int
}

// Write implements io.Writer.
func (w *FailingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.Limit {
		return 0, fmt.Errorf("testutil: write limit %d exceeded", w.Limit)
	}
	w.written += len(p)
	return len(p), nil
}

// Close implements io.Closer.
func (w *FailingWriter) Close() error {
	w.Closed++
	return nil
}

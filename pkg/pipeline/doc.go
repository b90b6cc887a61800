// Package pipeline drives rows from a decoder into an encoder.
//
// # Overview
//
// A StreamConverter owns exactly one core.Decoder and one core.Encoder.
// Run drains the decoder's bounded, filtered iterator into the encoder in
// source order, then closes the decoder and the encoder, in that order,
// whether or not draining succeeded.
//
// Filters apply in three stages:
//
//  1. the decoder's pipeline, inside its iterator
//  2. the converter's own pipeline (Filters)
//  3. the encoder's pipeline, inside Write
//
// # Basic Usage
//
//	dec, err := pipeline.OpenDecoder("text/csv", in, core.Limit(100))
//	if err != nil {
//		return err
//	}
//	enc, err := pipeline.OpenEncoder("application/json", out)
//	if err != nil {
//		dec.Close()
//		return err
//	}
//
//	conv, err := pipeline.NewStreamConverter(dec, enc, pipeline.WithName("csv-to-json"))
//	if err != nil {
//		return err
//	}
//	conv.Filters().Add(column.New("id", "name"))
//
//	stats, err := conv.Run(ctx)
//
// # Error Handling
//
// A read failure ends the run early: it is logged and reported in
// Stats.DecodeErr, and Run still returns the rows converted so far. A write
// failure or a cancelled context stops the run and is returned. Close
// failures on either side are logged by the codecs and never surface.
//
// # Observability
//
// Every run records the rowstream_conversions_total counter, the duration
// histogram and the throughput gauge from pkg/metrics, and a
// "rowstream.convert" span on the configured tracer.
package pipeline

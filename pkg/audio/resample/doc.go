// ABOUTME: Sample rate conversion package
// ABOUTME: Linear interpolation resampling of interleaved PCM streams
// Package resample converts interleaved int32 samples between sample rates.
//
// A Resampler is stateful: consecutive calls continue one stream, so a
// fragment boundary does not produce a click or a dropped frame.
//
// Example:
//
//	r := resample.New(48000, 44100, 2)
//	out = r.Resample(out[:0], samples)
package resample

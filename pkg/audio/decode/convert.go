// ABOUTME: Sample rate and channel conversion for container streams
// ABOUTME: Adapts the format an MP3 or FLAC stream declares to the output format
package decode

import "github.com/Resonate-Protocol/onair-go/pkg/audio/resample"

// converter maps decoded samples from the stream's own rate and channel
// count to the rate and channel count the output was opened with
type converter struct {
	srcChannels int
	dstChannels int
	resampler   *resample.Resampler

	mixed []int32
	out   []int32
}

// An unset output rate or channel count keeps the stream's own.
func newConverter(srcRate, srcChannels, dstRate, dstChannels int) *converter {
	if dstRate <= 0 {
		dstRate = srcRate
	}
	if dstChannels <= 0 {
		dstChannels = srcChannels
	}

	c := &converter{srcChannels: srcChannels, dstChannels: dstChannels}
	if srcRate != dstRate {
		c.resampler = resample.New(srcRate, dstRate, dstChannels)
	}
	return c
}

// passthrough reports whether samples need no conversion
func (c *converter) passthrough() bool {
	return c.resampler == nil && c.srcChannels == c.dstChannels
}

// convert returns samples in the output format. The result is only valid
// until the next call.
func (c *converter) convert(samples []int32) []int32 {
	if c.srcChannels != c.dstChannels {
		samples = c.remix(samples)
	}
	if c.resampler != nil {
		c.out = c.resampler.Resample(c.out[:0], samples)
		return c.out
	}
	return samples
}

// remix averages down to mono, duplicates mono or keeps the first channels
func (c *converter) remix(samples []int32) []int32 {
	frames := len(samples) / c.srcChannels
	c.mixed = c.mixed[:0]

	for i := 0; i < frames; i++ {
		frame := samples[i*c.srcChannels : (i+1)*c.srcChannels]
		switch {
		case c.dstChannels == 1:
			var sum int64
			for _, s := range frame {
				sum += int64(s)
			}
			c.mixed = append(c.mixed, int32(sum/int64(len(frame))))
		case c.srcChannels == 1:
			for ch := 0; ch < c.dstChannels; ch++ {
				c.mixed = append(c.mixed, frame[0])
			}
		default:
			c.mixed = append(c.mixed, frame[:c.dstChannels]...)
		}
	}
	return c.mixed
}

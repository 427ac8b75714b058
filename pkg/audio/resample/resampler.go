// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries the last input frame across calls so chunked input resamples seamlessly
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	channels int
	ratio    float64

	// position is the next output point in input frames, counted from prev
	// when primed and from the first frame of the next input otherwise
	position float64
	prev     []int32
	primed   bool
}

// New creates a resampler for interleaved samples with the given channel count
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		channels: channels,
		ratio:    float64(inputRate) / float64(outputRate),
		prev:     make([]int32, channels),
	}
}

// Resample appends to dst the samples interpolated from input, which
// continues the input of earlier calls. A trailing partial frame is ignored.
func (r *Resampler) Resample(dst, input []int32) []int32 {
	frames := len(input) / r.channels
	if frames == 0 {
		return dst
	}

	offset := 0
	if r.primed {
		offset = 1
	}
	total := frames + offset

	frame := func(i int) []int32 {
		if i < offset {
			return r.prev
		}
		i -= offset
		return input[i*r.channels : (i+1)*r.channels]
	}

	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}

		frac := r.position - float64(idx)
		a, b := frame(idx), frame(idx+1)
		for ch := 0; ch < r.channels; ch++ {
			dst = append(dst, int32(float64(a[ch])*(1.0-frac)+float64(b[ch])*frac))
		}
		r.position += r.ratio
	}

	// The last input frame becomes the first frame of the next call
	r.position -= float64(total - 1)
	copy(r.prev, frame(total-1))
	r.primed = true

	return dst
}

// Reset forgets the stream so the next call starts fresh
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples inputSamples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

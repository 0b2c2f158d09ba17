package audio

import "github.com/yok-tottii/deck8-soundboard/internal/codec"

// ConvertChannels remixes interleaved samples between mono and stereo.
// Stereo to mono averages each frame, mono to stereo duplicates each sample.
// Any other combination is returned unchanged.
func ConvertChannels(samples []float32, from, to int) []float32 {
	switch {
	case from == 2 && to == 1:
		out := make([]float32, len(samples)/2)
		for i := range out {
			out[i] = (samples[2*i] + samples[2*i+1]) / 2
		}
		return out
	case from == 1 && to == 2:
		out := make([]float32, len(samples)*2)
		for i, s := range samples {
			out[2*i] = s
			out[2*i+1] = s
		}
		return out
	default:
		return samples
	}
}

// Resample converts interleaved samples from one rate to another with
// linear interpolation between neighbouring frames of the same channel.
// The output holds floor(frames * to / from) frames. Equal rates return
// samples unchanged.
func Resample(samples []float32, channels, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || channels <= 0 {
		return samples
	}

	frames := len(samples) / channels
	outFrames := int(int64(frames) * int64(to) / int64(from))
	out := make([]float32, outFrames*channels)

	for i := 0; i < outFrames; i++ {
		// Source position i*from/to, split into whole frame and fraction.
		num := int64(i) * int64(from)
		idx := int(num / int64(to))
		frac := float32(num%int64(to)) / float32(to)

		next := idx + 1
		if next >= frames {
			next = idx
		}
		for c := 0; c < channels; c++ {
			s0 := samples[idx*channels+c]
			s1 := samples[next*channels+c]
			out[i*channels+c] = s0 + (s1-s0)*frac
		}
	}
	return out
}

// Convert returns the samples of clip in format f.
func Convert(clip codec.Clip, f Format) []float32 {
	samples := clip.Samples
	channels := clip.Channels
	if channels != f.Channels {
		samples = ConvertChannels(samples, channels, f.Channels)
		if (channels == 1 || channels == 2) && (f.Channels == 1 || f.Channels == 2) {
			channels = f.Channels
		}
	}
	return Resample(samples, channels, clip.SampleRate, f.SampleRate)
}

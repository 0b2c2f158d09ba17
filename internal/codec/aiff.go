package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
)

// ErrNotAIFF is returned for input without a FORM/AIFF header.
var ErrNotAIFF = errors.New("codec: not an aiff file")

// AIFFDecoder decodes integer PCM AIFF files.
type AIFFDecoder struct{}

// Decode implements Decoder.
func (AIFFDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotAIFF
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate < 1 {
		return nil, fmt.Errorf("%w: aiff header", ErrLayout)
	}

	bitDepth := int(dec.BitDepth)
	convert := func(v int) float32 { return float32(v) / float32(int64(1)<<(bitDepth-1)) }
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d-bit aiff", ErrLayout, bitDepth)
	}

	return &pcmSource{
		dec:        dec,
		format:     format,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		convert:    convert,
	}, nil
}

package codec

import (
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format tags.
const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

var (
	// ErrNotWAV is returned for input without a RIFF/WAVE header.
	ErrNotWAV = errors.New("codec: not a wav file")
	// ErrLayout is returned for files whose sample layout is unsupported.
	ErrLayout = errors.New("codec: unsupported sample layout")
)

// pcmReader is the part of the go-audio decoders used by pcmSource.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// pcmSource adapts a go-audio integer decoder to Source.
type pcmSource struct {
	dec        pcmReader
	format     *goaudio.Format
	sampleRate int
	channels   int
	convert    func(v int) float32
	buf        *goaudio.IntBuffer
}

func (s *pcmSource) SampleRate() int { return s.sampleRate }
func (s *pcmSource) Channels() int   { return s.channels }
func (s *pcmSource) Close() error    { return nil }

func (s *pcmSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{Data: make([]int, len(dst)), Format: s.format}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	for i := 0; i < n; i++ {
		dst[i] = s.convert(s.buf.Data[i])
	}
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

// intScaler normalizes signed integer PCM of the given bit depth.
func intScaler(bitDepth int) (func(v int) float32, error) {
	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned.
		return func(v int) float32 { return float32(v-128) / 128 }, nil
	case 16, 24:
		scale := float32(int64(1) << (bitDepth - 1))
		return func(v int) float32 { return float32(v) / scale }, nil
	case 32:
		// Normalize through int32 whether the decoder sign-extended or not.
		return func(v int) float32 { return float32(int32(uint32(v))) / (1 << 31) }, nil
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrLayout, bitDepth)
	}
}

// WAVDecoder decodes integer PCM and 32-bit float WAV files.
type WAVDecoder struct{}

// Decode implements Decoder.
func (WAVDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate < 1 {
		return nil, ErrLayout
	}

	bitDepth := int(dec.BitDepth)
	var convert func(int) float32
	switch dec.WavAudioFormat {
	case wavFormatIEEEFloat:
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrLayout, bitDepth)
		}
		convert = func(v int) float32 { return math.Float32frombits(uint32(v)) }
	case wavFormatPCM, wavFormatExtensible:
		scaler, err := intScaler(bitDepth)
		if err != nil {
			return nil, err
		}
		convert = scaler
	default:
		return nil, fmt.Errorf("%w: format tag %#x", ErrLayout, dec.WavAudioFormat)
	}

	return &pcmSource{
		dec:        dec,
		format:     format,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		convert:    convert,
	}, nil
}

// WriteFloatWAV encodes clip as a 32-bit IEEE float WAV file.
func WriteFloatWAV(w io.WriteSeeker, clip Clip) error {
	if clip.Channels < 1 || clip.SampleRate < 1 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrLayout, clip.Channels, clip.SampleRate)
	}

	enc := wav.NewEncoder(w, clip.SampleRate, 32, clip.Channels, wavFormatIEEEFloat)

	// go-audio carries samples as ints; the encoder writes the low 32 bits,
	// which here are the float bit patterns.
	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		data[i] = int(int32(math.Float32bits(s)))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: 32,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

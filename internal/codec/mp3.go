package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3Reader is the part of the go-mp3 decoder used by mp3Source.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// mp3Source converts go-mp3's 16-bit little-endian stereo output.
type mp3Source struct {
	dec mp3Reader
	buf []byte
	// odd holds a trailing byte when a read ends mid-sample.
	odd    byte
	hasOdd bool
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }
func (s *mp3Source) Close() error    { return nil }

// ReadSamples converts decoded frames. go-mp3 panics on some corrupt
// frames; those surface as ErrDecode.
func (s *mp3Source) ReadSamples(dst []float32) (samples int, err error) {
	defer func() {
		if v := recover(); v != nil {
			samples, err = 0, fmt.Errorf("%w: mp3: %v", ErrDecode, v)
		}
	}()

	if len(dst) == 0 {
		return 0, nil
	}
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	b := s.buf[:need]

	off := 0
	if s.hasOdd {
		b[0] = s.odd
		off = 1
		s.hasOdd = false
	}
	n := off
	for n < 2 && err == nil {
		var m int
		m, err = s.dec.Read(b[n:])
		if m == 0 && err == nil {
			err = io.EOF
		}
		n += m
	}

	samples = n / 2
	for i := 0; i < samples; i++ {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / 32768
	}
	if n%2 == 1 {
		s.odd = b[n-1]
		s.hasOdd = true
	}
	return samples, err
}

// MP3Decoder decodes MPEG-1/2 layer III files. Output is always stereo.
type MP3Decoder struct{}

// Decode implements Decoder.
func (MP3Decoder) Decode(r io.ReadSeeker) (src Source, err error) {
	defer func() {
		if v := recover(); v != nil {
			src, err = nil, fmt.Errorf("%w: mp3: %v", ErrDecode, v)
		}
	}()

	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return &mp3Source{dec: dec}, nil
}

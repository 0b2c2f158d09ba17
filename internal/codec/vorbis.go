package codec

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

type vorbisSource struct {
	r *oggvorbis.Reader
}

func (s *vorbisSource) SampleRate() int { return s.r.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.r.Channels() }
func (s *vorbisSource) Close() error    { return nil }

// ReadSamples returns whole frames only; oggvorbis reports values, not frames.
func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	ch := s.r.Channels()
	usable := len(dst) - len(dst)%ch
	if usable == 0 {
		return 0, nil
	}
	n, err := s.r.Read(dst[:usable])
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

// VorbisDecoder decodes Ogg Vorbis files.
type VorbisDecoder struct{}

// Decode implements Decoder.
func (VorbisDecoder) Decode(r io.ReadSeeker) (Source, error) {
	or, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("ogg vorbis: %w", err)
	}
	if or.Channels() < 1 {
		return nil, fmt.Errorf("ogg vorbis: %d channels", or.Channels())
	}
	return &vorbisSource{r: or}, nil
}

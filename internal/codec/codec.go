// Package codec decodes sound-library files into float32 PCM and writes
// trimmed clips back out as IEEE float WAV.
package codec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDecode is wrapped by every failure to read or decode audio data.
	ErrDecode = errors.New("codec: cannot decode audio")
	// ErrUnsupportedFormat is returned when no decoder accepts the input.
	ErrUnsupportedFormat = errors.New("codec: unsupported audio format")
	// ErrEmptyTrim is returned when a trim range selects no samples.
	ErrEmptyTrim = errors.New("codec: trim range is empty")
)

// Source is a stream of interleaved float32 samples in [-1, 1].
type Source interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst and returns the number of values written.
	// io.EOF marks the end of the stream.
	ReadSamples(dst []float32) (int, error)
	Close() error
}

// Decoder opens a Source over encoded data.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// Registry maps lower-case file extensions (".wav") to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with every built-in decoder.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".wav", WAVDecoder{})
	r.Register(".wave", WAVDecoder{})
	r.Register(".mp3", MP3Decoder{})
	r.Register(".ogg", VorbisDecoder{})
	r.Register(".oga", VorbisDecoder{})
	r.Register(".aif", AIFFDecoder{})
	r.Register(".aiff", AIFFDecoder{})
	return r
}

// Register associates ext with d, replacing any previous decoder.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

// Get returns the decoder registered for ext.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Open decodes rs with the decoder registered for ext. Extensions with no
// registered decoder are sniffed by trying every decoder in turn.
func (r *Registry) Open(rs io.ReadSeeker, ext string) (Source, error) {
	if d, ok := r.Get(ext); ok {
		src, err := decode(d, rs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return src, nil
	}

	tried := make(map[Decoder]bool)
	var firstErr error
	for _, e := range r.Extensions() {
		d, _ := r.Get(e)
		if tried[d] {
			continue
		}
		tried[d] = true

		src, err := decode(d, rs)
		if err == nil {
			return src, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrDecode, ErrUnsupportedFormat, firstErr)
	}
	return nil, fmt.Errorf("%w: %w", ErrDecode, ErrUnsupportedFormat)
}

// decode rewinds rs and runs d, turning a decoder panic into an error.
func decode(d Decoder, rs io.ReadSeeker) (src Source, err error) {
	defer func() {
		if v := recover(); v != nil {
			src, err = nil, fmt.Errorf("decoder panic: %v", v)
		}
	}()

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return d.Decode(rs)
}

// DecodeFile decodes the whole file at path with r.
func (r *Registry) DecodeFile(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()

	src, err := r.Open(f, filepath.Ext(path))
	if err != nil {
		return Clip{}, err
	}
	defer src.Close()

	return ReadAll(src)
}

var defaultRegistry = DefaultRegistry()

// DecodeFile decodes the file at path using the built-in decoders.
func DecodeFile(path string) (Clip, error) {
	return defaultRegistry.DecodeFile(path)
}

// ReadAll drains src into a Clip.
func ReadAll(src Source) (clip Clip, err error) {
	defer func() {
		if v := recover(); v != nil {
			clip, err = Clip{}, fmt.Errorf("%w: decoder panic: %v", ErrDecode, v)
		}
	}()

	clip = Clip{Channels: src.Channels(), SampleRate: src.SampleRate()}
	buf := make([]float32, 4096)
	for {
		n, rerr := src.ReadSamples(buf)
		clip.Samples = append(clip.Samples, buf[:n]...)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return Clip{}, fmt.Errorf("%w: %w", ErrDecode, rerr)
		}
		if n == 0 {
			break
		}
	}
	return clip, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

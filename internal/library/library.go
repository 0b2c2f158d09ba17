// Package library stores imported sound files under an application-private
// directory, one file per sound named after its generated id.
package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yok-tottii/deck8-soundboard/internal/codec"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
)

var (
	// ErrIO wraps file copy, write and delete failures.
	ErrIO = errors.New("library: file operation failed")
	// ErrEmptyTrim is returned when a trim range contains no audio.
	ErrEmptyTrim = codec.ErrEmptyTrim
	// ErrInvalidFilename is returned for names that would escape the store.
	ErrInvalidFilename = errors.New("library: invalid filename")
)

// Entry is one sound of the library. ID is what key assignments refer to.
type Entry struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
}

// Player plays a decoded clip on the local output device.
type Player interface {
	Play(clip codec.Clip, volume float32)
}

// Store manages the sound files of the library.
type Store struct {
	dir    string
	decode func(path string) (codec.Clip, error)
	player Player
	log    *logger.Logger
}

// DefaultDir returns <user config dir>/deck8-soundboard/sounds.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "deck8-soundboard", "sounds"), nil
}

// NewStore creates dir if needed. player may be nil, in which case
// previews are skipped.
func NewStore(dir string, player Player, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create sounds directory: %w", ErrIO, err)
	}
	return &Store{dir: dir, decode: codec.DecodeFile, player: player, log: log}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute path of a stored file.
func (s *Store) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return filepath.Join(s.dir, filename), nil
}

// Import copies source into the store unchanged, keeping its extension
// ("wav" when it has none).
func (s *Store) Import(source, displayName string) (Entry, error) {
	id := uuid.NewString()
	ext := strings.TrimPrefix(filepath.Ext(source), ".")
	if ext == "" {
		ext = "wav"
	}
	entry := Entry{ID: id, Filename: id + "." + ext, DisplayName: displayName}

	dest, _ := s.Path(entry.Filename)
	if err := copyFile(source, dest); err != nil {
		return Entry{}, fmt.Errorf("%w: import %s: %w", ErrIO, source, err)
	}

	s.log.Info("Imported %q as %s", displayName, entry.Filename)
	return entry, nil
}

// ImportTrimmed decodes source, keeps [startMs, endMs) and stores the result
// as a float WAV file.
func (s *Store) ImportTrimmed(source, displayName string, startMs, endMs uint64) (Entry, error) {
	clip, err := s.decode(source)
	if err != nil {
		return Entry{}, err
	}
	trimmed, err := codec.Trim(clip, startMs, endMs)
	if err != nil {
		return Entry{}, err
	}

	id := uuid.NewString()
	entry := Entry{ID: id, Filename: id + ".wav", DisplayName: displayName}
	dest, _ := s.Path(entry.Filename)

	if err := writeWAV(dest, trimmed); err != nil {
		return Entry{}, fmt.Errorf("%w: write %s: %w", ErrIO, entry.Filename, err)
	}

	s.log.Info("Imported %q as %s (%d-%d ms)", displayName, entry.Filename, startMs, endMs)
	return entry, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *Store) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %w", ErrIO, filename, err)
	}
	return nil
}

// Duration returns the length of the audio file at path in milliseconds.
func (s *Store) Duration(path string) (uint64, error) {
	clip, err := s.decode(path)
	if err != nil {
		return 0, err
	}
	return clip.DurationMs(), nil
}

// PreviewTrim plays [startMs, endMs) of path locally and returns without
// waiting for playback.
func (s *Store) PreviewTrim(path string, startMs, endMs uint64, volume float32) error {
	clip, err := s.decode(path)
	if err != nil {
		return err
	}
	trimmed, err := codec.Trim(clip, startMs, endMs)
	if err != nil {
		return err
	}
	if s.player == nil {
		s.log.Warn("Preview of %s skipped: no playback device", path)
		return nil
	}
	s.player.Play(trimmed, volume)
	return nil
}

// copyFile copies src to the new file dst, removing dst on failure.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

func writeWAV(path string, clip codec.Clip) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if err := codec.WriteFloatWAV(f, clip); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

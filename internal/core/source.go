// Thread-safe holder for the current source image
package core

import (
	"fmt"
	"sync"

	"edge-viewer/internal/engine"
)

// Source owns the decoded input image. Replacement is wholesale: a newly
// accepted input closes the previous frame and bumps the generation counter,
// never mutates in place.
type Source struct {
	mu         sync.RWMutex
	frame      engine.Frame
	width      int
	height     int
	generation uint64
	origin     string
}

func NewSource() *Source {
	return &Source{}
}

// Replace takes ownership of frame and returns the new generation. The
// previous frame, if any, is closed.
func (s *Source) Replace(frame engine.Frame, origin string) (uint64, error) {
	if frame == nil || frame.Empty() {
		return 0, fmt.Errorf("cannot set empty source image")
	}
	if frame.Width() <= 0 || frame.Height() <= 0 {
		return 0, fmt.Errorf("invalid source dimensions: %dx%d", frame.Width(), frame.Height())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil {
		s.frame.Close()
	}
	s.frame = frame
	s.width = frame.Width()
	s.height = frame.Height()
	s.origin = origin
	s.generation++
	return s.generation, nil
}

// Snapshot returns a clone of the current frame plus its generation. The
// caller owns the clone and must close it.
func (s *Source) Snapshot() (engine.Frame, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.frame == nil || s.frame.Empty() {
		return nil, 0, false
	}
	return s.frame.Clone(), s.generation, true
}

// HasImage reports whether a source image is loaded.
func (s *Source) HasImage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame != nil && !s.frame.Empty()
}

// Generation returns the current source generation.
func (s *Source) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Dims returns the natural width and height of the current source.
func (s *Source) Dims() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// Origin describes where the current source came from (file path, URL,
// "clipboard").
func (s *Source) Origin() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origin
}

// Close releases the held frame.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
	s.width, s.height = 0, 0
	s.origin = ""
}

// Vision engine abstraction consumed by the pipeline controller
package engine

import (
	"errors"
	"image"
)

// ErrUnavailable is returned by every operation of the stub engine and by
// Probe while the real engine has not finished initializing.
var ErrUnavailable = errors.New("vision engine not available")

// Frame is an opaque handle to a decoded raster owned by the engine.
// Frames must be closed by the caller that received them.
type Frame interface {
	Close()
	Empty() bool
	Width() int
	Height() int
	Clone() Frame
	ToImage() (image.Image, error)
}

// Processor exposes the fixed set of image operations the application needs.
// Implementations: the gocv-backed engine (build tag "gocv") and a stub that
// reports ErrUnavailable on every call.
type Processor interface {
	// Probe returns nil once the engine is operational.
	Probe() error

	// Decode turns encoded image bytes (PNG, JPEG, ...) into a frame.
	Decode(data []byte) (Frame, error)

	// Resize scales src to exactly width x height using linear interpolation.
	Resize(src Frame, width, height int) (Frame, error)

	// Grayscale converts src to a single-channel image.
	Grayscale(src Frame) (Frame, error)

	// Blur applies a square gaussian kernel. An even kernel is coerced to the
	// next odd value before use. Sigma is derived from the kernel size.
	Blur(src Frame, kernel int) (Frame, error)

	// Canny runs edge detection with the two hysteresis thresholds, using the
	// engine's default aperture (3) and no L2 gradient.
	Canny(src Frame, threshold1, threshold2 int) (Frame, error)

	// Invert produces the bitwise complement of src.
	Invert(src Frame) (Frame, error)

	// EncodePNG serializes src as a PNG blob.
	EncodePNG(src Frame) ([]byte, error)
}

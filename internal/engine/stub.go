//go:build !gocv
// +build !gocv

package engine

// stubProcessor is compiled when the "gocv" build tag is absent. Every
// operation reports ErrUnavailable, so the readiness monitor never flips and
// the UI stays disabled.
type stubProcessor struct{}

// NewProcessor creates the stub engine (build without the gocv tag).
func NewProcessor() Processor {
	return stubProcessor{}
}

func (stubProcessor) Probe() error { return ErrUnavailable }

func (stubProcessor) Decode([]byte) (Frame, error) { return nil, ErrUnavailable }

func (stubProcessor) Resize(Frame, int, int) (Frame, error) { return nil, ErrUnavailable }

func (stubProcessor) Grayscale(Frame) (Frame, error) { return nil, ErrUnavailable }

func (stubProcessor) Blur(Frame, int) (Frame, error) { return nil, ErrUnavailable }

func (stubProcessor) Canny(Frame, int, int) (Frame, error) { return nil, ErrUnavailable }

func (stubProcessor) Invert(Frame) (Frame, error) { return nil, ErrUnavailable }

func (stubProcessor) EncodePNG(Frame) ([]byte, error) { return nil, ErrUnavailable }

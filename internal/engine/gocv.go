//go:build gocv
// +build gocv

package engine

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// gocvProcessor implements Processor on top of OpenCV via gocv.
type gocvProcessor struct {
	probeOnce sync.Once
	probeErr  error
}

// NewProcessor creates the gocv-backed engine.
func NewProcessor() Processor {
	return &gocvProcessor{}
}

type matFrame struct {
	mat gocv.Mat
}

func (f *matFrame) Close() {
	if !f.mat.Empty() {
		f.mat.Close()
	}
}

func (f *matFrame) Empty() bool  { return f.mat.Empty() }
func (f *matFrame) Width() int   { return f.mat.Cols() }
func (f *matFrame) Height() int  { return f.mat.Rows() }
func (f *matFrame) Clone() Frame { return &matFrame{mat: f.mat.Clone()} }

func (f *matFrame) ToImage() (image.Image, error) {
	if f.mat.Empty() {
		return nil, fmt.Errorf("cannot convert empty frame")
	}
	return f.mat.ToImage()
}

// Probe runs a tiny blur round-trip once; the native runtime is considered
// operational after the first success.
func (p *gocvProcessor) Probe() error {
	p.probeOnce.Do(func() {
		p.probeErr = selfTest()
	})
	return p.probeErr
}

func selfTest() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine self-test panicked: %v", r)
		}
	}()

	src := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.GaussianBlur(src, &dst, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
	if dst.Empty() {
		return fmt.Errorf("engine self-test produced empty result")
	}
	return nil
}

func (p *gocvProcessor) Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot decode empty payload")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decode produced empty image")
	}
	return &matFrame{mat: mat}, nil
}

func (p *gocvProcessor) Resize(src Frame, width, height int) (Frame, error) {
	in, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target: %dx%d", width, height)
	}

	dst := gocv.NewMat()
	gocv.Resize(in.mat, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("resize to %dx%d produced empty result", width, height)
	}
	return &matFrame{mat: dst}, nil
}

func (p *gocvProcessor) Grayscale(src Frame) (Frame, error) {
	in, err := unwrap(src)
	if err != nil {
		return nil, err
	}

	if in.mat.Channels() == 1 {
		return in.Clone(), nil
	}

	dst := gocv.NewMat()
	gocv.CvtColor(in.mat, &dst, gocv.ColorBGRToGray)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("grayscale conversion produced empty result")
	}
	return &matFrame{mat: dst}, nil
}

func (p *gocvProcessor) Blur(src Frame, kernel int) (Frame, error) {
	in, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	if kernel < 1 {
		return nil, fmt.Errorf("invalid blur kernel: %d", kernel)
	}
	// The blur kernel must be odd.
	if kernel%2 == 0 {
		kernel++
	}

	dst := gocv.NewMat()
	gocv.GaussianBlur(in.mat, &dst, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("blur with kernel %d produced empty result", kernel)
	}
	return &matFrame{mat: dst}, nil
}

func (p *gocvProcessor) Canny(src Frame, threshold1, threshold2 int) (Frame, error) {
	in, err := unwrap(src)
	if err != nil {
		return nil, err
	}

	dst := gocv.NewMat()
	gocv.Canny(in.mat, &dst, float32(threshold1), float32(threshold2))
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("edge detection produced empty result")
	}
	return &matFrame{mat: dst}, nil
}

func (p *gocvProcessor) Invert(src Frame) (Frame, error) {
	in, err := unwrap(src)
	if err != nil {
		return nil, err
	}

	dst := gocv.NewMat()
	gocv.BitwiseNot(in.mat, &dst)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("invert produced empty result")
	}
	return &matFrame{mat: dst}, nil
}

func (p *gocvProcessor) EncodePNG(src Frame) ([]byte, error) {
	in, err := unwrap(src)
	if err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, in.mat)
	if err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func unwrap(f Frame) (*matFrame, error) {
	if f == nil {
		return nil, fmt.Errorf("nil frame")
	}
	mf, ok := f.(*matFrame)
	if !ok {
		return nil, fmt.Errorf("frame does not belong to this engine")
	}
	if mf.mat.Empty() {
		return nil, fmt.Errorf("input frame is empty")
	}
	return mf, nil
}

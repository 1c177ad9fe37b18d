package core

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"edge-viewer/internal/engine"
)

// fakeFrame is a size-only frame; pixel content is irrelevant to the
// controller's contract.
type fakeFrame struct {
	eng    *fakeEngine
	w, h   int
	tag    string
	closed atomic.Bool
}

func (f *fakeFrame) Close() {
	if f.closed.CompareAndSwap(false, true) {
		f.eng.live.Add(-1)
	}
}

func (f *fakeFrame) Empty() bool { return f.closed.Load() || f.w == 0 || f.h == 0 }
func (f *fakeFrame) Width() int  { return f.w }
func (f *fakeFrame) Height() int { return f.h }

func (f *fakeFrame) Clone() engine.Frame { return f.eng.newFrame(f.w, f.h, f.tag) }

func (f *fakeFrame) ToImage() (image.Image, error) {
	return taggedImage{Gray: image.NewGray(image.Rect(0, 0, f.w, f.h)), tag: f.tag}, nil
}

// taggedImage carries the frame tag so tests can tell which run produced a
// delivered preview.
type taggedImage struct {
	*image.Gray
	tag string
}

func tagOfImage(img image.Image) string {
	if ti, ok := img.(taggedImage); ok {
		return ti.tag
	}
	return ""
}

// fakeEngine records every operation and counts live frames so tests can
// assert that runs release all intermediate buffers.
type fakeEngine struct {
	mu          sync.Mutex
	live        atomic.Int64
	blurKernels []int
	cannyCalls  [][2]int
	resizeCalls [][2]int

	blurGate chan struct{} // when set, Blur blocks until the channel closes
	cannyErr error
}

func newFakeEngine() *fakeEngine { return &fakeEngine{} }

func (e *fakeEngine) newFrame(w, h int, tag string) *fakeFrame {
	e.live.Add(1)
	return &fakeFrame{eng: e, w: w, h: h, tag: tag}
}

func (e *fakeEngine) Probe() error { return nil }

func (e *fakeEngine) Decode(data []byte) (engine.Frame, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	return e.newFrame(64, 48, "decoded"), nil
}

func (e *fakeEngine) Resize(src engine.Frame, w, h int) (engine.Frame, error) {
	e.mu.Lock()
	e.resizeCalls = append(e.resizeCalls, [2]int{w, h})
	e.mu.Unlock()
	return e.newFrame(w, h, tagOf(src)), nil
}

func (e *fakeEngine) Grayscale(src engine.Frame) (engine.Frame, error) {
	return e.newFrame(src.Width(), src.Height(), tagOf(src)), nil
}

func (e *fakeEngine) Blur(src engine.Frame, kernel int) (engine.Frame, error) {
	e.mu.Lock()
	e.blurKernels = append(e.blurKernels, kernel)
	gate := e.blurGate
	e.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return e.newFrame(src.Width(), src.Height(), tagOf(src)), nil
}

// Canny stamps the output frame with its thresholds so tests can tell which
// run produced the committed render.
func (e *fakeEngine) Canny(src engine.Frame, t1, t2 int) (engine.Frame, error) {
	e.mu.Lock()
	e.cannyCalls = append(e.cannyCalls, [2]int{t1, t2})
	err := e.cannyErr
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return e.newFrame(src.Width(), src.Height(), fmt.Sprintf("canny:%d:%d", t1, t2)), nil
}

func (e *fakeEngine) Invert(src engine.Frame) (engine.Frame, error) {
	return e.newFrame(src.Width(), src.Height(), tagOf(src)), nil
}

func (e *fakeEngine) EncodePNG(src engine.Frame) ([]byte, error) {
	return []byte(tagOf(src)), nil
}

func tagOf(f engine.Frame) string {
	if ff, ok := f.(*fakeFrame); ok {
		return ff.tag
	}
	return ""
}

type readyFlag struct{ v atomic.Bool }

func (r *readyFlag) Ready() bool { return r.v.Load() }

type previewSink struct {
	mu     sync.Mutex
	images []image.Image
	errs   []error
}

func (s *previewSink) onPreview(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, img)
}

func (s *previewSink) onError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *previewSink) previewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

func (s *previewSink) lastPreview() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) == 0 {
		return nil
	}
	return s.images[len(s.images)-1]
}

func (s *previewSink) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func newTestController(t *testing.T, eng *fakeEngine, ready bool) (*Controller, *previewSink, *logtest.Hook) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	flag := &readyFlag{}
	flag.v.Store(ready)

	ctrl := NewController(eng, flag, DefaultParams(), logger)
	sink := &previewSink{}
	ctrl.SetCallbacks(sink.onPreview, sink.onError)
	t.Cleanup(ctrl.Close)
	return ctrl, sink, hook
}

func TestRunSkippedWhenEngineNotReady(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, hook := newTestController(t, eng, false)

	require.NoError(t, ctrl.SetSource(eng.newFrame(100, 80, "src"), "test"))
	ctrl.Flush()

	require.Zero(t, sink.previewCount())
	require.Empty(t, eng.blurKernels)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Contains(t, entry.Message, "engine not ready")
}

func TestRunSkippedWithoutSource(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, hook := newTestController(t, eng, true)

	ctrl.Refresh()
	ctrl.Flush()

	require.Zero(t, sink.previewCount())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Contains(t, entry.Message, "no source image")
}

func TestDownUpResizeRestoresOriginalDims(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, _ := newTestController(t, eng, true)

	require.NoError(t, ctrl.SetSource(eng.newFrame(641, 479, "src"), "test"))
	ctrl.Flush()

	require.Equal(t, 1, sink.previewCount())
	bounds := sink.lastPreview().Bounds()
	require.Equal(t, 641, bounds.Dx())
	require.Equal(t, 479, bounds.Dy())

	// First resize scales down with rounding, second restores exactly.
	require.Len(t, eng.resizeCalls, 2)
	p := ctrl.Params()
	sw, sh := p.ScaledDims(641, 479)
	require.Equal(t, [2]int{sw, sh}, eng.resizeCalls[0])
	require.Equal(t, [2]int{641, 479}, eng.resizeCalls[1])
}

func TestParamChangeTriggersExactlyOneRunWithCurrentValues(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, _ := newTestController(t, eng, true)

	require.NoError(t, ctrl.SetSource(eng.newFrame(64, 48, "src"), "test"))
	ctrl.Flush()
	require.Equal(t, 1, sink.previewCount())

	next := ctrl.Params()
	next.Kernel = 8
	next.Threshold1 = 120
	next.Threshold2 = 240
	ctrl.SetParams(next)
	ctrl.Flush()

	require.Equal(t, 2, sink.previewCount())
	require.Len(t, eng.blurKernels, 2)
	require.Equal(t, 9, eng.blurKernels[1], "even kernel must be coerced to the next odd value")
	require.Equal(t, [2]int{120, 240}, eng.cannyCalls[1])
}

func TestUnchangedParamsDoNotTrigger(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, _ := newTestController(t, eng, true)

	require.NoError(t, ctrl.SetSource(eng.newFrame(64, 48, "src"), "test"))
	ctrl.Flush()

	ctrl.SetParams(ctrl.Params())
	ctrl.Flush()

	require.Equal(t, 1, sink.previewCount())
	require.Len(t, eng.blurKernels, 1)
}

func TestRapidChangesCommitOnlyNewestRun(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, _ := newTestController(t, eng, true)

	gate := make(chan struct{})
	eng.mu.Lock()
	eng.blurGate = gate
	eng.mu.Unlock()

	require.NoError(t, ctrl.SetSource(eng.newFrame(64, 48, "src"), "test"))

	next := ctrl.Params()
	next.Threshold1 = 199
	ctrl.SetParams(next)

	// Both runs are now started and parked at the blur step.
	close(gate)
	ctrl.Flush()

	// Both runs executed, but only the newest one committed: exactly one
	// preview, and both the delivered preview and the render carry the
	// newest thresholds.
	require.Equal(t, 1, sink.previewCount())
	require.Len(t, eng.cannyCalls, 2)
	require.Equal(t, "canny:199:100", tagOfImage(sink.lastPreview()))

	png, err := ctrl.RenderedPNG()
	require.NoError(t, err)
	require.Equal(t, "canny:199:100", string(png))
	require.Zero(t, sink.errorCount())
}

func TestSupersededRunNeverDeliversPreview(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, _ := newTestController(t, eng, true)

	gate := make(chan struct{})
	eng.mu.Lock()
	eng.blurGate = gate
	eng.mu.Unlock()

	require.NoError(t, ctrl.SetSource(eng.newFrame(64, 48, "src"), "test"))

	// Wait until the first run is parked at the blur step, then let the
	// second run through unimpeded.
	require.Eventually(t, func() bool {
		eng.mu.Lock()
		defer eng.mu.Unlock()
		return len(eng.blurKernels) == 1
	}, time.Second, time.Millisecond)

	eng.mu.Lock()
	eng.blurGate = nil
	eng.mu.Unlock()

	next := ctrl.Params()
	next.Threshold1 = 199
	ctrl.SetParams(next)

	require.Eventually(t, func() bool {
		return sink.previewCount() == 1
	}, time.Second, time.Millisecond)

	// The first run now finishes after the newer one has already been
	// displayed; it must discard, not deliver a stale preview on top.
	close(gate)
	ctrl.Flush()

	require.Equal(t, 1, sink.previewCount())
	require.Equal(t, "canny:199:100", tagOfImage(sink.lastPreview()))

	png, err := ctrl.RenderedPNG()
	require.NoError(t, err)
	require.Equal(t, "canny:199:100", string(png))
}

func TestConcurrentTriggersCommitNewestState(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, _ := newTestController(t, eng, true)

	require.NoError(t, ctrl.SetSource(eng.newFrame(64, 48, "src"), "test"))

	// Hammer the controller from two goroutines, as a slider change racing
	// a manual refresh would. Whatever the interleaving, the last committed
	// run must carry the final parameter values.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 20; i++ {
			p := ctrl.Params()
			p.Threshold1 = 10 * i
			ctrl.SetParams(p)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			ctrl.Refresh()
		}
	}()
	wg.Wait()
	ctrl.Flush()

	png, err := ctrl.RenderedPNG()
	require.NoError(t, err)
	require.Equal(t, "canny:200:100", string(png))
	require.Equal(t, "canny:200:100", tagOfImage(sink.lastPreview()))
}

func TestPipelineFailureLeavesRenderedOutputIntact(t *testing.T) {
	eng := newFakeEngine()
	ctrl, sink, _ := newTestController(t, eng, true)

	require.NoError(t, ctrl.SetSource(eng.newFrame(64, 48, "src"), "test"))
	ctrl.Flush()

	png, err := ctrl.RenderedPNG()
	require.NoError(t, err)
	require.NotEmpty(t, png)

	eng.mu.Lock()
	eng.cannyErr = errors.New("boom")
	eng.mu.Unlock()

	ctrl.Refresh()
	ctrl.Flush()

	require.Equal(t, 1, sink.errorCount())
	require.Equal(t, 1, sink.previewCount(), "failed run must not produce a preview")

	// The previous render is still exportable.
	png, err = ctrl.RenderedPNG()
	require.NoError(t, err)
	require.NotEmpty(t, png)
}

func TestRenderedPNGFailsBeforeFirstRun(t *testing.T) {
	eng := newFakeEngine()
	ctrl, _, _ := newTestController(t, eng, true)

	_, err := ctrl.RenderedPNG()
	require.Error(t, err)
}

func TestAllIntermediateFramesReleased(t *testing.T) {
	eng := newFakeEngine()
	ctrl, _, _ := newTestController(t, eng, true)

	require.NoError(t, ctrl.SetSource(eng.newFrame(64, 48, "src"), "test"))
	for i := 0; i < 5; i++ {
		p := ctrl.Params()
		p.Threshold1 = 10 * (i + 1)
		ctrl.SetParams(p)
	}
	ctrl.Flush()

	eng.mu.Lock()
	eng.cannyErr = errors.New("boom")
	eng.mu.Unlock()
	ctrl.Refresh()
	ctrl.Flush()

	ctrl.Close()

	require.Eventually(t, func() bool {
		return eng.live.Load() == 0
	}, time.Second, 5*time.Millisecond, "all frames must be closed after shutdown")
}

// Pipeline controller: owns parameters and the current source image and
// re-runs the fixed edge pipeline whenever either changes.
package core

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"edge-viewer/internal/engine"
)

// Readiness reports whether the vision engine has become available.
type Readiness interface {
	Ready() bool
}

// Controller executes the fixed sequence
//
//	resize down -> grayscale -> gaussian blur -> canny -> invert -> resize back
//
// against the current source with the current parameters. Every trigger
// (source replaced, any parameter changed, manual refresh) starts exactly one
// run. Runs execute off the UI goroutine; a run commits its output only if no
// newer run has started since, so the displayed image always corresponds to a
// single run and stale results are discarded instead of overwriting newer
// ones.
type Controller struct {
	proc      engine.Processor
	readiness Readiness
	logger    *logrus.Logger

	mu       sync.Mutex
	params   Params
	source   *Source
	rendered engine.Frame

	runSeq atomic.Uint64
	wg     sync.WaitGroup

	onPreview func(image.Image)
	onError   func(error)
}

func NewController(proc engine.Processor, readiness Readiness, params Params, logger *logrus.Logger) *Controller {
	return &Controller{
		proc:      proc,
		readiness: readiness,
		logger:    logger,
		params:    params.Clamp(),
		source:    NewSource(),
	}
}

// SetCallbacks installs the preview and error sinks. The preview callback
// receives the fully rendered output of a committed run; the error callback
// receives pipeline failures. Both may be called from a worker goroutine, and
// the preview callback runs with the controller locked, so neither may call
// back into the controller directly; hand work off to the UI queue instead.
func (c *Controller) SetCallbacks(onPreview func(image.Image), onError func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPreview = onPreview
	c.onError = onError
}

// Params returns the current parameter set.
func (c *Controller) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// HasSource reports whether a source image is loaded.
func (c *Controller) HasSource() bool {
	return c.source.HasImage()
}

// SourceInfo returns the natural dimensions and origin of the current source.
func (c *Controller) SourceInfo() (width, height int, origin string) {
	width, height = c.source.Dims()
	origin = c.source.Origin()
	return
}

// SetParams clamps p, stores it, and triggers a run if any value changed and
// the engine is ready. Each slider tick lands here; there is no debouncing.
func (c *Controller) SetParams(p Params) {
	p = p.Clamp()

	c.mu.Lock()
	if c.params == p {
		c.mu.Unlock()
		return
	}
	c.params = p
	c.mu.Unlock()

	c.trigger("params changed")
}

// SetSource takes ownership of frame as the new source image, replacing the
// previous one wholesale, and triggers a run.
func (c *Controller) SetSource(frame engine.Frame, origin string) error {
	generation, err := c.source.Replace(frame, origin)
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"origin":     origin,
		"width":      frame.Width(),
		"height":     frame.Height(),
		"generation": generation,
	}).Info("source image replaced")

	c.trigger("source replaced")
	return nil
}

// Refresh re-runs the pipeline against the current source and parameters.
func (c *Controller) Refresh() {
	c.trigger("manual refresh")
}

func (c *Controller) trigger(reason string) {
	if !c.readiness.Ready() {
		c.logger.WithField("reason", reason).Warn("pipeline run skipped: engine not ready")
		return
	}

	// Source, params, and the sequence number are captured in one critical
	// section: a run holding a higher sequence number always carries state
	// at least as new as any run holding a lower one.
	c.mu.Lock()
	working, generation, ok := c.source.Snapshot()
	if !ok {
		c.mu.Unlock()
		c.logger.WithField("reason", reason).Warn("pipeline run skipped: no source image")
		return
	}
	params := c.params
	seq := c.runSeq.Add(1)
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"reason":     reason,
		"run":        seq,
		"generation": generation,
		"scale":      params.Scale,
		"kernel":     params.EffectiveKernel(),
		"threshold1": params.Threshold1,
		"threshold2": params.Threshold2,
	}).Debug("pipeline run started")

	go c.run(working, params, seq)
}

// run executes one pipeline pass. Every intermediate frame is released on
// every exit path; on failure the previously rendered output stays in place.
func (c *Controller) run(working engine.Frame, params Params, seq uint64) {
	defer c.wg.Done()
	defer working.Close()

	start := time.Now()

	fail := func(stage string, err error) {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"run":   seq,
			"stage": stage,
		}).Error("pipeline run failed")

		c.mu.Lock()
		onError := c.onError
		c.mu.Unlock()
		if onError != nil {
			onError(fmt.Errorf("%s: %w", stage, err))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			fail("pipeline", fmt.Errorf("panic: %v", r))
		}
	}()

	width, height := working.Width(), working.Height()
	scaledW, scaledH := params.ScaledDims(width, height)

	scaled, err := c.proc.Resize(working, scaledW, scaledH)
	if err != nil {
		fail("resize down", err)
		return
	}
	defer scaled.Close()

	gray, err := c.proc.Grayscale(scaled)
	if err != nil {
		fail("grayscale", err)
		return
	}
	defer gray.Close()

	blurred, err := c.proc.Blur(gray, params.EffectiveKernel())
	if err != nil {
		fail("blur", err)
		return
	}
	defer blurred.Close()

	edges, err := c.proc.Canny(blurred, params.Threshold1, params.Threshold2)
	if err != nil {
		fail("edge detect", err)
		return
	}
	defer edges.Close()

	inverted, err := c.proc.Invert(edges)
	if err != nil {
		fail("invert", err)
		return
	}
	defer inverted.Close()

	restored, err := c.proc.Resize(inverted, width, height)
	if err != nil {
		fail("resize up", err)
		return
	}

	c.commit(restored, seq, start)
}

// commit installs result as the rendered output unless a newer run has
// started, in which case the result is discarded.
func (c *Controller) commit(result engine.Frame, seq uint64, start time.Time) {
	c.mu.Lock()
	if c.runSeq.Load() != seq {
		c.mu.Unlock()
		result.Close()
		c.logger.WithField("run", seq).Debug("pipeline run result discarded: superseded")
		return
	}

	img, err := result.ToImage()
	if err != nil {
		onError := c.onError
		c.mu.Unlock()
		result.Close()

		c.logger.WithError(err).WithField("run", seq).Error("failed to convert rendered frame")
		if onError != nil {
			onError(fmt.Errorf("render conversion: %w", err))
		}
		return
	}

	if c.rendered != nil {
		c.rendered.Close()
	}
	c.rendered = result

	// The preview is delivered before the lock is released: once a newer
	// run passes the sequence check above, no superseded preview can still
	// be in flight, so deliveries arrive in commit order.
	if c.onPreview != nil {
		c.onPreview(img)
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"run":      seq,
		"duration": time.Since(start),
	}).Debug("pipeline run committed")
}

// RenderedPNG serializes the latest committed output as PNG bytes. It fails
// when nothing has been rendered yet.
func (c *Controller) RenderedPNG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rendered == nil || c.rendered.Empty() {
		return nil, fmt.Errorf("nothing rendered yet")
	}
	return c.proc.EncodePNG(c.rendered)
}

// Flush waits for all in-flight runs to finish.
func (c *Controller) Flush() {
	c.wg.Wait()
}

// Close waits out in-flight runs and releases held frames.
func (c *Controller) Close() {
	c.Flush()

	c.mu.Lock()
	if c.rendered != nil {
		c.rendered.Close()
		c.rendered = nil
	}
	c.mu.Unlock()

	c.source.Close()
}

// Copy-to-clipboard action over the latest rendered output
package export

import (
	"io"

	"github.com/sirupsen/logrus"
)

// RenderSource provides the current rendered output as PNG bytes. It fails
// when nothing has been rendered yet.
type RenderSource interface {
	RenderedPNG() ([]byte, error)
}

// ImageWriter is the clipboard surface the sink writes through.
type ImageWriter interface {
	WriteImagePNG(png []byte) error
}

// Sink exports the rendered canvas. Failures are reported through the status
// reporter, never returned or thrown to the caller.
type Sink struct {
	src    RenderSource
	clip   ImageWriter
	status *Reporter
	logger *logrus.Logger
}

func NewSink(src RenderSource, clip ImageWriter, status *Reporter, logger *logrus.Logger) *Sink {
	return &Sink{src: src, clip: clip, status: status, logger: logger}
}

// Copy serializes the current render to PNG and writes it to the clipboard,
// reporting a transient success or failure status.
func (s *Sink) Copy() {
	png, err := s.src.RenderedPNG()
	if err != nil {
		s.logger.WithError(err).Warn("copy failed: no rendered output")
		s.status.Report(StatusFailed)
		return
	}

	if err := s.clip.WriteImagePNG(png); err != nil {
		s.logger.WithError(err).Warn("copy failed: clipboard write")
		s.status.Report(StatusFailed)
		return
	}

	s.status.Report(StatusCopied)
}

// Save writes the current render as PNG through w. Kept alongside clipboard
// export so a render can leave the app even when no clipboard is available;
// the file save dialog hands over its own writer.
func (s *Sink) Save(w io.Writer) error {
	png, err := s.src.RenderedPNG()
	if err != nil {
		return err
	}
	_, err = w.Write(png)
	return err
}

// Status exposes the reporter for UI wiring.
func (s *Sink) Status() *Reporter {
	return s.status
}

// System clipboard access for image export and paste ingestion
package export

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.design/x/clipboard"
)

// Clipboard wraps the system clipboard. Initialization can fail (headless
// session, missing display); the wrapper then degrades to reporting errors on
// write and empty reads instead of panicking.
type Clipboard struct {
	logger    *logrus.Logger
	available bool
}

func NewClipboard(logger *logrus.Logger) *Clipboard {
	c := &Clipboard{logger: logger}

	if err := clipboard.Init(); err != nil {
		logger.WithError(err).Warn("system clipboard unavailable")
		return c
	}
	c.available = true
	return c
}

// Available reports whether the system clipboard could be initialized.
func (c *Clipboard) Available() bool {
	return c.available
}

// WriteImagePNG places a PNG-encoded image on the clipboard as an
// image-typed entry.
func (c *Clipboard) WriteImagePNG(png []byte) error {
	if !c.available {
		return fmt.Errorf("system clipboard unavailable")
	}
	if len(png) == 0 {
		return fmt.Errorf("refusing to write empty image to clipboard")
	}

	clipboard.Write(clipboard.FmtImage, png)
	c.logger.WithField("bytes", len(png)).Debug("image written to clipboard")
	return nil
}

// ReadImage returns the clipboard's image payload, if any.
func (c *Clipboard) ReadImage() []byte {
	if !c.available {
		return nil
	}
	return clipboard.Read(clipboard.FmtImage)
}

// ReadText returns the clipboard's text payload, if any.
func (c *Clipboard) ReadText() string {
	if !c.available {
		return ""
	}
	return string(clipboard.Read(clipboard.FmtText))
}

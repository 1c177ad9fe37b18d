// Image ingestion: clipboard payloads, pasted references, picked files
package ingest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"edge-viewer/internal/engine"
)

// ErrNotImageReference marks pasted text that does not look like an image.
// Such input is dropped silently by callers (logged, never surfaced).
var ErrNotImageReference = errors.New("text is not an image reference")

var imageExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tiff", ".tif",
}

// maxFetchBytes bounds remote and data-URI payloads (32 MiB).
const maxFetchBytes = 32 << 20

// Source resolves user-supplied input into a decoded frame. Exactly one
// input is live at a time; the caller replaces its previous frame wholesale
// on every successful resolution.
type Source struct {
	proc   engine.Processor
	client *http.Client
	logger *logrus.Logger
}

func NewSource(proc engine.Processor, timeout time.Duration, logger *logrus.Logger) *Source {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Source{
		proc:   proc,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// IsImageReference reports whether pasted text syntactically resembles an
// image: a known image extension suffix, or an http/https/data-image scheme.
func IsImageReference(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") || strings.HasPrefix(t, "data:image/") {
		return true
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(t, ext) {
			return true
		}
	}
	return false
}

// IsImageFile reports whether the picked file's declared media type begins
// with "image/", judged by its extension.
func IsImageFile(path string) bool {
	p := strings.ToLower(path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// FromBytes decodes a pasted image payload.
func (s *Source) FromBytes(data []byte) (engine.Frame, error) {
	frame, err := s.proc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode pasted image: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bytes":  len(data),
		"width":  frame.Width(),
		"height": frame.Height(),
	}).Info("pasted image accepted")
	return frame, nil
}

// FromText resolves pasted text. Text that does not look like an image
// reference yields ErrNotImageReference; resolution or decode failures are
// returned so the caller can log them and keep its current source.
func (s *Source) FromText(text string) (engine.Frame, error) {
	text = strings.TrimSpace(text)
	if !IsImageReference(text) {
		s.logger.WithField("length", len(text)).Debug("pasted text rejected: not an image reference")
		return nil, ErrNotImageReference
	}

	data, err := s.resolve(text)
	if err != nil {
		return nil, err
	}

	frame, err := s.proc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode referenced image: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"reference": truncate(text, 80),
		"width":     frame.Width(),
		"height":    frame.Height(),
	}).Info("referenced image accepted")
	return frame, nil
}

// FromFile loads a user-selected file whose media type must be an image.
func (s *Source) FromFile(path string) (engine.Frame, error) {
	if !IsImageFile(path) {
		return nil, fmt.Errorf("not an image file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	frame, err := s.proc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  frame.Width(),
		"height": frame.Height(),
	}).Info("image file accepted")
	return frame, nil
}

func (s *Source) resolve(ref string) ([]byte, error) {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:image/"):
		return decodeDataURI(ref)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return s.fetch(ref)
	default:
		// Bare path with an image extension: treat as a local file.
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ref, err)
		}
		return data, nil
	}
}

func (s *Source) fetch(url string) ([]byte, error) {
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("fetch %s: payload exceeds %d bytes", url, maxFetchBytes)
	}
	return data, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}

	meta, payload := uri[:comma], uri[comma+1:]
	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("data URI payload exceeds %d bytes", maxFetchBytes)
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

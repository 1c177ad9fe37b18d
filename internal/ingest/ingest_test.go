package ingest

import (
	"encoding/base64"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"edge-viewer/internal/engine"
)

type stubFrame struct{ size int }

func (stubFrame) Close() {}

func (stubFrame) Empty() bool { return false }

func (f stubFrame) Width() int { return f.size }

func (f stubFrame) Height() int { return f.size }

func (f stubFrame) Clone() engine.Frame { return f }

func (stubFrame) ToImage() (image.Image, error) { return nil, nil }

// stubProc records the payloads handed to Decode.
type stubProc struct {
	engine.Processor
	decoded [][]byte
}

func (p *stubProc) Decode(data []byte) (engine.Frame, error) {
	p.decoded = append(p.decoded, data)
	return stubFrame{size: len(data)}, nil
}

func newTestSource(proc engine.Processor) *Source {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSource(proc, time.Second, logger)
}

func TestIsImageReference(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"notaurl", false},
		{"", false},
		{"   ", false},
		{"hello world", false},
		{"https://example.com/a.png", true},
		{"http://example.com/a", true},
		{"data:image/png;base64,AAAA", true},
		{"data:text/plain;base64,AAAA", false},
		{"photo.JPEG", true},
		{"scan.tif", true},
		{"/tmp/picture.webp", true},
		{"document.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			require.Equal(t, tt.want, IsImageReference(tt.text))
		})
	}
}

func TestFromTextRejectsPlainText(t *testing.T) {
	proc := &stubProc{}
	src := newTestSource(proc)

	frame, err := src.FromText("notaurl")
	require.ErrorIs(t, err, ErrNotImageReference)
	require.Nil(t, frame)
	require.Empty(t, proc.decoded, "rejected text must never reach the decoder")
}

func TestFromTextDataURI(t *testing.T) {
	proc := &stubProc{}
	src := newTestSource(proc)

	payload := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	frame, err := src.FromText(uri)
	require.NoError(t, err)
	require.NotNil(t, frame)
	require.Len(t, proc.decoded, 1)
	require.Equal(t, payload, proc.decoded[0])
}

func TestFromTextFetchesHTTPURL(t *testing.T) {
	body := []byte("fake-image-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	proc := &stubProc{}
	src := newTestSource(proc)

	frame, err := src.FromText(server.URL + "/a.png")
	require.NoError(t, err)
	require.NotNil(t, frame)
	require.Len(t, proc.decoded, 1)
	require.Equal(t, body, proc.decoded[0])
}

func TestFromTextFetchErrorKeepsDecoderUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	proc := &stubProc{}
	src := newTestSource(proc)

	_, err := src.FromText(server.URL + "/missing.png")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotImageReference)
	require.Empty(t, proc.decoded)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.png")
	require.NoError(t, os.WriteFile(path, []byte("png-data"), 0o644))

	proc := &stubProc{}
	src := newTestSource(proc)

	frame, err := src.FromFile(path)
	require.NoError(t, err)
	require.NotNil(t, frame)
	require.Equal(t, []byte("png-data"), proc.decoded[0])
}

func TestFromFileRejectsNonImageMediaType(t *testing.T) {
	proc := &stubProc{}
	src := newTestSource(proc)

	_, err := src.FromFile("/tmp/notes.txt")
	require.Error(t, err)
	require.Empty(t, proc.decoded)
}

// Main application window and component wiring
package gui

import (
	"errors"
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"edge-viewer/internal/config"
	"edge-viewer/internal/core"
	"edge-viewer/internal/engine"
	"edge-viewer/internal/export"
	"edge-viewer/internal/ingest"
)

var fileFilterExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tiff", ".tif"}

// Application wires the engine, controller, ingestion, and export behind the
// Fyne window.
type Application struct {
	app    fyne.App
	window fyne.Window
	logger *logrus.Logger
	cfg    *config.Config

	proc       engine.Processor
	monitor    *engine.Monitor
	controller *core.Controller
	source     *ingest.Source
	clip       *export.Clipboard
	sink       *export.Sink

	preview       *PreviewCanvas
	controls      *ControlPanel
	openButton    *widget.Button
	refreshButton *widget.Button
	copyButton    *widget.Button
	statusLabel   *widget.Label
	statusCard    *widget.Card
}

func NewApplication(app fyne.App, cfg *config.Config, proc engine.Processor, monitor *engine.Monitor, logger *logrus.Logger) *Application {
	window := app.NewWindow("Edge Viewer")
	window.Resize(fyne.NewSize(cfg.WindowWidth, cfg.WindowHeight))
	window.CenterOnScreen()

	a := &Application{
		app:     app,
		window:  window,
		logger:  logger,
		cfg:     cfg,
		proc:    proc,
		monitor: monitor,
	}

	a.initializeCore()
	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()

	return a
}

func (a *Application) initializeCore() {
	a.controller = core.NewController(a.proc, a.monitor, a.cfg.Params, a.logger)
	a.source = ingest.NewSource(a.proc, a.cfg.FetchTimeout, a.logger)
	a.clip = export.NewClipboard(a.logger)
	a.sink = export.NewSink(a.controller, a.clip, export.NewReporter(a.cfg.StatusDuration), a.logger)
}

func (a *Application) initializeGUI() {
	a.preview = NewPreviewCanvas()
	a.controls = NewControlPanel(a.cfg.Params)

	a.openButton = widget.NewButton("Open...", a.openFileDialog)
	a.openButton.Disable()
	a.refreshButton = widget.NewButton("Re-run", a.controller.Refresh)
	a.refreshButton.Disable()
	a.copyButton = widget.NewButton("Copy to clipboard", a.sink.Copy)
	a.copyButton.Disable()

	a.statusLabel = widget.NewLabel("waiting for vision engine...")
	a.statusCard = widget.NewCard("Status", "", a.statusLabel)
}

func (a *Application) setupLayout() {
	buttons := container.NewHBox(a.openButton, a.refreshButton, a.copyButton)

	sidebar := container.NewVBox(
		a.controls.GetContainer(),
		widget.NewSeparator(),
		buttons,
		a.statusCard,
	)

	split := container.NewHSplit(sidebar, a.preview.GetContainer())
	split.SetOffset(0.3)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open...", a.openFileDialog),
		fyne.NewMenuItem("Save As...", a.saveFileDialog),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Copy to Clipboard", a.sink.Copy),
	)
	a.window.SetMainMenu(fyne.NewMainMenu(fileMenu))
	a.window.SetContent(split)
}

func (a *Application) setupCallbacks() {
	a.controller.SetCallbacks(
		func(img image.Image) {
			fyne.Do(func() {
				a.preview.Update(img)
			})
		},
		func(err error) {
			fyne.Do(func() {
				a.setStatus(fmt.Sprintf("processing failed: %v", err))
			})
		},
	)

	a.controls.SetOnChange(a.controller.SetParams)

	a.monitor.OnReady(func() {
		fyne.Do(func() {
			a.setStatus("vision engine ready")
			a.updateControlState()
		})
	})

	a.sink.Status().SetOnChange(func(s export.Status) {
		fyne.Do(func() {
			switch s {
			case export.StatusCopied:
				a.setStatus("copied to clipboard")
			case export.StatusFailed:
				a.setStatus("copy failed")
			default:
				a.refreshIdleStatus()
			}
		})
	})

	// Ctrl+V anywhere in the window ingests the system clipboard.
	a.window.Canvas().AddShortcut(&fyne.ShortcutPaste{}, func(fyne.Shortcut) {
		a.handlePaste()
	})
}

// updateControlState applies the gating rule: parameter sliders, re-run, and
// copy require both a ready engine and a loaded image; opening an image
// requires only the engine.
func (a *Application) updateControlState() {
	ready := a.monitor.Ready()
	loaded := a.controller.HasSource()

	if ready {
		a.openButton.Enable()
	} else {
		a.openButton.Disable()
	}

	if ready && loaded {
		a.controls.Enable()
		a.refreshButton.Enable()
		a.copyButton.Enable()
	} else {
		a.controls.Disable()
		a.refreshButton.Disable()
		a.copyButton.Disable()
	}
}

func (a *Application) setStatus(message string) {
	a.statusLabel.SetText(message)
}

func (a *Application) refreshIdleStatus() {
	if !a.monitor.Ready() {
		a.setStatus("waiting for vision engine...")
		return
	}
	if !a.controller.HasSource() {
		a.setStatus("vision engine ready")
		return
	}
	w, h, origin := a.controller.SourceInfo()
	a.setStatus(fmt.Sprintf("%s (%dx%d)", origin, w, h))
}

func (a *Application) openFileDialog() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()

		path := reader.URI().Path()
		go a.acceptInput(path, func() (engine.Frame, error) {
			return a.source.FromFile(path)
		})
	}, a.window)
	fd.SetFilter(storage.NewExtensionFileFilter(fileFilterExtensions))
	fd.Show()
}

// handlePaste resolves the clipboard off the UI goroutine: an image payload
// wins over text, text that does not look like an image reference is dropped
// silently.
func (a *Application) handlePaste() {
	go func() {
		if data := a.clip.ReadImage(); len(data) > 0 {
			a.acceptInput("clipboard", func() (engine.Frame, error) {
				return a.source.FromBytes(data)
			})
			return
		}

		text := a.clip.ReadText()
		if text == "" {
			return
		}
		a.acceptInput(text, func() (engine.Frame, error) {
			return a.source.FromText(text)
		})
	}()
}

// acceptInput resolves an input into a frame and hands it to the controller.
// Failures leave the current source untouched.
func (a *Application) acceptInput(origin string, resolve func() (engine.Frame, error)) {
	frame, err := resolve()
	if err != nil {
		if errors.Is(err, ingest.ErrNotImageReference) {
			return
		}
		a.logger.WithError(err).WithField("origin", origin).Error("input rejected")
		return
	}

	if err := a.controller.SetSource(frame, origin); err != nil {
		a.logger.WithError(err).WithField("origin", origin).Error("failed to set source")
		frame.Close()
		return
	}

	fyne.Do(func() {
		a.updateControlState()
		a.refreshIdleStatus()
	})
}

func (a *Application) saveFileDialog() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()

		if err := a.sink.Save(writer); err != nil {
			a.logger.WithError(err).WithField("uri", writer.URI().String()).Error("save failed")
			a.setStatus(fmt.Sprintf("save failed: %v", err))
			return
		}
		a.setStatus(fmt.Sprintf("saved %s", writer.URI().Name()))
	}, a.window)
	fd.SetFileName("edges.png")
	fd.Show()
}

func (a *Application) ShowAndRun() {
	a.logger.Info("showing main window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.monitor.Start()
	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.logger.Info("cleaning up application resources")
	a.monitor.Stop()
	a.sink.Status().Stop()
	a.controller.Close()
}

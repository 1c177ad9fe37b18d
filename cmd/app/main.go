package main

import (
	"flag"
	"os"

	"fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"edge-viewer/internal/config"
	"edge-viewer/internal/engine"
	"edge-viewer/internal/gui"
)

const (
	AppName = "Edge Viewer"
	AppID   = "io.edgeviewer.app"
)

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode)
	cfg := config.Load()

	logger.WithFields(logrus.Fields{
		"debug_mode":    *debugMode,
		"scale":         cfg.Params.Scale,
		"kernel":        cfg.Params.Kernel,
		"poll_interval": cfg.PollInterval,
	}).Info("starting edge viewer")

	proc := engine.NewProcessor()
	monitor := engine.NewMonitor(proc, cfg.PollInterval, logger)

	myApp := app.NewWithID(AppID)

	mainApp := gui.NewApplication(myApp, cfg, proc, monitor, logger)
	mainApp.ShowAndRun()

	logger.Info("shutting down")
	os.Exit(0)
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

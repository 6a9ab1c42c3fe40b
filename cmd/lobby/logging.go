package main

import (
	"os"
	"time"

	"github.com/goliatone/go-lobby"
	"github.com/sirupsen/logrus"
)

var logrusLogger = logrus.New()

func configureLogger(cfg LogConfig, debug bool) {
	logrusLogger.Out = os.Stderr

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if debug {
		level = logrus.DebugLevel
	}
	logrusLogger.SetLevel(level)
	logrusLogger.SetReportCaller(debug)

	if cfg.Format == "text" {
		logrusLogger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
		return
	}
	logrusLogger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})
}

// named returns a component logger for the lobby packages.
func named(component string) lobby.Logger {
	return lobby.NewLogrusLogger(logrusLogger.WithField("component", component))
}

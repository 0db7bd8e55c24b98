// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging constructs the process-wide structured logger.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/journal-engine/pkg/types"
)

// New builds a logrus logger from config. Unknown levels fall back to
// info; unknown formats fall back to text.
func New(cfg types.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Component returns an entry tagged with the component name. Pipeline
// constructors take one of these rather than the root logger.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}

// Discard returns an entry that drops everything. Tests use it to keep
// output quiet.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

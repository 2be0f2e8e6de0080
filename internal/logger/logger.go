package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide entry. Components derive their own with Component.
var Log *logrus.Entry

// Tests and tools that never call Init still get a usable logger.
func init() {
	Init("info", false)
}

// Init replaces the global logger. Unknown levels fall back to info.
func Init(level string, json bool) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	Log = l.WithField("service", "launchpad")
}

func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

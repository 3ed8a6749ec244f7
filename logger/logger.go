package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Release builds log JSON, everything else logs
// human-readable text.
func New(level string, release bool) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, release)
}

func NewWithOutput(out io.Writer, level string, release bool) *logrus.Logger {
	log := logrus.New()
	log.Out = out

	if release {
		log.Formatter = &logrus.JSONFormatter{}
	} else {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, falling back to info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

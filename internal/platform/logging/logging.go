package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger returns a pre-configured logger for a component. Loggers are
// cached per component so repeated construction is cheap.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, ok := loggers[component]; ok {
		return logger
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(os.Getenv("WITAR_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	logger.SetOutput(output())

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// output keeps logs off stdout: the CLI prints results there, and in TUI
// mode stray writes would corrupt the alternate screen.
func output() io.Writer {
	if path := os.Getenv("WITAR_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			return f
		}
	}
	return os.Stderr
}

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. format is "text" or "json";
// a non-empty filePath tees output to that file as well as stderr.
func Setup(level, format, filePath string) error {
	return Configure(logrus.StandardLogger(), level, format, filePath, os.Stderr)
}

// Configure applies the settings to l, writing to out.
func Configure(l *logrus.Logger, level, format, filePath string, out io.Writer) error {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	if filePath == "" {
		l.SetOutput(out)
		return nil
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.SetOutput(out)
		l.WithError(err).Error("Could not create file for logging")
		return nil
	}
	l.SetOutput(io.MultiWriter(out, file))
	return nil
}

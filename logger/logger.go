// Package logger configures application and request logging.
package logger

import (
	"io"
	"os"
	"path/filepath"

	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the standard logrus logger at stdout and a rotated file.
func Setup(logDir string, debug bool) error {
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return err
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	return nil
}

// NewRequestLogger builds the fiber access-log config writing to the same
// rotated file as the application log.
func NewRequestLogger(logDir string) (*fiberLogger.Config, error) {
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, err
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "access.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	config := &fiberLogger.Config{
		Output:     io.MultiWriter(os.Stdout, logFile),
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}

	return config, nil
}

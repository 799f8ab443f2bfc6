package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps the configured level name onto a logrus level.
// Unknown names fall back to INFO.
func ParseLevel(name string) log.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Init configures the global logger. Console output uses a text formatter;
// when filePath is set every level is also written to a rotating log file.
func Init(level, filePath string, maxAgeDays int) error {
	log.SetLevel(ParseLevel(level))
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	log.SetOutput(os.Stderr)

	if filePath == "" {
		return nil
	}

	logDir := filepath.Dir(filePath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	log.AddHook(newFileHook(filePath, maxAgeDays))
	return nil
}

func newFileHook(filePath string, maxAgeDays int) *lfshook.LfsHook {
	writer := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100,
		MaxBackups: 30,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
	return lfshook.NewHook(lfshook.WriterMap{
		log.PanicLevel: writer,
		log.FatalLevel: writer,
		log.ErrorLevel: writer,
		log.WarnLevel:  writer,
		log.InfoLevel:  writer,
		log.DebugLevel: writer,
		log.TraceLevel: writer,
	}, fileFmt)
}

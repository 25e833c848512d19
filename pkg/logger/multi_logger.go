package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryExtraction LogCategory = "extraction" // queue and attempt lifecycle events (JSON)
	CategoryError      LogCategory = "error"      // application errors (JSON)
)

const dateLayout = "20060102"

// MultiLogger writes categorized JSON logs to one file per category and day,
// e.g. extraction-20240301.log. Files roll over on the first write after
// midnight.
type MultiLogger struct {
	config      MultiLoggerConfig
	level       zapcore.Level
	now         func() time.Time
	mu          sync.RWMutex
	loggers     map[LogCategory]*zap.Logger
	files       map[LogCategory]*os.File
	currentDate string
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	return newMultiLogger(config, time.Now)
}

func newMultiLogger(config MultiLoggerConfig, now func() time.Time) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		config: config,
		level:  level,
		now:    now,
	}
	if err := ml.open(now().Format(dateLayout)); err != nil {
		return nil, err
	}
	return ml, nil
}

// open creates the category loggers for date. Requires ml.mu or exclusive
// access.
func (ml *MultiLogger) open(date string) error {
	loggers := make(map[LogCategory]*zap.Logger)
	files := make(map[LogCategory]*os.File)

	levels := map[LogCategory]zapcore.Level{
		CategoryExtraction: ml.level,
		CategoryError:      zapcore.ErrorLevel,
	}
	for category, level := range levels {
		logger, file, err := ml.createStructuredLogger(category, date, level)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		loggers[category] = logger
		files[category] = file
	}

	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date
	return nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, date string, level zapcore.Level) (*zap.Logger, *os.File, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = ""

	file, err := os.OpenFile(ml.categoryLogPath(category, date), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core), file, nil
}

func (ml *MultiLogger) categoryLogPath(category LogCategory, date string) string {
	return filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
}

// CategoryLogPath returns today's file for category
func (ml *MultiLogger) CategoryLogPath(category LogCategory) string {
	return ml.categoryLogPath(category, ml.now().Format(dateLayout))
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.rotate()

	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// rotate reopens the files when the date has changed
func (ml *MultiLogger) rotate() {
	date := ml.now().Format(dateLayout)

	ml.mu.RLock()
	same := date == ml.currentDate
	ml.mu.RUnlock()
	if same {
		return
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if date == ml.currentDate {
		return
	}

	old := ml.files
	for _, logger := range ml.loggers {
		_ = logger.Sync()
	}
	if err := ml.open(date); err != nil {
		// keep writing to yesterday's files
		return
	}
	for _, f := range old {
		f.Close()
	}
}

// Extraction returns the extraction lifecycle logger
func (ml *MultiLogger) Extraction() *zap.Logger {
	return ml.GetLogger(CategoryExtraction)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogExtractionEvent logs a queue or attempt lifecycle event
func (ml *MultiLogger) LogExtractionEvent(event string, fields ...zap.Field) {
	ml.Extraction().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var errs []error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes all log files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var errs []error
	for category, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			errs = append(errs, err)
		}
		if f, ok := ml.files[category]; ok {
			if err := f.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	ml.files = map[LogCategory]*os.File{}
	return errors.Join(errs...)
}

// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Level represents the level to log messages at.
type Level int

const (
	// LogDebug represents debug messages.
	LogDebug Level = iota
	// LogInfo represents informational messages.
	LogInfo
	// LogWarning represents warnings.
	LogWarning
	// LogError represents errors.
	LogError
)

const (
	// TypeWireIn is the log type for raw lines received from a network.
	TypeWireIn = "wire-in"
	// TypeWireOut is the log type for raw lines sent to a network.
	TypeWireOut = "wire-out"
)

var (
	// LogLevelNames takes a config name and gives the real log level.
	LogLevelNames = map[string]Level{
		"debug":    LogDebug,
		"info":     LogInfo,
		"warn":     LogWarning,
		"warning":  LogWarning,
		"warnings": LogWarning,
		"error":    LogError,
		"errors":   LogError,
	}
	// LogLevelDisplayNames gives the display name to use for our log levels.
	LogLevelDisplayNames = map[Level]string{
		LogDebug:   "debug",
		LogInfo:    "info",
		LogWarning: "warn",
		LogError:   "error",
	}
)

// Manager is the main interface used to log debug/info/error messages.
// A nil *Manager discards everything.
type Manager struct {
	configMutex     sync.RWMutex
	sinks           []*sink
	stdoutWriteLock sync.Mutex // shared by stdout and stderr
	fileWriteLock   sync.Mutex
	loggingRawIO    atomic.Bool
}

// LoggingConfig represents the configuration of a single logger.
type LoggingConfig struct {
	Method        string
	MethodStdout  bool `yaml:"-"`
	MethodStderr  bool `yaml:"-"`
	MethodFile    bool `yaml:"-"`
	Filename      string
	TypeString    string   `yaml:"type"`
	Types         []string `yaml:"-"`
	ExcludedTypes []string `yaml:"-"`
	LevelString   string   `yaml:"level"`
	Level         Level    `yaml:"-"`
}

// ParseMethods fills in the Method* flags, the level and the type lists from
// their string forms, as written in a config file.
func (config *LoggingConfig) ParseMethods() error {
	methods := make(map[string]bool)
	for _, method := range strings.Fields(config.Method) {
		methods[strings.ToLower(method)] = true
	}
	if methods["file"] && config.Filename == "" {
		return ErrLoggerFilenameMissing
	}
	config.MethodFile = methods["file"]
	config.MethodStdout = methods["stdout"]
	config.MethodStderr = methods["stderr"]

	level, exists := LogLevelNames[strings.ToLower(config.LevelString)]
	if !exists {
		return fmt.Errorf("Could not translate log level [%s]", config.LevelString)
	}
	config.Level = level

	config.Types, config.ExcludedTypes = nil, nil
	for _, typeStr := range strings.Fields(config.TypeString) {
		if typeStr == "-" {
			return ErrLoggerExcludeEmpty
		}
		if typeStr[0] == '-' {
			config.ExcludedTypes = append(config.ExcludedTypes, typeStr[1:])
		} else {
			config.Types = append(config.Types, typeStr)
		}
	}
	if len(config.Types) < 1 {
		return ErrLoggerHasNoTypes
	}
	return nil
}

// NewManager returns a new log manager.
func NewManager(config []LoggingConfig) (*Manager, error) {
	var logger Manager

	if err := logger.ApplyConfig(config); err != nil {
		return nil, err
	}

	return &logger, nil
}

// ApplyConfig applies the given config to this logger, closing any files the
// previous config had open. A file that can't be opened is reported, but the
// other sinks are still installed.
func (logger *Manager) ApplyConfig(config []LoggingConfig) error {
	logger.configMutex.Lock()
	defer logger.configMutex.Unlock()

	logger.closeSinks()
	logger.loggingRawIO.Store(false)

	var lastErr error
	for _, logConfig := range config {
		sink := &sink{
			level:  logConfig.Level,
			filter: newTypeFilter(logConfig.Types, logConfig.ExcludedTypes),
		}
		if logConfig.MethodStdout {
			sink.outputs = append(sink.outputs, output{writer: os.Stdout, lock: &logger.stdoutWriteLock})
		}
		if logConfig.MethodStderr {
			sink.outputs = append(sink.outputs, output{writer: os.Stderr, lock: &logger.stdoutWriteLock})
		}
		if logConfig.MethodFile {
			file, err := os.OpenFile(logConfig.Filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
			if err != nil {
				lastErr = fmt.Errorf("Could not open log file %s [%s]", logConfig.Filename, err.Error())
				continue
			}
			sink.file = file
			sink.outputs = append(sink.outputs, output{writer: file, lock: &logger.fileWriteLock})
		}
		if len(sink.outputs) == 0 {
			continue
		}
		// raw wire traffic is only logged at level debug
		if sink.level == LogDebug && (sink.filter.captures(TypeWireIn) || sink.filter.captures(TypeWireOut)) {
			logger.loggingRawIO.Store(true)
		}
		logger.sinks = append(logger.sinks, sink)
	}

	return lastErr
}

// Close closes every file this manager writes to.
func (logger *Manager) Close() error {
	if logger == nil {
		return nil
	}
	logger.configMutex.Lock()
	defer logger.configMutex.Unlock()
	return logger.closeSinks()
}

func (logger *Manager) closeSinks() (lastErr error) {
	for _, sink := range logger.sinks {
		if sink.file != nil {
			if err := sink.file.Close(); err != nil {
				lastErr = err
			}
		}
	}
	logger.sinks = nil
	return
}

// IsLoggingRawIO returns true if raw wire traffic is being logged.
func (logger *Manager) IsLoggingRawIO() bool {
	return logger != nil && logger.loggingRawIO.Load()
}

// Log logs the given message with the given details.
func (logger *Manager) Log(level Level, logType string, messageParts ...string) {
	if logger == nil {
		return
	}
	logger.configMutex.RLock()
	defer logger.configMutex.RUnlock()

	var line []byte
	for _, sink := range logger.sinks {
		if level < sink.level || !sink.filter.captures(logType) {
			continue
		}
		if line == nil {
			line = formatLine(level, logType, messageParts)
		}
		sink.write(line)
	}
}

// Debug logs the given message as a debug message.
func (logger *Manager) Debug(logType string, messageParts ...string) {
	logger.Log(LogDebug, logType, messageParts...)
}

// Info logs the given message as an info message.
func (logger *Manager) Info(logType string, messageParts ...string) {
	logger.Log(LogInfo, logType, messageParts...)
}

// Warning logs the given message as a warning message.
func (logger *Manager) Warning(logType string, messageParts ...string) {
	logger.Log(LogWarning, logType, messageParts...)
}

// Error logs the given message as an error message.
func (logger *Manager) Error(logType string, messageParts ...string) {
	logger.Log(LogError, logType, messageParts...)
}

// typeFilter decides which log types a sink captures. "*" matches every
// type; exclusions win over inclusions.
type typeFilter struct {
	included map[string]bool
	excluded map[string]bool
}

func newTypeFilter(included, excluded []string) (filter typeFilter) {
	filter.included = make(map[string]bool, len(included))
	for _, name := range included {
		filter.included[name] = true
	}
	filter.excluded = make(map[string]bool, len(excluded))
	for _, name := range excluded {
		filter.excluded[name] = true
	}
	return
}

func (filter typeFilter) captures(logType string) bool {
	if filter.excluded["*"] || filter.excluded[logType] {
		return false
	}
	return filter.included["*"] || filter.included[logType]
}

type output struct {
	writer io.Writer
	lock   *sync.Mutex
}

// sink is one configured logging block: a level, a type filter, and the
// places its lines go.
type sink struct {
	level   Level
	filter  typeFilter
	outputs []output
	file    *os.File
}

func (sink *sink) write(line []byte) {
	for _, out := range sink.outputs {
		out.lock.Lock()
		out.writer.Write(line)
		out.lock.Unlock()
	}
}

// formatLine renders "<time> : <level> : <type> : part : part".
func formatLine(level Level, logType string, messageParts []string) []byte {
	var rawBuf bytes.Buffer
	// 10 is len("connection"), the longest log type we use
	fmt.Fprintf(&rawBuf, "%s : %-5s : %-10s : ", time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), LogLevelDisplayNames[level], logType)
	rawBuf.WriteString(strings.Join(messageParts, " : "))
	rawBuf.WriteByte('\n')
	return rawBuf.Bytes()
}

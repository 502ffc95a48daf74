// Package logging provides config-driven categorized logging for claudex.
// Logs are written to <CLAUDEX_HOME>/hooks/logs/ with one file per category.
// Logging is controlled by debug_mode in <CLAUDEX_HOME>/config.json; when
// false, no logs are written and every call here is a cheap no-op.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logical subsystem within claudex.
type Category string

const (
	CategoryBoot        Category = "boot"
	CategoryHook        Category = "hook"
	CategoryRedact      Category = "redact"
	CategoryObservation Category = "observation"
	CategoryStore       Category = "store"
	CategoryPressure    Category = "pressure"
	CategoryPruner      Category = "pruner"
	CategorySidecar     Category = "sidecar"
	CategoryAssembler   Category = "assembler"
	CategoryFlush       Category = "flush"
	CategoryRecovery    Category = "recovery"
	CategoryThread      Category = "thread"
	CategoryGSD         Category = "gsd"
)

type fileConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
}

type configDoc struct {
	Logging fileConfig `json:"logging"`
}

// Logger wraps a category-scoped zap.Logger with a start/stop timer helper.
type Logger struct {
	category Category
	zl       *zap.Logger
}

var (
	mu         sync.RWMutex
	loggers    = make(map[Category]*Logger)
	home       string
	logsDir    string
	cfg        fileConfig
	cfgLoaded  bool
	levelAtoms = map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
)

// Initialize sets up the logging directory and loads config from
// <home>/config.json. Safe to call once at process start; a second call
// re-reads config (useful in tests).
func Initialize(claudexHome string) error {
	if claudexHome == "" {
		return fmt.Errorf("logging: home path required")
	}

	mu.Lock()
	home = claudexHome
	logsDir = filepath.Join(home, "hooks", "logs")
	mu.Unlock()

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		mu.Lock()
		cfg.DebugMode = false
		cfgLoaded = true
		mu.Unlock()
	}

	mu.RLock()
	debug := cfg.DebugMode
	mu.RUnlock()
	if !debug {
		return nil
	}
	return os.MkdirAll(logsDir, 0o755)
}

func loadConfig() error {
	mu.RLock()
	h := home
	mu.RUnlock()

	path := filepath.Join(h, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			mu.Lock()
			cfg.DebugMode = false
			cfgLoaded = true
			mu.Unlock()
			return nil
		}
		return err
	}

	var doc configDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config.json: %w", err)
	}

	mu.Lock()
	cfg = doc.Logging
	cfgLoaded = true
	mu.Unlock()
	return nil
}

func categoryEnabled(cat Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !cfg.DebugMode {
		return false
	}
	if len(cfg.Categories) == 0 {
		return true
	}
	enabled, ok := cfg.Categories[string(cat)]
	return !ok || enabled
}

// Get returns (creating if necessary) the Logger for a category.
func Get(cat Category) *Logger {
	mu.RLock()
	l, ok := loggers[cat]
	mu.RUnlock()
	if ok {
		return l
	}

	zl := newZapLogger(cat)

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}

	l = &Logger{category: cat, zl: zl}
	loggers[cat] = l
	return l
}

func newZapLogger(cat Category) *zap.Logger {
	if !categoryEnabled(cat) {
		return zap.NewNop()
	}

	level := zapcore.InfoLevel
	if lv, ok := levelAtoms[cfg.Level]; ok {
		level = lv
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	path := filepath.Join(logsDir, string(cat)+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file %s: %v\n", path, err)
		return zap.NewNop()
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(f),
		level,
	)
	return zap.New(core).With(zap.String("category", string(cat)))
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.zl.Debug(fmt.Sprintf(msg, args...)) }
func (l *Logger) Info(msg string, args ...interface{})  { l.zl.Info(fmt.Sprintf(msg, args...)) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.zl.Warn(fmt.Sprintf(msg, args...)) }
func (l *Logger) Error(msg string, args ...interface{}) { l.zl.Error(fmt.Sprintf(msg, args...)) }

// Timer measures and logs the duration of an operation at Debug level.
type Timer struct {
	logger *Logger
	op     string
	start  time.Time
}

// StartTimer begins timing op within category cat.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{logger: Get(cat), op: op, start: time.Now()}
}

// Stop logs the elapsed duration since StartTimer.
func (t *Timer) Stop() {
	t.logger.Debug("%s took %s", t.op, time.Since(t.start))
}

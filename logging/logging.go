// Package logging builds the application logger and the day-partitioned
// API log sink.
package logging

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dentscan/dentclaim/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns the application logger: development output when debug is
// set, production JSON otherwise.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Rotation bounds a single day's file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DailyFile is a zapcore.WriteSyncer writing to <dir>/<prefix>-YYYY-MM-DD.log.
// It switches to a new lumberjack file when the local date changes; within
// a day lumberjack rotates by size.
type DailyFile struct {
	mu     sync.Mutex
	dir    string
	prefix string
	rot    Rotation
	day    string
	out    *lumberjack.Logger
	now    func() time.Time
}

// NewDailyFile creates a DailyFile. The file is opened on first write.
func NewDailyFile(dir, prefix string, rot Rotation) *DailyFile {
	return &DailyFile{dir: dir, prefix: prefix, rot: rot, now: time.Now}
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if day := d.now().Format("2006-01-02"); day != d.day || d.out == nil {
		if d.out != nil {
			_ = d.out.Close()
		}
		d.day = day
		d.out = &lumberjack.Logger{
			Filename:   filepath.Join(d.dir, d.prefix+"-"+day+".log"),
			MaxSize:    d.rot.MaxSizeMB,
			MaxBackups: d.rot.MaxBackups,
			MaxAge:     d.rot.MaxAgeDays,
			Compress:   d.rot.Compress,
			LocalTime:  true,
		}
	}
	return d.out.Write(p)
}

// Sync is a no-op: lumberjack writes straight to the file.
func (d *DailyFile) Sync() error { return nil }

// Close closes the current file.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.out == nil {
		return nil
	}
	err := d.out.Close()
	d.out = nil
	return err
}

// Filename returns the current target file, or "" before the first write.
func (d *DailyFile) Filename() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.out == nil {
		return ""
	}
	return d.out.Filename
}

func apiEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// NewAPILogger returns the API log sink: records below error level go to
// <dir>/api/api-DATE.log, error records to <dir>/api-errors/error-DATE.log.
// The returned func closes both files.
func NewAPILogger(cfg config.LogConfig) (*zap.Logger, func() error) {
	rot := Rotation{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	infoFile := NewDailyFile(filepath.Join(cfg.Dir, "api"), "api", rot)
	errFile := NewDailyFile(filepath.Join(cfg.Dir, "api-errors"), "error", rot)

	enc := zapcore.NewJSONEncoder(apiEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(enc, infoFile, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.InfoLevel && l < zapcore.ErrorLevel
		})),
		zapcore.NewCore(enc.Clone(), errFile, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.ErrorLevel
		})),
	}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stdout),
			zapcore.InfoLevel,
		))
	}

	closeFn := func() error {
		err1 := infoFile.Close()
		err2 := errFile.Close()
		if err1 != nil {
			return err1
		}
		return err2
	}
	return zap.New(zapcore.NewTee(cores...)), closeFn
}

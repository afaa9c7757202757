package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Logger routes GORM messages into zerolog. Queries are logged at debug,
// slow ones at warn and failed ones at error. Record-not-found is not an
// error for the message repository.
type Logger struct {
	log  zerolog.Logger
	slow time.Duration
}

var _ gormlogger.Interface = (*Logger)(nil)

func NewLogger(log zerolog.Logger, slow time.Duration) *Logger {
	return &Logger{log: log.With().Str("component", "gorm").Logger(), slow: slow}
}

// LogMode maps GORM levels onto the zerolog level of a copy.
func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	switch level {
	case gormlogger.Silent:
		c.log = c.log.Level(zerolog.Disabled)
	case gormlogger.Error:
		c.log = c.log.Level(zerolog.ErrorLevel)
	case gormlogger.Warn:
		c.log = c.log.Level(zerolog.WarnLevel)
	case gormlogger.Info:
		c.log = c.log.Level(zerolog.DebugLevel)
	}
	return &c
}

func (l *Logger) Info(_ context.Context, msg string, args ...any) {
	l.log.Info().Msg(fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(_ context.Context, msg string, args ...any) {
	l.log.Warn().Msg(fmt.Sprintf(msg, args...))
}

func (l *Logger) Error(_ context.Context, msg string, args ...any) {
	l.log.Error().Msg(fmt.Sprintf(msg, args...))
}

func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	took := time.Since(begin)
	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		ev = l.log.Error().Err(err)
	case l.slow > 0 && took > l.slow:
		ev = l.log.Warn().Bool("slow", true)
	default:
		ev = l.log.Debug()
	}
	if !ev.Enabled() {
		return
	}
	sql, rows := fc()
	ev.Str("sql", sql).Int64("rows", rows).Dur("took", took).Msg("query")
}

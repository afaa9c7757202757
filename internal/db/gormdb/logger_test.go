package gormdb

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func query() (string, int64) { return "SELECT 1", 1 }

func TestTraceLevels(t *testing.T) {
	tests := []struct {
		name  string
		begin time.Time
		err   error
		want  string
	}{
		{"fast", time.Now(), nil, `"level":"debug"`},
		{"slow", time.Now().Add(-time.Second), nil, `"slow":true`},
		{"failed", time.Now(), errors.New("boom"), `"level":"error"`},
		{"not found", time.Now(), gorm.ErrRecordNotFound, `"level":"debug"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(zerolog.New(&buf).Level(zerolog.DebugLevel), 100*time.Millisecond)
			l.Trace(context.Background(), tt.begin, query, tt.err)
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "SELECT 1")
		})
	}
}

func TestLogModeSilent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf), 0).LogMode(gormlogger.Silent)
	l.Trace(context.Background(), time.Now(), query, errors.New("boom"))
	l.Error(context.Background(), "x %d", 1)
	assert.Empty(t, buf.String())
}

package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM fiscal_chain_entries", 3 }

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		wantMsg string
	}{
		{"error is logged", gormlogger.Warn, 0, errors.New("deadlock detected"), "SQL Error"},
		{"record not found is ignored", gormlogger.Warn, 0, gormlogger.ErrRecordNotFound, ""},
		{"serialization conflict warns", gormlogger.Warn, 0, &pgconn.PgError{Code: "40001"}, "SQL Conflict"},
		{"slow query warns", gormlogger.Warn, time.Second, nil, "Slow SQL"},
		{"fast query at warn is silent", gormlogger.Warn, 0, nil, ""},
		{"info level logs every query", gormlogger.Info, 0, nil, "SQL Query"},
		{"silent logs nothing", gormlogger.Silent, time.Second, errors.New("x"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level)

			ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")
			gl.Trace(ctx, time.Now().Add(-tt.elapsed), query, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			entries := recorded.FilterMessage(tt.wantMsg).All()
			assert.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, "req-9", fields["request_id"])
			assert.EqualValues(t, 3, fields["rows"])
		})
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Silent, WithSlowThreshold(0))

	loud := gl.LogMode(gormlogger.Info)
	loud.Info(context.Background(), "migrated %d tables", 4)
	gl.Info(context.Background(), "not logged")

	assert.Equal(t, 1, recorded.Len())
	assert.Equal(t, "migrated 4 tables", recorded.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}

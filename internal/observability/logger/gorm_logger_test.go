package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL(`SELECT * FROM "invoices"`))
	assert.Equal(t, "UPDATE", operationFromSQL(`WITH x AS (SELECT 1) UPDATE invoice_sequences SET last_value = 2`))
	assert.Equal(t, "UNKNOWN", operationFromSQL("  "))
}

func TestGormLoggerTraceLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        10 * time.Millisecond,
		IgnoreRecordNotFound: true,
	})

	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 0, logs.Len(), "fast queries are not logged at warn level")

	gl.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)

	gl.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len(), "record not found is ignored")

	gl.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
	assert.Equal(t, "SELECT", logs.All()[1].ContextMap()["operation"])
}

func TestGormLoggerParamsFilterDropsValues(t *testing.T) {
	gl := NewGormLogger(nil, DefaultGormLoggerConfig())
	sql, params := gl.ParamsFilter(context.Background(), "SELECT ?", "secret")
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}

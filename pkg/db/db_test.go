package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestOpenSQLiteWithTracing(t *testing.T) {
	conn, err := Open(OpenParams{
		Config: Config{Type: TypeSQLite, Path: "file::memory:", MaxOpenConn: 1},
		Log:    zap.NewNop(),
		Tracer: noop.NewTracerProvider(),
	})
	require.NoError(t, err)
	assert.Equal(t, TypeSQLite, conn.Dialector.Name())
	assert.False(t, SupportsRowLocking(conn))

	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)

	d, err := Dialect(Config{Type: " Postgres ", Host: "localhost", Port: "5432"})
	require.NoError(t, err)
	assert.Equal(t, TypePostgres, d.Name())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: invoices.invoice_number")))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_invoices_invoice_number" (SQLSTATE 23505)`)))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))

	assert.True(t, IsForeignKeyErr(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsForeignKeyErr(errors.New("UNIQUE constraint failed")))
}

package db

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	q := newQueryLogger(logger.New(logger.Options{ServiceName: "t", Format: "json", Output: &buf}), 50*time.Millisecond)
	statement := func() (string, int64) { return `SELECT * FROM "orders" WHERE store_id = 'st-1'`, 12 }

	q.Trace(context.Background(), time.Now().Add(-10*time.Millisecond), statement, nil)
	assert.Zero(t, buf.Len(), "fast statements stay quiet")

	q.Trace(context.Background(), time.Now().Add(-80*time.Millisecond), statement, nil)
	out := buf.String()
	assert.Contains(t, out, `"message":"db.slow_query"`)
	assert.Contains(t, out, `"rows":12`)
	assert.Contains(t, out, `FROM \"orders\"`)
}

func TestQueryLoggerSilentMode(t *testing.T) {
	var buf bytes.Buffer
	q := newQueryLogger(logger.New(logger.Options{ServiceName: "t", Format: "json", Output: &buf}), time.Millisecond).
		LogMode(gormlogger.Silent)

	q.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, nil)
	q.Warn(context.Background(), "ignored %d", 1)
	assert.Zero(t, buf.Len())
}

func TestQueryLoggerWithoutServiceLogger(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}

package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/medok/medok-backend/pkg/logger"
)

const slowQuery = 300 * time.Millisecond

// queryLogger sends gorm's statement traces to the service logger. Missing
// rows are routine lookups and are not logged.
type queryLogger struct {
	logg  *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLogger(logg *logger.Logger) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, level: gormlogger.Warn, slow: slowQuery}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, msg)
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, msg)
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, msg, nil)
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		sql, rows := fc()
		q.logg.Error(q.fields(ctx, sql, rows, elapsed), "query failed", err)
	case elapsed > q.slow && q.level >= gormlogger.Warn:
		sql, rows := fc()
		q.logg.Warn(q.fields(ctx, sql, rows, elapsed), "slow query")
	case q.level >= gormlogger.Info:
		sql, rows := fc()
		q.logg.Debug(q.fields(ctx, sql, rows, elapsed), "query")
	}
}

func (q *queryLogger) fields(ctx context.Context, sql string, rows int64, elapsed time.Duration) context.Context {
	return q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
}

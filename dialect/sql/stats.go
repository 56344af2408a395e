package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const defaultSlowThreshold = 100 * time.Millisecond

// QueryStats holds statement execution statistics for one Database.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of statement errors.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// WithSlowThreshold sets the threshold for slow query detection.
// Statements taking longer are counted as slow. Default is 100ms.
func WithSlowThreshold(d time.Duration) Option {
	return func(db *Database) { db.slowThreshold = d }
}

// WithSlowQueryHook sets a callback invoked for every slow statement.
func WithSlowQueryHook(hook SlowQueryHook) Option {
	return func(db *Database) { db.slowHook = hook }
}

// WithSlowQueryLog logs slow statements through slog. It is a convenience
// wrapper around WithSlowQueryHook.
func WithSlowQueryLog() Option {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
		slog.Warn("slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// QueryStats returns the statistics collected by this database.
func (db *Database) QueryStats() *QueryStats { return db.stats }

func (db *Database) record(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		db.stats.TotalQueries.Add(1)
	} else {
		db.stats.TotalExecs.Add(1)
	}
	db.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		db.stats.Errors.Add(1)
	}
	if duration > db.slowThreshold {
		db.stats.SlowQueries.Add(1)
		if db.slowHook != nil {
			db.slowHook(ctx, query, args, duration)
		}
	}
}

package memcube

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordAdd is called after each ingestion.
	// inserted is the number of records created, err is nil if successful.
	RecordAdd(inserted int, duration time.Duration, err error)

	// RecordSearch is called after each search.
	// k is the per-cube result budget, err is nil if successful.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordDump is called after each snapshot write.
	RecordDump(records int, duration time.Duration, err error)

	// RecordLoad is called after each snapshot load.
	RecordLoad(records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDump(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	AddRecords       atomic.Int64
	AddTotalNanos    atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	DumpCount        atomic.Int64
	DumpErrors       atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	LoadRecords      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(inserted int, duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddRecords.Add(int64(inserted))
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordDump implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDump(records int, duration time.Duration, err error) {
	b.DumpCount.Add(1)
	if err != nil {
		b.DumpErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(records int, duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadRecords.Add(int64(records))
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddErrors:      b.AddErrors.Load(),
		AddRecords:     b.AddRecords.Load(),
		AddAvgNanos:    avgNanos(b.AddTotalNanos.Load(), b.AddCount.Load()),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: avgNanos(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		DumpCount:      b.DumpCount.Load(),
		DumpErrors:     b.DumpErrors.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		LoadRecords:    b.LoadRecords.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddErrors      int64
	AddRecords     int64
	AddAvgNanos    int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	DumpCount      int64
	DumpErrors     int64
	LoadCount      int64
	LoadErrors     int64
	LoadRecords    int64
}

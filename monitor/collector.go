// Package monitor collects counters for the background backfill pipeline.
package monitor

import "sync/atomic"

// BackfillStats is a point-in-time snapshot of backfill activity.
type BackfillStats struct {
	Submitted int64 `json:"submitted"`
	Dropped   int64 `json:"dropped"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Indexed   int64 `json:"documents_indexed"`
}

// BackfillCollector counts backfill task outcomes. Safe for concurrent use.
type BackfillCollector struct {
	submitted atomic.Int64
	dropped   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	indexed   atomic.Int64
}

// NewBackfillCollector creates a zeroed collector.
func NewBackfillCollector() *BackfillCollector {
	return &BackfillCollector{}
}

// Submitted records a task accepted onto the queue.
func (c *BackfillCollector) Submitted() { c.submitted.Add(1) }

// Dropped records a task rejected because the queue was full.
func (c *BackfillCollector) Dropped() { c.dropped.Add(1) }

// Succeeded records a completed task and how many documents it indexed.
func (c *BackfillCollector) Succeeded(docs int) {
	c.succeeded.Add(1)
	c.indexed.Add(int64(docs))
}

// Failed records a task that terminated on an error.
func (c *BackfillCollector) Failed() { c.failed.Add(1) }

// Snapshot returns the current counter values.
func (c *BackfillCollector) Snapshot() BackfillStats {
	return BackfillStats{
		Submitted: c.submitted.Load(),
		Dropped:   c.dropped.Load(),
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
		Indexed:   c.indexed.Load(),
	}
}

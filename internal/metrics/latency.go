// Package metrics keeps rolling statistics about translation requests.
package metrics

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	timestamp   time.Time
	durationUs  int64
	diagnostics int
}

// Snapshot is a point-in-time aggregate of recent translations.
type Snapshot struct {
	Count       int     `json:"count"`
	Total       int64   `json:"total"`
	Diagnostics int     `json:"diagnostics"`
	MinUs       int64   `json:"min_us"`
	MaxUs       int64   `json:"max_us"`
	AvgUs       float64 `json:"avg_us"`
	P50Us       float64 `json:"p50_us"`
	P95Us       float64 `json:"p95_us"`
	P99Us       float64 `json:"p99_us"`
}

// Latency tracks translation durations within a rolling window. Total
// counts every recorded translation, including pruned ones.
type Latency struct {
	mu      sync.Mutex
	samples []sample
	total   int64
	maxAge  time.Duration
}

func NewLatency(maxAge time.Duration) *Latency {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Latency{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds one translation and the number of diagnostics it produced.
func (l *Latency) Record(d time.Duration, diagnostics int) {
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	l.total++
	l.samples = append(l.samples, sample{
		timestamp:   now,
		durationUs:  us,
		diagnostics: diagnostics,
	})
}

func (l *Latency) Snapshot() Snapshot {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	if len(l.samples) == 0 {
		return Snapshot{Total: l.total}
	}

	values := make([]int64, 0, len(l.samples))
	var sum int64
	diags := 0
	for _, sm := range l.samples {
		values = append(values, sm.durationUs)
		sum += sm.durationUs
		diags += sm.diagnostics
	}
	slices.Sort(values)

	return Snapshot{
		Count:       len(values),
		Total:       l.total,
		Diagnostics: diags,
		MinUs:       values[0],
		MaxUs:       values[len(values)-1],
		AvgUs:       float64(sum) / float64(len(values)),
		P50Us:       percentile(values, 50),
		P95Us:       percentile(values, 95),
		P99Us:       percentile(values, 99),
	}
}

func (l *Latency) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.maxAge)
	writeIdx := 0
	for _, sm := range l.samples {
		if !sm.timestamp.Before(cutoff) {
			l.samples[writeIdx] = sm
			writeIdx++
		}
	}
	l.samples = l.samples[:writeIdx]
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + ((hi - lo) * weight)
}

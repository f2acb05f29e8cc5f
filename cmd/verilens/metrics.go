// cmd/verilens/metrics.go
package main

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics is a point-in-time snapshot of system and application counters
// exposed on the status endpoint.
type Metrics struct {
	Timestamp       time.Time `json:"timestamp"`
	UptimeSeconds   float64   `json:"uptime_seconds"`
	GoroutineCount  int       `json:"goroutine_count"`
	MemoryUsageMB   float64   `json:"memory_usage_mb"`
	CPUUsagePercent float64   `json:"cpu_usage_percent"`

	RequestsTotal       int64 `json:"requests_total"`
	RequestsFailed      int64 `json:"requests_failed"`
	RequestsRejected    int64 `json:"requests_rejected"`
	VerdictFake         int64 `json:"verdict_fake"`
	VerdictAuthentic    int64 `json:"verdict_authentic"`
	VerdictInconclusive int64 `json:"verdict_inconclusive"`
}

// MetricsCollector accumulates request counters and samples system metrics
// on demand.
type MetricsCollector struct {
	mu        sync.Mutex
	startTime time.Time

	requestsTotal       int64
	requestsFailed      int64
	requestsRejected    int64
	verdictFake         int64
	verdictAuthentic    int64
	verdictInconclusive int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// RecordRequest counts one accepted analysis request.
func (mc *MetricsCollector) RecordRequest() {
	mc.mu.Lock()
	mc.requestsTotal++
	mc.mu.Unlock()
}

// RecordRejected counts a request refused at the validation boundary.
func (mc *MetricsCollector) RecordRejected() {
	mc.mu.Lock()
	mc.requestsRejected++
	mc.mu.Unlock()
}

// RecordFailure counts a pipeline failure.
func (mc *MetricsCollector) RecordFailure() {
	mc.mu.Lock()
	mc.requestsFailed++
	mc.mu.Unlock()
}

// RecordVerdict counts the fake-news axis outcome of a completed assessment.
func (mc *MetricsCollector) RecordVerdict(label string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	switch label {
	case LabelYes:
		mc.verdictFake++
	case LabelNo:
		mc.verdictAuthentic++
	default:
		mc.verdictInconclusive++
	}
}

// Collect samples system metrics and returns the current snapshot.
func (mc *MetricsCollector) Collect() *Metrics {
	mc.mu.Lock()
	snapshot := &Metrics{
		Timestamp:           time.Now(),
		UptimeSeconds:       time.Since(mc.startTime).Seconds(),
		GoroutineCount:      runtime.NumGoroutine(),
		RequestsTotal:       mc.requestsTotal,
		RequestsFailed:      mc.requestsFailed,
		RequestsRejected:    mc.requestsRejected,
		VerdictFake:         mc.verdictFake,
		VerdictAuthentic:    mc.verdictAuthentic,
		VerdictInconclusive: mc.verdictInconclusive,
	}
	mc.mu.Unlock()

	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot.MemoryUsageMB = float64(vm.Used) / 1024 / 1024
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snapshot.CPUUsagePercent = percents[0]
	}
	return snapshot
}

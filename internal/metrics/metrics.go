package metrics

import (
	"sync"
	"time"
)

// Counter metrics
const (
	CounterHTTPRequests        = "http_requests_total"
	CounterBalesCreated        = "bales_created_total"
	CounterTransitionsApplied  = "transitions_applied_total"
	CounterTransitionsRejected = "transitions_rejected_total"
	CounterAllocatorRetries    = "allocator_retries_total"
	CounterEventsPublished     = "events_published_total"
)

// Gauge metrics
const (
	GaugeOpenSubscriptions = "open_subscriptions"
)

// MetricsCollector provides a centralized way to collect and retrieve metrics
type MetricsCollector struct {
	mutex     sync.RWMutex
	counters  map[string]int64
	gauges    map[string]float64
	startTime time.Time
}

var (
	collector     *MetricsCollector
	collectorOnce sync.Once
)

// GetMetricsCollector returns the process-wide collector
func GetMetricsCollector() *MetricsCollector {
	collectorOnce.Do(func() {
		collector = &MetricsCollector{
			counters:  make(map[string]int64),
			gauges:    make(map[string]float64),
			startTime: time.Now(),
		}
	})
	return collector
}

// IncrementCounter adds one to a counter
func (m *MetricsCollector) IncrementCounter(name string) {
	m.AddToCounter(name, 1)
}

// AddToCounter adds a value to a counter
func (m *MetricsCollector) AddToCounter(name string, value int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.counters[name] += value
}

// SetGauge sets a gauge value
func (m *MetricsCollector) SetGauge(name string, value float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.gauges[name] = value
}

// Snapshot returns a copy of all metrics plus process uptime
func (m *MetricsCollector) Snapshot() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}
	gauges := make(map[string]float64, len(m.gauges))
	for k, v := range m.gauges {
		gauges[k] = v
	}

	return map[string]interface{}{
		"counters":       counters,
		"gauges":         gauges,
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

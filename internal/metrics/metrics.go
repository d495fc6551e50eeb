package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	selections    map[string]int64
	proxyErrors   map[string]int64
	fallbacks     map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	healthStatus  map[string]bool
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                    `json:"total_requests"`
	Uptime        time.Duration            `json:"uptime"`
	ProxyErrors   int64                    `json:"proxy_errors"`
	Fallbacks     int64                    `json:"fallbacks"`
	Targets       map[string]TargetMetrics `json:"targets"`
	Mode          string                   `json:"mode"`
}

type TargetMetrics struct {
	Requests    int64         `json:"requests"`
	Selections  int64         `json:"selections"`
	ProxyErrors int64         `json:"proxy_errors"`
	Fallbacks   int64         `json:"fallbacks"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func (m *Metrics) IncrementRequests(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[target]++
}

// RecordSelection counts a selection of target. fallback marks a
// header-directed request that did not name a usable port.
func (m *Metrics) RecordSelection(target string, fallback bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[target]++
	if fallback {
		m.fallbacks[target]++
	}
}

func (m *Metrics) RecordProxyError(target string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.proxyErrors[target]++
}

func (m *Metrics) RecordResponse(target string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[target] = append(m.responseTimes[target], duration)

	if len(m.responseTimes[target]) > maxSamples {
		m.responseTimes[target] = m.responseTimes[target][1:]
	}

	if m.statusCodes[target] == nil {
		m.statusCodes[target] = make(map[int]int64)
	}
	m.statusCodes[target][statusCode]++
}

func (m *Metrics) UpdateHealthStatus(target string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[target] = healthy
}

func (m *Metrics) Snapshot(mode string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:  time.Since(m.startTime),
		Targets: make(map[string]TargetMetrics),
		Mode:    mode,
	}

	// Collect all unique target addresses
	allTargets := make(map[string]bool)
	for _, counts := range []map[string]int64{m.requests, m.selections, m.proxyErrors} {
		for target := range counts {
			allTargets[target] = true
		}
	}
	for target := range m.responseTimes {
		allTargets[target] = true
	}
	for target := range m.healthStatus {
		allTargets[target] = true
	}

	for target := range allTargets {
		snap.TotalRequests += m.requests[target]
		snap.ProxyErrors += m.proxyErrors[target]
		snap.Fallbacks += m.fallbacks[target]

		statusCodes := make(map[int]int64, len(m.statusCodes[target]))
		for code, n := range m.statusCodes[target] {
			statusCodes[code] = n
		}

		tm := TargetMetrics{
			Requests:    m.requests[target],
			Selections:  m.selections[target],
			ProxyErrors: m.proxyErrors[target],
			Fallbacks:   m.fallbacks[target],
			Healthy:     m.healthStatus[target],
			StatusCodes: statusCodes,
		}

		durations := m.responseTimes[target]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			tm.AvgResponse = average(sorted)
			tm.P50Response = percentile(sorted, 0.50)
			tm.P95Response = percentile(sorted, 0.95)
			tm.P99Response = percentile(sorted, 0.99)
		}

		snap.Targets[target] = tm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		selections:    make(map[string]int64),
		proxyErrors:   make(map[string]int64),
		fallbacks:     make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		healthStatus:  make(map[string]bool),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

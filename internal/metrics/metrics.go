package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID names one counter slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginLocked
	MetricAccountLocked
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricRegisterRateLimited
	MetricRegisterWeakPassword
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReplayDetected
	MetricRefreshRateLimited
	MetricTOTPRequired
	MetricTOTPSuccess
	MetricTOTPFailure
	MetricTOTPReplayAttempt
	MetricTOTPEnabled
	MetricTOTPDisabled
	MetricRateLimitHit
	MetricSessionCreated
	MetricSessionInvalidated
	MetricSessionExpired
	MetricLogout
	MetricLogoutAll
	MetricAPIKeyCreated
	MetricAPIKeyRevoked
	MetricAPIKeyAuthSuccess
	MetricAPIKeyAuthFailure
	MetricPermissionDenied
	MetricPasswordRehashed
	MetricInternalFailure
	MetricValidateLatency
	MetricLoginLatency
	MetricIDCount
)

const (
	// HistogramBucketCount is the number of fixed latency buckets.
	HistogramBucketCount = 8
	cacheLineSize        = 64
)

// histogramIDs lists the metrics that record latency observations.
var histogramIDs = [...]MetricID{MetricValidateLatency, MetricLoginLatency}

type histogram struct {
	buckets [HistogramBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds lock-free counters and fixed-bucket latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of all counters. Histogram buckets are not
// cumulative.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d for a latency metric. Counter-only ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsHistogram(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms: make(map[MetricID][]uint64, len(histogramIDs)),
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		if IsHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range histogramIDs {
			buckets := make([]uint64, HistogramBucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

// IsHistogram reports whether id records latencies rather than counts.
func IsHistogram(id MetricID) bool {
	for _, h := range histogramIDs {
		if h == id {
			return true
		}
	}
	return false
}

// BucketUpperBounds are the inclusive upper bounds of the first seven buckets;
// the last bucket is +Inf.
var BucketUpperBounds = [HistogramBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}

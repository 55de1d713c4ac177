package connmgr

import (
	"sync"
	"time"
)

// throughputMeter is a sliding one-minute rolling average over 1-second
// buckets, used for the system-health throughput and error-rate figures.
type throughputMeter struct {
	mu          sync.Mutex
	buckets     [60]uint64
	errBuckets  [60]uint64
	bucketIndex int
	bucketTime  time.Time
}

func newThroughputMeter() *throughputMeter {
	return &throughputMeter{bucketTime: time.Now()}
}

func (m *throughputMeter) recordMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotate()
	m.buckets[m.bucketIndex]++
}

func (m *throughputMeter) recordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotate()
	m.errBuckets[m.bucketIndex]++
}

// rotate advances the active bucket to the current second, clearing any
// buckets skipped entirely (idle periods).
func (m *throughputMeter) rotate() {
	elapsed := int(time.Since(m.bucketTime) / time.Second)
	if elapsed <= 0 {
		return
	}
	for i := 0; i < elapsed && i < len(m.buckets); i++ {
		m.bucketIndex = (m.bucketIndex + 1) % len(m.buckets)
		m.buckets[m.bucketIndex] = 0
		m.errBuckets[m.bucketIndex] = 0
	}
	if elapsed >= len(m.buckets) {
		m.buckets = [60]uint64{}
		m.errBuckets = [60]uint64{}
	}
	m.bucketTime = m.bucketTime.Add(time.Duration(elapsed) * time.Second)
}

// snapshot returns (messages/sec, errors/sec) averaged over the last
// minute.
func (m *throughputMeter) snapshot() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotate()

	var totalMsg, totalErr uint64
	for i := range m.buckets {
		totalMsg += m.buckets[i]
		totalErr += m.errBuckets[i]
	}
	return float64(totalMsg) / 60.0, float64(totalErr) / 60.0
}

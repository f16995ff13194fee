package syncz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

const (
	defaultStripeCount  = 50
	rehashThreshold     = 50
	rehashGrowthFactor  = 3
	defaultBucketCount  = 16
)

type hmEntry[K comparable, V any] struct {
	key   K
	value V
}

// ConcurrentHashMap is a striped, bucket-chained hash map. Each key maps
// to one bucket via hash(k) mod len(buckets); the bucket's lock is chosen
// by hash(k) mod len(stripes), so unrelated buckets rarely contend. The
// hash function is supplied by the caller and must be stable across
// calls for the same key.
type ConcurrentHashMap[K comparable, V any] struct {
	name    string
	hash    func(K) uint64
	stripes []sync.Mutex
	buckets [][]hmEntry[K, V]
	size    atomic.Int64
	metrics *metricz.Registry
}

// NewConcurrentHashMap creates a ConcurrentHashMap with a fixed stripe
// count and a small initial bucket count that grows via Rehash as
// buckets fill up.
func NewConcurrentHashMap[K comparable, V any](name string, hashFn func(K) uint64) *ConcurrentHashMap[K, V] {
	m := &ConcurrentHashMap[K, V]{
		name:    name,
		hash:    hashFn,
		stripes: make([]sync.Mutex, defaultStripeCount),
		buckets: make([][]hmEntry[K, V], defaultBucketCount),
		metrics: metricz.New(),
	}
	m.metrics.Counter(HashMapInsertsTotal)
	m.metrics.Counter(HashMapErasesTotal)
	m.metrics.Counter(HashMapRehashTotal)
	m.metrics.Gauge(HashMapSizeGauge)
	return m
}

func (m *ConcurrentHashMap[K, V]) stripeFor(h uint64) int {
	return int(h % uint64(len(m.stripes)))
}

// bucketFor must only be called while holding the stripe lock that
// guards the bucket it returns an index into — len(m.buckets) only
// changes under every stripe lock held at once (see Rehash/Clear), so a
// single held stripe is enough to make this read race-free.
func (m *ConcurrentHashMap[K, V]) bucketFor(h uint64) int {
	return int(h % uint64(len(m.buckets)))
}

// Insert adds key/value if key is not already present. Returns false
// without modifying the map if key already exists.
func (m *ConcurrentHashMap[K, V]) Insert(key K, value V) bool {
	h := m.hash(key)
	si := m.stripeFor(h)

	m.stripes[si].Lock()
	bi := m.bucketFor(h)
	for _, e := range m.buckets[bi] {
		if e.key == key {
			m.stripes[si].Unlock()
			return false
		}
	}
	m.buckets[bi] = append(m.buckets[bi], hmEntry[K, V]{key: key, value: value})
	needRehash := len(m.buckets[bi]) > rehashThreshold
	m.stripes[si].Unlock()

	n := m.size.Add(1)
	m.metrics.Counter(HashMapInsertsTotal).Inc()
	m.metrics.Gauge(HashMapSizeGauge).Set(float64(n))

	if needRehash {
		m.Rehash(bi)
	}
	return true
}

// Erase removes key if present, returning whether it was found.
func (m *ConcurrentHashMap[K, V]) Erase(key K) bool {
	h := m.hash(key)
	si := m.stripeFor(h)

	m.stripes[si].Lock()
	bi := m.bucketFor(h)
	bucket := m.buckets[bi]
	idx := -1
	for i, e := range bucket {
		if e.key == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.stripes[si].Unlock()
		return false
	}
	m.buckets[bi] = append(bucket[:idx], bucket[idx+1:]...)
	m.stripes[si].Unlock()

	n := m.size.Add(-1)
	m.metrics.Counter(HashMapErasesTotal).Inc()
	m.metrics.Gauge(HashMapSizeGauge).Set(float64(n))
	return true
}

// Find returns the value stored for key and whether it was present.
func (m *ConcurrentHashMap[K, V]) Find(key K) (V, bool) {
	h := m.hash(key)
	si := m.stripeFor(h)

	m.stripes[si].Lock()
	defer m.stripes[si].Unlock()

	bi := m.bucketFor(h)
	for _, e := range m.buckets[bi] {
		if e.key == key {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// At returns the value stored for key, or ErrKeyAbsent if key is absent.
func (m *ConcurrentHashMap[K, V]) At(key K) (V, error) {
	v, ok := m.Find(key)
	if !ok {
		var zero V
		return zero, ErrKeyAbsent
	}
	return v, nil
}

// Clear removes every entry under a consistent global lock, acquiring
// every stripe in ascending order to avoid deadlocking against a
// concurrent Rehash (which locks in the same order).
func (m *ConcurrentHashMap[K, V]) Clear() {
	m.lockAllStripes()
	m.buckets = make([][]hmEntry[K, V], 1)
	m.unlockAllStripes()
	m.size.Store(0)
	m.metrics.Gauge(HashMapSizeGauge).Set(0)
}

// Rehash grows the bucket array by rehashGrowthFactor if bucketIdx's
// chain still exceeds rehashThreshold once every stripe is held — a
// concurrent Insert or Rehash may have already addressed it, in which
// case this is a no-op.
func (m *ConcurrentHashMap[K, V]) Rehash(bucketIdx int) {
	m.lockAllStripes()
	defer m.unlockAllStripes()

	if bucketIdx < 0 || bucketIdx >= len(m.buckets) || len(m.buckets[bucketIdx]) <= rehashThreshold {
		return
	}

	newBuckets := make([][]hmEntry[K, V], len(m.buckets)*rehashGrowthFactor)
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			ni := int(m.hash(e.key) % uint64(len(newBuckets)))
			newBuckets[ni] = append(newBuckets[ni], e)
		}
	}
	m.buckets = newBuckets

	m.metrics.Counter(HashMapRehashTotal).Inc()
	capitan.Info(context.Background(), SignalHashMapRehashed,
		FieldName.Field(m.name),
		FieldBucketCount.Field(len(newBuckets)),
	)
}

func (m *ConcurrentHashMap[K, V]) lockAllStripes() {
	for i := range m.stripes {
		m.stripes[i].Lock()
	}
}

func (m *ConcurrentHashMap[K, V]) unlockAllStripes() {
	for i := range m.stripes {
		m.stripes[i].Unlock()
	}
}

// Size returns the current entry count. It is a consistent snapshot only
// when the caller can guarantee no concurrent Insert/Erase (external
// quiescence); otherwise it is an approximation of the atomic counter at
// the moment of the call.
func (m *ConcurrentHashMap[K, V]) Size() int {
	return int(m.size.Load())
}

// Metrics returns the metricz registry tracking this map's operations.
func (m *ConcurrentHashMap[K, V]) Metrics() *metricz.Registry {
	return m.metrics
}

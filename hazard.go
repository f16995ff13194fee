package syncz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// defaultHazardThreshold is the approximate retired-pointer count at
// which Retire triggers a ScanFreeList, matching the original C++
// hazard-pointer subsystem this type is modeled on.
const defaultHazardThreshold = 1000

type retiredNode[T any] struct {
	value   *T
	deleter func(*T)
	next    *retiredNode[T]
}

// HazardDomain provides safe deferred reclamation for lock-free data
// structures built on *T. Go has no automatic thread-local storage, so
// each participating goroutine calls RegisterThread to obtain a
// HazardHandle instead of relying on an implicit per-thread slot; the
// handle must be used for every Acquire/Release and discarded via
// Unregister before the goroutine exits.
type HazardDomain[T any] struct {
	mu        sync.Mutex
	threads   map[*HazardHandle[T]]struct{}
	freeList  atomic.Pointer[retiredNode[T]]
	approx    atomic.Int64
	scanMu    sync.Mutex
	threshold int
	name      string
	metrics   *metricz.Registry
}

// HazardHandle is a single goroutine's registration with a HazardDomain.
// It holds at most one published pointer at a time.
type HazardHandle[T any] struct {
	domain *HazardDomain[T]
	slot   atomic.Pointer[T]
}

// NewHazardDomain creates a HazardDomain that scans its free list once
// roughly threshold values have been retired without reclamation. A
// threshold of zero or less uses defaultHazardThreshold.
func NewHazardDomain[T any](name string, threshold int) *HazardDomain[T] {
	if threshold <= 0 {
		threshold = defaultHazardThreshold
	}
	d := &HazardDomain[T]{
		threads:   make(map[*HazardHandle[T]]struct{}),
		threshold: threshold,
		name:      name,
		metrics:   metricz.New(),
	}
	d.metrics.Counter(HazardRetiredTotal)
	d.metrics.Counter(HazardReclaimedTotal)
	d.metrics.Counter(HazardScansTotal)
	d.metrics.Gauge(HazardFreeListGauge)
	return d
}

// RegisterThread registers the calling goroutine with the domain and
// returns its handle. Call before any Acquire/Retire and Unregister
// before the goroutine exits.
func (d *HazardDomain[T]) RegisterThread() *HazardHandle[T] {
	h := &HazardHandle[T]{domain: d}
	d.mu.Lock()
	d.threads[h] = struct{}{}
	d.mu.Unlock()
	return h
}

// Unregister removes h from the domain. If h was the last registered
// handle, the free list is drained immediately since no reader remains
// to hold a hazard on anything in it.
func (h *HazardHandle[T]) Unregister() {
	d := h.domain
	d.mu.Lock()
	delete(d.threads, h)
	last := len(d.threads) == 0
	d.mu.Unlock()

	if last {
		d.drainFreeList()
	}
}

// Acquire publishes, via the publish-and-recheck protocol, the value
// currently stored in ptr and returns it. The caller holds a hazard on
// the returned value until Release.
func (h *HazardHandle[T]) Acquire(ptr *atomic.Pointer[T]) *T {
	for {
		v := ptr.Load()
		h.slot.Store(v)
		if v2 := ptr.Load(); v2 == v {
			return v
		}
	}
}

// Release clears this handle's hazard slot.
func (h *HazardHandle[T]) Release() {
	h.slot.Store(nil)
}

// Retire schedules value for deferred reclamation via deleter once no
// hazard handle in the domain holds it. If the approximate retired count
// exceeds the domain's threshold, a scan runs inline.
func (d *HazardDomain[T]) Retire(value *T, deleter func(*T)) {
	node := &retiredNode[T]{value: value, deleter: deleter}
	for {
		old := d.freeList.Load()
		node.next = old
		if d.freeList.CompareAndSwap(old, node) {
			break
		}
	}
	n := d.approx.Add(1)
	d.metrics.Counter(HazardRetiredTotal).Inc()
	d.metrics.Gauge(HazardFreeListGauge).Set(float64(n))

	if n > int64(d.threshold) {
		d.ScanFreeList()
	}
}

// ScanFreeList snapshots every registered handle's published pointer,
// then walks the current free list: any retired value still held by a
// hazard is pushed back onto the free list, the rest are reclaimed via
// their deleter.
func (d *HazardDomain[T]) ScanFreeList() {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	d.approx.Store(0)
	retired := d.freeList.Swap(nil)

	hazardous := make(map[*T]struct{})
	d.mu.Lock()
	for h := range d.threads {
		if p := h.slot.Load(); p != nil {
			hazardous[p] = struct{}{}
		}
	}
	threadCount := len(d.threads)
	d.mu.Unlock()

	capitan.Info(context.Background(), SignalHazardScanStarted,
		FieldName.Field(d.name),
		FieldHazardCount.Field(threadCount),
	)

	reclaimed := 0
	for retired != nil {
		next := retired.next
		if _, held := hazardous[retired.value]; held {
			d.requeue(retired)
		} else {
			retired.deleter(retired.value)
			reclaimed++
		}
		retired = next
	}

	d.metrics.Counter(HazardScansTotal).Inc()
	if reclaimed > 0 {
		d.metrics.Counter(HazardReclaimedTotal).Add(float64(reclaimed))
		capitan.Info(context.Background(), SignalHazardScanReclaimed,
			FieldName.Field(d.name),
			FieldReclaimedCount.Field(reclaimed),
		)
	}
}

// requeue pushes a still-hazardous retired node back onto the free list.
func (d *HazardDomain[T]) requeue(node *retiredNode[T]) {
	for {
		old := d.freeList.Load()
		node.next = old
		if d.freeList.CompareAndSwap(old, node) {
			d.approx.Add(1)
			return
		}
	}
}

// drainFreeList reclaims every entry unconditionally; only called when
// no registered handle remains to hold a hazard on anything.
func (d *HazardDomain[T]) drainFreeList() {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	node := d.freeList.Swap(nil)
	count := 0
	for node != nil {
		node.deleter(node.value)
		node = node.next
		count++
	}
	d.approx.Store(0)
	if count > 0 {
		d.metrics.Counter(HazardReclaimedTotal).Add(float64(count))
		capitan.Info(context.Background(), SignalHazardDrained,
			FieldName.Field(d.name),
			FieldReclaimedCount.Field(count),
		)
	}
}

// Metrics returns the metricz registry tracking this domain's retire and
// reclaim activity.
func (d *HazardDomain[T]) Metrics() *metricz.Registry {
	return d.metrics
}

package syncz

import "github.com/zoobzio/metricz"

// Metric keys for Semaphore observability.
const (
	SemaphoreWaitersGauge  = metricz.Key("semaphore.waiters")
	SemaphoreAcquiredTotal = metricz.Key("semaphore.acquired.total")
	SemaphoreReleasedTotal = metricz.Key("semaphore.released.total")
)

// Metric keys for ConcurrentHashMap observability.
const (
	HashMapInsertsTotal = metricz.Key("hashmap.inserts.total")
	HashMapErasesTotal  = metricz.Key("hashmap.erases.total")
	HashMapSizeGauge    = metricz.Key("hashmap.size")
	HashMapRehashTotal  = metricz.Key("hashmap.rehashes.total")
)

// Metric keys for HazardDomain observability.
const (
	HazardRetiredTotal   = metricz.Key("hazard.retired.total")
	HazardReclaimedTotal = metricz.Key("hazard.reclaimed.total")
	HazardScansTotal     = metricz.Key("hazard.scans.total")
	HazardFreeListGauge  = metricz.Key("hazard.freelist.size")
)

// Metric keys for Executor observability.
const (
	ExecutorSubmittedTotal = metricz.Key("executor.submitted.total")
	ExecutorCompletedTotal = metricz.Key("executor.completed.total")
	ExecutorFailedTotal    = metricz.Key("executor.failed.total")
	ExecutorCanceledTotal  = metricz.Key("executor.canceled.total")
	ExecutorRequeuedTotal  = metricz.Key("executor.requeued.total")
	ExecutorQueueDepth     = metricz.Key("executor.queue.depth")
	ExecutorActiveWorkers  = metricz.Key("executor.workers.active")
)

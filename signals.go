package syncz

import "github.com/zoobzio/capitan"

// Signal constants for syncz primitive events. Signals follow the
// pattern: <primitive>.<event>.
const (
	// Semaphore signals.
	SignalSemaphoreWait      capitan.Signal = "semaphore.wait"
	SignalSemaphoreAcquired  capitan.Signal = "semaphore.acquired"
	SignalSemaphoreReleased  capitan.Signal = "semaphore.released"

	// Channel signals (shared by BufferedChannel and UnbufferedChannel).
	SignalChannelClosed     capitan.Signal = "channel.closed"
	SignalChannelSendBlocked capitan.Signal = "channel.send-blocked"

	// UnboundedBlockingQueue signals.
	SignalQueueClosed  capitan.Signal = "queue.closed"
	SignalQueueCanceled capitan.Signal = "queue.canceled"

	// Hazard pointer signals.
	SignalHazardScanStarted  capitan.Signal = "hazard.scan-started"
	SignalHazardScanReclaimed capitan.Signal = "hazard.scan-reclaimed"
	SignalHazardDrained      capitan.Signal = "hazard.drained"

	// ConcurrentHashMap signals.
	SignalHashMapRehashed capitan.Signal = "hashmap.rehashed"

	// Task/Executor signals.
	SignalTaskFailed       capitan.Signal = "task.failed"
	SignalTaskCanceled     capitan.Signal = "task.canceled"
	SignalExecutorShutdown capitan.Signal = "executor.shutdown-started"
	SignalExecutorDrained  capitan.Signal = "executor.shutdown-complete"
)

// Common field keys using capitan primitive types, shared across
// primitives to avoid custom struct serialization at log sites.
var (
	FieldName      = capitan.NewStringKey("name")
	FieldError     = capitan.NewStringKey("error")
	FieldTimestamp = capitan.NewFloat64Key("timestamp")

	// Semaphore fields.
	FieldPermits    = capitan.NewIntKey("permits")
	FieldWaiters    = capitan.NewIntKey("waiters")
	FieldTicket     = capitan.NewIntKey("ticket")

	// Queue/channel fields.
	FieldCapacity = capitan.NewIntKey("capacity")
	FieldSize     = capitan.NewIntKey("size")

	// Hazard pointer fields.
	FieldRetiredCount   = capitan.NewIntKey("retired_count")
	FieldReclaimedCount = capitan.NewIntKey("reclaimed_count")
	FieldHazardCount    = capitan.NewIntKey("hazard_count")

	// ConcurrentHashMap fields.
	FieldBucketIndex = capitan.NewIntKey("bucket_index")
	FieldBucketCount = capitan.NewIntKey("bucket_count")

	// Task/Executor fields.
	FieldTaskName     = capitan.NewStringKey("task_name")
	FieldWorkerCount  = capitan.NewIntKey("worker_count")
	FieldQueueDepth   = capitan.NewIntKey("queue_depth")
)

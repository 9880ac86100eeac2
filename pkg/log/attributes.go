package log

// Attribute keys shared by every component. Keys are hierarchical
// ("backend.name", "task.index") so logs can be filtered by prefix.

// Component context.
const (
	// ComponentKey identifies which component or package is logging.
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed, e.g. "process", "fit".
	OperationKey = "ml.operation"

	// ModelNameKey identifies the type of machine learning model.
	ModelNameKey = "model.name"
)

// Dispatch context.
const (
	// BackendKey is the string identity of the executing backend.
	BackendKey = "backend.name"

	// WorkersKey is the concurrency degree of a backend.
	WorkersKey = "backend.workers"

	// QueueLenKey is the number of tasks drained by one Process call.
	QueueLenKey = "backend.queue_len"

	// CodecKey names the serializer used across a process boundary.
	CodecKey = "backend.codec"

	// TaskIndexKey is the queue index of a task.
	TaskIndexKey = "task.index"

	// TaskFuncKey is the registered function name of a task.
	TaskFuncKey = "task.func"

	// SlotsKey is the capacity of a shared result table.
	SlotsKey = "shm.slots"
)

// Infrastructure.
const (
	// ProcessIDKey records the OS process ID.
	ProcessIDKey = "infra.pid"

	// WorkerIDKey identifies a worker within a pool.
	WorkerIDKey = "infra.worker_id"

	// ExitCodeKey records a worker process exit status.
	ExitCodeKey = "infra.exit_code"

	// CPUsAvailableKey is the CPU count this process may run on.
	CPUsAvailableKey = "infra.cpus_available"

	// CPUsLogicalKey and CPUsPhysicalKey are machine-wide CPU counts.
	CPUsLogicalKey  = "infra.cpus_logical"
	CPUsPhysicalKey = "infra.cpus_physical"
)

// Performance and metrics.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// SamplesKey indicates the number of samples (rows) in a dataset.
	SamplesKey = "data.samples"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "validation.folds"

	// ScoreKey records a validation score.
	ScoreKey = "metrics.score"
)

// Standard operation values.
const (
	OperationProcess  = "process"
	OperationFlush    = "flush"
	OperationWorker   = "worker"
	OperationFit      = "fit"
	OperationValidate = "validate"
)

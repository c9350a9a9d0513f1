package pkg

const (
	HeaderTraceId   string = "X-Trace-Id"
	HeaderRequestId string = "X-Request-Id"
)

const (
	TraceId   string = "trace_id"
	RequestId string = "request_id"
)

// TransferStatus is the lifecycle state of a transfer as seen by clients and
// in emitted events. Transfers are synchronous, so only terminal states exist.
type TransferStatus string

const (
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusRejected  TransferStatus = "rejected"
)

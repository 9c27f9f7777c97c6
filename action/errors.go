package action

// Error codes shared by the filter chain, the dispatch core and the transport.
const (
	CodeHandlerNotFound     = "HANDLER_NOT_FOUND"
	CodeBatchCountMismatch  = "BATCH_COUNT_MISMATCH"
	CodeInvalidSubscription = "INVALID_SUBSCRIPTION"
	CodeNotInitialized      = "NOT_INITIALIZED"
	CodeAlreadyInitialized  = "ALREADY_INITIALIZED"
	CodeInvalidFilter       = "INVALID_FILTER"
	CodeActionNotComparable = "ACTION_NOT_COMPARABLE"
	CodeActionTypeMismatch  = "ACTION_TYPE_MISMATCH"
	CodeResultTypeMismatch  = "RESULT_TYPE_MISMATCH"
	CodeDuplicateBinding    = "DUPLICATE_BINDING"
	CodeNilAction           = "NIL_ACTION"
	CodeNilResult           = "NIL_RESULT"
	CodeUnknownKind         = "UNKNOWN_KIND"
	CodeDecodeFailed        = "DECODE_FAILED"
	CodeTransportFailed     = "TRANSPORT_FAILED"
	CodeCircuitOpen         = "CIRCUIT_OPEN"
)

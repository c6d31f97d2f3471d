package aeroerr

// ResultCode is the wire-level outcome byte returned in every response
// header (spec §6). Zero means success; everything else maps to a
// *Error of Kind Server via NewServerError.
type ResultCode int

const (
	OK                   ResultCode = 0
	ServerError          ResultCode = 1
	KeyNotFound          ResultCode = 2
	GenerationError      ResultCode = 3
	ParameterError       ResultCode = 4
	KeyExistsError       ResultCode = 5
	BinExistsError       ResultCode = 6
	ClusterKeyMismatch   ResultCode = 7
	ServerOutOfMemory    ResultCode = 8
	ServerBusy           ResultCode = 9
	ServerTimeout        ResultCode = 9 // shared wire value with ServerBusy per spec §6
	AlwaysForbidden      ResultCode = 10
	UnsupportedFeature   ResultCode = 16
	BinNotFound          ResultCode = 17
	DeviceOverload       ResultCode = 18
	KeyMismatch          ResultCode = 19
	InvalidNamespace     ResultCode = 20
	BinNameTooLong       ResultCode = 21
	FailForbidden        ResultCode = 22
	ElementNotFound      ResultCode = 23
	ElementExists        ResultCode = 24
	BatchDisabled        ResultCode = 150
	BatchMaxRequestsSize ResultCode = 151
	BatchQueuesFull      ResultCode = 152
	UdfBadResponse       ResultCode = 100
	IndexFound           ResultCode = 200
	IndexNotFound        ResultCode = 201
	QueryAborted         ResultCode = 210
)

var resultCodeNames = map[ResultCode]string{
	OK:                   "ok",
	ServerError:          "server_error",
	KeyNotFound:          "key_not_found",
	GenerationError:      "generation_error",
	ParameterError:       "parameter_error",
	KeyExistsError:       "key_exists_error",
	BinExistsError:       "bin_exists_error",
	ClusterKeyMismatch:   "cluster_key_mismatch",
	ServerOutOfMemory:    "server_out_of_memory",
	ServerBusy:           "server_busy",
	AlwaysForbidden:      "always_forbidden",
	UnsupportedFeature:   "unsupported_feature",
	BinNotFound:          "bin_not_found",
	DeviceOverload:       "device_overload",
	KeyMismatch:          "key_mismatch",
	InvalidNamespace:     "invalid_namespace",
	BinNameTooLong:       "bin_name_too_long",
	FailForbidden:        "fail_forbidden",
	ElementNotFound:      "element_not_found",
	ElementExists:        "element_exists",
	BatchDisabled:        "batch_disabled",
	BatchMaxRequestsSize: "batch_max_requests_size",
	BatchQueuesFull:      "batch_queues_full",
	UdfBadResponse:       "udf_bad_response",
	IndexFound:           "index_found",
	IndexNotFound:        "index_not_found",
	QueryAborted:         "query_aborted",
}

func (rc ResultCode) String() string {
	if name, ok := resultCodeNames[rc]; ok {
		return name
	}
	return "unknown_result_code"
}

// isRetryableResultCode implements the "some are retryable" half of §7's
// Server error kind: transient overload codes are retried, everything
// else (generation mismatches, not-found, parameter errors) is terminal.
func isRetryableResultCode(rc int) bool {
	switch ResultCode(rc) {
	case ServerBusy, DeviceOverload, BatchQueuesFull:
		return true
	default:
		return false
	}
}

// NewServerError builds a Kind-Server *Error from a wire result code.
func NewServerError(rc int, node string) *Error {
	return &Error{
		Kind:       Server,
		Node:       node,
		ResultCode: rc,
		Message:    ResultCode(rc).String(),
	}
}

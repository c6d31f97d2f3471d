// Package command implements the generic request/response executor
// described in spec §4.5: deadline computation, node selection via the
// replica policy, attempt/retry looping, and the write-safety retry
// invariant.
package command

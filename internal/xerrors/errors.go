// Package xerrors provides the streaming service's error vocabulary. It
// follows the teacher's pkg/shared/errors idiom: a single OperationError type
// carrying an operation/component/resource triple plus a handful of
// domain-flavored constructors, so every call site reads
// "failed to <op>, component: <c>, cause: <err>".
package xerrors

import (
	"fmt"
	"strings"
)

// OperationError is a structured, wrapped error describing what failed and
// where.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := "failed to " + e.Operation
	if e.Component != "" {
		msg += ", component: " + e.Component
	}
	if e.Resource != "" {
		msg += ", resource: " + e.Resource
	}
	if e.Cause != nil {
		msg += ", cause: " + e.Cause.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a minimal OperationError with just an action and a cause.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return &OperationError{Operation: action}
	}
	return &OperationError{Operation: action, Cause: cause}
}

// FailedToWithDetails builds an OperationError naming the component and
// resource involved, for logs that need to distinguish which tier failed.
func FailedToWithDetails(action, component, resource string, cause error) error {
	return &OperationError{Operation: action, Component: component, Resource: resource, Cause: cause}
}

// Wrapf mirrors fmt.Errorf's %w but returns nil on a nil err, matching the
// teacher's Wrapf contract (callers don't have to special-case nil).
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
}

// CacheError reports a Cache Tier Adapter failure (coverage query, read, or
// chain-id lookup).
func CacheError(operation string, cause error) error {
	return FailedToWithDetails(operation, "cache", "", cause)
}

// ColdStoreError reports a Cold Store Adapter failure after its internal
// retry budget is exhausted.
func ColdStoreError(operation string, blockStart uint64, cause error) error {
	return FailedToWithDetails(operation, "cold_store", fmt.Sprintf("block@%d", blockStart), cause)
}

// SequencerGapError reports a gap between consecutive cold-tier batches —
// a data-plane consistency violation (spec invariant: no silent healing).
type SequencerGapError struct {
	PrevEnd      uint64
	NextStart    uint64
	BatchesFirst uint64
	BatchesLast  uint64
}

func (e *SequencerGapError) Error() string {
	return fmt.Sprintf(
		"gap in sequenced transaction batches: prev_end=%d next_start=%d (batch range %d..%d)",
		e.PrevEnd, e.NextStart, e.BatchesFirst, e.BatchesLast,
	)
}

// ChainIDMismatchError reports the cache and cold store disagreeing on the
// chain they serve, detected once at Bootstrap.
type ChainIDMismatchError struct {
	CacheChainID     uint64
	ColdStoreChainID uint64
}

func (e *ChainIDMismatchError) Error() string {
	return fmt.Sprintf("chain id mismatch: cache=%d cold_store=%d", e.CacheChainID, e.ColdStoreChainID)
}

// CoverageQueryError reports the Cache Tier Adapter being unable to answer a
// coverage query at all — treated as subscription-fatal (see DESIGN.md for
// the process-fatal-vs-subscription-fatal decision).
func CoverageQueryError(cause error) error {
	return FailedToWithDetails("query cache coverage", "cache", "", cause)
}

// IsRetryable reports whether err looks like a transient condition worth
// retrying, matching the teacher's heuristic (timeouts, refused/unavailable
// connections are retryable; everything else is treated as permanent).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, substr := range []string{"timeout", "connection refused", "unavailable", "temporarily"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

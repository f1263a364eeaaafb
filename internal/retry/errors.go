// Package retry centralizes failure classification and retry/backoff
// primitives for the synchronizer.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Class buckets an error by how the caller should react to it.
type Class string

const (
	// ClassTransient covers network and server-side failures worth retrying
	// with backoff.
	ClassTransient Class = "transient"
	// ClassValidation covers rejected input; retrying the same request
	// cannot succeed.
	ClassValidation Class = "validation"
	// ClassSessionExpired means the credential is no longer accepted and
	// re-authentication must happen upstream of this subsystem.
	ClassSessionExpired Class = "session_expired"
	// ClassPushUnavailable means the push channel cannot be used; the system
	// keeps working in REST-only mode.
	ClassPushUnavailable Class = "push_unavailable"
)

// ClassifiedError carries a failure class alongside the underlying error.
type ClassifiedError struct {
	Class Class
	Op    string
	Err   error
}

func (e *ClassifiedError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classified wraps err with a class and the operation that failed.
func Classified(class Class, op string, err error) *ClassifiedError {
	return &ClassifiedError{Class: class, Op: op, Err: err}
}

// ClassOf extracts the class from err, defaulting to transient: anything
// unclassified is assumed retryable rather than silently dropped.
func ClassOf(err error) Class {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ClassTransient
}

// Retryable reports whether the coordinator may retry the failed operation.
func Retryable(err error) bool {
	switch ClassOf(err) {
	case ClassValidation, ClassSessionExpired:
		return false
	default:
		return true
	}
}

// ClassifyHTTP maps a response status code to a failure class.
func ClassifyHTTP(status int) Class {
	switch {
	case status == 401 || status == 403:
		return ClassSessionExpired
	case status >= 400 && status < 500:
		return ClassValidation
	default:
		return ClassTransient
	}
}

// IsNetwork reports whether err looks like a connectivity failure (timeouts,
// refused connections, cancelled contexts from deadline expiry).
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

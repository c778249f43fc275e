package streamclient

import "fmt"

// ServiceUnavailableError indicates the remote stream service was
// unreachable or answered with a 5xx status.
type ServiceUnavailableError struct {
	Op     string
	Status int
	Cause  error
}

func (e *ServiceUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stream service unavailable during %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("stream service unavailable during %s: status %d", e.Op, e.Status)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Cause }

// NetworkError indicates a transport failure while bytes were in flight.
type NetworkError struct {
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// NotFoundError indicates the referenced asset id is unknown to the remote
// service.
type NotFoundError struct {
	AssetID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset %s not found", e.AssetID)
}

// ProtocolError indicates a malformed or unexpected remote response shape.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %s", e.Op, e.Reason)
}

// SizeExceededError indicates the file is over the configured ceiling. The
// cap is enforced client-side before any bytes move, independent of any
// server-side limit.
type SizeExceededError struct {
	Size  int64
	Limit int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("file size %d exceeds the %d byte ceiling", e.Size, e.Limit)
}

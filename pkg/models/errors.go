package models

import "errors"

var (
	// ErrInvalidIdentifier is returned for malformed project, gateway, node or sensor identifiers
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrMissingProjectReference is returned when a routed event carries no project
	ErrMissingProjectReference = errors.New("missing project reference")

	// ErrMissingDeviceReference is returned when a routed event carries no device
	ErrMissingDeviceReference = errors.New("missing device reference")

	// ErrMissingCaptureTime is returned when a routed event carries no usable timestamp
	ErrMissingCaptureTime = errors.New("missing capture time")

	// ErrUpstreamUnavailable wraps transport or backend failures
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRemoteRejected wraps a mutation the remote backend refused
	ErrRemoteRejected = errors.New("remote rejected")

	// ErrStorageFailure wraps persisted store write failures
	ErrStorageFailure = errors.New("storage failure")

	// ErrInvalidQuery is returned for query parameters outside their allowed range
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound is returned when a gateway or node does not exist
	ErrNotFound = errors.New("not found")
)

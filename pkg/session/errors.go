package session

import "errors"

var (
	// ErrNotReady is returned while the backend is still warming up or a
	// recovery procedure owns the session
	ErrNotReady = errors.New("service is still warming up")

	// ErrServiceUnavailable is returned once the session has failed
	ErrServiceUnavailable = errors.New("service unavailable, restart the session to try again")

	// ErrRecoveryStarted wraps a 5xx prediction error that handed the session
	// back to recovery
	ErrRecoveryStarted = errors.New("backend stopped responding, reconnecting")

	// ErrInvalidSelection is returned when state or district is empty
	ErrInvalidSelection = errors.New("please select both state and district")

	// ErrNoDistricts is returned when the service knows no districts for a state
	ErrNoDistricts = errors.New("no districts found")

	// ErrLimitedMode is returned for lookups the Limited Mode catalog cannot serve
	ErrLimitedMode = errors.New("location data unavailable in limited mode")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("session closed")
)

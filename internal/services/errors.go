package services

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("name, email and password are required")
	ErrCheckInBusy        = errors.New("a check-in is already in progress")
	ErrNoStationSelected  = errors.New("no station selected")
	ErrIncompleteStation  = errors.New("station data incomplete")
	ErrStationNotFound    = errors.New("station not found")
)

// DataAccessError is a failed read from the backing store
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// UploadError means the photo never reached object storage. Nothing was logged.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError means a row could not be written. For check-ins the
// uploaded object named by Key is left behind without a log row.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("saving record: %v", e.Err)
	}
	return fmt.Sprintf("saving record for %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// OutOfRangeError is a granted location that is too far from the station
type OutOfRangeError struct {
	Station   string
	Distance  float64
	Threshold float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%.0f m from %s, must be within %.0f m", e.Distance, e.Station, e.Threshold)
}

package kvs

import (
	"errors"
	"fmt"

	"github.com/kjk/kvs/appendlog"
)

var (
	// ErrKeyNotFound is returned by Remove() for a key that isn't in the store
	ErrKeyNotFound = errors.New("key not found")
	// ErrCorruptRecord is returned when a log line can't be decoded into a valid Record
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrCorruptLog is matched by *CorruptLogError returned from recovery
	ErrCorruptLog = errors.New("corrupt log")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")
	// ErrTruncatedRecord is re-exported from appendlog for convenience
	ErrTruncatedRecord = appendlog.ErrTruncatedRecord
)

// CorruptLogError describes the first record that failed to decode during recovery.
// errors.Is(err, ErrCorruptLog) is true and Unwrap returns the decode error.
type CorruptLogError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *CorruptLogError) Error() string {
	return fmt.Sprintf("corrupt log '%s' at offset %d: %s", e.Path, e.Offset, e.Err)
}

func (e *CorruptLogError) Unwrap() error {
	return e.Err
}

func (e *CorruptLogError) Is(target error) bool {
	return target == ErrCorruptLog
}

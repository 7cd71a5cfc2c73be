package appendlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
)

// ErrTruncatedRecord is returned when no complete, newline-terminated
// record starts at a given offset.
var ErrTruncatedRecord = errors.New("truncated or missing record")

// Line is a single record line together with its offset in the log file.
type Line struct {
	Offset int64
	// Data includes the terminating '\n'
	Data []byte
}

// Log is an append-only file of newline-terminated records.
// Not safe for concurrent use.
type Log struct {
	// if true, Append() doesn't call file.Sync()
	// faster but a crash can lose the most recent appends
	NoSync bool

	path string
	file *os.File
	size int64
}

// Open opens the log at path, creating it (and its directory) if it doesn't exist.
// An existing file is never truncated.
func Open(path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}
	if err = os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(absPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &Log{
		path: absPath,
		file: file,
		size: st.Size(),
	}, nil
}

// Path returns absolute path of the log file
func (l *Log) Path() string {
	return l.path
}

// Size returns size of the log in bytes, as of the last Append() or Open()
func (l *Log) Size() int64 {
	return l.size
}

func validateLine(d []byte) error {
	n := len(d)
	if n < 2 {
		return fmt.Errorf("record is empty")
	}
	if d[n-1] != '\n' {
		return fmt.Errorf("record must end with a newline")
	}
	if bytes.IndexByte(d[:n-1], '\n') != -1 {
		return fmt.Errorf("record cannot contain newlines")
	}
	return nil
}

// Append writes d at the end of the log and returns the offset at which the write began.
// d must be a single line terminated with '\n'.
// Unless NoSync is set, the data is synced to disk before Append returns.
// Anything past the end of the last successful Append (e.g. a torn write)
// is truncated first.
func (l *Log) Append(d []byte) (int64, error) {
	if l.file == nil {
		return 0, os.ErrClosed
	}
	if err := validateLine(d); err != nil {
		return 0, err
	}
	// a previous failed write can leave a partial line after the last good record
	off := l.size
	end, err := l.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if end < off {
		return 0, fmt.Errorf("log '%s' shrunk from %d to %d bytes", l.path, off, end)
	}
	if end > off {
		if err = l.file.Truncate(off); err != nil {
			return 0, fmt.Errorf("failed to truncate partial write at offset %d: %w", off, err)
		}
	}
	if _, err = l.file.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err = l.file.Write(d); err != nil {
		_ = l.file.Truncate(off)
		return 0, err
	}
	if !l.NoSync {
		if err = l.file.Sync(); err != nil {
			_ = l.file.Truncate(off)
			return 0, err
		}
	}
	l.size = off + int64(len(d))
	return off, nil
}

// ReadAt reads the record starting at offset, including the terminating '\n'.
func (l *Log) ReadAt(offset int64) ([]byte, error) {
	if l.file == nil {
		return nil, os.ErrClosed
	}
	st, err := l.file.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if offset < 0 || offset >= size {
		return nil, fmt.Errorf("%w: offset %d, log size %d", ErrTruncatedRecord, offset, size)
	}
	r := bufio.NewReader(io.NewSectionReader(l.file, offset, size-offset))
	d, err := r.ReadBytes('\n')
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no newline after offset %d", ErrTruncatedRecord, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record at offset %d: %w", offset, err)
	}
	return d, nil
}

// Scan returns an iterator over all lines of the log, in file order.
// Every call re-opens the file so it always starts at offset 0 and
// reflects the current content.
// Call the returned error function after iteration to check for errors.
func (l *Log) Scan() (iter.Seq[Line], func() error) {
	return ScanFile(l.path)
}

// ScanFile is like Log.Scan but works on a path without opening a Log.
// Unlike Open, it doesn't create a missing file.
func ScanFile(path string) (iter.Seq[Line], func() error) {
	var iterErr error

	seq := func(yield func(Line) bool) {
		iterErr = nil
		file, err := os.Open(path)
		if err != nil {
			iterErr = err
			return
		}
		defer file.Close()

		reader := bufio.NewReader(file)
		var currentOffset int64
		for {
			d, err := reader.ReadBytes('\n')
			if err == io.EOF {
				if len(d) > 0 {
					iterErr = fmt.Errorf("%w: no newline after offset %d", ErrTruncatedRecord, currentOffset)
				}
				return
			}
			if err != nil {
				iterErr = fmt.Errorf("error reading '%s': %w", path, err)
				return
			}
			line := Line{
				Offset: currentOffset,
				Data:   d,
			}
			currentOffset += int64(len(d))
			if !yield(line) {
				return
			}
		}
	}

	return seq, func() error { return iterErr }
}

// Close closes the log file. It's safe to call multiple times.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

package kvs

import (
	"errors"
	"iter"

	"github.com/kjk/kvs/appendlog"
)

// Stats describes the state of a log
type Stats struct {
	// number of records in the log
	Records int
	// number of keys with a value
	LiveKeys int
	// records that are superseded by a later record or are tombstones
	StaleRecords int
	// size of the log in bytes
	LogSize int64
}

func (s *Stats) update(idx *Index, logSize int64) {
	s.LiveKeys = idx.Len()
	s.StaleRecords = s.Records - s.LiveKeys
	s.LogSize = logSize
}

// Rebuild replays all records in the log and returns the resulting index.
// A record that fails to decode aborts recovery with *CorruptLogError.
func Rebuild(l *appendlog.Log) (*Index, *Stats, error) {
	lines, errFn := l.Scan()
	return rebuild(l.Path(), lines, errFn)
}

func rebuild(path string, lines iter.Seq[appendlog.Line], errFn func() error) (*Index, *Stats, error) {
	idx := NewIndex()
	stats := &Stats{}
	var size int64
	var corruptErr error
	for line := range lines {
		rec, err := DecodeRecord(line.Data)
		if err != nil {
			corruptErr = &CorruptLogError{
				Path:   path,
				Offset: line.Offset,
				Err:    err,
			}
			break
		}
		switch rec.Op {
		case OpSet:
			idx.Put(rec.Key, line.Offset)
		case OpDelete:
			idx.Remove(rec.Key)
		}
		stats.Records++
		size = line.Offset + int64(len(line.Data))
	}
	if corruptErr != nil {
		return nil, nil, corruptErr
	}
	if err := scanErr(path, size, errFn()); err != nil {
		return nil, nil, err
	}
	stats.update(idx, size)
	return idx, stats, nil
}

// scanErr converts a torn last record, which starts at offset end,
// into *CorruptLogError. Other errors are returned as is.
func scanErr(path string, end int64, err error) error {
	if errors.Is(err, ErrTruncatedRecord) {
		return &CorruptLogError{
			Path:   path,
			Offset: end,
			Err:    err,
		}
	}
	return err
}

// Verify runs recovery over the log at path without opening a store.
// Unlike Open, it doesn't create a missing file.
func Verify(path string) (*Stats, error) {
	lines, errFn := appendlog.ScanFile(path)
	_, stats, err := rebuild(path, lines, errFn)
	return stats, err
}

package kvs

import (
	"errors"
	"fmt"
	"time"

	"github.com/kjk/kvs/appendlog"
	"github.com/kjk/kvs/log"
)

// DefaultPath is used when Store.Path is empty
const DefaultPath = "db.db"

// Store is a persistent key/value store backed by an append-only log.
// Not safe for concurrent use.
type Store struct {
	// path of the log file, DefaultPath if empty
	Path string
	// if true, don't sync the log after every write
	NoSync bool

	log   *appendlog.Log
	index *Index
	stats Stats
}

var _ Engine = &Store{}

// Open opens (creating if needed) the store at path and rebuilds its index
func Open(path string) (*Store, error) {
	s := &Store{
		Path: path,
	}
	if err := OpenStore(s); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenStore opens the log at s.Path and rebuilds the index by replaying it.
// It can be used to re-open a closed store.
func OpenStore(s *Store) error {
	if s.log != nil {
		return fmt.Errorf("store '%s' is already open", s.Path)
	}
	if s.Path == "" {
		s.Path = DefaultPath
	}
	timeStart := time.Now()
	l, err := appendlog.Open(s.Path)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	l.NoSync = s.NoSync

	index, stats, err := Rebuild(l)
	if err != nil {
		l.Close()
		var cerr *CorruptLogError
		if errors.As(err, &cerr) {
			log.Event("kvs.corrupt", "path", cerr.Path, "offset", cerr.Offset, "error", cerr.Err.Error())
		}
		return err
	}
	s.log = l
	s.index = index
	s.stats = *stats
	dur := time.Since(timeStart)
	log.Verbosef("kvs: opened '%s', %d records, %d keys in %s\n", l.Path(), stats.Records, stats.LiveKeys, dur)
	log.EventWithDuration("kvs.open", dur, "path", l.Path(), "records", stats.Records, "keys", stats.LiveKeys)
	return nil
}

func (s *Store) append(rec *Record) (int64, error) {
	if s.log == nil {
		return 0, ErrClosed
	}
	d, err := EncodeRecord(rec)
	if err != nil {
		return 0, err
	}
	off, err := s.log.Append(d)
	if err != nil {
		return 0, fmt.Errorf("failed to append %s record for key '%s': %w", rec.Op, rec.Key, err)
	}
	s.stats.Records++
	return off, nil
}

// Set sets the value of a key, overwriting the previous value
func (s *Store) Set(key string, value string) error {
	off, err := s.append(NewSetRecord(key, value))
	if err != nil {
		return err
	}
	s.index.Put(key, off)
	return nil
}

// Get returns the value of a key.
// ok is false (and err is nil) if key doesn't exist.
func (s *Store) Get(key string) (string, bool, error) {
	if s.log == nil {
		return "", false, ErrClosed
	}
	off, ok := s.index.Get(key)
	if !ok {
		return "", false, nil
	}
	d, err := s.log.ReadAt(off)
	if err != nil {
		return "", false, fmt.Errorf("failed to read record for key '%s' at offset %d: %w", key, off, err)
	}
	rec, err := DecodeRecord(d)
	if err != nil {
		return "", false, fmt.Errorf("key '%s' at offset %d: %w", key, off, err)
	}
	if rec.Key != key || rec.Op != OpSet {
		return "", false, fmt.Errorf("%w: expected set record for key '%s' at offset %d, got %s record for key '%s'", ErrCorruptRecord, key, off, rec.Op, rec.Key)
	}
	return *rec.Value, true, nil
}

// Remove removes a key.
// Returns ErrKeyNotFound if key doesn't exist, in which case nothing is written.
func (s *Store) Remove(key string) error {
	if s.log == nil {
		return ErrClosed
	}
	if _, ok := s.index.Get(key); !ok {
		return fmt.Errorf("%w: '%s'", ErrKeyNotFound, key)
	}
	if _, err := s.append(NewDeleteRecord(key)); err != nil {
		return err
	}
	s.index.Remove(key)
	return nil
}

// Keys returns all keys in sorted order
func (s *Store) Keys() []string {
	if s.index == nil {
		return nil
	}
	return s.index.Keys()
}

// Stats returns statistics about the store
func (s *Store) Stats() Stats {
	res := s.stats
	if s.log != nil {
		res.update(s.index, s.log.Size())
	}
	return res
}

// Close closes the log file. It's safe to call multiple times.
func (s *Store) Close() error {
	if s == nil || s.log == nil {
		return nil
	}
	err := s.log.Close()
	s.log = nil
	s.index = nil
	return err
}

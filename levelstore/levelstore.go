// Package levelstore implements kvs.Engine on top of goleveldb.
//
// It's an alternative to the log-structured kvs.Store with the same
// semantics: Get of a missing key is not an error, Remove of a
// missing key returns kvs.ErrKeyNotFound and keys and values must be
// valid utf-8.
package levelstore

import (
	"errors"
	"fmt"

	"github.com/kjk/kvs/kvs"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

type Store struct {
	db   *leveldb.DB
	path string
	wo   *opt.WriteOptions
}

var _ kvs.Engine = &Store{}

// Open opens (creating if needed) leveldb database in directory path.
// Writes are synced to disk.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &Store{
		db:   db,
		path: path,
		wo:   &opt.WriteOptions{Sync: true},
	}, nil
}

// OpenMem opens a leveldb database that only lives in memory
func OpenMem() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory leveldb: %w", err)
	}
	return &Store{
		db: db,
	}, nil
}

// OpenEngine is a kvs.OpenFunc
func OpenEngine(path string) (kvs.Engine, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Set(key string, value string) error {
	if s.db == nil {
		return kvs.ErrClosed
	}
	if err := kvs.ValidateKeyValue(key, value); err != nil {
		return err
	}
	if err := s.db.Put([]byte(key), []byte(value), s.wo); err != nil {
		return fmt.Errorf("failed to write key '%s': %w", key, err)
	}
	return nil
}

func (s *Store) Get(key string) (string, bool, error) {
	if s.db == nil {
		return "", false, kvs.ErrClosed
	}
	v, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key '%s': %w", key, err)
	}
	return string(v), true, nil
}

func (s *Store) Remove(key string) error {
	if s.db == nil {
		return kvs.ErrClosed
	}
	has, err := s.db.Has([]byte(key), nil)
	if err != nil {
		return fmt.Errorf("failed to read key '%s': %w", key, err)
	}
	if !has {
		return fmt.Errorf("%w: '%s'", kvs.ErrKeyNotFound, key)
	}
	if err = s.db.Delete([]byte(key), s.wo); err != nil {
		return fmt.Errorf("failed to delete key '%s': %w", key, err)
	}
	return nil
}

// Keys returns all keys in sorted order
func (s *Store) Keys() ([]string, error) {
	if s.db == nil {
		return nil, kvs.ErrClosed
	}
	var res []string
	iter := s.db.NewIterator(nil, nil)
	for iter.Next() {
		res = append(res, string(iter.Key()))
	}
	iter.Release()
	return res, iter.Error()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

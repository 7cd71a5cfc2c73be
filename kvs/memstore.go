package kvs

import "fmt"

// MemStore is a non-persistent Engine backed by a map
type MemStore struct {
	m map[string]string
}

var _ Engine = &MemStore{}

func NewMemStore() *MemStore {
	return &MemStore{
		m: map[string]string{},
	}
}

func (s *MemStore) Set(key string, value string) error {
	if err := ValidateKeyValue(key, value); err != nil {
		return err
	}
	s.m[key] = value
	return nil
}

func (s *MemStore) Get(key string) (string, bool, error) {
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemStore) Remove(key string) error {
	if _, ok := s.m[key]; !ok {
		return fmt.Errorf("%w: '%s'", ErrKeyNotFound, key)
	}
	delete(s.m, key)
	return nil
}

func (s *MemStore) Close() error {
	return nil
}

package kvs

// Engine is implemented by all key/value store variants
type Engine interface {
	// Set sets the value of a key, overwriting the previous value
	Set(key string, value string) error
	// Get returns the value of a key, ok is false if the key doesn't exist
	Get(key string) (value string, ok bool, err error)
	// Remove removes a key, returns ErrKeyNotFound if the key doesn't exist
	Remove(key string) error
	Close() error
}

// OpenFunc opens a persistent Engine at path
type OpenFunc func(path string) (Engine, error)

// OpenEngine is an OpenFunc for the log-structured Store
func OpenEngine(path string) (Engine, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

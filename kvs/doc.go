// Package kvs implements a persistent key/value store backed by an
// append-only log.
//
// Every Set and Remove appends one JSON record to the log file:
//
//	{"key":"a","value":"1","op":"set"}
//	{"key":"a","value":null,"op":"delete"}
//
// An in-memory index maps each key to the offset of its most recent
// record. Open rebuilds the index by replaying the whole log. A record
// that fails to decode makes Open fail with *CorruptLogError: we never
// skip records, because the index would silently disagree with the log.
//
// The log is never compacted, it grows with every write.
//
// # Basic Usage
//
//	s, err := kvs.Open("db.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	err = s.Set("name", "John Doe")
//	v, ok, err := s.Get("name")
//	err = s.Remove("name")
//	if errors.Is(err, kvs.ErrKeyNotFound) {
//	    // ...
//	}
//
// Get of a missing key is not an error, it returns ok == false.
//
// # Variants
//
// Store, MemStore and levelstore.Store implement Engine and are
// interchangeable for callers.
//
// # Thread Safety
//
// A Store is not safe for concurrent use. Opening the same log file
// from more than one Store (in one or many processes) is not supported:
// each Store would have an index that doesn't know about the other's writes.
package kvs

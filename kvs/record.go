package kvs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Record is a single entry in the log.
// Value is nil for OpDelete records (tombstones).
type Record struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
	Op    Op      `json:"op"`
}

func NewSetRecord(key, value string) *Record {
	return &Record{
		Key:   key,
		Value: &value,
		Op:    OpSet,
	}
}

func NewDeleteRecord(key string) *Record {
	return &Record{
		Key: key,
		Op:  OpDelete,
	}
}

func (r *Record) validate() error {
	if r.Key == "" {
		return fmt.Errorf("key is empty")
	}
	// json would silently replace invalid utf-8 and break the round-trip
	if !utf8.ValidString(r.Key) {
		return fmt.Errorf("key is not valid utf-8")
	}
	if r.Value != nil && !utf8.ValidString(*r.Value) {
		return fmt.Errorf("value for key '%s' is not valid utf-8", r.Key)
	}
	switch r.Op {
	case OpSet:
		if r.Value == nil {
			return fmt.Errorf("set record for key '%s' has no value", r.Key)
		}
	case OpDelete:
		if r.Value != nil {
			return fmt.Errorf("delete record for key '%s' has a value", r.Key)
		}
	default:
		return fmt.Errorf("unknown op '%s'", r.Op)
	}
	return nil
}

// ValidateKeyValue returns an error if key and value can't be stored:
// key must not be empty and both must be valid utf-8
func ValidateKeyValue(key string, value string) error {
	return NewSetRecord(key, value).validate()
}

// Equal returns true if both records have the same key, op and value
func (r *Record) Equal(other *Record) bool {
	if r.Key != other.Key || r.Op != other.Op {
		return false
	}
	if r.Value == nil || other.Value == nil {
		return r.Value == nil && other.Value == nil
	}
	return *r.Value == *other.Value
}

// EncodeRecord serializes r as a single line of JSON, including the terminating '\n'
func EncodeRecord(r *Record) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// keep keys and values human-readable in the log file
	enc.SetEscapeHTML(false)
	// Encode adds a newline
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRecord parses a line created with EncodeRecord.
// The trailing newline is optional.
// Returned error wraps ErrCorruptRecord.
func DecodeRecord(d []byte) (*Record, error) {
	d = bytes.TrimSuffix(d, []byte{'\n'})
	if len(d) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrCorruptRecord)
	}
	if bytes.IndexByte(d, '\n') != -1 {
		return nil, fmt.Errorf("%w: more than one line", ErrCorruptRecord)
	}
	dec := json.NewDecoder(bytes.NewReader(d))
	dec.DisallowUnknownFields()
	rec := &Record{}
	if err := dec.Decode(rec); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptRecord, err)
	}
	if rest := bytes.TrimSpace(d[dec.InputOffset():]); len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data after record", ErrCorruptRecord)
	}
	if err := checkFieldNames(d); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptRecord, err)
	}
	if err := rec.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptRecord, err)
	}
	return rec, nil
}

// json.Decoder matches field names case-insensitively, we want exact names
func checkFieldNames(d []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d, &fields); err != nil {
		return err
	}
	for name := range fields {
		switch name {
		case "key", "value", "op":
		default:
			return fmt.Errorf("unknown field '%s'", name)
		}
	}
	return nil
}

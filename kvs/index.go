package kvs

import (
	"maps"
	"slices"
)

// Index maps a key to the offset of the most recent record for that key
type Index struct {
	offsets map[string]int64
}

func NewIndex() *Index {
	return &Index{
		offsets: map[string]int64{},
	}
}

func (idx *Index) Put(key string, offset int64) {
	idx.offsets[key] = offset
}

func (idx *Index) Remove(key string) {
	delete(idx.offsets, key)
}

func (idx *Index) Get(key string) (int64, bool) {
	off, ok := idx.offsets[key]
	return off, ok
}

func (idx *Index) Clear() {
	clear(idx.offsets)
}

func (idx *Index) Len() int {
	return len(idx.offsets)
}

// Keys returns keys in sorted order
func (idx *Index) Keys() []string {
	return slices.Sorted(maps.Keys(idx.offsets))
}

// Equal returns true if both indexes map the same keys to the same offsets
func (idx *Index) Equal(other *Index) bool {
	return maps.Equal(idx.offsets, other.offsets)
}

package levelstore

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/kvs/kvs"
)

func TestSetGetRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leveldb")
	s, err := Open(path)
	assert.NoError(t, err)

	_, ok, err := s.Get("a")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Set("a", "1"))
	assert.NoError(t, s.Set("b", "2"))
	assert.NoError(t, s.Set("a", "3"))
	assert.Error(t, s.Set("", "v"))
	assert.Error(t, s.Set("bad\xffkey", "v"))
	assert.Error(t, s.Set("k", "bad\xffvalue"))
	assert.NoError(t, s.Remove("b"))
	err = s.Remove("b")
	assert.True(t, errors.Is(err, kvs.ErrKeyNotFound), "got %v", err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	s, err = Open(path)
	assert.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get("a")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	keys, err := s.Keys()
	assert.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}

// leveldb is used as an oracle for the log-structured store
func TestMatchesLogStore(t *testing.T) {
	ldb, err := OpenMem()
	assert.NoError(t, err)
	defer ldb.Close()
	path := filepath.Join(t.TempDir(), "db.db")
	var ls kvs.Engine
	ls, err = kvs.OpenEngine(path)
	assert.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := range 1000 {
		key := fmt.Sprintf("key-%d", rng.Intn(30))
		switch rng.Intn(3) {
		case 0:
			err1 := ls.Remove(key)
			err2 := ldb.Remove(key)
			assert.Equal(t, errors.Is(err2, kvs.ErrKeyNotFound), errors.Is(err1, kvs.ErrKeyNotFound))
		default:
			v := fmt.Sprintf("v%d", i)
			assert.NoError(t, ls.Set(key, v))
			assert.NoError(t, ldb.Set(key, v))
		}
		if i%250 == 249 {
			assert.NoError(t, ls.Close())
			ls, err = kvs.OpenEngine(path)
			assert.NoError(t, err)
		}
	}
	defer ls.Close()

	keys, err := ldb.Keys()
	assert.NoError(t, err)
	assert.Equal(t, keys, ls.(*kvs.Store).Keys())
	for i := range 30 {
		key := fmt.Sprintf("key-%d", i)
		v1, ok1, err := ls.Get(key)
		assert.NoError(t, err)
		v2, ok2, err := ldb.Get(key)
		assert.NoError(t, err)
		assert.Equal(t, ok2, ok1, "key '%s'", key)
		assert.Equal(t, v2, v1, "key '%s'", key)
	}
}

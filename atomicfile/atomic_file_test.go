package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func assertFileExists(t *testing.T, path string) {
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file '%s' doesn't exist, os.Stat() failed with '%s'", path, err)
	}
	if !st.Mode().IsRegular() {
		t.Fatalf("Path '%s' exists but is not a file (mode: %d)", path, int(st.Mode()))
	}
}

func assertFileNotExists(t *testing.T, path string) {
	_, err := os.Stat(path)
	if err == nil {
		t.Fatalf("file '%s' exist, expected to not exist", path)
	}
}

func assertNoError(t *testing.T, err error) {
	if err != nil {
		t.Fatalf("error: %s", err)
	}
}

func assertFileContent(t *testing.T, path string, exp string) {
	d, err := os.ReadFile(path)
	assertNoError(t, err)
	if string(d) != exp {
		t.Fatalf("path: '%s', expected content: %q, got: %q", path, exp, string(d))
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	assertNoError(t, err)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temporary file '%s' left in '%s'", e.Name(), dir)
		}
	}
}

func TestSimulateError(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "db.db")
	f, err := New(dst)
	assertNoError(t, err)
	assertFileExists(t, f.tmpPath)
	_, err = f.Write([]byte("foo"))
	assertNoError(t, err)
	errSimulated := errors.New("simulated")
	f.err = errSimulated
	err = f.Close()
	if err != errSimulated {
		t.Fatalf("got unexpected error %v", err)
	}
	assertFileNotExists(t, f.tmpPath)
	assertFileNotExists(t, dst)
	// on second Close() should get the same error
	if err = f.Close(); err != errSimulated {
		t.Fatalf("got unexpected error %v", err)
	}
}

func writeWithPanic(t *testing.T, f *File) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected to panic")
		}
	}()
	defer f.Cancel()

	_, err := f.Write([]byte("foo"))
	assertNoError(t, err)
	panic("simulating a crash")
}

func TestCancelOnPanic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "db.db")
	assertNoError(t, os.WriteFile(dst, []byte("old"), 0644))
	f, err := New(dst)
	assertNoError(t, err)
	writeWithPanic(t, f)
	assertFileNotExists(t, f.tmpPath)
	assertFileContent(t, dst, "old")
	assertNoTempFiles(t, dir)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "db.db")
	{
		f, err := New(dst)
		assertNoError(t, err)
		assertFileNotExists(t, dst)
		assertNoError(t, f.Close())
		assertFileContent(t, dst, "")
		assertFileNotExists(t, f.tmpPath)
	}
	{
		f, err := New(dst)
		assertNoError(t, err)
		_, err = f.WriteString("new ")
		assertNoError(t, err)
		n, err := f.ReadFrom(strings.NewReader("content"))
		assertNoError(t, err)
		if n != 7 {
			t.Fatalf("expected 7 bytes, got %d", n)
		}
		// destination is not touched until Close
		assertFileContent(t, dst, "")
		assertNoError(t, f.Close())
		assertFileContent(t, dst, "new content")
		// calling Close twice is a no-op
		assertNoError(t, f.Close())
		// Cancel after Close is a no-op
		f.Cancel()
		assertFileContent(t, dst, "new content")
	}
	{
		f, err := New(dst)
		assertNoError(t, err)
		f.Cancel()
		if _, err = f.Write([]byte("x")); err != ErrCancelled {
			t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
		}
		if err = f.Close(); err != ErrCancelled {
			t.Fatalf("expected err to be %v, got %v", ErrCancelled, err)
		}
		assertFileContent(t, dst, "new content")
	}
	assertNoTempFiles(t, dir)

	// fail early if the directory doesn't exist
	f, err := New(filepath.Join(dir, "foo", "bar.txt"))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if f != nil {
		t.Fatalf("expected f to be nil, got %v", f)
	}
}

func TestWriteFrom(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "db.db")
	n, err := WriteFrom(dst, strings.NewReader("hello"))
	assertNoError(t, err)
	if n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}
	assertFileContent(t, dst, "hello")
	assertNoTempFiles(t, dir)
}

func TestNoReplace(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "db.db")

	f, err := NewNoReplace(dst)
	assertNoError(t, err)
	_, err = f.WriteString("new")
	assertNoError(t, err)
	assertNoError(t, f.Close())
	assertFileContent(t, dst, "new")
	assertNoTempFiles(t, dir)

	// dst is created after the temp file, before Close()
	f, err = NewNoReplace(dst + "2")
	assertNoError(t, err)
	_, err = f.WriteString("newer")
	assertNoError(t, err)
	assertNoError(t, os.WriteFile(dst+"2", []byte("existing"), 0644))
	err = f.Close()
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}
	assertFileContent(t, dst+"2", "existing")
	assertNoTempFiles(t, dir)
	// Close() is sticky
	if !errors.Is(f.Close(), os.ErrExist) {
		t.Fatalf("expected os.ErrExist from second Close()")
	}
}

package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to Cancel()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// File is written to a temporary file in the destination directory
// and renamed to the destination path on successful Close().
// Readers of the destination path see either the old content or
// the complete new content, never a partial write.
type File struct {
	dstPath string
	dir     string
	tmpPath string
	tmpFile *os.File
	// if true, Close() fails instead of replacing an existing dstPath
	noReplace bool
	// first error we encountered, sticky
	err error
}

// New creates a File that will be renamed to path on Close()
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmpFile, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmpPath: tmpFile.Name(),
		tmpFile: tmpFile,
	}, nil
}

// NewNoReplace is like New but Close() fails with an error matching
// os.ErrExist if path exists at that time. Existing path is never replaced.
// It needs a file system that supports hard links.
func NewNoReplace(path string) (*File, error) {
	f, err := New(path)
	if err != nil {
		return nil, err
	}
	f.noReplace = true
	return f, nil
}

func (f *File) setErr(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	// removes the temporary file
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.setErr(err)
}

func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// ReadFrom copies r to the file
func (f *File) ReadFrom(r io.Reader) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := io.Copy(f.tmpFile, r)
	return n, f.setErr(err)
}

// Cancel removes the temporary file if Close() wasn't called yet.
// The destination file is not touched.
// Use with defer for cleanup on error paths; after Close() it's a no-op.
func (f *File) Cancel() {
	if f == nil || f.tmpFile == nil {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs the temporary file and renames it to the destination path.
// On any earlier error the temporary file is removed instead.
// Can be called multiple times, returns the first error.
func (f *File) Close() error {
	if f.tmpFile == nil {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		if f.noReplace {
			// link fails if dstPath exists, temp file is removed by defer
			err = os.Link(f.tmpPath, f.dstPath)
		} else {
			err = os.Rename(f.tmpPath, f.dstPath)
			renamed = err == nil
		}
	}
	if err == nil {
		// make the rename durable. errors are not fatal
		if d, _ := os.Open(f.dir); d != nil {
			_ = d.Sync()
			_ = d.Close()
		}
	}
	f.err = err
	return err
}

// WriteFrom atomically writes content of r to path
func WriteFrom(path string, r io.Reader) (int64, error) {
	f, err := New(path)
	if err != nil {
		return 0, err
	}
	defer f.Cancel()
	n, err := f.ReadFrom(r)
	if err != nil {
		return n, err
	}
	return n, f.Close()
}

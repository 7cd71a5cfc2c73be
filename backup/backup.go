// Package backup copies a kvs log file into a (possibly compressed) archive
// and restores a log from such an archive.
//
// Compression is picked from the archive's extension: .gz, .zst (.zstd),
// .br or none. The live log itself is never compressed.
//
// Backups are taken offline: a store must not be writing to the log
// while Create runs.
package backup

import (
	"bufio"
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/kjk/kvs/atomicfile"
	"github.com/kjk/kvs/kvs"
	"github.com/kjk/kvs/log"
	"github.com/kjk/kvs/u"
)

// called by Restore after the copy, before the restored log is committed
var testHookBeforeCommit func()

// Info describes the uncompressed log that was backed up or restored
type Info struct {
	Size int64
	Sha1 string
	// number of records, only set by Restore
	Records int
	// compression used by the archive
	Compression u.Compression
}

type countingHash struct {
	h hash.Hash
	n int64
}

func (c *countingHash) Write(d []byte) (int, error) {
	c.n += int64(len(d))
	return c.h.Write(d)
}

func (c *countingHash) info(compression u.Compression) *Info {
	return &Info{
		Size:        c.n,
		Sha1:        fmt.Sprintf("%x", c.h.Sum(nil)),
		Compression: compression,
	}
}

// Create writes the log at logPath to archive at dstPath.
// dstPath is only created if the whole log was copied successfully.
func Create(logPath string, dstPath string) (*Info, error) {
	src, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err = os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return nil, err
	}
	dst, err := atomicfile.New(dstPath)
	if err != nil {
		return nil, err
	}
	defer dst.Cancel()

	compression := u.CompressionForPath(dstPath)
	w, err := u.NewCompressingWriter(dst, compression)
	if err != nil {
		return nil, err
	}
	ch := &countingHash{h: sha1.New()}
	if _, err = io.Copy(w, io.TeeReader(src, ch)); err != nil {
		return nil, fmt.Errorf("failed to copy '%s' to '%s': %w", logPath, dstPath, err)
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	if err = dst.Close(); err != nil {
		return nil, err
	}
	info := ch.info(compression)
	log.Verbosef("backup: '%s' => '%s', %d bytes, sha1: %s\n", logPath, dstPath, info.Size, info.Sha1)
	log.Event("kvs.backup", "log", logPath, "archive", dstPath, "size", info.Size, "sha1", info.Sha1)
	return info, nil
}

// Restore re-creates a log at logPath from archive at srcPath.
// It refuses to overwrite an existing logPath.
// Every record is decoded before it's written: a corrupt archive fails
// with *kvs.CorruptLogError and leaves no file at logPath.
func Restore(srcPath string, logPath string) (*Info, error) {
	if u.PathExists(logPath) {
		return nil, fmt.Errorf("restore to '%s': %w", logPath, os.ErrExist)
	}
	rc, err := u.OpenFileMaybeCompressed(srcPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if err = os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	// logPath can be created while we copy, Close() won't replace it
	dst, err := atomicfile.NewNoReplace(logPath)
	if err != nil {
		return nil, err
	}
	defer dst.Cancel()

	ch := &countingHash{h: sha1.New()}
	w := io.MultiWriter(dst, ch)
	r := bufio.NewReader(rc)
	nRecords := 0
	for {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				return nil, &kvs.CorruptLogError{
					Path:   srcPath,
					Offset: ch.n,
					Err:    fmt.Errorf("%w: no newline after offset %d", kvs.ErrTruncatedRecord, ch.n),
				}
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read '%s': %w", srcPath, err)
		}
		if _, err = kvs.DecodeRecord(line); err != nil {
			return nil, &kvs.CorruptLogError{
				Path:   srcPath,
				Offset: ch.n,
				Err:    err,
			}
		}
		if _, err = w.Write(line); err != nil {
			return nil, err
		}
		nRecords++
	}
	if testHookBeforeCommit != nil {
		testHookBeforeCommit()
	}
	if err = dst.Close(); err != nil {
		return nil, fmt.Errorf("restore to '%s': %w", logPath, err)
	}
	info := ch.info(u.CompressionForPath(srcPath))
	info.Records = nRecords
	log.Verbosef("backup: restored '%s' => '%s', %d records\n", srcPath, logPath, nRecords)
	log.Event("kvs.restore", "archive", srcPath, "log", logPath, "records", nRecords, "sha1", info.Sha1)
	return info, nil
}

package kvs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kjk/kvs/appendlog"
	"github.com/tidwall/pretty"
)

type DumpOptions struct {
	// indent JSON of each record
	Pretty bool
	// colorize JSON for terminal output, implies Pretty
	Color bool
}

// Dump writes every record of the log at path to w as:
// <offset> <json>
// Records are decoded before printing so a corrupt record stops the dump
// with *CorruptLogError.
func Dump(w io.Writer, path string, opts *DumpOptions) error {
	if opts == nil {
		opts = &DumpOptions{}
	}
	lines, errFn := appendlog.ScanFile(path)
	var dumpErr error
	var end int64
	for line := range lines {
		if _, err := DecodeRecord(line.Data); err != nil {
			dumpErr = &CorruptLogError{
				Path:   path,
				Offset: line.Offset,
				Err:    err,
			}
			break
		}
		end = line.Offset + int64(len(line.Data))
		d := line.Data
		if opts.Pretty || opts.Color {
			d = pretty.Pretty(d)
		}
		if opts.Color {
			d = pretty.Color(d, pretty.TerminalStyle)
		}
		d = bytes.TrimSuffix(d, []byte{'\n'})
		if _, dumpErr = fmt.Fprintf(w, "%d %s\n", line.Offset, d); dumpErr != nil {
			break
		}
	}
	if dumpErr != nil {
		return dumpErr
	}
	return scanErr(path, end, errFn())
}

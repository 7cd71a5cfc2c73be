// Package appendlog implements an append-only file of newline-terminated
// records.
//
// Records are opaque to this package: a record is any line that ends
// with '\n' and doesn't contain other newlines. The offset at which a
// record was written never changes: the file is only ever appended to.
//
// # Basic Usage
//
//	l, err := appendlog.Open("data/db.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	off, err := l.Append([]byte("first record\n"))
//	d, err := l.ReadAt(off)
//
//	lines, errFn := l.Scan()
//	for line := range lines {
//	    fmt.Printf("%d: %s", line.Offset, line.Data)
//	}
//	if err := errFn(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Durability
//
// By default Append calls Sync on the file before returning. Set
// NoSync to trade durability of the most recent appends for speed.
//
// # Thread Safety
//
// A Log is not safe for concurrent use. Opening the same file from
// multiple Log values (or processes) is not supported.
package appendlog

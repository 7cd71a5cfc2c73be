package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/toon-format/toon-go"
)

var (
	log       *WriteDaily
	eventsLog *WriteDaily
	output    io.Writer = os.Stdout

	// if true, Verbosef() will log messages
	Verbose bool
)

type WriteDaily struct {
	Dir         string
	currentDate int // YYYYMMDD format
	file        *os.File
	mu          sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// WriteString writes a string to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

// dayFromTime converts a time.Time to YYYYMMDD integer format
func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Writer returns an io.Writer for today's log file
// it creates a new file if needed
func (w *WriteDaily) Writer() (io.Writer, error) {
	if w == nil {
		return nil, fmt.Errorf("w is nil")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	today := dayFromTime(now)

	if w.file != nil && w.currentDate != today {
		if err := w.close(); err != nil {
			return nil, err
		}
	}

	if w.file == nil {
		filename := filepath.Join(w.Dir, now.Format("2006-01-02")+".txt")
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w.file = f
		w.currentDate = today
	}
	return w.file, nil
}

// Write writes data to the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	wr, err := w.Writer()
	if err != nil {
		return err
	}
	_, err = wr.Write(d)
	return err
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.currentDate = 0
	return err
}

// Close closes the daily log file
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.close()
}

// Sync flushes the daily log file to disk
// it's safe to call on nil receiver
func (w *WriteDaily) Sync() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}

type Config struct {
	// directory where log files are stored, in "log" and "events" sub-directories
	// if empty, we only log to Output
	Dir string
	// where Logf() prints, os.Stdout if nil
	Output io.Writer
}

// Init initializes the logging system
func Init(config *Config) {
	Close()
	output = os.Stdout
	if config.Output != nil {
		output = config.Output
	}
	if config.Dir == "" {
		return
	}
	log = NewWriteDaily(filepath.Join(config.Dir, "log"))
	// doesn't create a file until first event
	eventsLog = NewWriteDaily(filepath.Join(config.Dir, "events"))
}

// closeWriteDaily closes the WriteDaily and sets its pointer to nil
// it's safe to call with nil pointer
func closeWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	(*wd).Sync()
	(*wd).Close()
	*wd = nil
}

func Close() {
	closeWriteDaily(&log)
	closeWriteDaily(&eventsLog)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Fprint(output, s)
	log.WriteString(s)
}

func callstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		s := frame.File + ":" + strconv.Itoa(frame.Line)
		cs = append(cs, s)
	}
	return cs
}

func callstack(skip int) string {
	frames := callstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := callstack(1)
	Logf("%s\n%s\n", s, cs)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

// simpleTypeToStr converts simple types to string
func simpleTypeToStr(v any) (string, error) {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return "", fmt.Errorf("key is nil")
	}
	kind := rt.Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		return "", fmt.Errorf("key is of kind %v", kind)
	case reflect.String:
		return v.(string), nil
	}
	return fmt.Sprint(v), nil
}

// FormatEvent returns a single event line:
// <name> <unix ms> <toon-encoded vals>\n
// toon output is multi-line so newlines are replaced with "; "
func FormatEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("odd number of vals: %d", n)
	}
	var buf strings.Builder
	buf.WriteString(name)
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k, err := simpleTypeToStr(vals[i])
			if err != nil {
				return nil, err
			}
			m[k] = vals[i+1]
		}
		d, err := toon.Marshal(m)
		if err != nil {
			return nil, err
		}
		s := strings.TrimSpace(string(d))
		s = strings.ReplaceAll(s, "\n", "; ")
		buf.WriteByte(' ')
		buf.WriteString(s)
	}
	buf.WriteByte('\n')
	return []byte(buf.String()), nil
}

// Event logs event with key/value pairs to events log
// it's a no-op if Init() wasn't called with Dir
func Event(name string, vals ...any) {
	if eventsLog == nil {
		return
	}
	d, err := FormatEvent(name, time.Now().UTC(), vals...)
	if err != nil {
		Errorf("Event('%s'): %s", name, err)
		return
	}
	IfErrf(eventsLog.Write(d))
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}

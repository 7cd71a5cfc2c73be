// kvs is a command-line interface to a log-structured key/value store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kjk/kvs/backup"
	"github.com/kjk/kvs/config"
	"github.com/kjk/kvs/kvs"
	"github.com/kjk/kvs/levelstore"
	"github.com/kjk/kvs/log"
	"github.com/kjk/kvs/u"
)

const usage = `usage: kvs [flags] <command> [args]

commands:
  set <key> <value>               set value of a key
  get <key>                       print value of a key
  rm <key>                        remove a key
  keys                            print all keys
  stats                           print statistics about the store
  dump                            print every record of the log
  verify                          check that the log is not corrupted
  backup <archive>                copy the log to archive (.gz, .zst, .br)
  restore <archive>               create the log from archive
  upload <archive> <remote-key>   upload archive to remote storage
  download <remote-key> <archive> download archive from remote storage

flags:
`

// number of arguments for each command
var commandArgs = map[string]int{
	"set":      2,
	"get":      1,
	"rm":       1,
	"keys":     0,
	"stats":    0,
	"dump":     0,
	"verify":   0,
	"backup":   1,
	"restore":  1,
	"upload":   2,
	"download": 2,
}

type app struct {
	cfg    *config.Config
	pretty bool
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var flgPath, flgEngine, flgConfig, flgLogDir string
	var flgNoSync, flgVerbose, flgPretty bool
	fs := flag.NewFlagSet("kvs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&flgPath, "path", "", "path of the store (default \""+kvs.DefaultPath+"\")")
	fs.StringVar(&flgEngine, "engine", "", "storage engine: log or leveldb (default \"log\")")
	fs.StringVar(&flgConfig, "config", "", "path of YAML config file")
	fs.StringVar(&flgLogDir, "logdir", "", "directory for log files")
	fs.BoolVar(&flgNoSync, "nosync", false, "don't sync the log after every write")
	fs.BoolVar(&flgVerbose, "v", false, "verbose logging")
	fs.BoolVar(&flgPretty, "pretty", false, "pretty-print records in dump")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg := config.Default()
	if flgConfig != "" {
		var err error
		cfg, err = config.LoadConfig(flgConfig)
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return 1
		}
	}
	// flags override the config file
	if flgPath != "" {
		cfg.Store.Path = flgPath
	}
	if flgEngine != "" {
		cfg.Store.Engine = flgEngine
	}
	if flgLogDir != "" {
		cfg.Logging.Dir = flgLogDir
	}
	cfg.Store.NoSync = cfg.Store.NoSync || flgNoSync
	cfg.Logging.Verbose = cfg.Logging.Verbose || flgVerbose
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 1
	}
	cmd := rest[0]
	nArgs, ok := commandArgs[cmd]
	if !ok {
		fmt.Fprintf(stderr, "unknown command '%s'\n", cmd)
		fs.Usage()
		return 1
	}
	if len(rest)-1 != nArgs {
		fmt.Fprintf(stderr, "'%s' expects %d argument(s), got %d\n", cmd, nArgs, len(rest)-1)
		return 1
	}

	log.Init(&log.Config{
		Dir:    cfg.Logging.Dir,
		Output: stderr,
	})
	defer log.Close()
	log.Verbose = cfg.Logging.Verbose

	a := &app{
		cfg:    cfg,
		pretty: flgPretty,
		stdout: stdout,
		stderr: stderr,
	}
	timeStart := time.Now()
	code, err := a.runCommand(cmd, rest[1:])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		log.Event("kvs.cmd.error", "cmd", cmd, "error", err.Error())
		return 1
	}
	log.EventWithDuration("kvs.cmd", time.Since(timeStart), "cmd", cmd, "engine", cfg.Store.Engine)
	return code
}

func (a *app) openEngine() (kvs.Engine, error) {
	sc := a.cfg.Store
	switch sc.Engine {
	case config.EngineLevelDB:
		return levelstore.OpenEngine(sc.Path)
	case config.EngineLog:
		s := &kvs.Store{
			Path:   sc.Path,
			NoSync: sc.NoSync,
		}
		if err := kvs.OpenStore(s); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown engine '%s'", sc.Engine)
}

func (a *app) needLogEngine(cmd string) error {
	if a.cfg.Store.Engine != config.EngineLog {
		return fmt.Errorf("'%s' is only supported by the '%s' engine", cmd, config.EngineLog)
	}
	return nil
}

func (a *app) withEngine(fn func(kvs.Engine) (int, error)) (code int, err error) {
	e, err := a.openEngine()
	if err != nil {
		return 1, err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil && err == nil {
			code, err = 1, cerr
		}
	}()
	return fn(e)
}

func (a *app) runCommand(cmd string, args []string) (int, error) {
	switch cmd {
	case "set":
		return a.withEngine(func(e kvs.Engine) (int, error) {
			return 0, e.Set(args[0], args[1])
		})

	case "get":
		return a.withEngine(func(e kvs.Engine) (int, error) {
			v, ok, err := e.Get(args[0])
			if err != nil {
				return 1, err
			}
			if !ok {
				fmt.Fprintln(a.stdout, "Key not found")
				return 0, nil
			}
			fmt.Fprintln(a.stdout, v)
			return 0, nil
		})

	case "rm":
		return a.withEngine(func(e kvs.Engine) (int, error) {
			err := e.Remove(args[0])
			if errors.Is(err, kvs.ErrKeyNotFound) {
				fmt.Fprintln(a.stdout, "Key not found")
				return 1, nil
			}
			return 0, err
		})

	case "keys":
		return a.withEngine(func(e kvs.Engine) (int, error) {
			var keys []string
			switch s := e.(type) {
			case *kvs.Store:
				keys = s.Keys()
			case *levelstore.Store:
				var err error
				if keys, err = s.Keys(); err != nil {
					return 1, err
				}
			default:
				u.PanicIf(true, "unexpected engine type %T", e)
			}
			for _, k := range keys {
				fmt.Fprintln(a.stdout, k)
			}
			return 0, nil
		})

	case "stats":
		if err := a.needLogEngine(cmd); err != nil {
			return 1, err
		}
		return a.withEngine(func(e kvs.Engine) (int, error) {
			st := e.(*kvs.Store).Stats()
			fmt.Fprintf(a.stdout, "records: %d\nkeys: %d\nstale records: %d\nsize: %d\n", st.Records, st.LiveKeys, st.StaleRecords, st.LogSize)
			return 0, nil
		})

	case "dump":
		if err := a.needLogEngine(cmd); err != nil {
			return 1, err
		}
		opts := &kvs.DumpOptions{
			Pretty: a.pretty,
		}
		return 0, kvs.Dump(a.stdout, a.cfg.Store.Path, opts)

	case "verify":
		if err := a.needLogEngine(cmd); err != nil {
			return 1, err
		}
		st, err := kvs.Verify(a.cfg.Store.Path)
		if err != nil {
			return 1, err
		}
		fmt.Fprintf(a.stdout, "ok: %d records, %d keys\n", st.Records, st.LiveKeys)
		return 0, nil

	case "backup":
		if err := a.needLogEngine(cmd); err != nil {
			return 1, err
		}
		info, err := backup.Create(a.cfg.Store.Path, args[0])
		if err != nil {
			return 1, err
		}
		fmt.Fprintf(a.stdout, "backed up %d bytes to '%s', sha1: %s\n", info.Size, args[0], info.Sha1)
		return 0, nil

	case "restore":
		if err := a.needLogEngine(cmd); err != nil {
			return 1, err
		}
		info, err := backup.Restore(args[0], a.cfg.Store.Path)
		if err != nil {
			return 1, err
		}
		fmt.Fprintf(a.stdout, "restored %d records to '%s'\n", info.Records, a.cfg.Store.Path)
		return 0, nil

	case "upload", "download":
		ctx := context.Background()
		r, err := backup.NewRemote(ctx, a.cfg.Remote.Backup())
		if err != nil {
			return 1, err
		}
		if cmd == "upload" {
			ui, err := r.Upload(ctx, args[0], args[1])
			if err != nil {
				return 1, err
			}
			fmt.Fprintf(a.stdout, "uploaded '%s' as '%s', %d bytes\n", args[0], args[1], ui.Size)
			return 0, nil
		}
		n, err := r.Download(ctx, args[0], args[1])
		if err != nil {
			return 1, err
		}
		fmt.Fprintf(a.stdout, "downloaded '%s' to '%s', %d bytes\n", args[0], args[1], n)
		return 0, nil
	}
	u.PanicIf(true, "unhandled command '%s'", cmd)
	return 1, nil
}

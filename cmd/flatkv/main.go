package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kjk/flatkv/log"
	"github.com/kjk/flatkv/store"
	"github.com/kjk/flatkv/u"
	"github.com/tidwall/pretty"
)

var errUsage = errors.New("invalid arguments")

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, `usage: flatkv -db <dir> [flags] <command> [args]

commands:
  demo                 insert and remove key test1, then flush (default)
  get <key>            print value of key
  set <key> <value>    set key to value
  rm <key>             remove key
  list [-json]         print all records
  stats                print number of records and size of data file
  dump <file>          export records to file (.zst, .br, .gz are compressed)
  restore <file>       import records from file created with dump

flags:
`)
	flag.PrintDefaults()
}

func needArgs(cmd string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: '%s' needs %d argument(s), got %d", errUsage, cmd, n, len(args))
	}
	return nil
}

// runDemo does what the first version of this program did on every run
func runDemo(w io.Writer, s *store.Store) error {
	printGet := func(key string) {
		v, ok := s.Get(key)
		if ok {
			fmt.Fprintf(w, "get %s: %s\n", key, v)
		} else {
			fmt.Fprintf(w, "get %s: not found\n", key)
		}
	}
	printGet("test1")
	if err := s.Insert("test1", "test2"); err != nil {
		return err
	}
	printGet("test1")
	if err := s.Remove("test1"); err != nil {
		return err
	}
	printGet("test1")
	return s.Flush()
}

func runList(w io.Writer, s *store.Store, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if !*asJSON {
		for _, k := range s.Keys() {
			v, _ := s.Get(k)
			fmt.Fprintf(w, "%q: %q\n", k, v)
		}
		return nil
	}
	m := map[string]string{}
	for _, k := range s.Keys() {
		m[k], _ = s.Get(k)
	}
	d, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(d))
	return err
}

func runDump(w io.Writer, s *store.Store, path string) error {
	f, err := u.CreateFileMaybeCompressed(path)
	if err != nil {
		return err
	}
	n, err := s.Export(f)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "dumped %d records to '%s' (%s)\n", n, path, u.FormatSize(u.FileSize(path)))
	return nil
}

func runRestore(w io.Writer, s *store.Store, path string) error {
	f, err := u.OpenFileMaybeCompressed(path)
	if err != nil {
		return err
	}
	defer u.CloseNoError(f)
	n, err := s.Import(f)
	if err != nil {
		return err
	}
	if err = s.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "restored %d records from '%s', store has %d records\n", n, path, s.Len())
	return nil
}

func runCommand(w io.Writer, dir string, opts *store.Options, cmd string, args []string) error {
	s, err := store.Open(dir, opts)
	if err != nil {
		return err
	}
	switch cmd {
	case "demo":
		return runDemo(w, s)
	case "get":
		if err = needArgs(cmd, args, 1); err != nil {
			return err
		}
		v, ok := s.Get(args[0])
		if !ok {
			return fmt.Errorf("key '%s' not found", args[0])
		}
		fmt.Fprintln(w, v)
		return nil
	case "set":
		if err = needArgs(cmd, args, 2); err != nil {
			return err
		}
		if err = s.Insert(args[0], args[1]); err != nil {
			return err
		}
		return s.Flush()
	case "rm":
		if err = needArgs(cmd, args, 1); err != nil {
			return err
		}
		if err = s.Remove(args[0]); err != nil {
			return err
		}
		return s.Flush()
	case "list":
		return runList(w, s, args)
	case "stats":
		size := u.FileSize(s.DataPath())
		if size < 0 {
			size = 0
		}
		fmt.Fprintf(w, "records: %d\ndata file: %s (%s)\nskipped lines: %d\n", s.Len(), s.DataPath(), u.FormatSize(size), s.Skipped())
		return nil
	case "dump":
		if err = needArgs(cmd, args, 1); err != nil {
			return err
		}
		return runDump(w, s, args[0])
	case "restore":
		if err = needArgs(cmd, args, 1); err != nil {
			return err
		}
		return runRestore(w, s, args[0])
	}
	return fmt.Errorf("%w: unknown command '%s'", errUsage, cmd)
}

// exitCode logs err (which also goes to the errors log) and returns
// process exit code: 0 on success, 2 for bad usage (like flag package), 1 otherwise
func exitCode(err error) int {
	if !log.IfErrf(err, "error: %s", err) {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}

func main() {
	var (
		flgDB      string
		flgLogDir  string
		flgVerbose bool
		flgStrict  bool
	)
	flag.StringVar(&flgDB, "db", "", "path to the store directory (must exist)")
	flag.StringVar(&flgLogDir, "log-dir", "", "if given, write logs and events to files in this directory")
	flag.BoolVar(&flgVerbose, "v", false, "verbose logging")
	flag.BoolVar(&flgStrict, "strict", false, "fail on malformed lines in data file instead of skipping them")
	flag.Usage = usage
	flag.Parse()

	if flgDB == "" {
		usage()
		os.Exit(2)
	}
	log.Verbose = flgVerbose
	log.Init(&log.Config{Dir: flgLogDir})

	cmd := "demo"
	args := flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	log.Verbosef("starting store in '%s', command: %s\n", flgDB, cmd)
	opts := &store.Options{Strict: flgStrict}
	err := runCommand(os.Stdout, flgDB, opts, cmd, args)
	code := exitCode(err)
	if code == 2 {
		usage()
	}
	log.Verbosef("shutting down\n")
	log.Close()
	os.Exit(code)
}

package store

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/kjk/flatkv/codec"
	"github.com/kjk/flatkv/log"
	"github.com/kjk/flatkv/u"
)

// DataFileName is the name of the file, inside store directory,
// that holds all records
const DataFileName = "data"

var (
	// ErrNotFound is returned by Open if directory doesn't exist
	// or is not a directory
	ErrNotFound = errors.New("store directory not found")
	// ErrIO wraps all errors from reading / writing files
	ErrIO = errors.New("i/o error")
	// ErrClosed is returned by mutating operations after Flush
	ErrClosed = errors.New("store is closed")
	// ErrMalformedRecord is a line in data file without a delimiter
	ErrMalformedRecord = codec.ErrMalformedRecord
)

func ioErr(op string, path string, err error) error {
	return fmt.Errorf("%w: %s '%s': %w", ErrIO, op, path, err)
}

// Options configures Open. The zero value (or nil) is lenient loading
// without a callback.
type Options struct {
	// if true, Open and Import fail on a line that can't be decoded.
	// By default such lines are logged and skipped
	Strict bool
	// called for every skipped line, lineNo is 1-based
	OnSkip func(lineNo int, line string, err error)
}

// Store is an in-memory map of strings persisted to <dir>/data.
// Mutations only change memory, Save and Flush re-write the data file.
// Store is not safe for concurrent use.
type Store struct {
	dir      string
	dataPath string
	opts     Options
	m        map[string]string
	skipped  int
	closed   bool
}

// Open loads a store from directory dir. dir must exist, it's never created.
// A missing data file means an empty store.
// opts can be nil.
func Open(dir string, opts *Options) (*Store, error) {
	if !u.DirExists(dir) {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, dir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, ioErr("resolve", dir, err)
	}
	s := &Store{
		dir:      absDir,
		dataPath: filepath.Join(absDir, DataFileName),
		m:        map[string]string{},
	}
	if opts != nil {
		s.opts = *opts
	}
	timeStart := time.Now()
	if err = s.load(); err != nil {
		return nil, err
	}
	dur := time.Since(timeStart)
	log.Verbosef("store.Open: loaded %d records from '%s' in %s\n", len(s.m), s.dataPath, dur)
	log.EventWithDuration("store_open", dur, "path", s.dataPath, "records", len(s.m), "skipped", s.skipped)
	return s, nil
}

// Dir returns absolute path of store directory
func (s *Store) Dir() string {
	return s.dir
}

// DataPath returns absolute path of the data file
func (s *Store) DataPath() string {
	return s.dataPath
}

// Skipped returns number of lines that couldn't be decoded
// during Open and Import
func (s *Store) Skipped() int {
	return s.skipped
}

// IsClosed returns true after a successful Flush
func (s *Store) IsClosed() bool {
	return s.closed
}

// Len returns number of records
func (s *Store) Len() int {
	return len(s.m)
}

// Keys returns all keys, sorted
func (s *Store) Keys() []string {
	return slices.Sorted(maps.Keys(s.m))
}

// Get returns value for a key. Works after Flush.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.m[key]
	log.Verbosef("store.Get: key: '%s' found: %v\n", key, ok)
	return v, ok
}

// Insert sets value for key, over-writing existing value
func (s *Store) Insert(key, value string) error {
	if s.closed {
		return ErrClosed
	}
	log.Verbosef("store.Insert: key: '%s' val: '%s'\n", key, value)
	s.m[key] = value
	return nil
}

// Remove deletes key. Removing a key that doesn't exist is not an error.
func (s *Store) Remove(key string) error {
	if s.closed {
		return ErrClosed
	}
	log.Verbosef("store.Remove: key: '%s'\n", key)
	delete(s.m, key)
	return nil
}

// writeRecords writes all records in data file format, sorted by key
func (s *Store) writeRecords(w io.Writer) (int, error) {
	var buf []byte
	keys := s.Keys()
	for _, k := range keys {
		buf = codec.AppendLine(buf[:0], k, s.m[k])
		if _, err := w.Write(buf); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// Save atomically replaces the data file with current records.
// If it fails, the previous data file is left as it was.
func (s *Store) Save() error {
	if s.closed {
		return ErrClosed
	}
	timeStart := time.Now()
	f, err := newSnapshotFile(s.dataPath)
	if err != nil {
		return ioErr("create", s.dataPath, err)
	}
	defer f.cancel()

	n, err := s.writeRecords(f)
	if err != nil {
		return ioErr("write", f.tmpPath, err)
	}
	if err = f.commit(); err != nil {
		return ioErr("replace", s.dataPath, err)
	}
	dur := time.Since(timeStart)
	log.Verbosef("store.Save: wrote %d records to '%s' in %s\n", n, s.dataPath, dur)
	log.EventWithDuration("store_save", dur, "path", s.dataPath, "records", n)
	return nil
}

// Flush saves the store and closes it. After Flush only Get
// and other read-only methods can be used.
// If Flush fails the store stays open so it can be retried.
func (s *Store) Flush() error {
	if err := s.Save(); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// Export writes all records, in data file format, to w.
// Returns number of records written
func (s *Store) Export(w io.Writer) (int, error) {
	bw := bufioWriter(w)
	n, err := s.writeRecords(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		return 0, fmt.Errorf("%w: export: %w", ErrIO, err)
	}
	return n, nil
}

// Import reads records in data file format from r and inserts them,
// over-writing existing values. Nothing is inserted if reading fails
// (or, in strict mode, if any line is malformed).
// Returns number of records imported
func (s *Store) Import(r io.Reader) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	m := map[string]string{}
	n, err := s.readRecords(r, "import", m)
	if err != nil {
		return 0, err
	}
	maps.Copy(s.m, m)
	log.Verbosef("store.Import: imported %d records\n", n)
	return n, nil
}

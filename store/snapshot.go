package store

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var errSnapshotCancelled = errors.New("snapshot cancelled")

// mode of a data file created by the first save
const defaultFileMode os.FileMode = 0644

// snapshotFile writes a new version of a file next to it and
// renames it over the destination only if everything was written.
// Until commit() succeeds the destination file is not touched.
type snapshotFile struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	w       *bufio.Writer
	err     error
}

func newSnapshotFile(dstPath string) (*snapshotFile, error) {
	dir, fName := filepath.Split(dstPath)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: dstPath, Err: os.ErrInvalid}
	}
	// must be in the same directory for rename to be atomic
	tmpFile, err := os.CreateTemp(dir, fName+".tmp-*")
	if err != nil {
		return nil, err
	}
	// CreateTemp uses 0600, keep permissions of the file we replace
	mode := defaultFileMode
	if st, err := os.Stat(dstPath); err == nil {
		mode = st.Mode().Perm()
	}
	if err = tmpFile.Chmod(mode); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, err
	}
	return &snapshotFile{
		dstPath: dstPath,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
		w:       bufio.NewWriterSize(tmpFile, 64*1024),
	}, nil
}

func (f *snapshotFile) closed() bool {
	return f.tmpFile == nil
}

func (f *snapshotFile) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.w.Write(d)
	if err != nil {
		// remember the first error, commit() will return it
		f.err = err
	}
	return n, err
}

// cancel removes the temporary file if commit() wasn't called.
// Meant to be used with defer, after commit() it's a no-op.
func (f *snapshotFile) cancel() {
	if f == nil || f.closed() {
		return
	}
	if f.err == nil {
		f.err = errSnapshotCancelled
	}
	_ = f.commit()
}

// commit flushes and syncs the temporary file and renames it over
// the destination. On any error the temporary file is deleted.
// Calling it more than once returns the result of the first call.
func (f *snapshotFile) commit() error {
	if f.closed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	var errFlush error
	if f.err == nil {
		errFlush = f.w.Flush()
	}
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	if f.err != nil {
		return f.err
	}

	err := errFlush
	if err == nil {
		err = errSync
	}
	if err == nil {
		err = errClose
	}
	if err == nil {
		// this will over-write dstPath (if it exists)
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = (err == nil)
	}
	if didRename {
		// make the rename durable. errors are ignored because
		// not all systems support syncing a directory
		if fdir, _ := os.Open(f.dir); fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return err
}

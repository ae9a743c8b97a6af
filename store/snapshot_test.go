package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func assertFileNotExists(t *testing.T, path string) {
	_, err := os.Stat(path)
	if err == nil {
		t.Fatalf("file '%s' exist, expected to not exist", path)
	}
}

func TestSnapshotCommit(t *testing.T) {
	dst := filepath.Join(t.TempDir(), DataFileName)
	f, err := newSnapshotFile(dst)
	assert.NoError(t, err)
	// not visible until commit
	assertFileNotExists(t, dst)
	_, err = f.Write([]byte("k||v\n"))
	assert.NoError(t, err)
	assertFileNotExists(t, dst)

	assert.NoError(t, f.commit())
	assertFileNotExists(t, f.tmpPath)
	assertFileContent(t, dst, "k||v\n")

	// calling commit twice is a no-op, cancel after commit too
	assert.NoError(t, f.commit())
	f.cancel()
	assertFileContent(t, dst, "k||v\n")
}

func TestSnapshotSimulatedError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), DataFileName)
	assert.NoError(t, os.WriteFile(dst, []byte("old||data\n"), 0644))

	f, err := newSnapshotFile(dst)
	assert.NoError(t, err)
	_, err = f.Write([]byte("new||data\n"))
	assert.NoError(t, err)
	errSimulated := errors.New("simulated")
	f.err = errSimulated

	_, err = f.Write([]byte("more"))
	assert.Equal(t, errSimulated, err)
	assert.Equal(t, errSimulated, f.commit())
	// same error on second call
	assert.Equal(t, errSimulated, f.commit())
	assertFileNotExists(t, f.tmpPath)
	assertFileContent(t, dst, "old||data\n")
}

func writeSnapshotWithPanic(t *testing.T, f *snapshotFile) {
	defer f.cancel()
	_, err := f.Write([]byte("k||v\n"))
	assert.NoError(t, err)
	panic("simulating a crash")
}

func TestSnapshotCancelOnPanic(t *testing.T) {
	dst := filepath.Join(t.TempDir(), DataFileName)
	assert.NoError(t, os.WriteFile(dst, []byte("old||data\n"), 0644))
	f, err := newSnapshotFile(dst)
	assert.NoError(t, err)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected to panic")
			}
		}()
		writeSnapshotWithPanic(t, f)
	}()

	assertFileNotExists(t, f.tmpPath)
	assertFileContent(t, dst, "old||data\n")
	assert.Equal(t, errSnapshotCancelled, f.commit())
}

func TestSnapshotMissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", DataFileName)
	f, err := newSnapshotFile(dst)
	assert.Error(t, err)
	assert.True(t, f == nil)
}

func fileMode(t *testing.T, path string) os.FileMode {
	st, err := os.Stat(path)
	assert.NoError(t, err)
	return st.Mode().Perm()
}

func TestFlushKeepsFileMode(t *testing.T) {
	for _, mode := range []os.FileMode{0644, 0640, 0664} {
		dir := t.TempDir()
		path := filepath.Join(dir, DataFileName)
		writeDataFile(t, dir, "k||v\n")
		// WriteFile is subject to umask
		assert.NoError(t, os.Chmod(path, mode))

		s, err := Open(dir, nil)
		assert.NoError(t, err)
		assert.NoError(t, s.Insert("k2", "v2"))
		assert.NoError(t, s.Flush())
		assert.Equal(t, mode, fileMode(t, path), "mode %o", mode)
		assertFileContent(t, path, "k||v\nk2||v2\n")
	}
}

func TestFlushNewFileMode(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	assert.NoError(t, err)
	assert.NoError(t, s.Insert("k", "v"))
	assert.NoError(t, s.Flush())
	assert.Equal(t, defaultFileMode, fileMode(t, s.DataPath()))
}

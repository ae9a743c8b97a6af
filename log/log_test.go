package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func captureOut(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() {
		Out = prev
	})
	return &buf
}

func TestLogfNoInit(t *testing.T) {
	buf := captureOut(t)
	Logf("hello %s\n", "world")
	Logf("100%\n")
	assert.Equal(t, "hello world\n100%\n", buf.String())
}

func TestVerbosef(t *testing.T) {
	buf := captureOut(t)
	Verbose = false
	Verbosef("hidden\n")
	assert.Equal(t, "", buf.String())
	Verbose = true
	defer func() { Verbose = false }()
	Verbosef("shown %d\n", 1)
	assert.Equal(t, "shown 1\n", buf.String())
}

func TestIfErrf(t *testing.T) {
	buf := captureOut(t)
	assert.False(t, IfErrf(nil))
	assert.Equal(t, "", buf.String())
	assert.True(t, IfErrf(errors.New("boom"), "failed with %s", "boom"))
	assert.True(t, strings.HasPrefix(buf.String(), "failed with boom\n"), "got: %s", buf.String())
	// call stack points to this file
	assert.True(t, strings.Contains(buf.String(), "log_test.go"), "got: %s", buf.String())
}

func TestInitWritesFiles(t *testing.T) {
	captureOut(t)
	dir := t.TempDir()
	var logged []string
	Init(&Config{
		Dir: dir,
		OnLog: func(s string) {
			logged = append(logged, s)
		},
	})
	Logf("opened store '%s'\n", "db")
	Errorf("failed to save")
	Event("skip_record", "line", 3, "path", "db/data")
	Event("empty")
	now := time.Now().UTC()
	Close()

	assert.Equal(t, 2, len(logged))

	d, err := os.ReadFile(NewWriteDaily(filepath.Join(dir, "log")).Path(now))
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(d), "opened store 'db'\nfailed to save\n"), "got: %s", string(d))

	d, err = os.ReadFile(NewWriteDaily(filepath.Join(dir, "errors")).Path(now))
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(d), "failed to save\n"), "got: %s", string(d))

	d, err = os.ReadFile(NewWriteDaily(filepath.Join(dir, "events")).Path(now))
	assert.NoError(t, err)
	s := string(d)
	assert.True(t, strings.HasPrefix(s, "--- "), "got: %s", s)
	assert.True(t, strings.Contains(s, " skip_record\n"), "got: %s", s)
	assert.True(t, strings.Contains(s, "db/data"), "got: %s", s)
	assert.True(t, strings.Contains(s, " 0 "), "got: %s", s)
	assert.True(t, strings.HasSuffix(s, " empty\n"), "got: %s", s)
}

func TestEventWithoutInitIsNoop(t *testing.T) {
	Event("nothing", "k", "v")
}

func TestWriteDailyNil(t *testing.T) {
	var w *WriteDaily
	assert.NoError(t, w.WriteString("x"))
	assert.NoError(t, w.Sync())
	assert.NoError(t, w.Close())
	_, err := w.Writer()
	assert.Error(t, err)
}

package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/kjk/flatkv/codec"
	"github.com/kjk/flatkv/log"
)

func bufioWriter(w io.Writer) *bufio.Writer {
	if bw, ok := w.(*bufio.Writer); ok {
		return bw
	}
	return bufio.NewWriterSize(w, 64*1024)
}

func (s *Store) load() error {
	f, err := os.Open(s.dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Verbosef("store.Open: '%s' doesn't exist, starting empty\n", s.dataPath)
		return nil
	}
	if err != nil {
		return ioErr("open", s.dataPath, err)
	}
	defer f.Close()
	_, err = s.readRecords(f, s.dataPath, s.m)
	return err
}

// called for a line that can't be decoded. In strict mode it's an error,
// otherwise we log it and move on
func (s *Store) skipLine(source string, lineNo int, line string, err error) error {
	if s.opts.Strict {
		return fmt.Errorf("%s:%d: %w", source, lineNo, err)
	}
	s.skipped++
	log.Logf("store: skipping line %d of '%s': %s\n", lineNo, source, err)
	log.Event("store_skip_line", "path", source, "line", lineNo, "error", err.Error())
	if s.opts.OnSkip != nil {
		s.opts.OnSkip(lineNo, line, err)
	}
	return nil
}

// readRecords decodes lines from r into m. Later lines over-write earlier
// lines with the same key. Empty lines are ignored.
// Returns number of decoded records.
func (s *Store) readRecords(r io.Reader, source string, m map[string]string) (int, error) {
	// bufio.Scanner has a limit on line length, values don't
	br := bufio.NewReaderSize(r, 64*1024)
	lineNo := 0
	nRecords := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nRecords, ioErr("read", source, err)
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNo++
		line = strings.TrimSuffix(line, "\n")
		// encoded fields never have a raw CR so this is from CRLF line endings
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			key, val, errDecode := codec.DecodeLine(line)
			if errDecode != nil {
				if errSkip := s.skipLine(source, lineNo, line, errDecode); errSkip != nil {
					return nRecords, errSkip
				}
			} else {
				m[key] = val
				nRecords++
			}
		}
		if err == io.EOF {
			break
		}
	}
	return nRecords, nil
}

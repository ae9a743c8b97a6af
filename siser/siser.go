// Package siser frames records in the format used by the events log:
//
//	--- ${len} ${unix_ms} ${name}\n${data}\n
//
// Timestamp and name are optional.
package siser

import (
	"bytes"
	"strconv"
	"time"
)

var hdrPrefix = []byte("--- ")

// MarshalLine frames d as a single record. If t is zero, timestamp
// is not written. Newline after data is only added if d doesn't end
// with one. If wb is given, it's re-used.
func MarshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	if wb == nil {
		wb = &bytes.Buffer{}
	} else {
		wb.Reset()
	}
	dataLen := len(d)
	wb.Grow(len(hdrPrefix) + len(name) + dataLen + 32)
	wb.Write(hdrPrefix)
	wb.WriteString(strconv.Itoa(dataLen))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	}
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	if dataLen > 0 {
		wb.Write(d)
		if d[dataLen-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}

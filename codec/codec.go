package codec

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Delimiter separates escaped key from escaped value in a line
	Delimiter = "||"
	// Escape is the escape character
	Escape = '\\'
)

// ErrMalformedRecord is returned by DecodeLine when a line has no delimiter
var ErrMalformedRecord = errors.New("malformed record")

// max number of bytes of a bad line we put in an error message
const maxLineInError = 64

func needsEscape(s string) bool {
	return strings.ContainsAny(s, "\\|\n\r")
}

func appendField(dst []byte, s string) []byte {
	if !needsEscape(s) {
		return append(dst, s...)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '|':
			dst = append(dst, Escape, c)
		case '\n':
			dst = append(dst, Escape, 'n')
		case '\r':
			dst = append(dst, Escape, 'r')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// EncodeField escapes s so that it never contains an unescaped '|'
// or a line break:
//
//	\  => \\
//	|  => \|
//	LF => \n
//	CR => \r
//
// Escaping happens in a single pass so that escape sequences we
// produce are never escaped again.
func EncodeField(s string) string {
	if !needsEscape(s) {
		return s
	}
	d := appendField(make([]byte, 0, len(s)+8), s)
	return string(d)
}

// DecodeField is the inverse of EncodeField.
// It never fails: unknown escape sequences and a trailing lone escape
// character are kept as is.
func DecodeField(s string) string {
	if strings.IndexByte(s, Escape) < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	n := len(s)
	for i := 0; i < n; i++ {
		c := s[i]
		if c != Escape || i == n-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\', '|':
			sb.WriteByte(s[i])
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(Escape)
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// EncodeLine returns a line (without trailing newline) for key / value
func EncodeLine(key, value string) string {
	d := make([]byte, 0, len(key)+len(value)+len(Delimiter)+8)
	d = appendField(d, key)
	d = append(d, Delimiter...)
	d = appendField(d, value)
	return string(d)
}

// AppendLine appends encoded key / value and a newline to dst
func AppendLine(dst []byte, key, value string) []byte {
	dst = appendField(dst, key)
	dst = append(dst, Delimiter...)
	dst = appendField(dst, value)
	return append(dst, '\n')
}

// delimiterPos returns position of first delimiter that is not
// a part of an escape sequence or -1 if there's none
func delimiterPos(line string) int {
	n := len(line)
	for i := 0; i < n; i++ {
		c := line[i]
		if c == Escape {
			// skip escaped character
			i++
			continue
		}
		if c == '|' && i+1 < n && line[i+1] == '|' {
			return i
		}
	}
	return -1
}

// DecodeLine splits line on first unescaped delimiter and decodes
// key and value. line should not include the trailing newline.
func DecodeLine(line string) (key string, value string, err error) {
	pos := delimiterPos(line)
	if pos < 0 {
		s := line
		if len(s) > maxLineInError {
			s = s[:maxLineInError] + "..."
		}
		return "", "", fmt.Errorf("%w: no delimiter in line %q", ErrMalformedRecord, s)
	}
	key = DecodeField(line[:pos])
	value = DecodeField(line[pos+len(Delimiter):])
	return key, value, nil
}

/*
Package codec converts key / value pairs to lines of text and back.

A line looks like:

	<escaped key>||<escaped value>

Inside a field '\' is written as `\\`, '|' as `\|`, and line breaks
as `\n` and `\r`. An encoded field never has an unescaped '|' so the first
unescaped "||" in a line always separates key from value.

	line := codec.EncodeLine("a|b", `c\d`)
	// line: `a\|b||c\\d`

	key, val, err := codec.DecodeLine(line)
	// key: "a|b", val: `c\d`
*/
package codec

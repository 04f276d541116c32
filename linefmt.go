package corelog

import (
	"bytes"
	"strings"
)

/*
linefmt.go

Line formats are short templates with two placeholders:
  - %m  module name
  - %s  formatted message

A '%' followed by any other byte (including another '%') is kept verbatim as a
two-byte literal, a trailing bare '%' is kept as a one-byte literal.
*/

const _LINEFMT_ESCAPE = '%'

// nextToken returns the token starting at *pos and moves *pos past it. For
// literal tokens the literal text is returned as well. It keeps no state between
// calls, so any number of walks over the same format may run concurrently.
func nextToken(linefmt string, pos *int) (lineToken, string) {
	p := *pos
	if p >= len(linefmt) {
		return _TOKEN_END, ""
	}
	if linefmt[p] == _LINEFMT_ESCAPE {
		if p+1 >= len(linefmt) {
			*pos = p + 1
			return _TOKEN_LITERAL, linefmt[p:]
		}
		*pos = p + 2
		switch linefmt[p+1] {
		case 'm':
			return _TOKEN_MODULE, ""
		case 's':
			return _TOKEN_MESSAGE, ""
		default:
			return _TOKEN_LITERAL, linefmt[p : p+2]
		}
	}
	end := strings.IndexByte(linefmt[p:], _LINEFMT_ESCAPE)
	if end < 0 {
		end = len(linefmt) - p
	}
	end = min(end, _LINEFMT_LITERAL_MAX)
	*pos = p + end
	return _TOKEN_LITERAL, linefmt[p : p+end]
}

// renderLine appends the line built from linefmt, module and message to buf.
func renderLine(buf *bytes.Buffer, linefmt, module, message string) *bytes.Buffer {
	pos := 0
	for {
		tok, lit := nextToken(linefmt, &pos)
		switch tok {
		case _TOKEN_LITERAL:
			buf.WriteString(lit)
		case _TOKEN_MODULE:
			buf.WriteString(module)
		case _TOKEN_MESSAGE:
			buf.WriteString(message)
		case _TOKEN_END:
			return buf
		}
	}
}

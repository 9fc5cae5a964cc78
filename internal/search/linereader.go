package search

import (
	"bufio"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// newLineReader wraps r with byte-order-mark detection (UTF-8, UTF-16 LE/BE;
// UTF-8 assumed absent a BOM) and exposes line-oriented reads recognizing
// LF, CRLF, and bare CR terminators. A plain bufio.Reader.ReadLine only
// splits on LF/CRLF, so the CR-only case here is handled explicitly.
func newLineReader(r io.Reader) *lineReader {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return &lineReader{r: bufio.NewReaderSize(transform.NewReader(r, decoder), 64*1024)}
}

type lineReader struct {
	r *bufio.Reader
}

// readLine returns the next line with its terminator stripped. ok is false
// only once no more bytes remain; a final unterminated line is still
// returned with ok true.
func (lr *lineReader) readLine() (line string, ok bool, err error) {
	var buf []byte
	for {
		b, rerr := lr.r.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				if len(buf) == 0 {
					return "", false, nil
				}
				return string(buf), true, nil
			}
			return "", false, rerr
		}
		switch b {
		case '\n':
			return string(buf), true, nil
		case '\r':
			if next, perr := lr.r.Peek(1); perr == nil && len(next) == 1 && next[0] == '\n' {
				_, _ = lr.r.Discard(1)
			}
			return string(buf), true, nil
		default:
			buf = append(buf, b)
		}
	}
}

package logscan

import (
	"bufio"
	"bytes"
	"io"
)

// MaxLineSize bounds a single line. Longer lines are skipped, not treated
// as a read error: neither pattern can match a line of that size, and
// renderers that draw progress bars write huge runs of text without a
// newline.
const MaxLineSize = 1 << 20

// NewLineScanner returns a bufio.Scanner over r that yields lines split on
// '\n' or '\r' and silently drops lines longer than MaxLineSize.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	sc.Split(SplitLines(MaxLineSize))
	return sc
}

// SplitLines returns a bufio.SplitFunc that ends lines at '\n' or '\r' and
// skips lines longer than maxLen. A carriage return counts as a line end so
// that progress output redrawn in place becomes many short lines.
//
// The scanner's buffer limit must be at least maxLen, otherwise the scanner
// fails with bufio.ErrTooLong before the split function can skip the line.
func SplitLines(maxLen int) bufio.SplitFunc {
	// skipping is set while the rest of an overlong line is discarded.
	skipping := false

	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}

		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			if skipping {
				skipping = false
				return i + 1, nil, nil
			}
			return i + 1, data[:i], nil
		}

		switch {
		case atEOF && skipping:
			return len(data), nil, nil
		case atEOF:
			return len(data), data, nil
		case len(data) >= maxLen:
			skipping = true
			return len(data), nil, nil
		default:
			return 0, nil, nil
		}
	}
}

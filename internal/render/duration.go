package render

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/aurora-tools/aurorareport/internal/logscan"
)

var durationPattern = regexp.MustCompile(`Rendering completed in (\d+)`)

// ParseDuration returns every rendering duration, in milliseconds, reported
// by the renderer in r, in order. Progress output redrawn with '\r' and
// overlong lines do not stop the scan. On a read error the durations found
// so far are returned with the error.
func ParseDuration(r io.Reader) ([]int64, error) {
	var durations []int64

	sc := logscan.NewLineScanner(r)
	for sc.Scan() {
		m := durationPattern.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			// Digits that overflow int64 are not a duration.
			continue
		}
		durations = append(durations, ms)
	}
	if err := sc.Err(); err != nil {
		return durations, fmt.Errorf("failed to read scene log: %w", err)
	}
	return durations, nil
}

// ParseDurationFile is ParseDuration on the log file at path.
func ParseDurationFile(path string) ([]int64, error) {
	f, err := os.Open(path) //nolint:gosec // Log path comes from the scenes file
	if err != nil {
		return nil, fmt.Errorf("failed to open scene log: %w", err)
	}
	defer f.Close()

	return ParseDuration(f)
}

// FormatDurations renders durations the way they are appended to a report
// message: one "\nRendering completed in <n> ms." per value.
func FormatDurations(durations []int64) string {
	var out string
	for _, ms := range durations {
		out += fmt.Sprintf("\nRendering completed in %d ms.", ms)
	}
	return out
}

package schedule

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrTimeFormat = errors.New("time must be in HH:mm format")

	hhmmRegex = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// ParseMinutes converts a wall-clock "HH:mm" string to its minute offset from
// midnight. Callers validate input format upfront; this re-checks anyway so a
// bad string can never silently misparse.
func ParseMinutes(t string) (int, error) {
	if !hhmmRegex.MatchString(t) {
		return 0, ErrTimeFormat
	}
	parts := strings.SplitN(t, ":", 2)
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	return hours*60 + minutes, nil
}

// Overlaps reports whether the half-open intervals [start1, end1) and
// [start2, end2) intersect. A slot ending at 10:00 does not clash with one
// starting at 10:00.
func Overlaps(start1, end1, start2, end2 int) bool {
	return start1 < end2 && start2 < end1
}

package moderation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned for malformed duration strings. It is
// resolved at the command boundary as a usage notice and is never fatal.
var ErrInvalidDuration = errors.New("invalid duration")

// ParseDuration parses a compound duration string like "1h:30m:10s" into a
// total number of seconds. Segments are <integer><unit> with unit one of
// s, m, h, d, w (case-insensitive), separated by ':'. Segments are summed;
// repeated units are allowed, so "10s:5s" is 15.
func ParseDuration(s string) (int, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}

	total := 0
	for _, part := range strings.Split(s, ":") {
		if part == "" {
			continue
		}
		unit := strings.ToLower(part[len(part)-1:])
		value, err := strconv.Atoi(part[:len(part)-1])
		if err != nil || value < 0 {
			return 0, fmt.Errorf("%w: bad segment %q", ErrInvalidDuration, part)
		}
		switch unit {
		case "s":
			total += value
		case "m":
			total += value * 60
		case "h":
			total += value * 3600
		case "d":
			total += value * 86400
		case "w":
			total += value * 604800
		default:
			return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, unit)
		}
	}
	return total, nil
}

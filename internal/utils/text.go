package utils

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"emperror.dev/errors"
)

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// TruncateEllipsis cuts s to at most max runes, ending with "..." when something was cut.
func TruncateEllipsis(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return Truncate(s, max)
	}
	return Truncate(s, max-3) + "..."
}

// FirstLine returns s up to its first line break.
func FirstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func UserMention(id string) string    { return "<@" + id + ">" }
func ChannelMention(id string) string { return "<#" + id + ">" }
func RoleMention(id string) string    { return "<@&" + id + ">" }

// ParseDuration accepts Go durations plus d (day) and w (week) units, e.g. "1w2d", "36h", "90m".
func ParseDuration(value string) (time.Duration, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return 0, errors.New("empty duration")
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}

	var total time.Duration
	rest := value
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			return 0, errors.Errorf("invalid duration %q", value)
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, errors.Errorf("invalid duration %q", value)
		}
		j := i
		for j < len(rest) && (rest[j] < '0' || rest[j] > '9') {
			j++
		}
		unit, err := durationUnit(rest[i:j])
		if err != nil {
			return 0, errors.Errorf("invalid duration %q", value)
		}
		total += time.Duration(n) * unit
		rest = rest[j:]
	}
	if total <= 0 {
		return 0, errors.Errorf("invalid duration %q", value)
	}
	return total, nil
}

func durationUnit(unit string) (time.Duration, error) {
	switch unit {
	case "s", "sec", "secs":
		return time.Second, nil
	case "m", "min", "mins":
		return time.Minute, nil
	case "h", "hr", "hrs":
		return time.Hour, nil
	case "d", "day", "days":
		return 24 * time.Hour, nil
	case "w", "week", "weeks":
		return 7 * 24 * time.Hour, nil
	default:
		return 0, errors.New("unknown unit")
	}
}

package utils

import (
	"strings"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("expected hé, got %q", got)
	}
	if got := Truncate("short", 75); got != "short" {
		t.Fatalf("expected untouched string, got %q", got)
	}
	long := strings.Repeat("a", 100)
	if got := TruncateEllipsis(long, 10); got != "aaaaaaa..." {
		t.Fatalf("unexpected ellipsis result %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("Hello world\nextra"); got != "Hello world" {
		t.Fatalf("expected first line, got %q", got)
	}
	if got := FirstLine("one\r\ntwo"); got != "one" {
		t.Fatalf("expected one, got %q", got)
	}
	if got := FirstLine("single"); got != "single" {
		t.Fatalf("expected single, got %q", got)
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"90m":   90 * time.Minute,
		"1d":    24 * time.Hour,
		"1w2d":  9 * 24 * time.Hour,
		"2d12h": 60 * time.Hour,
		" 3H ":  3 * time.Hour,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", input, want, got)
		}
	}

	for _, input := range []string{"", "abc", "12", "5y", "d"} {
		if _, err := ParseDuration(input); err == nil {
			t.Fatalf("expected %q to fail", input)
		}
	}
}

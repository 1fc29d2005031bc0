package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowAdd(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add(now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add(now.Add(500 * time.Millisecond))
	if count := window.Count(now.Add(1 * time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(3 * time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestSlidingWindowNext(t *testing.T) {
	window := NewSlidingWindow(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	if next := window.Next(now); !next.Equal(now) {
		t.Fatalf("expected empty window to be free now, got %v", next)
	}
	window.Add(now)
	window.Add(now.Add(10 * time.Second))
	if next := window.Next(now.Add(20 * time.Second)); !next.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected oldest hit to expire first, got %v", next)
	}
}

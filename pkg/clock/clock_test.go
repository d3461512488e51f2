package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	if got := f.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}
	f.Advance(5 * time.Second)
	want := start.Add(5 * time.Second)
	if got := f.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestOlderThan(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		d    time.Duration
		want bool
	}{
		{"exactly at threshold", now.Add(-3 * time.Second), 3 * time.Second, false},
		{"just past threshold", now.Add(-4 * time.Second), 3 * time.Second, true},
		{"well within threshold", now.Add(-time.Second), 3 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OlderThan(now, tt.t, tt.d); got != tt.want {
				t.Errorf("OlderThan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRealNowAdvances(t *testing.T) {
	r := Real{}
	first := r.Now()
	time.Sleep(time.Millisecond)
	second := r.Now()
	if !second.After(first) {
		t.Error("Real.Now() should reflect the system clock advancing")
	}
}

package schedule

import (
	"math/rand"
	"testing"
	"time"
)

func newRand(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// offsetsFrom rebuilds absolute seconds-since-midnight from cumulative delays.
func offsetsFrom(now int, delays []int) []int {
	out := make([]int, len(delays))
	at := now
	for i, d := range delays {
		at += d
		out[i] = at
	}
	return out
}

func TestDelaySeconds_MonotonicWithinWindow(t *testing.T) {
	tests := []struct {
		name              string
		count, start, end int
		now               int
	}{
		{"before window", 20, 9 * 3600, 18 * 3600, 7 * 3600},
		{"inside window", 50, 9 * 3600, 18 * 3600, 12 * 3600},
		{"tiny window", 5, 100, 110, 0},
		{"count exceeds span", 100, 100, 110, 105},
		{"single slot", 1, 0, 1, 0},
	}
	for _, tt := range tests {
		for seed := int64(1); seed <= 25; seed++ {
			delays := DelaySeconds(tt.count, tt.start, tt.end, tt.now, newRand(seed))
			if len(delays) == 0 {
				t.Fatalf("%s seed %d: empty schedule", tt.name, seed)
			}
			effectiveStart := tt.start
			if tt.now > effectiveStart {
				effectiveStart = tt.now
			}
			abs := offsetsFrom(tt.now, delays)
			for i, d := range delays {
				if d < 0 {
					t.Fatalf("%s seed %d: delay[%d] = %d is negative", tt.name, seed, i, d)
				}
				if abs[i] < effectiveStart || abs[i] > tt.end {
					t.Fatalf("%s seed %d: instant %d outside [%d, %d]", tt.name, seed, abs[i], effectiveStart, tt.end)
				}
				if i > 0 && abs[i] <= abs[i-1] {
					t.Fatalf("%s seed %d: instants not strictly increasing: %v", tt.name, seed, abs)
				}
			}
		}
	}
}

func TestDelaySeconds_CountCappedBySpan(t *testing.T) {
	delays := DelaySeconds(100, 100, 110, 105, newRand(7))
	if len(delays) != 5 {
		t.Fatalf("len = %d, want 5 (span of remaining seconds)", len(delays))
	}
	delays = DelaySeconds(3, 0, 3600, 0, newRand(7))
	if len(delays) != 3 {
		t.Fatalf("len = %d, want 3", len(delays))
	}
}

func TestDelaySeconds_Distinct(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		delays := DelaySeconds(9, 0, 10, 0, newRand(seed))
		seen := map[int]bool{}
		for _, o := range offsetsFrom(0, delays) {
			if seen[o] {
				t.Fatalf("seed %d: duplicate instant %d in %v", seed, o, delays)
			}
			seen[o] = true
		}
	}
}

func TestDelaySeconds_FirstDelayCoversGapToWindow(t *testing.T) {
	delays := DelaySeconds(1, 1000, 1001, 400, newRand(3))
	if len(delays) != 1 {
		t.Fatalf("len = %d, want 1", len(delays))
	}
	if delays[0] < 600 || delays[0] > 601 {
		t.Errorf("delay = %d, want 600..601", delays[0])
	}
}

func TestDelaySeconds_WindowClosed(t *testing.T) {
	tests := []struct {
		name                   string
		count, start, end, now int
	}{
		{"now after end", 5, 100, 200, 300},
		{"now equals end", 5, 100, 200, 200},
		{"empty window", 5, 200, 200, 0},
		{"inverted window", 5, 300, 200, 0},
		{"zero count", 0, 0, 200, 0},
	}
	for _, tt := range tests {
		if got := DelaySeconds(tt.count, tt.start, tt.end, tt.now, newRand(1)); len(got) != 0 {
			t.Errorf("%s: got %v, want empty", tt.name, got)
		}
	}
}

func TestDelays_DurationsAndPlanned(t *testing.T) {
	loc := time.Local
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, loc)
	w := Window{Start: 9 * time.Hour, End: 10*time.Hour + 10*time.Second}

	delays := Delays(4, w, now, newRand(11))
	if len(delays) != 4 {
		t.Fatalf("len = %d, want 4", len(delays))
	}
	planned := Planned(now, delays)
	end := time.Date(2026, 3, 2, 10, 0, 10, 0, loc)
	for i, p := range planned {
		if p.Before(now) || p.After(end) {
			t.Errorf("planned[%d] = %v outside window", i, p)
		}
		if i > 0 && !p.After(planned[i-1]) {
			t.Errorf("planned not strictly increasing at %d", i)
		}
		if delays[i]%time.Second != 0 {
			t.Errorf("delay[%d] = %v is not whole seconds", i, delays[i])
		}
	}
}

func TestDelays_SubSecondNowStaysOnGrid(t *testing.T) {
	loc := time.Local
	now := time.Date(2026, 3, 2, 17, 59, 58, 900*int(time.Millisecond), loc)
	w := Window{Start: 9 * time.Hour, End: 18 * time.Hour}
	end := time.Date(2026, 3, 2, 18, 0, 0, 0, loc)

	for seed := int64(1); seed <= 50; seed++ {
		delays := Delays(5, w, now, newRand(seed))
		if len(delays) == 0 {
			t.Fatalf("seed %d: empty schedule", seed)
		}
		planned := Planned(now, delays)
		for i, p := range planned {
			if delays[i] < 0 {
				t.Fatalf("seed %d: delay[%d] = %v is negative", seed, i, delays[i])
			}
			if p.Before(now) || p.After(end) {
				t.Fatalf("seed %d: planned[%d] = %v outside [%v, %v]", seed, i, p, now, end)
			}
			if !p.Equal(now) && p.Nanosecond() != 0 {
				t.Fatalf("seed %d: planned[%d] = %v is not on a whole second", seed, i, p)
			}
			if i > 0 && !p.After(planned[i-1]) {
				t.Fatalf("seed %d: planned not strictly increasing: %v", seed, planned)
			}
		}
	}
}

func TestDelays_WindowClosed(t *testing.T) {
	now := time.Date(2026, 3, 2, 19, 0, 0, 0, time.Local)
	w := Window{Start: 9 * time.Hour, End: 18 * time.Hour}
	if got := Delays(10, w, now, newRand(1)); len(got) != 0 {
		t.Errorf("got %v, want empty after window close", got)
	}
}

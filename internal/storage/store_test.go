package storage

import (
	"testing"
	"time"
)

// created_at columns are compared and sorted as text, so encoded
// timestamps must order lexicographically exactly as the instants do.
func TestEncodeTimeLexicalOrder(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 9, 26, 500_000_000, time.UTC)
	times := []time.Time{
		base,                                // .5s
		base.Add(20 * time.Millisecond),     // .52s
		base.Add(100 * time.Millisecond),    // .6s
		base.Add(time.Second),
		base.Add(time.Second + time.Nanosecond),
	}
	for i := 1; i < len(times); i++ {
		a, b := encodeTime(times[i-1]), encodeTime(times[i])
		if !(a < b) {
			t.Fatalf("encoded order broken: %q !< %q", a, b)
		}
	}
}

func TestEncodeTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 14, 15, 9, 26, 123_456_789, time.UTC)
	out := decodeTime(encodeTime(in))
	if !out.Equal(in) {
		t.Fatalf("round trip: %v != %v", out, in)
	}

	// rows written before the fixed-width format still decode
	legacy := "2026-03-14T15:09:26.5Z"
	if got := decodeTime(legacy); got.Nanosecond() != 500_000_000 {
		t.Fatalf("legacy decode = %v", got)
	}
}

func TestNumberedRebind(t *testing.T) {
	in := `INSERT INTO t (a, b, c) VALUES (?, ?, ?) ON CONFLICT (a) DO UPDATE SET b = excluded.b WHERE c > ?`
	want := `INSERT INTO t (a, b, c) VALUES ($1, $2, $3) ON CONFLICT (a) DO UPDATE SET b = excluded.b WHERE c > $4`
	if got := numberedRebind(in); got != want {
		t.Fatalf("rebind = %q", got)
	}
	if got := identityRebind(in); got != in {
		t.Fatalf("identity rebind changed the query: %q", got)
	}
}

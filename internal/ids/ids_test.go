package ids_test

import (
	"testing"
	"time"

	"github.com/persistorai/caseqc/internal/ids"
)

func TestNew_Monotonic(t *testing.T) {
	prev := ids.New()
	for range 1000 {
		next := ids.New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestTime_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := ids.Time(ids.NewAt(at))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !got.Equal(at) {
		t.Errorf("Time = %v, want %v", got, at)
	}

	if _, err := ids.Time("not-a-ulid"); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestNewAt_OrderFollowsTimestamp(t *testing.T) {
	later := ids.NewAt(time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC))
	earlier := ids.NewAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if earlier >= later {
		t.Errorf("id for earlier time %s does not sort before %s", earlier, later)
	}
}

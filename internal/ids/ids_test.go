package ids

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		if _, err := ulid.ParseStrict(next); err != nil {
			t.Fatalf("not a ULID: %v", err)
		}
		prev = next
	}
}

func TestRequestID(t *testing.T) {
	if got := RequestID("abc-123"); got != "abc-123" {
		t.Fatalf("expected supplied id kept, got %q", got)
	}
	for _, bad := range []string{"", "   ", "has space", "line\nbreak", strings.Repeat("x", 200)} {
		got := RequestID(bad)
		if got == bad {
			t.Fatalf("RequestID(%q) kept invalid value", bad)
		}
		if _, err := ulid.ParseStrict(got); err != nil {
			t.Fatalf("RequestID(%q) = %q is not a ULID", bad, got)
		}
	}
}

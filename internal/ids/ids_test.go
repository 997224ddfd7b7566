package ids

import (
	"sort"
	"testing"
	"time"
)

func TestGeneratorMonotonicWithinMillisecond(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(func() time.Time { return fixed })

	out := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		id, err := g.New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if !Valid(id) {
			t.Fatalf("invalid ulid %q", id)
		}
		out = append(out, id)
	}
	if !sort.StringsAreSorted(out) {
		t.Fatal("ids minted in one millisecond must sort in creation order")
	}
	seen := make(map[string]struct{}, len(out))
	for _, id := range out {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	if Valid("not-a-ulid") {
		t.Fatal("expected invalid")
	}
}

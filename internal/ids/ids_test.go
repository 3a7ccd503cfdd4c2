package ids

import "testing"

func TestNewProducesUniqueValidIDs(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := New()
		if !Valid(id) {
			t.Fatalf("generated id %q does not validate", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-an-id", "0000", "zzzzzzzzzzzzzzzzzzzzzzzzzz!"} {
		if Valid(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

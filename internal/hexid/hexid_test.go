package hexid

import (
	"regexp"
	"testing"
)

var lowerHex = regexp.MustCompile(`^[0-9a-f]+$`)

func TestNew(t *testing.T) {
	id := New()
	if len(id) != 8 || !lowerHex.MatchString(id) {
		t.Fatalf("New() = %q, want 8 lowercase hex chars", id)
	}
}

func TestToken(t *testing.T) {
	tok := Token()
	if len(tok) != 2*TokenBytes || !lowerHex.MatchString(tok) {
		t.Fatalf("Token() = %q", tok)
	}
	if Token() == tok {
		t.Fatal("two tokens should differ")
	}
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate ID after %d iterations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

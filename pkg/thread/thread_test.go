package thread

import "testing"

func TestKeyDeterminism(t *testing.T) {
	pairs := [][2]string{
		{"5", "3"},
		{"alice", "bob"},
		{"u-100", "u-2"},
		{"a", "z"},
	}
	for _, p := range pairs {
		k1, err := Key(p[0], p[1])
		if err != nil {
			t.Fatalf("Key(%q, %q) failed: %v", p[0], p[1], err)
		}
		k2, err := Key(p[1], p[0])
		if err != nil {
			t.Fatalf("Key(%q, %q) failed: %v", p[1], p[0], err)
		}
		if k1 != k2 {
			t.Fatalf("key not symmetric: %q vs %q", k1, k2)
		}
	}
}

func TestKeySortedPair(t *testing.T) {
	k, err := Key("5", "3")
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if k != "thread_3_5" {
		t.Fatalf("expected thread_3_5 got %q", k)
	}
}

func TestKeyRejectsDegeneratePairs(t *testing.T) {
	if _, err := Key("7", "7"); err != ErrSameIdentity {
		t.Fatalf("expected ErrSameIdentity got %v", err)
	}
	if _, err := Key("", "7"); err != ErrEmptyIdentity {
		t.Fatalf("expected ErrEmptyIdentity got %v", err)
	}
	if _, err := Key("7", "  "); err != ErrEmptyIdentity {
		t.Fatalf("expected ErrEmptyIdentity got %v", err)
	}
}

func TestKeyRejectsReservedSeparator(t *testing.T) {
	for _, p := range [][2]string{{"1_2", "3"}, {"1", "2_3"}, {"a_b", "c_d"}} {
		if _, err := Key(p[0], p[1]); err != ErrReservedIdentity {
			t.Fatalf("Key(%q, %q): expected ErrReservedIdentity got %v", p[0], p[1], err)
		}
	}
}

func TestParticipants(t *testing.T) {
	k, _ := Key("3", "5")
	a, b, ok := Participants(k)
	if !ok || a != "3" || b != "5" {
		t.Fatalf("unexpected participants %q %q ok=%v", a, b, ok)
	}
	if _, _, ok := Participants("not_a_key"); ok {
		t.Fatalf("expected failure for malformed key")
	}
}

func TestIsParticipant(t *testing.T) {
	k, _ := Key("u-2", "u-100")
	for _, u := range []string{"u-2", "u-100"} {
		if !IsParticipant(k, u) {
			t.Fatalf("expected %q to be a participant of %q", u, k)
		}
	}
	if IsParticipant(k, "u-10") {
		t.Fatalf("u-10 must not match %q", k)
	}
	if IsParticipant(k, "") {
		t.Fatalf("empty user must not match")
	}
}

// A raw string carrying the separator can line up with a prefix or suffix
// of someone else's key: "1_2" against "thread_1_2_3", the thread between
// "1" and a hypothetical "2_3". Such strings are never valid identities
// and must not be treated as members anywhere.
func TestIsParticipantRefusesSeparatorInUser(t *testing.T) {
	if IsParticipant("thread_1_2_3", "1_2") {
		t.Fatalf(`"1_2" must not be a participant of thread_1_2_3`)
	}
	if IsParticipant("thread_1_2_3", "2_3") {
		t.Fatalf(`"2_3" must not be a participant of thread_1_2_3`)
	}
	if _, ok := Other("thread_1_2_3", "1_2"); ok {
		t.Fatalf(`Other must refuse user "1_2"`)
	}
}

func TestOther(t *testing.T) {
	k, _ := Key("alice", "bob")
	if o, ok := Other(k, "alice"); !ok || o != "bob" {
		t.Fatalf("expected bob got %q ok=%v", o, ok)
	}
	if o, ok := Other(k, "bob"); !ok || o != "alice" {
		t.Fatalf("expected alice got %q ok=%v", o, ok)
	}
	if _, ok := Other(k, "carol"); ok {
		t.Fatalf("carol is not a participant")
	}
}

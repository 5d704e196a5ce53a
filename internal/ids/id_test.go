package ids

import "testing"

func TestNewAndAccessors(t *testing.T) {
	id := New(KindWay, 123456789)
	if id.Kind() != KindWay {
		t.Fatalf("Kind() = %v, want %v", id.Kind(), KindWay)
	}
	if id.Serial() != 123456789 {
		t.Fatalf("Serial() = %d, want 123456789", id.Serial())
	}
}

func TestOrderingIsTotal(t *testing.T) {
	a := New(KindNode, 1)
	b := New(KindNode, 2)
	c := New(KindWay, 0)

	if !a.Less(b) {
		t.Fatalf("expected %v < %v", a, b)
	}
	if !b.Less(c) {
		t.Fatalf("expected %v < %v (kind dominates serial)", b, c)
	}
	if a.Less(a) {
		t.Fatalf("id must not be less than itself")
	}
}

func TestOptionalID(t *testing.T) {
	none := None()
	if _, ok := none.Get(); ok {
		t.Fatalf("None() should report absent")
	}

	some := Some(New(KindRelation, 42))
	id, ok := some.Get()
	if !ok {
		t.Fatalf("Some() should report present")
	}
	if id.Serial() != 42 || id.Kind() != KindRelation {
		t.Fatalf("unexpected round-tripped id: %v", id)
	}
}

func TestParseRoundTripsString(t *testing.T) {
	id := New(KindRelation, 987654)
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", id.String(), err)
	}
	if parsed != id {
		t.Fatalf("Parse(%q) = %v, want %v", id.String(), parsed, id)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "relation", "bogus:1", "node:notanumber"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) should have failed", s)
		}
	}
}

func TestSerialTruncation(t *testing.T) {
	// 61-bit value; only the low 60 bits should survive.
	huge := uint64(1) << 61
	id := New(KindWay, huge|7)
	if id.Serial() != 7 {
		t.Fatalf("Serial() = %d, want 7 (high bits must be masked off)", id.Serial())
	}
}

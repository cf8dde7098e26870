package ir

import "testing"

func TestJoin(t *testing.T) {
	cases := []struct {
		name   string
		a, b   ConstantValue
		known  bool
	}{
		{"equal-ints", KnownInt(5), KnownInt(5), true},
		{"unequal-ints", KnownInt(5), KnownInt(6), false},
		{"unknown-with-known", Unknown, KnownInt(5), false},
		{"unknown-with-unknown", Unknown, Unknown, false},
		{"equal-strings", KnownString("a"), KnownString("a"), true},
		{"different-kinds", KnownInt(0), KnownLong(0), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Join(c.a, c.b)
			if got.IsKnown() != c.known {
				t.Errorf("Join(%v, %v) = %v, known=%v want known=%v", c.a, c.b, got, got.IsKnown(), c.known)
			}
		})
	}
}

func TestEqualIgnoresSize(t *testing.T) {
	a := ConstantValue{Kind: ConstInt, I: 3, Size: 1}
	b := ConstantValue{Kind: ConstInt, I: 3, Size: 2}
	if !a.Equal(b) {
		t.Error("Equal should ignore Size")
	}
}

func TestStringRendering(t *testing.T) {
	if KnownInt(7).String() != "Int(7)" {
		t.Errorf("got %q", KnownInt(7).String())
	}
	if Unknown.String() != "Unknown" {
		t.Errorf("got %q", Unknown.String())
	}
	if KnownNull().String() != "Null" {
		t.Errorf("got %q", KnownNull().String())
	}
}

package xpathdom

import (
	"math"
	"testing"
)

func TestValueBooleanCoercion(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"zero number", NumberValue(0), false},
		{"nan number", NumberValue(math.NaN()), false},
		{"nonzero number", NumberValue(1), true},
		{"empty string", StringValue(""), false},
		{"nonempty string", StringValue("false"), true},
		{"true bool", BoolValue(true), true},
		{"false bool", BoolValue(false), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.Boolean(); got != c.want {
				t.Errorf("Boolean() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestValueNumberCoercion(t *testing.T) {
	if n := StringValue(" 42 ").Number(); n != 42 {
		t.Errorf("Number() = %v, want 42", n)
	}
	if n := StringValue("not a number").Number(); !math.IsNaN(n) {
		t.Errorf("Number() = %v, want NaN", n)
	}
	if n := BoolValue(true).Number(); n != 1 {
		t.Errorf("Number() = %v, want 1", n)
	}
	if n := BoolValue(false).Number(); n != 0 {
		t.Errorf("Number() = %v, want 0", n)
	}
}

func TestValueStringCoercion(t *testing.T) {
	if s := NumberValue(3).String(); s != "3" {
		t.Errorf("String() = %q, want %q", s, "3")
	}
	if s := NumberValue(3.5).String(); s != "3.5" {
		t.Errorf("String() = %q, want %q", s, "3.5")
	}
	if s := NumberValue(math.NaN()).String(); s != "NaN" {
		t.Errorf("String() = %q, want NaN", s)
	}
	if s := BoolValue(true).String(); s != "true" {
		t.Errorf("String() = %q, want true", s)
	}
	if s := BoolValue(false).String(); s != "false" {
		t.Errorf("String() = %q, want false", s)
	}
}

// TestNumberStringRoundTrip checks spec.md section 8's coercion law:
// number(string(n)) == n for finite numbers.
func TestNumberStringRoundTrip(t *testing.T) {
	for _, n := range []float64{0, 1, -1, 3.5, 1000000, -0.25} {
		s := NumberValue(n).String()
		got := StringValue(s).Number()
		if got != n {
			t.Errorf("round trip of %v via %q gave %v", n, s, got)
		}
	}
}

func TestValuesEqual(t *testing.T) {
	if !valuesEqual(NumberValue(1), StringValue("1")) {
		t.Errorf("1 should equal \"1\"")
	}
	if !valuesEqual(BoolValue(true), StringValue("x")) {
		t.Errorf("true should equal non-empty string")
	}
	if valuesEqual(BoolValue(true), StringValue("")) {
		t.Errorf("true should not equal empty string")
	}
	if !valuesEqual(StringValue("a"), StringValue("a")) {
		t.Errorf("equal strings should compare equal")
	}
}

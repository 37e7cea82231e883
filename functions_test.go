package xpathdom

import (
	"math"
	"testing"
)

func callBuiltin(t *testing.T, ctx *evalContext, name string, args []Expr) Value {
	t.Helper()
	entry, ok := builtinFuncs[name]
	if !ok {
		t.Fatalf("no such builtin: %s", name)
	}
	v, err := entry.fn(ctx, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func lit(v Value) Expr { return &literalExpr{v: v} }

func TestFnLastAndPosition(t *testing.T) {
	ctx := &evalContext{position: 2, size: 5}
	if got := callBuiltin(t, ctx, "last", nil).Number(); got != 5 {
		t.Errorf("last() = %v, want 5", got)
	}
	if got := callBuiltin(t, ctx, "position", nil).Number(); got != 2 {
		t.Errorf("position() = %v, want 2", got)
	}
}

func TestFnCount(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	root := wrapHost(doc, hostDoc)
	ctx := newEvalContext(doc, root)

	path := &pathExpr{absolute: true, steps: []*stepExpr{nameStep(AxisDescendant, "div")}}
	got := callBuiltin(t, ctx, "count", []Expr{path}).Number()
	if got != 3 {
		t.Errorf("count(//div) = %v, want 3", got)
	}
}

func TestFnStringDefaultsToContextNode(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	var div Element
	var walk func(n Node)
	walk = func(n Node) {
		if el, ok := n.(Element); ok && string(el.TagName()) == "div" && el.GetAttribute("class") == "test1" {
			div = el
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(hostDoc)
	divNode := wrapHost(doc, div)
	ctx := newEvalContext(doc, divNode)

	got := callBuiltin(t, ctx, "string", nil).String()
	if got != "Testing 1" {
		t.Errorf("string() = %q, want %q", got, "Testing 1")
	}
}

func TestFnConcatCoercesArgsToString(t *testing.T) {
	ctx := &evalContext{}
	got := callBuiltin(t, ctx, "concat", []Expr{
		lit(NumberValue(1)),
		lit(StringValue("-")),
		lit(BoolValue(true)),
	}).String()
	if got != "1-true" {
		t.Errorf("concat(1, \"-\", true()) = %q, want %q", got, "1-true")
	}
}

func TestFnStartsWithAndContains(t *testing.T) {
	ctx := &evalContext{}
	if !callBuiltin(t, ctx, "starts-with", []Expr{lit(StringValue("clickable1")), lit(StringValue("click"))}).Boolean() {
		t.Errorf("starts-with(\"clickable1\", \"click\") should be true")
	}
	if !callBuiltin(t, ctx, "contains", []Expr{lit(StringValue("abc123")), lit(StringValue("bc12"))}).Boolean() {
		t.Errorf("contains(\"abc123\", \"bc12\") should be true")
	}
	if callBuiltin(t, ctx, "contains", []Expr{lit(StringValue("abc123")), lit(StringValue("zzz"))}).Boolean() {
		t.Errorf("contains(\"abc123\", \"zzz\") should be false")
	}
}

func TestFnSubstringBeforeAndAfter(t *testing.T) {
	ctx := &evalContext{}
	if got := callBuiltin(t, ctx, "substring-before", []Expr{lit(StringValue("1999/04/01")), lit(StringValue("/"))}).String(); got != "1999" {
		t.Errorf("substring-before = %q, want %q", got, "1999")
	}
	if got := callBuiltin(t, ctx, "substring-after", []Expr{lit(StringValue("1999/04/01")), lit(StringValue("/"))}).String(); got != "04/01" {
		t.Errorf("substring-after = %q, want %q", got, "04/01")
	}
	if got := callBuiltin(t, ctx, "substring-before", []Expr{lit(StringValue("abc")), lit(StringValue("z"))}).String(); got != "" {
		t.Errorf("substring-before with no match should be empty, got %q", got)
	}
}

func TestFnSubstring(t *testing.T) {
	ctx := &evalContext{}
	cases := []struct {
		s, want string
		start   float64
		length  *float64
	}{
		{"12345", "234", 2, f64ptr(3)},
		{"12345", "2345", 2, nil},
		{"12345", "12", 0, f64ptr(3)},
	}
	for _, c := range cases {
		args := []Expr{lit(StringValue(c.s)), lit(NumberValue(c.start))}
		if c.length != nil {
			args = append(args, lit(NumberValue(*c.length)))
		}
		got := callBuiltin(t, ctx, "substring", args).String()
		if got != c.want {
			t.Errorf("substring(%q, %v, %v) = %q, want %q", c.s, c.start, c.length, got, c.want)
		}
	}
}

func f64ptr(f float64) *float64 { return &f }

func TestFnStringLengthAndNormalizeSpace(t *testing.T) {
	ctx := &evalContext{}
	if got := callBuiltin(t, ctx, "string-length", []Expr{lit(StringValue("hello"))}).Number(); got != 5 {
		t.Errorf("string-length = %v, want 5", got)
	}
	if got := callBuiltin(t, ctx, "normalize-space", []Expr{lit(StringValue("  a   b  c  "))}).String(); got != "a b c" {
		t.Errorf("normalize-space = %q, want %q", got, "a b c")
	}
}

func TestFnNotTrueFalse(t *testing.T) {
	ctx := &evalContext{}
	if !callBuiltin(t, ctx, "not", []Expr{lit(BoolValue(false))}).Boolean() {
		t.Errorf("not(false()) should be true")
	}
	if !callBuiltin(t, ctx, "true", nil).Boolean() {
		t.Errorf("true() should be true")
	}
	if callBuiltin(t, ctx, "false", nil).Boolean() {
		t.Errorf("false() should be false")
	}
}

func TestFnSum(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	root := wrapHost(doc, hostDoc)
	ctx := newEvalContext(doc, root)

	path := &pathExpr{absolute: true, steps: []*stepExpr{nameStep(AxisDescendant, "div")}}
	got := callBuiltin(t, ctx, "sum", []Expr{path}).Number()
	if !math.IsNaN(got) {
		t.Errorf("sum of non-numeric div text-values should be NaN, got %v", got)
	}
}

func TestFnFloorCeilingRound(t *testing.T) {
	ctx := &evalContext{}
	if got := callBuiltin(t, ctx, "floor", []Expr{lit(NumberValue(2.5))}).Number(); got != 2 {
		t.Errorf("floor(2.5) = %v, want 2", got)
	}
	if got := callBuiltin(t, ctx, "ceiling", []Expr{lit(NumberValue(2.1))}).Number(); got != 3 {
		t.Errorf("ceiling(2.1) = %v, want 3", got)
	}
	if got := callBuiltin(t, ctx, "round", []Expr{lit(NumberValue(2.5))}).Number(); got != 3 {
		t.Errorf("round(2.5) = %v, want 3", got)
	}
	if got := callBuiltin(t, ctx, "round", []Expr{lit(NumberValue(-2.5))}).Number(); got != -2 {
		t.Errorf("round(-2.5) = %v, want -2 (halves round toward +Infinity)", got)
	}
}

func TestArithmeticWithNonNumericYieldsNaN(t *testing.T) {
	ctx := &evalContext{}
	v, err := (&binaryExpr{op: opAdd, left: lit(StringValue("A")), right: lit(NumberValue(1))}).eval(ctx)
	if err != nil {
		t.Fatalf("\"A\" + 1: %v", err)
	}
	if !math.IsNaN(v.Number()) {
		t.Errorf("\"A\" + 1 should be NaN")
	}
}

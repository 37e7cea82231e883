package xpathdom

import (
	"math"
	"strings"
)

// xpathFunc is the signature every built-in function implements: given the
// evaluation context and the (already parsed, not yet evaluated) argument
// expressions, produce a Value. Functions that need a node-set argument call
// evalAsNodeSet themselves so they can distinguish "no nodes" from "wrong
// value kind" (spec.md section 4.8).
type xpathFunc func(ctx *evalContext, args []Expr) (Value, error)

// builtinFuncs is the fixed function library of spec.md section 4.8. Three
// functions the original system supports — id(), translate(), and lang() —
// are deliberately absent; SPEC_FULL.md section 6.2 documents that decision
// and parseFunctionCall (parser.go) turns a reference to any of them into the
// same ErrInvalidXpath a genuinely unknown name produces.
var builtinFuncs = map[string]struct {
	fn       xpathFunc
	minArgs  int
	maxArgs  int // -1 means unbounded
}{
	"last":             {fnLast, 0, 0},
	"position":         {fnPosition, 0, 0},
	"count":            {fnCount, 1, 1},
	"local-name":       {fnLocalName, 0, 1},
	"namespace-uri":    {fnNamespaceURI, 0, 1},
	"name":             {fnName, 0, 1},
	"string":           {fnString, 0, 1},
	"concat":           {fnConcat, 2, -1},
	"starts-with":      {fnStartsWith, 2, 2},
	"contains":         {fnContains, 2, 2},
	"substring-before": {fnSubstringBefore, 2, 2},
	"substring-after":  {fnSubstringAfter, 2, 2},
	"substring":        {fnSubstring, 2, 3},
	"string-length":    {fnStringLength, 0, 1},
	"normalize-space":  {fnNormalizeSpace, 0, 1},
	"not":              {fnNot, 1, 1},
	"true":             {fnTrue, 0, 0},
	"false":            {fnFalse, 0, 0},
	"sum":              {fnSum, 1, 1},
	"floor":            {fnFloor, 1, 1},
	"ceiling":          {fnCeiling, 1, 1},
	"round":            {fnRound, 1, 1},
}

func fnLast(ctx *evalContext, args []Expr) (Value, error) {
	return NumberValue(float64(ctx.size)), nil
}

func fnPosition(ctx *evalContext, args []Expr) (Value, error) {
	return NumberValue(float64(ctx.position)), nil
}

func fnCount(ctx *evalContext, args []Expr) (Value, error) {
	nodes, err := evalAsNodeSet(ctx, args[0])
	if err != nil {
		return Value{}, err
	}
	return NumberValue(float64(len(nodes))), nil
}

// contextNodeArg resolves a function's optional node-set argument: when
// present, its first node in document order; when absent, the context node.
func contextNodeArg(ctx *evalContext, args []Expr) (PathNode, error) {
	if len(args) == 0 {
		return ctx.node, nil
	}
	nodes, err := evalAsNodeSet(ctx, args[0])
	if err != nil {
		return PathNode{}, err
	}
	if len(nodes) == 0 {
		return PathNode{}, nil
	}
	return nodes[0], nil
}

func fnLocalName(ctx *evalContext, args []Expr) (Value, error) {
	n, err := contextNodeArg(ctx, args)
	if err != nil {
		return Value{}, err
	}
	return StringValue(n.QName().Local), nil
}

func fnNamespaceURI(ctx *evalContext, args []Expr) (Value, error) {
	n, err := contextNodeArg(ctx, args)
	if err != nil {
		return Value{}, err
	}
	return StringValue(n.QName().URI), nil
}

func fnName(ctx *evalContext, args []Expr) (Value, error) {
	n, err := contextNodeArg(ctx, args)
	if err != nil {
		return Value{}, err
	}
	return StringValue(n.QName().String()), nil
}

func fnString(ctx *evalContext, args []Expr) (Value, error) {
	if len(args) == 0 {
		return StringValue(ctx.node.StringValue()), nil
	}
	v, err := args[0].eval(ctx)
	if err != nil {
		return Value{}, err
	}
	return StringValue(v.String()), nil
}

func fnConcat(ctx *evalContext, args []Expr) (Value, error) {
	var b strings.Builder
	for _, a := range args {
		v, err := a.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		b.WriteString(v.String())
	}
	return StringValue(b.String()), nil
}

func evalTwoStrings(ctx *evalContext, args []Expr) (string, string, error) {
	a, err := args[0].eval(ctx)
	if err != nil {
		return "", "", err
	}
	b, err := args[1].eval(ctx)
	if err != nil {
		return "", "", err
	}
	return a.String(), b.String(), nil
}

func fnStartsWith(ctx *evalContext, args []Expr) (Value, error) {
	s, prefix, err := evalTwoStrings(ctx, args)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(strings.HasPrefix(s, prefix)), nil
}

func fnContains(ctx *evalContext, args []Expr) (Value, error) {
	s, sub, err := evalTwoStrings(ctx, args)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(strings.Contains(s, sub)), nil
}

func fnSubstringBefore(ctx *evalContext, args []Expr) (Value, error) {
	s, sep, err := evalTwoStrings(ctx, args)
	if err != nil {
		return Value{}, err
	}
	i := strings.Index(s, sep)
	if i < 0 {
		return StringValue(""), nil
	}
	return StringValue(s[:i]), nil
}

func fnSubstringAfter(ctx *evalContext, args []Expr) (Value, error) {
	s, sep, err := evalTwoStrings(ctx, args)
	if err != nil {
		return Value{}, err
	}
	i := strings.Index(s, sep)
	if i < 0 {
		return StringValue(""), nil
	}
	return StringValue(s[i+len(sep):]), nil
}

// fnSubstring implements XPath 1.0's substring(), whose start/length
// arguments are rounded to the nearest integer and may fall partly or
// wholly outside the string, per spec.md section 4.8.
func fnSubstring(ctx *evalContext, args []Expr) (Value, error) {
	sv, err := args[0].eval(ctx)
	if err != nil {
		return Value{}, err
	}
	s := sv.String()
	startV, err := args[1].eval(ctx)
	if err != nil {
		return Value{}, err
	}
	start := round(startV.Number())

	runes := []rune(s)
	length := float64(len(runes)) - start + 1
	if len(args) == 3 {
		lenV, err := args[2].eval(ctx)
		if err != nil {
			return Value{}, err
		}
		length = round(lenV.Number())
	}

	first := start
	last := start + length
	if math.IsNaN(first) || math.IsNaN(last) {
		return StringValue(""), nil
	}
	lo := int(math.Max(first, 1))
	hi := int(math.Min(last, float64(len(runes)+1)))
	if lo >= hi || lo > len(runes) {
		return StringValue(""), nil
	}
	return StringValue(string(runes[lo-1 : hi-1])), nil
}

func fnStringLength(ctx *evalContext, args []Expr) (Value, error) {
	var s string
	if len(args) == 0 {
		s = ctx.node.StringValue()
	} else {
		v, err := args[0].eval(ctx)
		if err != nil {
			return Value{}, err
		}
		s = v.String()
	}
	return NumberValue(float64(len([]rune(s)))), nil
}

func fnNormalizeSpace(ctx *evalContext, args []Expr) (Value, error) {
	var s string
	if len(args) == 0 {
		s = ctx.node.StringValue()
	} else {
		v, err := args[0].eval(ctx)
		if err != nil {
			return Value{}, err
		}
		s = v.String()
	}
	return StringValue(strings.Join(strings.Fields(s), " ")), nil
}

func fnNot(ctx *evalContext, args []Expr) (Value, error) {
	v, err := args[0].eval(ctx)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(!v.Boolean()), nil
}

func fnTrue(ctx *evalContext, args []Expr) (Value, error)  { return BoolValue(true), nil }
func fnFalse(ctx *evalContext, args []Expr) (Value, error) { return BoolValue(false), nil }

func fnSum(ctx *evalContext, args []Expr) (Value, error) {
	nodes, err := evalAsNodeSet(ctx, args[0])
	if err != nil {
		return Value{}, err
	}
	total := 0.0
	for _, n := range nodes {
		total += stringToNumber(n.StringValue())
	}
	return NumberValue(total), nil
}

func fnFloor(ctx *evalContext, args []Expr) (Value, error) {
	v, err := args[0].eval(ctx)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(math.Floor(v.Number())), nil
}

func fnCeiling(ctx *evalContext, args []Expr) (Value, error) {
	v, err := args[0].eval(ctx)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(math.Ceil(v.Number())), nil
}

func fnRound(ctx *evalContext, args []Expr) (Value, error) {
	v, err := args[0].eval(ctx)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(round(v.Number())), nil
}

// round implements XPath 1.0's round(): halves round toward positive
// infinity, unlike Go's math.Round which rounds halves away from zero.
func round(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return n
	}
	return math.Floor(n + 0.5)
}

package xpathdom

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind is one of the four XPath 1.0 value kinds (spec.md section 3).
type ValueKind uint8

const (
	ValueBoolean ValueKind = iota
	ValueNumber
	ValueString
	ValueNode
)

func (k ValueKind) String() string {
	switch k {
	case ValueBoolean:
		return "Boolean"
	case ValueNumber:
		return "Number"
	case ValueString:
		return "String"
	case ValueNode:
		return "Node"
	default:
		return "Unknown"
	}
}

// Value is an XPath 1.0 value: a boolean, an IEEE-754 number (including
// NaN), a string, or a single node reference. There is no separate
// node-set kind at this layer — the step/path evaluators keep node-sets as
// []PathNode and only box an individual node into a Value when it reaches
// the result stream or a function boundary (spec.md section 3).
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	node PathNode
}

// Kind reports which of the four XPath value kinds v is.
func (v Value) Kind() ValueKind { return v.kind }

// BoolValue constructs a Boolean Value.
func BoolValue(b bool) Value { return Value{kind: ValueBoolean, b: b} }

// NumberValue constructs a Number Value.
func NumberValue(n float64) Value { return Value{kind: ValueNumber, n: n} }

// StringValue constructs a String Value.
func StringValue(s string) Value { return Value{kind: ValueString, s: s} }

// NodeValue constructs a Node Value.
func NodeValue(n PathNode) Value { return Value{kind: ValueNode, node: n} }

// Node returns the wrapped PathNode and true if v is a Node value.
func (v Value) Node() (PathNode, bool) {
	if v.kind != ValueNode {
		return PathNode{}, false
	}
	return v.node, true
}

// Boolean coerces v to Boolean per spec.md section 4.7.
func (v Value) Boolean() bool {
	switch v.kind {
	case ValueBoolean:
		return v.b
	case ValueNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case ValueString:
		return v.s != ""
	case ValueNode:
		return true
	default:
		return false
	}
}

// Number coerces v to Number per spec.md section 4.7.
func (v Value) Number() float64 {
	switch v.kind {
	case ValueBoolean:
		if v.b {
			return 1
		}
		return 0
	case ValueNumber:
		return v.n
	case ValueString:
		return stringToNumber(v.s)
	case ValueNode:
		return stringToNumber(v.node.StringValue())
	default:
		return math.NaN()
	}
}

// String coerces v to String per spec.md section 4.7.
func (v Value) String() string {
	switch v.kind {
	case ValueBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case ValueNumber:
		return numberToString(v.n)
	case ValueString:
		return v.s
	case ValueNode:
		return v.node.StringValue()
	default:
		return ""
	}
}

// stringToNumber parses s as an XPath number: leading/trailing whitespace is
// ignored; anything unparseable yields NaN (spec.md section 4.7).
func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// numberToString renders n in XPath's canonical decimal form: integers
// print without a decimal point, NaN and the infinities print their names.
func numberToString(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
}

// valuesEqual implements spec.md section 4.7's equality rules for the '='
// and '!=' operators. Node-vs-Node compares identity; Boolean equality
// coerces the other side to Boolean (a node is true); Node-vs-String and
// Node-vs-Number coerce the node through its string-value first;
// otherwise both sides compare as Numbers unless either is a String, in
// which case both compare as Strings (XPath 1.0's asymmetric rule).
func valuesEqual(a, b Value) bool {
	if a.kind == ValueNode && b.kind == ValueNode {
		return a.node.Equal(b.node)
	}
	if a.kind == ValueBoolean || b.kind == ValueBoolean {
		return a.Boolean() == b.Boolean()
	}
	if a.kind == ValueString || b.kind == ValueString {
		return a.String() == b.String()
	}
	return a.Number() == b.Number()
}

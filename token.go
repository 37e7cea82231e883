package xpathdom

import "fmt"

// TokenKind identifies the lexical category of a Token (spec.md section 4.1).
type TokenKind uint8

const (
	TokLeftParen TokenKind = iota
	TokRightParen
	TokLeftBracket
	TokRightBracket
	TokPeriod
	TokParentNode // ".."
	TokAtSign
	TokComma
	TokLocationStep // "::"
	TokAxis
	TokNumber
	TokLiteral // quote-stripped string literal
	TokNameTest
	TokNodeType
	TokOperator
	TokFunctionName
	TokVariableReference
	TokSlash
	TokDoubleSlash
)

func (k TokenKind) String() string {
	switch k {
	case TokLeftParen:
		return "("
	case TokRightParen:
		return ")"
	case TokLeftBracket:
		return "["
	case TokRightBracket:
		return "]"
	case TokPeriod:
		return "."
	case TokParentNode:
		return ".."
	case TokAtSign:
		return "@"
	case TokComma:
		return ","
	case TokLocationStep:
		return "::"
	case TokAxis:
		return "axis"
	case TokNumber:
		return "number"
	case TokLiteral:
		return "literal"
	case TokNameTest:
		return "name-test"
	case TokNodeType:
		return "node-type"
	case TokOperator:
		return "operator"
	case TokFunctionName:
		return "function-name"
	case TokVariableReference:
		return "variable-reference"
	case TokSlash:
		return "/"
	case TokDoubleSlash:
		return "//"
	default:
		return "unknown"
	}
}

// Axis is one of the thirteen XPath 1.0 traversal relations (spec.md
// sections 4.1 and 4.4).
type Axis uint8

const (
	AxisChild Axis = iota
	AxisDescendant
	AxisParent
	AxisAncestor
	AxisFollowingSibling
	AxisPrecedingSibling
	AxisFollowing
	AxisPreceding
	AxisAttribute
	AxisNamespace
	AxisSelf
	AxisDescendantOrSelf
	AxisAncestorOrSelf
)

var axisNames = map[string]Axis{
	"child":              AxisChild,
	"descendant":         AxisDescendant,
	"parent":             AxisParent,
	"ancestor":           AxisAncestor,
	"following-sibling":  AxisFollowingSibling,
	"preceding-sibling":  AxisPrecedingSibling,
	"following":          AxisFollowing,
	"preceding":          AxisPreceding,
	"attribute":          AxisAttribute,
	"namespace":          AxisNamespace,
	"self":               AxisSelf,
	"descendant-or-self": AxisDescendantOrSelf,
	"ancestor-or-self":   AxisAncestorOrSelf,
}

func (a Axis) String() string {
	for name, v := range axisNames {
		if v == a {
			return name
		}
	}
	return "unknown-axis"
}

// isReverseAxis reports whether a produces candidates in reverse document
// order, per spec.md section 4.4.
func (a Axis) isReverseAxis() bool {
	switch a {
	case AxisAncestor, AxisAncestorOrSelf, AxisPreceding, AxisPrecedingSibling:
		return true
	default:
		return false
	}
}

// principalNodeKind is the default kind of node an axis produces, used to
// pick the implicit node test when a bare name test follows an axis
// (spec.md section 4.2).
func (a Axis) principalNodeKind() NodeKind {
	switch a {
	case AxisAttribute:
		return KindAttribute
	case AxisNamespace:
		return KindNamespace
	default:
		return KindElement
	}
}

// NodeTypeKind distinguishes the four NodeType() token flavors: comment(),
// text(), processing-instruction(target?), and node().
type NodeTypeKind uint8

const (
	NodeTypeComment NodeTypeKind = iota
	NodeTypeText
	NodeTypeProcessingInstruction
	NodeTypeNode
)

// Token is a single lexical unit of an XPath expression.
type Token struct {
	Kind     TokenKind
	Position int

	// Axis is set when Kind == TokAxis.
	Axis Axis
	// Number is set when Kind == TokNumber.
	Number float64
	// Text carries the literal string (TokLiteral), the name-test's local
	// part (TokNameTest, TokFunctionName, TokVariableReference), the
	// operator spelling (TokOperator), or the processing-instruction
	// target (TokNodeType when NodeType == NodeTypeProcessingInstruction).
	Text string
	// Prefix is set for a prefixed TokNameTest ("prefix:local").
	Prefix string
	// NodeType is set when Kind == TokNodeType.
	NodeType NodeTypeKind
}

func (t Token) String() string {
	switch t.Kind {
	case TokAxis:
		return fmt.Sprintf("axis(%s)", t.Axis)
	case TokNumber:
		return fmt.Sprintf("number(%v)", t.Number)
	case TokLiteral:
		return fmt.Sprintf("literal(%q)", t.Text)
	case TokNameTest:
		if t.Prefix != "" {
			return fmt.Sprintf("name-test(%s:%s)", t.Prefix, t.Text)
		}
		return fmt.Sprintf("name-test(%s)", t.Text)
	case TokOperator:
		return fmt.Sprintf("operator(%s)", t.Text)
	case TokFunctionName:
		return fmt.Sprintf("function-name(%s)", t.Text)
	case TokVariableReference:
		return fmt.Sprintf("variable(%s)", t.Text)
	default:
		return t.Kind.String()
	}
}

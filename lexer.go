package xpathdom

import (
	"strings"
	"unicode/utf8"
)

// lexer turns an XPath source string into a flat Token sequence, expanding
// the four abbreviations (@, //, ., ..) as it drains into the buffer
// (spec.md section 4.1). It is used once per Parse call and then discarded.
type lexer struct {
	src string
	pos int

	// prevSignificant is the kind of the last token pushed into the
	// output buffer, used to disambiguate '*' (wildcard name test vs
	// multiply) by grammar position, per SPEC_FULL.md section 11
	// decision 3. '-' needs no such lookback: the recursive-descent
	// grammar already separates AdditiveExpr's binary '-' from
	// UnaryExpr's leading '-'.
	prevSignificant TokenKind
	havePrev        bool
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

// tokenize drains the entire source into an expanded Token slice, or
// returns the first lexical error encountered.
func tokenize(src string) ([]Token, error) {
	l := newLexer(src)
	var out []Token
	for {
		l.skipSpaces()
		if l.pos >= len(l.src) {
			break
		}
		start := l.pos
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, l.expand(tok, start)...)
	}
	return out, nil
}

func (l *lexer) skipSpaces() {
	for l.pos < len(l.src) && l.src[l.pos] == ' ' {
		l.pos++
	}
}

// expand applies the abbreviation rewrites of spec.md section 4.1 to a
// single lexed token, and tracks prevSignificant for the caller's lookback
// disambiguation.
func (l *lexer) expand(tok Token, pos int) []Token {
	var out []Token
	switch tok.Kind {
	case TokAtSign:
		out = []Token{{Kind: TokAxis, Axis: AxisAttribute, Position: pos}}
	case TokDoubleSlash:
		out = []Token{
			{Kind: TokSlash, Position: pos},
			{Kind: TokAxis, Axis: AxisDescendantOrSelf, Position: pos},
			{Kind: TokNodeType, NodeType: NodeTypeNode, Position: pos},
			{Kind: TokSlash, Position: pos},
		}
	case TokPeriod:
		out = []Token{
			{Kind: TokAxis, Axis: AxisSelf, Position: pos},
			{Kind: TokNodeType, NodeType: NodeTypeNode, Position: pos},
		}
	case TokParentNode:
		out = []Token{
			{Kind: TokAxis, Axis: AxisParent, Position: pos},
			{Kind: TokNodeType, NodeType: NodeTypeNode, Position: pos},
		}
	default:
		out = []Token{tok}
	}
	if len(out) > 0 {
		l.prevSignificant = out[len(out)-1].Kind
		l.havePrev = true
	}
	return out
}

// canEndExpression reports whether the most recently emitted token could be
// the last token of a complete (sub)expression — i.e. whether a following
// '*' must be multiplication rather than a wildcard name test.
func (l *lexer) canEndExpression() bool {
	if !l.havePrev {
		return false
	}
	switch l.prevSignificant {
	case TokNumber, TokLiteral, TokNameTest, TokRightParen, TokRightBracket:
		return true
	default:
		return false
	}
}

// next lexes exactly one raw token (pre-abbreviation-expansion) starting at
// l.pos, which must not be pointing at whitespace.
func (l *lexer) next() (Token, error) {
	pos := l.pos
	rest := l.src[l.pos:]

	// 1. Two-character operators.
	for _, op := range []string{"<=", ">=", "!=", "//", ".."} {
		if strings.HasPrefix(rest, op) {
			l.pos += len(op)
			switch op {
			case "//":
				return Token{Kind: TokDoubleSlash, Position: pos}, nil
			case "..":
				return Token{Kind: TokParentNode, Position: pos}, nil
			default:
				return Token{Kind: TokOperator, Text: op, Position: pos}, nil
			}
		}
	}

	c := rest[0]

	// '*' is the multiply operator after a token that can end an
	// expression and a wildcard name test otherwise. Axis, node-type,
	// function-name and name-test tokens are lexed after the
	// single-character operators, in lexNameLike.
	if c == '*' {
		l.pos++
		if l.canEndExpression() {
			return Token{Kind: TokOperator, Text: "*", Position: pos}, nil
		}
		return Token{Kind: TokNameTest, Text: "*", Position: pos}, nil
	}

	// 2. Single-character operators and delimiters.
	switch c {
	case '(':
		l.pos++
		return Token{Kind: TokLeftParen, Position: pos}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRightParen, Position: pos}, nil
	case '[':
		l.pos++
		return Token{Kind: TokLeftBracket, Position: pos}, nil
	case ']':
		l.pos++
		return Token{Kind: TokRightBracket, Position: pos}, nil
	case '@':
		l.pos++
		return Token{Kind: TokAtSign, Position: pos}, nil
	case '+':
		l.pos++
		return Token{Kind: TokOperator, Text: "+", Position: pos}, nil
	case '-':
		l.pos++
		return Token{Kind: TokOperator, Text: "-", Position: pos}, nil
	case '|':
		l.pos++
		return Token{Kind: TokOperator, Text: "|", Position: pos}, nil
	case '=':
		l.pos++
		return Token{Kind: TokOperator, Text: "=", Position: pos}, nil
	case '<':
		l.pos++
		return Token{Kind: TokOperator, Text: "<", Position: pos}, nil
	case '>':
		l.pos++
		return Token{Kind: TokOperator, Text: ">", Position: pos}, nil
	case ',':
		l.pos++
		return Token{Kind: TokComma, Position: pos}, nil
	}

	// 3. String literal.
	if c == '"' || c == '\'' {
		return l.lexString(pos, c)
	}

	// 4/5. Number, or a bare '.' (current node, handled by abbreviation
	// expansion of TokPeriod above).
	if isDigit(c) || (c == '.' && len(rest) > 1 && isDigit(rest[1])) {
		return l.lexNumber(pos)
	}
	if c == '.' {
		l.pos++
		return Token{Kind: TokPeriod, Position: pos}, nil
	}

	// 6-11: names, axes, node-types, function names, variable refs.
	if c == '$' {
		l.pos++
		name, ok := l.lexNCNameLike()
		if !ok {
			return Token{}, newErrorAt(ErrToken, "expected identifier after '$'", pos)
		}
		return Token{Kind: TokVariableReference, Text: name, Position: pos}, nil
	}
	if c == ':' {
		if strings.HasPrefix(rest, "::") {
			l.pos += 2
			return Token{Kind: TokLocationStep, Position: pos}, nil
		}
		l.pos++
		return Token{}, newErrorAt(ErrToken, "unexpected ':'", pos)
	}
	if isNameStartChar(c) {
		return l.lexNameLike(pos)
	}

	return Token{}, newErrorAt(ErrToken, string(c), pos)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStartChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c >= utf8.RuneSelf
}

func isNameChar(c byte) bool {
	return isNameStartChar(c) || isDigit(c) || c == '-' || c == '.'
}

func (l *lexer) lexString(pos int, quote byte) (Token, error) {
	l.pos++ // opening quote
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != quote {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return Token{}, newErrorAt(ErrToken, "unterminated string literal", pos)
	}
	text := l.src[start:l.pos]
	l.pos++ // closing quote
	return Token{Kind: TokLiteral, Text: text, Position: pos}, nil
}

func (l *lexer) lexNumber(pos int) (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	n := stringToNumber(l.src[start:l.pos])
	return Token{Kind: TokNumber, Number: n, Position: pos}, nil
}

// lexNCNameLike lexes a single NCName-shaped identifier (no ':'), used for
// variable references.
func (l *lexer) lexNCNameLike() (string, bool) {
	start := l.pos
	if l.pos >= len(l.src) || !isNameStartChar(l.src[l.pos]) {
		return "", false
	}
	l.pos++
	for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos], true
}

// lexNameLike lexes an axis specifier, a node-type test, a function name,
// or a (possibly prefixed) name test, in that priority order, matching
// spec.md section 4.1 rules 7-9 and 11.
func (l *lexer) lexNameLike(pos int) (Token, error) {
	prefix := ""
	local, _ := l.lexNCNameLike()

	// Axis check: "name::".
	save := l.pos
	l.skipSpaces()
	if strings.HasPrefix(l.src[l.pos:], "::") && !strings.HasPrefix(l.src[l.pos:], ":::") {
		if axis, ok := axisNames[local]; ok {
			l.pos += 2
			return Token{Kind: TokAxis, Axis: axis, Position: pos}, nil
		}
	}
	l.pos = save

	// Prefixed name: "prefix:local" (but not "prefix::").
	if l.pos < len(l.src) && l.src[l.pos] == ':' && !strings.HasPrefix(l.src[l.pos:], "::") {
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '*' {
			l.pos++
			return Token{Kind: TokNameTest, Prefix: local, Text: "*", Position: pos}, nil
		}
		more, ok := l.lexNCNameLike()
		if !ok {
			return Token{}, newErrorAt(ErrToken, "expected name after ':'", pos)
		}
		prefix = local
		local = more
	}

	// Node-type or function-name: immediately followed by '('.
	if l.pos < len(l.src) && l.src[l.pos] == '(' {
		if kind, ok := nodeTypeNames[local]; ok {
			return l.lexNodeType(pos, kind)
		}
		l.pos++ // consume '('
		return Token{Kind: TokFunctionName, Text: joinQName(prefix, local), Position: pos}, nil
	}

	// "and"/"or"/"mod"/"div" are operators only where an operator could
	// legally appear — i.e. right after something that can end an
	// expression. Elsewhere (start of path, after '/', after '(', ...)
	// they are ordinary name tests, since XPath 1.0 allows element names
	// like "div" or "or". Same lookback rule as the '*' wildcard case.
	if prefix == "" && l.canEndExpression() {
		switch local {
		case "and", "or", "mod", "div":
			return Token{Kind: TokOperator, Text: local, Position: pos}, nil
		}
	}

	return Token{Kind: TokNameTest, Prefix: prefix, Text: local, Position: pos}, nil
}

var nodeTypeNames = map[string]NodeTypeKind{
	"comment":                NodeTypeComment,
	"text":                   NodeTypeText,
	"processing-instruction": NodeTypeProcessingInstruction,
	"node":                   NodeTypeNode,
}

func (l *lexer) lexNodeType(pos int, kind NodeTypeKind) (Token, error) {
	l.pos++ // consume '('
	l.skipSpaces()
	target := ""
	if l.pos < len(l.src) && l.src[l.pos] != ')' {
		if kind != NodeTypeProcessingInstruction {
			return Token{}, newErrorAt(ErrToken, "node-type arguments must be empty", pos)
		}
		if l.src[l.pos] != '"' && l.src[l.pos] != '\'' {
			return Token{}, newErrorAt(ErrToken, "expected quoted processing-instruction target", pos)
		}
		tok, err := l.lexString(l.pos, l.src[l.pos])
		if err != nil {
			return Token{}, err
		}
		target = tok.Text
		l.skipSpaces()
	}
	if l.pos >= len(l.src) || l.src[l.pos] != ')' {
		return Token{}, newErrorAt(ErrToken, "unterminated node-type test", pos)
	}
	l.pos++
	return Token{Kind: TokNodeType, NodeType: kind, Text: target, Position: pos}, nil
}

func joinQName(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

package xpathdom

import "testing"

func TestTokenizeSimplePath(t *testing.T) {
	toks, err := tokenize("/a/b")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	want := []TokenKind{TokSlash, TokNameTest, TokSlash, TokNameTest}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestTokenizeAbbreviations(t *testing.T) {
	toks, err := tokenize("//a")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	// "//a" expands to: / descendant-or-self::node() / a
	want := []TokenKind{TokSlash, TokAxis, TokNodeType, TokSlash, TokNameTest}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	if toks[1].Axis != AxisDescendantOrSelf {
		t.Errorf("expected descendant-or-self axis, got %s", toks[1].Axis)
	}
}

func TestTokenizeAtSignBecomesAttributeAxis(t *testing.T) {
	toks, err := tokenize("@class")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != TokAxis || toks[0].Axis != AxisAttribute {
		t.Fatalf("expected [attribute-axis, name-test], got %v", toks)
	}
}

func TestTokenizeDotAndDotDot(t *testing.T) {
	toks, err := tokenize(".")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(toks) != 2 || toks[0].Axis != AxisSelf {
		t.Fatalf("expected self axis + node(), got %v", toks)
	}

	toks, err = tokenize("..")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(toks) != 2 || toks[0].Axis != AxisParent {
		t.Fatalf("expected parent axis + node(), got %v", toks)
	}
}

func TestTokenizeAxisSpecifier(t *testing.T) {
	toks, err := tokenize("ancestor::div")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != TokAxis || toks[0].Axis != AxisAncestor {
		t.Fatalf("expected ancestor axis token, got %v", toks)
	}
	if toks[1].Kind != TokNameTest || toks[1].Text != "div" {
		t.Fatalf("expected name-test 'div', got %v", toks[1])
	}
}

// TestWildcardDisambiguation exercises SPEC_FULL.md decision 3: '*' is a
// wildcard name test except directly after something that can end an
// expression, where it is multiplication.
func TestWildcardDisambiguation(t *testing.T) {
	toks, err := tokenize("//*")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	last := toks[len(toks)-1]
	if last.Kind != TokNameTest || last.Text != "*" {
		t.Fatalf("expected wildcard name-test after //, got %v", last)
	}

	toks, err = tokenize("2 * 3")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	var sawOperatorStar bool
	for _, tok := range toks {
		if tok.Kind == TokOperator && tok.Text == "*" {
			sawOperatorStar = true
		}
	}
	if !sawOperatorStar {
		t.Fatalf("expected '*' between numbers to lex as an operator, got %v", toks)
	}
}

// TestKeywordOperatorDisambiguation exercises the and/or/mod/div name-vs-
// operator lookback: these words are valid element names when they could
// not legally be an operator at that position.
func TestKeywordOperatorDisambiguation(t *testing.T) {
	toks, err := tokenize("//div")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	last := toks[len(toks)-1]
	if last.Kind != TokNameTest || last.Text != "div" {
		t.Fatalf("expected 'div' as a name test at start of a step, got %v", last)
	}

	toks, err = tokenize("1 div 2")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	var sawDivOperator bool
	for _, tok := range toks {
		if tok.Kind == TokOperator && tok.Text == "div" {
			sawDivOperator = true
		}
	}
	if !sawDivOperator {
		t.Fatalf("expected 'div' between numbers to lex as an operator, got %v", toks)
	}
}

func TestTokenizeFunctionCallAndNodeType(t *testing.T) {
	toks, err := tokenize("text()")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(toks) != 1 || toks[0].Kind != TokNodeType || toks[0].NodeType != NodeTypeText {
		t.Fatalf("expected a single node-type token, got %v", toks)
	}

	toks, err = tokenize("count(//a)")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if toks[0].Kind != TokFunctionName || toks[0].Text != "count" {
		t.Fatalf("expected function-name 'count', got %v", toks[0])
	}
}

func TestTokenizeStringLiteralAndNumber(t *testing.T) {
	toks, err := tokenize(`"hi" 'there' 3.14`)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %v", len(toks), toks)
	}
	if toks[0].Text != "hi" || toks[1].Text != "there" {
		t.Fatalf("unexpected literal text: %v %v", toks[0], toks[1])
	}
	if toks[2].Number != 3.14 {
		t.Fatalf("unexpected number: %v", toks[2].Number)
	}
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	_, err := tokenize(`"unterminated`)
	if err == nil {
		t.Fatalf("expected an error for an unterminated string literal")
	}
	evalErr, ok := err.(*EvaluationError)
	if !ok || evalErr.Kind != ErrToken {
		t.Fatalf("expected ErrToken, got %v", err)
	}
}

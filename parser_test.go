package xpathdom

import "testing"

func parseErr(t *testing.T, src string) *EvaluationError {
	t.Helper()
	_, err := parseExpression(src)
	if err == nil {
		t.Fatalf("parseExpression(%q): expected an error", src)
	}
	evalErr, ok := err.(*EvaluationError)
	if !ok {
		t.Fatalf("parseExpression(%q): expected *EvaluationError, got %T", src, err)
	}
	return evalErr
}

func TestParseSimpleAbsolutePath(t *testing.T) {
	e, err := parseExpression("/html/body")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	pe, ok := e.(*pathExpr)
	if !ok {
		t.Fatalf("expected *pathExpr, got %T", e)
	}
	if !pe.absolute || len(pe.steps) != 2 {
		t.Fatalf("expected an absolute path with 2 steps, got %+v", pe)
	}
	if pe.steps[0].test.local != "html" || pe.steps[1].test.local != "body" {
		t.Fatalf("unexpected step names: %+v", pe.steps)
	}
}

func TestParseDescendantAbbreviation(t *testing.T) {
	e, err := parseExpression("//div")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	pe, ok := e.(*pathExpr)
	if !ok || !pe.absolute || len(pe.steps) != 2 {
		t.Fatalf("expected absolute path with 2 steps (descendant-or-self::node(), div), got %+v", e)
	}
	if pe.steps[0].axis != AxisDescendantOrSelf {
		t.Fatalf("expected first step's axis to be descendant-or-self, got %v", pe.steps[0].axis)
	}
	if pe.steps[1].test.local != "div" {
		t.Fatalf("expected second step to test 'div', got %+v", pe.steps[1].test)
	}
}

func TestParsePredicateAndAxisSpecifier(t *testing.T) {
	e, err := parseExpression("//a[starts-with(@class, \"click\")]")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	pe := e.(*pathExpr)
	last := pe.steps[len(pe.steps)-1]
	if len(last.predicates) != 1 {
		t.Fatalf("expected exactly one predicate, got %d", len(last.predicates))
	}
}

func TestParseOperatorPrecedenceLadder(t *testing.T) {
	e, err := parseExpression("1 + 2 * 3")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	be, ok := e.(*binaryExpr)
	if !ok || be.op != opAdd {
		t.Fatalf("expected top-level '+', got %+v", e)
	}
	rhs, ok := be.right.(*binaryExpr)
	if !ok || rhs.op != opMultiply {
		t.Fatalf("expected '*' nested inside '+', got %+v", be.right)
	}
}

func TestParseUnionExpr(t *testing.T) {
	e, err := parseExpression("//div | //span")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	if _, ok := e.(*unionExpr); !ok {
		t.Fatalf("expected *unionExpr, got %T", e)
	}
}

func TestParseFilterExprThenPath(t *testing.T) {
	e, err := parseExpression("(//a)[1]/@class")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	pe, ok := e.(*pathExpr)
	if !ok {
		t.Fatalf("expected *pathExpr with a filter start, got %T", e)
	}
	if pe.start == nil {
		t.Fatalf("expected pathExpr.start to carry the filtered primary")
	}
	if _, ok := pe.start.(*filterExpr); !ok {
		t.Fatalf("expected pathExpr.start to be a *filterExpr, got %T", pe.start)
	}
}

func TestParseMulDivModOperators(t *testing.T) {
	e, err := parseExpression("7 mod 2")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	be, ok := e.(*binaryExpr)
	if !ok || be.op != opMod {
		t.Fatalf("expected opMod, got %+v", e)
	}

	e, err = parseExpression("7 div 2")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	be, ok = e.(*binaryExpr)
	if !ok || be.op != opDiv {
		t.Fatalf("expected opDiv, got %+v", e)
	}
}

func TestParseUnaryMinus(t *testing.T) {
	e, err := parseExpression("-5")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	if _, ok := e.(*unaryMinusExpr); !ok {
		t.Fatalf("expected *unaryMinusExpr, got %T", e)
	}

	e, err = parseExpression("3 - 5")
	if err != nil {
		t.Fatalf("parseExpression: %v", err)
	}
	be, ok := e.(*binaryExpr)
	if !ok || be.op != opSubtract {
		t.Fatalf("expected binary subtraction, got %+v", e)
	}
}

func TestParseEmptyExpressionErrors(t *testing.T) {
	if evalErr := parseErr(t, ""); evalErr.Kind != ErrInputEmpty {
		t.Errorf("expected ErrInputEmpty, got %v", evalErr.Kind)
	}
}

func TestParseTrailingSlashErrors(t *testing.T) {
	if evalErr := parseErr(t, "/html/"); evalErr.Kind != ErrTrailingSlash {
		t.Errorf("expected ErrTrailingSlash, got %v", evalErr.Kind)
	}
}

func TestParseMissingRightHandExpressionErrors(t *testing.T) {
	if evalErr := parseErr(t, "1 +"); evalErr.Kind != ErrExpectedRightHandExpression {
		t.Errorf("expected ErrExpectedRightHandExpression, got %v", evalErr.Kind)
	}
}

func TestParseUnknownFunctionErrors(t *testing.T) {
	if evalErr := parseErr(t, "id(\"x\")"); evalErr.Kind != ErrInvalidXpath {
		t.Errorf("expected id() to be rejected as unknown, got %v", evalErr.Kind)
	}
	if evalErr := parseErr(t, "translate(\"a\",\"b\",\"c\")"); evalErr.Kind != ErrInvalidXpath {
		t.Errorf("expected translate() to be rejected as unknown, got %v", evalErr.Kind)
	}
	if evalErr := parseErr(t, "lang(\"en\")"); evalErr.Kind != ErrInvalidXpath {
		t.Errorf("expected lang() to be rejected as unknown, got %v", evalErr.Kind)
	}
}

func TestParseWrongArityErrors(t *testing.T) {
	if evalErr := parseErr(t, "count()"); evalErr.Kind != ErrMissingFuncArgument {
		t.Errorf("expected count() with no args to be ErrMissingFuncArgument, got %v", evalErr.Kind)
	}
	if evalErr := parseErr(t, "true(1)"); evalErr.Kind != ErrMissingFuncArgument {
		t.Errorf("expected true(1) to be ErrMissingFuncArgument, got %v", evalErr.Kind)
	}
}

func TestParseTrailingTokensError(t *testing.T) {
	if evalErr := parseErr(t, "1 2"); evalErr.Kind != ErrUnexpectedToken {
		t.Errorf("expected trailing tokens to be ErrUnexpectedToken, got %v", evalErr.Kind)
	}
}

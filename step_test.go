package xpathdom

import "testing"

func newEvalContext(doc *adaptedDocument, node PathNode) *evalContext {
	return &evalContext{node: node, position: 1, size: 1, doc: doc, root: node}
}

func nameStep(axis Axis, local string) *stepExpr {
	return &stepExpr{axis: axis, test: nodeTest{axis: axis, local: local}}
}

func TestEvalStepChildByName(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	step := nameStep(AxisChild, "div")
	got, err := evalStep(ctx, step, bodyNode)
	if err != nil {
		t.Fatalf("evalStep: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 <div> children, got %d", len(got))
	}
}

func TestEvalStepWildcard(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	step := nameStep(AxisChild, "*")
	got, err := evalStep(ctx, step, bodyNode)
	if err != nil {
		t.Fatalf("evalStep: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 element children via wildcard, got %d", len(got))
	}
}

func TestEvalStepNumericPredicateIsPositionTest(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	step := nameStep(AxisChild, "div")
	step.predicates = []Expr{&literalExpr{v: NumberValue(2)}}
	got, err := evalStep(ctx, step, bodyNode)
	if err != nil {
		t.Fatalf("evalStep: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected [2] to narrow to exactly one div, got %d", len(got))
	}
	if got[0].QName().Local != "div" {
		t.Errorf("expected a div, got %q", got[0].QName().Local)
	}
	if got[0].Attributes()[0].StringValue() != "group1" {
		t.Errorf("expected the second div to be class=group1, got %q", got[0].Attributes()[0].StringValue())
	}
}

func TestEvalStepMultiplePredicatesNarrow(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	step := nameStep(AxisChild, "div")
	step.predicates = []Expr{
		&literalExpr{v: BoolValue(true)},
		&literalExpr{v: NumberValue(1)},
	}
	got, err := evalStep(ctx, step, bodyNode)
	if err != nil {
		t.Fatalf("evalStep: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the boolean-true predicate to pass all 3 through, then [1] to narrow to 1, got %d", len(got))
	}
	if got[0].Attributes()[0].StringValue() != "test1" {
		t.Errorf("expected first surviving div to be class=test1, got %q", got[0].Attributes()[0].StringValue())
	}
}

func TestEvalStepOverSetDedupesAndOrders(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	divStep := nameStep(AxisChild, "div")
	divs, err := evalStep(ctx, divStep, bodyNode)
	if err != nil {
		t.Fatalf("evalStep: %v", err)
	}

	aStep := nameStep(AxisDescendantOrSelf, "a")
	got, err := evalStepOverSet(ctx, aStep, divs)
	if err != nil {
		t.Fatalf("evalStepOverSet: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 <a> descendants across all 3 divs (group1, group2 each have one), got %d", len(got))
	}
	if doc.orderIndex(got[0]) >= doc.orderIndex(got[1]) {
		t.Errorf("expected results in document order")
	}
}

func TestApplyPredicatesEmptyMeansAllPass(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	children := axisResult(doc, AxisChild, bodyNode)
	got, err := applyPredicates(ctx, children, nil)
	if err != nil {
		t.Fatalf("applyPredicates: %v", err)
	}
	if len(got) != len(children) {
		t.Errorf("no predicates should pass every candidate through unchanged")
	}
}

func TestEvalPredicateBooleanCoercion(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	root := wrapHost(doc, hostDoc)
	ctx := newEvalContext(doc, root)

	ok, err := evalPredicate(ctx, &literalExpr{v: StringValue("nonempty")})
	if err != nil || !ok {
		t.Errorf("nonempty string literal should pass as a predicate")
	}
	ok, err = evalPredicate(ctx, &literalExpr{v: StringValue("")})
	if err != nil || ok {
		t.Errorf("empty string literal should fail as a predicate")
	}
	ctx.position = 3
	ok, err = evalPredicate(ctx, &literalExpr{v: NumberValue(3)})
	if err != nil || !ok {
		t.Errorf("numeric literal 3 should match context position 3")
	}
	ok, err = evalPredicate(ctx, &literalExpr{v: NumberValue(2)})
	if err != nil || ok {
		t.Errorf("numeric literal 2 should not match context position 3")
	}
}

// TestEvalPredicateFractionalNumberFloors exercises spec.md section 4.5
// rule 3: a fractional Number predicate behaves like its floor, so "[2.9]"
// matches position 2, not position 3 and not no position at all.
func TestEvalPredicateFractionalNumberFloors(t *testing.T) {
	ctx := &evalContext{position: 2, size: 5}
	ok, err := evalPredicate(ctx, &literalExpr{v: NumberValue(2.9)})
	if err != nil || !ok {
		t.Errorf("[2.9] should match position 2 (floor(2.9) == 2)")
	}
	ok, err = evalPredicate(ctx, &literalExpr{v: NumberValue(1.5)})
	if err != nil || ok {
		t.Errorf("[1.5] should not match position 2 (floor(1.5) == 1)")
	}
	ctx.position = 1
	ok, err = evalPredicate(ctx, &literalExpr{v: NumberValue(1.9999)})
	if err != nil || !ok {
		t.Errorf("[1.9999] should match position 1 (floor(1.9999) == 1)")
	}
}

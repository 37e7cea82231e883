package xpathdom

import "testing"

func TestSliceNodeCursorExhaustsInOrder(t *testing.T) {
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

	cur := &sliceNodeCursor{nodes: divs}
	var got []PathNode
	for {
		n, ok, err := cur.next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, n)
	}
	if len(got) != len(divs) {
		t.Fatalf("expected %d nodes, got %d", len(divs), len(got))
	}
	if _, ok, _ := cur.next(); ok {
		t.Error("expected a drained cursor to stay exhausted")
	}
}

func TestFilteredAxisCursorMatchesEvalStepWithNoPredicates(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	step := nameStep(AxisChild, "div")

	fac := &filteredAxisCursor{axis: newAxisCursor(doc, step.axis, bodyNode), test: step.test}
	var streamed []PathNode
	for {
		n, ok, err := fac.next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		streamed = append(streamed, n)
	}

	ctx := newEvalContext(doc, bodyNode)
	want, err := evalStep(ctx, step, bodyNode)
	if err != nil {
		t.Fatalf("evalStep: %v", err)
	}
	if len(streamed) != len(want) {
		t.Fatalf("filteredAxisCursor: got %d nodes, want %d", len(streamed), len(want))
	}
	for i := range want {
		if streamed[i] != want[i] {
			t.Errorf("node %d: streamed %v, want %v", i, streamed[i], want[i])
		}
	}
}

func TestPeekCursorDoesNotDropOrDuplicateNodes(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	children := axisResult(doc, AxisChild, bodyNode)

	peek := newPeekCursor(&sliceNodeCursor{nodes: children})
	first, ok, err := peek.peek()
	if err != nil || !ok {
		t.Fatalf("peek: ok=%v err=%v", ok, err)
	}
	if first != children[0] {
		t.Errorf("peek should return the first node without consuming it")
	}
	if again, ok, err := peek.peek(); err != nil || !ok || again != first {
		t.Errorf("a second peek should return the same cached node")
	}

	var got []PathNode
	for {
		n, ok, err := peek.next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, n)
	}
	if len(got) != len(children) {
		t.Fatalf("expected %d nodes through peekCursor, got %d", len(children), len(got))
	}
	for i := range children {
		if got[i] != children[i] {
			t.Errorf("node %d: got %v, want %v", i, got[i], children[i])
		}
	}
}

func TestStepCursorSingleContextMatchesEvalStep(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	step := nameStep(AxisChild, "div")
	sc := newStepCursor(ctx, step, &sliceNodeCursor{nodes: []PathNode{bodyNode}})
	var got []PathNode
	for {
		n, ok, err := sc.next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, n)
	}

	want, err := evalStep(ctx, step, bodyNode)
	if err != nil {
		t.Fatalf("evalStep: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("stepCursor: got %d, want %d", len(got), len(want))
	}
}

func TestStepCursorMultiContextDedupesAndOrders(t *testing.T) {
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
	sc := newStepCursor(ctx, aStep, &sliceNodeCursor{nodes: divs})
	var got []PathNode
	for {
		n, ok, err := sc.next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, n)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 <a> descendants across all 3 divs, got %d", len(got))
	}
	if doc.orderIndex(got[0]) >= doc.orderIndex(got[1]) {
		t.Errorf("expected results in document order")
	}
}

// TestPathExprEvalCursorMatchesEvalNodes cross-checks the new pull-based
// evalCursor against the existing eager evalNodes for a path whose first
// step fans out to every node in the document ("descendant-or-self::node()
// then child::div") — the case where stepCursor can't avoid realizing a
// step's full result, so the two evaluation strategies must still agree.
func TestPathExprEvalCursorMatchesEvalNodes(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	root := wrapHost(doc, hostDoc)
	ctx := newEvalContext(doc, root)

	path := &pathExpr{
		absolute: true,
		steps: []*stepExpr{
			{axis: AxisDescendantOrSelf, test: nodeTest{isNodeType: true, nodeType: NodeTypeNode}},
			{axis: AxisChild, test: nodeTest{axis: AxisChild, local: "div"}},
		},
	}

	eager, err := path.evalNodes(ctx)
	if err != nil {
		t.Fatalf("evalNodes: %v", err)
	}

	cur, err := path.evalCursor(ctx)
	if err != nil {
		t.Fatalf("evalCursor: %v", err)
	}
	var lazy []PathNode
	for {
		n, ok, err := cur.next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		lazy = append(lazy, n)
	}

	if len(lazy) != len(eager) {
		t.Fatalf("evalCursor produced %d nodes, evalNodes produced %d", len(lazy), len(eager))
	}
	for i := range eager {
		if lazy[i] != eager[i] {
			t.Errorf("node %d: cursor %v, eager %v", i, lazy[i], eager[i])
		}
	}
}

type countingCursor struct {
	inner nodeCursor
	calls int
}

func (c *countingCursor) next() (PathNode, bool, error) {
	c.calls++
	return c.inner.next()
}

// TestStepCursorStreamsPredicateFreeForwardStepWithoutExtraPulls exercises
// the fast path directly: a predicate-free step on a forward axis with a
// single context node should resolve after exactly two pulls from its
// source (one to find the context node, one lookahead that finds nothing
// more) regardless of how many candidates that one context node's own axis
// walk produces.
func TestStepCursorStreamsPredicateFreeForwardStepWithoutExtraPulls(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)
	ctx := newEvalContext(doc, bodyNode)

	countingSrc := &countingCursor{inner: &sliceNodeCursor{nodes: []PathNode{bodyNode}}}
	step := nameStep(AxisChild, "div")
	sc := newStepCursor(ctx, step, countingSrc)

	first, ok, err := sc.next()
	if err != nil || !ok {
		t.Fatalf("next: ok=%v err=%v", ok, err)
	}
	if first.QName().Local != "div" {
		t.Errorf("expected a div, got %q", first.QName().Local)
	}
	if countingSrc.calls != 2 {
		t.Errorf("expected exactly 2 pulls from the source, got %d", countingSrc.calls)
	}
}

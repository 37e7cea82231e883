package xpathdom_test

import (
	"math"
	"strings"
	"testing"

	"github.com/xpathdom/xpathdom"
)

// fixtureXML is the worked example document from spec.md section 8.
const fixtureXML = `<html><body>
  <div class="test1">Testing 1</div>
  <span class="test2">Testing 2</span>
  <a>Maybe</a>
  <div class="group1"><a class="clickable1">Don't</a></div>
  <a class="clickable2"></a>
  <div class="group2"><a class="clickable3">Open</a></div>
</body></html>`

func mustDocument(t *testing.T) (xpathdom.Document, *xpathdom.PathDocument) {
	t.Helper()
	dec := xpathdom.NewDecoder(strings.NewReader(fixtureXML))
	doc, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc, xpathdom.New(doc)
}

func mustCollectNodes(t *testing.T, pd *xpathdom.PathDocument, expr string) []xpathdom.PathNode {
	t.Helper()
	it, err := pd.Evaluate(expr)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", expr, err)
	}
	nodes, err := it.CollectNodes()
	if err != nil {
		t.Fatalf("CollectNodes(%q): %v", expr, err)
	}
	return nodes
}

func mustScalar(t *testing.T, pd *xpathdom.PathDocument, expr string) xpathdom.Value {
	t.Helper()
	it, err := pd.Evaluate(expr)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", expr, err)
	}
	v, ok, err := it.Next()
	if err != nil {
		t.Fatalf("Next(%q): %v", expr, err)
	}
	if !ok {
		t.Fatalf("Evaluate(%q): expected a result", expr)
	}
	return v
}

func TestScenarioAllDivsReturnsThreeNodes(t *testing.T) {
	_, pd := mustDocument(t)
	nodes := mustCollectNodes(t, pd, "//div")
	if len(nodes) != 3 {
		t.Fatalf("//div: expected 3 nodes, got %d", len(nodes))
	}
}

func TestScenarioLastDivThenA(t *testing.T) {
	_, pd := mustDocument(t)
	nodes := mustCollectNodes(t, pd, "//div[last()]/a")
	if len(nodes) != 1 {
		t.Fatalf("//div[last()]/a: expected 1 node, got %d", len(nodes))
	}
	if nodes[0].StringValue() != "Open" {
		t.Errorf("//div[last()]/a: expected 'Open', got %q", nodes[0].StringValue())
	}
}

func TestScenarioStartsWithPredicateOnAttribute(t *testing.T) {
	_, pd := mustDocument(t)
	nodes := mustCollectNodes(t, pd, `//a[starts-with(@class,"click")]/@class`)
	if len(nodes) != 3 {
		t.Fatalf(`//a[starts-with(@class,"click")]/@class: expected 3 nodes, got %d`, len(nodes))
	}
	want := []string{"clickable1", "clickable2", "clickable3"}
	for i, n := range nodes {
		if n.StringValue() != want[i] {
			t.Errorf("attribute %d: got %q, want %q", i, n.StringValue(), want[i])
		}
	}
}

func TestScenarioContainsFunction(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{`contains("abc123","bc12")`, true},
		{`contains("abc123","zzz")`, false},
	}
	_, pd := mustDocument(t)
	for _, c := range cases {
		v := mustScalar(t, pd, c.expr)
		if v.Boolean() != c.want {
			t.Errorf("%s: got %v, want %v", c.expr, v.Boolean(), c.want)
		}
	}
}

func TestScenarioConcatCoercion(t *testing.T) {
	_, pd := mustDocument(t)
	v := mustScalar(t, pd, `concat(1, "-", true())`)
	if v.String() != "1-true" {
		t.Errorf(`concat(1, "-", true()): got %q, want "1-true"`, v.String())
	}
}

func TestScenarioArithmeticWithNonNumericYieldsNaN(t *testing.T) {
	_, pd := mustDocument(t)
	v := mustScalar(t, pd, "2 + 1")
	if v.Number() != 3 {
		t.Errorf("2 + 1: got %v, want 3", v.Number())
	}
	v = mustScalar(t, pd, `"A" + 1`)
	if !math.IsNaN(v.Number()) {
		t.Errorf(`"A" + 1: expected NaN, got %v`, v.Number())
	}
}

func TestScenarioTextContentPredicateThenAttribute(t *testing.T) {
	_, pd := mustDocument(t)
	nodes := mustCollectNodes(t, pd, `//div[contains(text(),"Testing 1")]/@class`)
	if len(nodes) != 1 {
		t.Fatalf(`//div[contains(text(),"Testing 1")]/@class: expected 1 node, got %d`, len(nodes))
	}
	if nodes[0].StringValue() != "test1" {
		t.Errorf("expected class 'test1', got %q", nodes[0].StringValue())
	}
}

func TestInvariantCountDescendantStar(t *testing.T) {
	_, pd := mustDocument(t)
	v := mustScalar(t, pd, "count(/descendant::*)")
	// html, body, div, span, a, div, a, a, div, a = 10 elements.
	if v.Number() != 10 {
		t.Errorf("count(/descendant::*): got %v, want 10", v.Number())
	}
}

func TestInvariantEvaluateFromDot(t *testing.T) {
	hostDoc, pd := mustDocument(t)
	body := firstElementByTagName(hostDoc, "body")
	if body == nil {
		t.Fatal("missing <body>")
	}
	it, err := pd.EvaluateFrom(".", body)
	if err != nil {
		t.Fatalf("EvaluateFrom: %v", err)
	}
	nodes, err := it.CollectNodes()
	if err != nil {
		t.Fatalf("CollectNodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Underlying() != body {
		t.Fatalf("EvaluateFrom(\".\", body): expected exactly body itself, got %v", nodes)
	}
}

func TestInvariantEvaluateFromDotDot(t *testing.T) {
	hostDoc, pd := mustDocument(t)
	body := firstElementByTagName(hostDoc, "body")
	if body == nil {
		t.Fatal("missing <body>")
	}
	it, err := pd.EvaluateFrom("..", body)
	if err != nil {
		t.Fatalf("EvaluateFrom: %v", err)
	}
	nodes, err := it.CollectNodes()
	if err != nil {
		t.Fatalf("CollectNodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Underlying() != body.ParentNode() {
		t.Fatalf("EvaluateFrom(\"..\", body): expected body's parent, got %v", nodes)
	}
}

func TestResultIterExhaustsExactlyOnce(t *testing.T) {
	_, pd := mustDocument(t)
	it, err := pd.Evaluate("//div")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	count := 0
	for {
		_, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 results before exhaustion, got %d", count)
	}
	if _, ok, err := it.Next(); ok || err != nil {
		t.Fatalf("expected the iterator to stay exhausted, got ok=%v err=%v", ok, err)
	}
}

func TestCollectNodesErrorsOnScalarExpression(t *testing.T) {
	_, pd := mustDocument(t)
	it, err := pd.Evaluate("1 + 1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, err := it.CollectNodes(); err == nil {
		t.Fatalf("expected CollectNodes to fail on a scalar expression")
	}
}

func firstElementByTagName(n xpathdom.Node, tag string) xpathdom.Element {
	if el, ok := n.(xpathdom.Element); ok && string(el.TagName()) == tag {
		return el
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if found := firstElementByTagName(c, tag); found != nil {
			return found
		}
	}
	return nil
}

package xpathdom

import "testing"

func TestDedupeAndSortRemovesDuplicatesAndOrders(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	body := firstElementByTag(hostDoc, "body")
	bodyNode := wrapHost(doc, body)

	children := axisResult(doc, AxisChild, bodyNode)
	var divs []PathNode
	for _, c := range children {
		if c.Kind() == KindElement && c.QName().Local == "div" {
			divs = append(divs, c)
		}
	}
	if len(divs) != 3 {
		t.Fatalf("expected 3 divs, got %d", len(divs))
	}

	// Feed them in reverse, plus a duplicate of the first, and expect
	// dedupeAndSort to restore document order and collapse the duplicate.
	scrambled := []PathNode{divs[2], divs[0], divs[1], divs[0]}
	got := dedupeAndSort(doc, scrambled)
	if len(got) != 3 {
		t.Fatalf("expected 3 unique nodes, got %d", len(got))
	}
	for i, want := range divs {
		if !got[i].Equal(want) {
			t.Errorf("position %d: got %v, want %v", i, got[i], want)
		}
	}
}

func TestDedupeAndSortEmptyInputYieldsNil(t *testing.T) {
	hostDoc := mustDecodeFixture()
	doc := newAdaptedDocument(hostDoc)
	if got := dedupeAndSort(doc, nil); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestXPathMod(t *testing.T) {
	cases := []struct {
		l, r, want float64
	}{
		{5, 2, 1},
		{5, -2, 1},
		{-5, 2, -1},
		{-5, -2, -1},
		{4.5, 2, 0.5},
	}
	for _, c := range cases {
		if got := xpathMod(c.l, c.r); got != c.want {
			t.Errorf("xpathMod(%v, %v) = %v, want %v", c.l, c.r, got, c.want)
		}
	}
}

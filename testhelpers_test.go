package xpathdom

import "strings"

// fixtureXML is the worked example document from spec.md section 8,
// reused across the internal axis/step/path/function test files.
const fixtureXML = `<html><body>
  <div class="test1">Testing 1</div>
  <span class="test2">Testing 2</span>
  <a>Maybe</a>
  <div class="group1"><a class="clickable1">Don't</a></div>
  <a class="clickable2"></a>
  <div class="group2"><a class="clickable3">Open</a></div>
</body></html>`

func mustDecodeFixture() Document {
	dec := NewDecoder(strings.NewReader(fixtureXML))
	doc, err := dec.Decode()
	if err != nil {
		panic(err)
	}
	return doc
}

// firstElementByTag does a simple depth-first search for the first element
// with the given tag name, for building small test fixtures without pulling
// in the XPath engine itself.
func firstElementByTag(n Node, tag string) Element {
	if el, ok := n.(Element); ok && string(el.TagName()) == tag {
		return el
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if found := firstElementByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

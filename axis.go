package xpathdom

// axisCursor is the incremental producer spec.md section 4.4 describes:
// given a context node, emit the next axis candidate or report done. Each
// concrete cursor carries only the small state record it needs (a stack of
// per-level frames, a materialized sibling list, or a pair of indices into
// the document's cached order), so dropping a ResultIter mid-evaluation
// releases all of it deterministically (spec.md section 5).
type axisCursor interface {
	next() (PathNode, bool)
}

// newAxisCursor builds the cursor for walking axis starting at node.
func newAxisCursor(doc *adaptedDocument, axis Axis, node PathNode) axisCursor {
	switch axis {
	case AxisSelf:
		return &onceCursor{node: node}
	case AxisChild:
		return &childCursor{parent: node}
	case AxisParent:
		p, ok := node.Parent()
		if !ok {
			return &onceCursor{}
		}
		return &onceCursor{node: p}
	case AxisAttribute:
		return &sliceCursor{nodes: node.Attributes()}
	case AxisNamespace:
		// Namespace axis is an open question left unsupported
		// (spec.md section 9 / SPEC_FULL.md section 11 decision 1):
		// it always produces zero candidates rather than erroring.
		return &sliceCursor{}
	case AxisDescendant:
		return &descendantCursor{stack: []frame{{node: node}}}
	case AxisDescendantOrSelf:
		return &selfThenCursor{first: node, rest: &descendantCursor{stack: []frame{{node: node}}}}
	case AxisAncestor:
		return &ancestorCursor{current: node}
	case AxisAncestorOrSelf:
		return &selfThenCursor{first: node, rest: &ancestorCursor{current: node}}
	case AxisFollowingSibling:
		return newSiblingCursor(node, true)
	case AxisPrecedingSibling:
		return newSiblingCursor(node, false)
	case AxisFollowing:
		return newFollowingCursor(doc, node)
	case AxisPreceding:
		return newPrecedingCursor(doc, node)
	default:
		return &sliceCursor{}
	}
}

// onceCursor yields a single node (or none, if its zero).
type onceCursor struct {
	node PathNode
	done bool
}

func (c *onceCursor) next() (PathNode, bool) {
	if c.done || c.node.IsZero() {
		return PathNode{}, false
	}
	c.done = true
	return c.node, true
}

// sliceCursor walks a pre-materialized, already-ordered slice (used for
// the attribute axis, whose candidate count is bounded by one element's
// attribute list, and for the empty namespace axis).
type sliceCursor struct {
	nodes []PathNode
	idx   int
}

func (c *sliceCursor) next() (PathNode, bool) {
	if c.idx >= len(c.nodes) {
		return PathNode{}, false
	}
	n := c.nodes[c.idx]
	c.idx++
	return n, true
}

// childCursor walks a single node's children by index, bounds-checked,
// without materializing them all up front.
type childCursor struct {
	parent PathNode
	idx    int
}

func (c *childCursor) next() (PathNode, bool) {
	n, ok := c.parent.ChildAt(c.idx)
	if !ok {
		return PathNode{}, false
	}
	c.idx++
	return n, true
}

// frame is one level of the descendant axis's explicit stack: the node
// whose children are being produced, and the index of the next child to
// visit. Using an explicit stack instead of recursive calls lets the
// cursor suspend after each yielded node (Design Notes, spec.md section 9).
type frame struct {
	node PathNode
	idx  int
}

// descendantCursor performs an iterative pre-order walk beneath (but
// excluding) its starting node: first child, then that child's
// descendants, then the next child (spec.md section 4.4's tie-break rule).
type descendantCursor struct {
	stack []frame
}

func (c *descendantCursor) next() (PathNode, bool) {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		child, ok := top.node.ChildAt(top.idx)
		if !ok {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		top.idx++
		c.stack = append(c.stack, frame{node: child})
		return child, true
	}
	return PathNode{}, false
}

// selfThenCursor yields a fixed first node, then delegates to another
// cursor, for the two "-or-self" axes.
type selfThenCursor struct {
	first   PathNode
	yielded bool
	rest    axisCursor
}

func (c *selfThenCursor) next() (PathNode, bool) {
	if !c.yielded {
		c.yielded = true
		return c.first, true
	}
	return c.rest.next()
}

// ancestorCursor walks parent links upward; the nearest ancestor is
// produced first, matching the reverse-axis position rule of spec.md
// section 4.5 (nearest ancestor has position 1).
type ancestorCursor struct {
	current PathNode
}

func (c *ancestorCursor) next() (PathNode, bool) {
	p, ok := c.current.Parent()
	if !ok {
		return PathNode{}, false
	}
	c.current = p
	return p, true
}

// newSiblingCursor materializes the parent's child list once (bounded by
// one parent's fan-out, not the whole document) and walks it forward
// (following-sibling) or backward (preceding-sibling, nearest first).
func newSiblingCursor(node PathNode, forward bool) axisCursor {
	parent, ok := node.Parent()
	if !ok {
		return &sliceCursor{}
	}
	count := parent.NumChildren()
	selfIdx := -1
	for i := 0; i < count; i++ {
		c, _ := parent.ChildAt(i)
		if c.Equal(node) {
			selfIdx = i
			break
		}
	}
	if selfIdx < 0 {
		return &sliceCursor{}
	}
	var out []PathNode
	if forward {
		for i := selfIdx + 1; i < count; i++ {
			c, _ := parent.ChildAt(i)
			out = append(out, c)
		}
	} else {
		for i := selfIdx - 1; i >= 0; i-- {
			c, _ := parent.ChildAt(i)
			out = append(out, c)
		}
	}
	return &sliceCursor{nodes: out}
}

// newFollowingCursor and newPrecedingCursor build a followingPrecedingCursor
// that uses the document's cached pre-order
// index (built once per document, see adapter.go) to find everything after
// or before the context node in document order while excluding its own
// subtree (following), its ancestors (preceding), and attribute/namespace
// nodes from both, per spec.md section 4.4.
type followingPrecedingCursor struct {
	doc     *adaptedDocument
	idx     int
	step    int
	stop    func(int) bool
	exclude func(entry docEntry) bool
}

func (c *followingPrecedingCursor) next() (PathNode, bool) {
	for !c.stop(c.idx) {
		e := c.doc.entries[c.idx]
		c.idx += c.step
		if c.exclude(e) {
			continue
		}
		return e.node, true
	}
	return PathNode{}, false
}

func newFollowingCursor(doc *adaptedDocument, node PathNode) axisCursor {
	doc.ensureOrder()
	_, end := doc.subtreeRange(node)
	return &followingPrecedingCursor{
		doc:  doc,
		idx:  end + 1,
		step: 1,
		stop: func(i int) bool { return i >= len(doc.entries) },
		exclude: func(e docEntry) bool {
			return e.node.Kind() == KindAttribute || e.node.Kind() == KindNamespace || e.node.Kind() == kindUnsupported
		},
	}
}

func newPrecedingCursor(doc *adaptedDocument, node PathNode) axisCursor {
	doc.ensureOrder()
	start, _ := doc.subtreeRange(node)
	return &followingPrecedingCursor{
		doc:  doc,
		idx:  start - 1,
		step: -1,
		stop: func(i int) bool { return i < 0 },
		exclude: func(e docEntry) bool {
			if e.node.Kind() == KindAttribute || e.node.Kind() == KindNamespace || e.node.Kind() == kindUnsupported {
				return true
			}
			return e.end >= start // e's subtree contains node: e is an ancestor
		},
	}
}

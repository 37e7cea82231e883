package xpathdom

// nodeCursor is the pull interface a node-set evaluation exposes instead of
// a pre-computed slice: Next returns the next node in document order, or
// ok=false once exhausted. Every suspension point in a path evaluation is
// exactly one of these next() calls (spec.md section 5); dropping a cursor
// before it's exhausted releases whatever axis walker state it holds with
// no further action, since nothing beyond ordinary Go values is ever held
// open across a call.
type nodeCursor interface {
	next() (PathNode, bool, error)
}

// sliceNodeCursor serves an already-realized, ordered slice one node at a
// time. Used wherever correctness forces full materialization up front —
// cross-context-node dedup/sort (spec.md section 4.6), a predicate that
// needs position()/last(), a reverse axis whose axis order isn't document
// order — and for the trivial singleton start of a path (root, context
// node, a FilterExpr/Union source).
type sliceNodeCursor struct {
	nodes []PathNode
	idx   int
}

func (c *sliceNodeCursor) next() (PathNode, bool, error) {
	if c.idx >= len(c.nodes) {
		return PathNode{}, false, nil
	}
	n := c.nodes[c.idx]
	c.idx++
	return n, true, nil
}

// filteredAxisCursor streams an axis walk through a node test with no
// buffering at all. Only valid for a predicate-free step over a single
// context node on a forward axis: there, neither position()/last() (no
// predicates to need them) nor a final re-sort (a forward axis already
// produces a single context node's candidates in document order) requires
// seeing the whole candidate set before the first one can be returned.
type filteredAxisCursor struct {
	axis axisCursor
	test nodeTest
}

func (c *filteredAxisCursor) next() (PathNode, bool, error) {
	for {
		n, ok := c.axis.next()
		if !ok {
			return PathNode{}, false, nil
		}
		if c.test.matches(n) {
			return n, true, nil
		}
	}
}

// peekCursor adds a one-node lookahead to a nodeCursor, which is all a
// stepCursor needs to tell whether its source is ever going to produce a
// second context node without draining it.
type peekCursor struct {
	src    nodeCursor
	peeked bool
	node   PathNode
	ok     bool
	err    error
}

func newPeekCursor(src nodeCursor) *peekCursor { return &peekCursor{src: src} }

func (p *peekCursor) peek() (PathNode, bool, error) {
	if !p.peeked {
		p.node, p.ok, p.err = p.src.next()
		p.peeked = true
	}
	return p.node, p.ok, p.err
}

func (p *peekCursor) next() (PathNode, bool, error) {
	if p.peeked {
		p.peeked = false
		return p.node, p.ok, p.err
	}
	return p.src.next()
}

// stepCursor applies one location step lazily over its source cursor,
// resolving on the first next() call whether the source ever yields more
// than one context node. A single context node on a forward axis with no
// predicates streams straight out of the axis cursor with no buffering at
// all; anything else realizes that step's own local result (one context
// node's candidates, or the whole cross-context node-set when the source
// fans out) and serves it from a small buffer, keeping the unavoidable
// XPath-level buffering scoped to what actually needs it instead of the
// whole step or the whole path the way evalStepOverSet used to.
//
// evalStep/evalStepOverSet (step.go) remain the eager entry points other
// callers use when they genuinely need a full node-set up front — function
// arguments like count(), a FilterExpr's predicates, Union's operands.
type stepCursor struct {
	ctx    *evalContext
	step   *stepExpr
	source *peekCursor

	resolved bool
	inner    nodeCursor
}

func newStepCursor(ctx *evalContext, step *stepExpr, source nodeCursor) *stepCursor {
	return &stepCursor{ctx: ctx, step: step, source: newPeekCursor(source)}
}

func (c *stepCursor) next() (PathNode, bool, error) {
	if !c.resolved {
		if err := c.resolve(); err != nil {
			return PathNode{}, false, err
		}
	}
	return c.inner.next()
}

func (c *stepCursor) resolve() error {
	c.resolved = true

	first, ok, err := c.source.peek()
	if err != nil {
		return err
	}
	if !ok {
		c.inner = &sliceNodeCursor{}
		return nil
	}
	c.source.next() // consume the peeked node

	_, hasSecond, err := c.source.peek()
	if err != nil {
		return err
	}

	if !hasSecond && len(c.step.predicates) == 0 && !c.step.axis.isReverseAxis() {
		c.inner = &filteredAxisCursor{axis: newAxisCursor(c.ctx.doc, c.step.axis, first), test: c.step.test}
		return nil
	}
	if !hasSecond {
		nodes, err := evalStep(c.ctx, c.step, first)
		if err != nil {
			return err
		}
		c.inner = &sliceNodeCursor{nodes: dedupeAndSort(c.ctx.doc, nodes)}
		return nil
	}

	current := []PathNode{first}
	for {
		n, ok, err := c.source.next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		current = append(current, n)
	}
	nodes, err := evalStepOverSet(c.ctx, c.step, current)
	if err != nil {
		return err
	}
	c.inner = &sliceNodeCursor{nodes: nodes}
	return nil
}

// lazyNodeSetCursor defers a nodeSetExpr's full evaluation to the first
// pull instead of running it before the ResultIter even exists. Used for
// top-level node-set shapes other than pathExpr — Union, or a bare
// FilterExpr with no trailing path — for which evalCursor's per-step
// incrementality doesn't apply but deferring the work is still worthwhile.
type lazyNodeSetCursor struct {
	ctx   *evalContext
	expr  nodeSetExpr
	inner nodeCursor
}

func (c *lazyNodeSetCursor) next() (PathNode, bool, error) {
	if c.inner == nil {
		nodes, err := c.expr.evalNodes(c.ctx)
		if err != nil {
			return PathNode{}, false, err
		}
		c.inner = &sliceNodeCursor{nodes: nodes}
	}
	return c.inner.next()
}

// evalCursor builds a lazy cursor over a path's node-set: the entry point
// document.go's ResultIter uses so that pulling results does bounded,
// incremental work instead of evaluating the whole path before the caller
// asks for anything (spec.md section 5). evalNodes (ast.go) remains the
// eager entry point for callers that need the whole node-set at once.
func (e *pathExpr) evalCursor(ctx *evalContext) (nodeCursor, error) {
	var cur nodeCursor
	switch {
	case e.start != nil:
		nodes, err := evalAsNodeSet(ctx, e.start)
		if err != nil {
			return nil, err
		}
		cur = &sliceNodeCursor{nodes: nodes}
	case e.absolute:
		cur = &sliceNodeCursor{nodes: []PathNode{ctx.root}}
	default:
		cur = &sliceNodeCursor{nodes: []PathNode{ctx.node}}
	}
	for _, step := range e.steps {
		cur = newStepCursor(ctx, step, cur)
	}
	return cur, nil
}

package xpathdom

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"
)

// exprCache memoizes compiled expression trees across Evaluate calls,
// keyed on expression text, the same way the host package's own XPath
// engine cached ASTs: a groupcache/lru.Cache guarded by an RWMutex (spec.md
// section 4's "parsing happens once per distinct expression string").
var (
	exprCache   = lru.New(2048)
	exprCacheMu sync.RWMutex
)

func getCachedExpr(expr string) (Expr, bool) {
	// lru.Cache.Get moves the entry to the front of its list, so it needs
	// the write lock.
	exprCacheMu.Lock()
	defer exprCacheMu.Unlock()
	if v, ok := exprCache.Get(expr); ok {
		e, ok := v.(Expr)
		return e, ok
	}
	return nil, false
}

func setCachedExpr(expr string, e Expr) {
	exprCacheMu.Lock()
	defer exprCacheMu.Unlock()
	exprCache.Add(expr, e)
}

func compile(expr string) (Expr, error) {
	if cached, ok := getCachedExpr(expr); ok {
		return cached, nil
	}
	e, err := parseExpression(expr)
	if err != nil {
		return nil, err
	}
	setCachedExpr(expr, e)
	return e, nil
}

// PathDocument is the XPath evaluation entry point: a single root Node from
// the host DOM (core.go) plus the lazily-built document-order index axis
// traversal and result ordering depend on (spec.md section 3). Named
// PathDocument rather than Document since core.go already exports a
// Document interface for the host DOM itself.
type PathDocument struct {
	root Node
	doc  *adaptedDocument
}

// New wraps root for XPath evaluation. root is typically a Document node but
// may be any node in the tree; absolute paths resolve against root itself,
// not against root's owner document.
func New(root Node) *PathDocument {
	d := &PathDocument{root: root, doc: newAdaptedDocument(root)}
	return d
}

// Evaluate compiles expr (reusing a cached compilation if expr has been seen
// before) and evaluates it with the document root as the context node.
func (d *PathDocument) Evaluate(expr string) (*ResultIter, error) {
	return d.EvaluateFromContext(context.Background(), expr, d.root)
}

// EvaluateFrom compiles expr and evaluates it with context as the context
// node. context must belong to d's tree.
func (d *PathDocument) EvaluateFrom(expr string, context Node) (*ResultIter, error) {
	return d.EvaluateFromContext(context.Background(), expr, context)
}

// EvaluateContext is Evaluate plus an explicit context.Context, the same
// field the teacher's XPathContext carried (xpath.go) purely so a caller
// embedding this engine in a traced service has somewhere to attach tracing
// without the engine needing to know what a tracer is (SPEC_FULL.md section
// 3.5). This engine has no cancellation token (spec.md section 5): a caller
// still cancels an in-progress evaluation by dropping the ResultIter.
func (d *PathDocument) EvaluateContext(ctx context.Context, expr string) (*ResultIter, error) {
	return d.EvaluateFromContext(ctx, expr, d.root)
}

// EvaluateFromContext is EvaluateFrom plus an explicit context.Context.
func (d *PathDocument) EvaluateFromContext(ctx context.Context, expr string, context Node) (*ResultIter, error) {
	e, err := compile(expr)
	if err != nil {
		return nil, err
	}
	root := wrapHost(d.doc, d.root)
	ctxNode := wrapHost(d.doc, context)
	ec := &evalContext{node: ctxNode, position: 1, size: 1, doc: d.doc, root: root, ctx: ctx}

	if pe, ok := e.(*pathExpr); ok {
		cur, err := pe.evalCursor(ec)
		if err != nil {
			return nil, err
		}
		return &ResultIter{ctx: ctx, nodes: cur}, nil
	}
	if ns, ok := e.(nodeSetExpr); ok {
		return &ResultIter{ctx: ctx, nodes: &lazyNodeSetCursor{ctx: ec, expr: ns}}, nil
	}
	return &ResultIter{ctx: ctx, scalar: func() (Value, error) { return e.eval(ec) }}, nil
}

// ResultIter streams the Values an evaluation produces. For a node-set
// expression each Value is pulled from the underlying step cursors as Next
// is called, rather than computed up front (spec.md section 1's lazy
// sequence, section 5's suspension-at-next() model); for a scalar
// expression it computes and yields exactly one Value on the first call.
type ResultIter struct {
	ctx    context.Context
	nodes  nodeCursor // set for a node-set expression
	scalar func() (Value, error)
	done   bool
}

// Next returns the next Value, or ok == false once exhausted. Once Next
// returns an error the iterator stays exhausted (SPEC_FULL.md section 3.3).
func (it *ResultIter) Next() (Value, bool, error) {
	if it.done {
		return Value{}, false, nil
	}
	if it.nodes != nil {
		n, ok, err := it.nodes.next()
		if err != nil {
			it.done = true
			return Value{}, false, err
		}
		if !ok {
			it.done = true
			return Value{}, false, nil
		}
		return NodeValue(n), true, nil
	}
	it.done = true
	v, err := it.scalar()
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

// CollectNodes drains the iterator and returns its values as PathNodes,
// failing with ErrInvalidValue if any value produced is not a Node (i.e. the
// compiled expression was scalar, not a node-set).
func (it *ResultIter) CollectNodes() ([]PathNode, error) {
	var out []PathNode
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		n, ok := v.Node()
		if !ok {
			return nil, newError(ErrInvalidValue, "result is not a node-set")
		}
		out = append(out, n)
	}
}

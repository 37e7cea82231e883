package xpathdom

import (
	"context"
	"math"
)

// Expr is an XPath expression tree node (spec.md section 3). The tree is
// built once at compile time and is immutable thereafter; per-evaluation
// state never lives on an Expr.
type Expr interface {
	// eval evaluates the expression in ctx, returning a single Value.
	// Node-set-producing expressions (Path, Union, and filtered variants)
	// return a ValueNode wrapping their first result for scalar contexts,
	// but the step/path evaluator calls evalNodes directly instead of
	// going through eval when it needs the whole ordered node-set.
	eval(ctx *evalContext) (Value, error)
}

// nodeSetExpr is implemented by expressions that can produce an ordered,
// deduplicated node-set directly, without being forced through a scalar
// Value first: Path and Union. The step/path evaluator type-switches on
// this interface instead of calling eval whenever it needs nodes.
type nodeSetExpr interface {
	Expr
	evalNodes(ctx *evalContext) ([]PathNode, error)
}

// evalContext carries everything a single expression evaluation needs:
// the context node plus its position and size (spec.md section 3's
// "Predicates are expressions whose evaluation context carries the current
// candidate node's position and size"), the document root (for absolute
// paths), variable bindings (parsed, not required to be resolved — they
// evaluate to NaN/empty per spec.md section 4.7), and a cancellation
// Context for callers that embed this engine in a traced service.
type evalContext struct {
	node     PathNode
	position int
	size     int
	doc      *adaptedDocument
	root     PathNode
	vars     map[string]Value
	ctx      context.Context
}

func (c *evalContext) withNode(n PathNode, pos, size int) *evalContext {
	cp := *c
	cp.node = n
	cp.position = pos
	cp.size = size
	return &cp
}

// literalExpr wraps a compile-time constant Value.
type literalExpr struct{ v Value }

func (e *literalExpr) eval(ctx *evalContext) (Value, error) { return e.v, nil }

// rootExpr evaluates to the document root node (the '/' at the start of an
// absolute location path).
type rootExpr struct{}

func (e *rootExpr) eval(ctx *evalContext) (Value, error) { return NodeValue(ctx.root), nil }
func (e *rootExpr) evalNodes(ctx *evalContext) ([]PathNode, error) {
	return []PathNode{ctx.root}, nil
}

// contextExpr evaluates to the current context node (the '.' step).
type contextExpr struct{}

func (e *contextExpr) eval(ctx *evalContext) (Value, error) { return NodeValue(ctx.node), nil }
func (e *contextExpr) evalNodes(ctx *evalContext) ([]PathNode, error) {
	return []PathNode{ctx.node}, nil
}

// variableExpr evaluates to a bound variable's value. Per SPEC_FULL.md
// section 12 (variable bindings are parsed but not required to be
// resolved), an unbound reference behaves like an absent operand: NaN /
// empty string / false, matching spec.md section 4.7's "if a required
// operand is absent the result is NaN" rule applied uniformly.
type variableExpr struct{ name string }

func (e *variableExpr) eval(ctx *evalContext) (Value, error) {
	if v, ok := ctx.vars[e.name]; ok {
		return v, nil
	}
	return StringValue(""), nil
}

// nodeTest filters axis candidates by node kind and/or name, per spec.md
// sections 4.1/4.2.
type nodeTest struct {
	// isNodeType/nodeType are set for a NodeType() test (comment(),
	// text(), processing-instruction(), node()); for a bare name test,
	// axis supplies the principal node kind, filtered further by name.
	isNodeType bool
	nodeType   NodeTypeKind
	piTarget   string // only meaningful when nodeType == NodeTypeProcessingInstruction and non-empty

	// Name test fields, used when isNodeType is false.
	prefix  string
	local   string // "*" for wildcard
	axis    Axis   // the owning step's axis, to resolve the principal kind
}

func (t nodeTest) matches(n PathNode) bool {
	if t.isNodeType {
		switch t.nodeType {
		case NodeTypeNode:
			return true
		case NodeTypeText:
			return n.Kind() == KindText
		case NodeTypeComment:
			return n.Kind() == KindComment
		case NodeTypeProcessingInstruction:
			if n.Kind() != KindProcessingInstruction {
				return false
			}
			return t.piTarget == "" || n.Target() == t.piTarget
		}
		return false
	}

	if n.Kind() != t.axis.principalNodeKind() {
		return false
	}
	if t.local == "*" {
		if t.prefix == "" {
			return true
		}
		return n.QName().Prefix == t.prefix
	}
	qn := n.QName()
	if t.prefix != "" && qn.Prefix != t.prefix {
		return false
	}
	return qn.Local == t.local
}

// stepExpr is a single location step: an axis, a node test, and zero or
// more predicates (spec.md sections 3 and 4.5). A Step never evaluates
// outside a surrounding Path, since position/size are supplied by the Path
// evaluator's call into evalStep.
type stepExpr struct {
	axis       Axis
	test       nodeTest
	predicates []Expr
}

// eval is never called directly on a bare stepExpr in a well-formed tree
// (steps only ever appear inside pathExpr.steps); it is provided so
// stepExpr satisfies Expr.
func (e *stepExpr) eval(ctx *evalContext) (Value, error) {
	return Value{}, newError(ErrUnableToEvaluate, "step evaluated outside a path")
}

// pathExpr composes an ordered list of steps starting from a fixed origin
// (the document root for an absolute path, or the current context node for
// a relative one), per spec.md sections 3 and 4.6.
type pathExpr struct {
	// start, when non-nil, is evaluated once to produce the initial
	// node-set (used for filter-expression-then-path forms like
	// "$x/foo" or "(//a)[1]/b"). When nil, the path starts from the
	// context node (relative) or the document root (absolute) according
	// to absolute.
	start    Expr
	absolute bool
	steps    []*stepExpr
}

func (e *pathExpr) eval(ctx *evalContext) (Value, error) {
	nodes, err := e.evalNodes(ctx)
	if err != nil {
		return Value{}, err
	}
	if len(nodes) == 0 {
		return NumberValue(math.NaN()), nil
	}
	return NodeValue(nodes[0]), nil
}

func (e *pathExpr) evalNodes(ctx *evalContext) ([]PathNode, error) {
	var current []PathNode
	switch {
	case e.start != nil:
		ns, err := evalAsNodeSet(ctx, e.start)
		if err != nil {
			return nil, err
		}
		current = ns
	case e.absolute:
		current = []PathNode{ctx.root}
	default:
		current = []PathNode{ctx.node}
	}

	for _, step := range e.steps {
		next, err := evalStepOverSet(ctx, step, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// filterExpr applies predicates directly to a primary expression's node-set
// without any axis step (spec.md section 4.2's FilterExpr production): the
// source of "$x[1]" or "(//a)[position() > 1]".
type filterExpr struct {
	primary    Expr
	predicates []Expr
}

func (e *filterExpr) eval(ctx *evalContext) (Value, error) {
	nodes, err := e.evalNodes(ctx)
	if err != nil {
		return Value{}, err
	}
	if len(nodes) == 0 {
		return NumberValue(math.NaN()), nil
	}
	return NodeValue(nodes[0]), nil
}

func (e *filterExpr) evalNodes(ctx *evalContext) ([]PathNode, error) {
	nodes, err := evalAsNodeSet(ctx, e.primary)
	if err != nil {
		return nil, err
	}
	return applyPredicates(ctx, nodes, e.predicates)
}

// unionExpr yields every node produced by either operand, deduplicated and
// in document order (spec.md section 4.6).
type unionExpr struct{ left, right Expr }

func (e *unionExpr) eval(ctx *evalContext) (Value, error) {
	nodes, err := e.evalNodes(ctx)
	if err != nil {
		return Value{}, err
	}
	if len(nodes) == 0 {
		return NumberValue(math.NaN()), nil
	}
	return NodeValue(nodes[0]), nil
}

func (e *unionExpr) evalNodes(ctx *evalContext) ([]PathNode, error) {
	left, err := evalAsNodeSet(ctx, e.left)
	if err != nil {
		return nil, err
	}
	right, err := evalAsNodeSet(ctx, e.right)
	if err != nil {
		return nil, err
	}
	return dedupeAndSort(ctx.doc, append(left, right...)), nil
}

// evalAsNodeSet evaluates e as a node-set: directly via evalNodes when e
// implements nodeSetExpr (Path, Union), otherwise by requiring e's scalar
// Value to be a Node and wrapping it as a singleton set.
func evalAsNodeSet(ctx *evalContext, e Expr) ([]PathNode, error) {
	if ns, ok := e.(nodeSetExpr); ok {
		return ns.evalNodes(ctx)
	}
	v, err := e.eval(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := v.Node()
	if !ok {
		return nil, newError(ErrInvalidValue, "expected a node-set")
	}
	return []PathNode{n}, nil
}

// binaryOp names the binary operators of spec.md section 3.
type binaryOp uint8

const (
	opAnd binaryOp = iota
	opOr
	opEqual
	opNotEqual
	opLessThan
	opLessThanOrEqual
	opGreaterThan
	opGreaterThanOrEqual
	opAdd
	opSubtract
	opMultiply
	opDiv
	opMod
)

type binaryExpr struct {
	op          binaryOp
	left, right Expr
}

func (e *binaryExpr) eval(ctx *evalContext) (Value, error) {
	switch e.op {
	case opAnd:
		l, err := e.left.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		if !l.Boolean() {
			return BoolValue(false), nil
		}
		r, err := e.right.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(r.Boolean()), nil
	case opOr:
		l, err := e.left.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		if l.Boolean() {
			return BoolValue(true), nil
		}
		r, err := e.right.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(r.Boolean()), nil
	}

	l, err := e.left.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	r, err := e.right.eval(ctx)
	if err != nil {
		return Value{}, err
	}

	switch e.op {
	case opEqual:
		return BoolValue(valuesEqual(l, r)), nil
	case opNotEqual:
		return BoolValue(!valuesEqual(l, r)), nil
	case opLessThan:
		return BoolValue(l.Number() < r.Number()), nil
	case opLessThanOrEqual:
		return BoolValue(l.Number() <= r.Number()), nil
	case opGreaterThan:
		return BoolValue(l.Number() > r.Number()), nil
	case opGreaterThanOrEqual:
		return BoolValue(l.Number() >= r.Number()), nil
	case opAdd:
		return NumberValue(l.Number() + r.Number()), nil
	case opSubtract:
		return NumberValue(l.Number() - r.Number()), nil
	case opMultiply:
		return NumberValue(l.Number() * r.Number()), nil
	case opDiv:
		return NumberValue(l.Number() / r.Number()), nil
	case opMod:
		return NumberValue(xpathMod(l.Number(), r.Number())), nil
	}
	return Value{}, newError(ErrInvalidXpath, "unknown binary operator")
}

// unaryMinusExpr negates its operand's Number coercion.
type unaryMinusExpr struct{ operand Expr }

func (e *unaryMinusExpr) eval(ctx *evalContext) (Value, error) {
	v, err := e.operand.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(-v.Number()), nil
}

// functionCallExpr calls a named built-in with already-parsed argument
// expressions (spec.md section 4.8).
type functionCallExpr struct {
	name string
	args []Expr
	fn   xpathFunc
}

func (e *functionCallExpr) eval(ctx *evalContext) (Value, error) {
	return e.fn(ctx, e.args)
}

package xpathdom

import "math"

// evalStepOverSet applies a single location step to every node in current,
// unions the per-node results, and returns them deduplicated and in
// document order (spec.md sections 4.5 and 4.6: each step in a path
// operates on the whole node-set produced by the previous step, not just a
// single node).
func evalStepOverSet(ctx *evalContext, step *stepExpr, current []PathNode) ([]PathNode, error) {
	var out []PathNode
	for _, n := range current {
		candidates, err := evalStep(ctx, step, n)
		if err != nil {
			return nil, err
		}
		out = append(out, candidates...)
	}
	return dedupeAndSort(ctx.doc, out), nil
}

// evalStep walks one axis from a single context node, keeps the candidates
// that pass the node test, and then filters by each predicate in turn. Per
// spec.md section 4.5, position and size inside a predicate are relative to
// the node test's result (not the axis's raw output before filtering), and
// each predicate narrows the set the next predicate sees.
func evalStep(ctx *evalContext, step *stepExpr, n PathNode) ([]PathNode, error) {
	cursor := newAxisCursor(ctx.doc, step.axis, n)
	var matched []PathNode
	for {
		cand, ok := cursor.next()
		if !ok {
			break
		}
		if step.test.matches(cand) {
			matched = append(matched, cand)
		}
	}

	return applyPredicates(ctx, matched, step.predicates)
}

// applyPredicates narrows nodes by each predicate in turn, re-deriving
// context position and size from what's left after the previous predicate
// (spec.md section 4.5). Used both for location steps and for the
// FilterExpr predicates that follow a variable reference or parenthesized
// expression (e.g. "$x[1]", "(//a)[position() > 1]").
func applyPredicates(ctx *evalContext, nodes []PathNode, predicates []Expr) ([]PathNode, error) {
	for _, pred := range predicates {
		var kept []PathNode
		size := len(nodes)
		for i, cand := range nodes {
			pctx := ctx.withNode(cand, i+1, size)
			ok, err := evalPredicate(pctx, pred)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, cand)
			}
		}
		nodes = kept
	}
	return nodes, nil
}

// evalPredicate evaluates a predicate expression and applies spec.md
// section 4.5's numeric shorthand: a bare Number predicate ("[1]", "[last()]")
// means "context position equals floor(n)" (rule 3: a fractional literal
// like "[1.5]" passes the same position a truncated "[1]" would), while any
// other value is coerced to Boolean as usual.
func evalPredicate(ctx *evalContext, pred Expr) (bool, error) {
	v, err := pred.eval(ctx)
	if err != nil {
		return false, err
	}
	if v.Kind() == ValueNumber {
		return float64(ctx.position) == math.Floor(v.Number()), nil
	}
	return v.Boolean(), nil
}

package xpathdom

// parser is a recursive-descent parser over a flat Token slice, implementing
// the operator-precedence ladder of spec.md section 4.2: Or, And, Equality,
// Relational, Additive, Multiplicative, Unary, Union, Path (loosest to
// tightest binding).
type parser struct {
	toks []Token
	pos  int
}

// parseExpression tokenizes and parses a complete XPath expression, failing
// if any input remains unconsumed after a successful top-level parse.
func parseExpression(src string) (Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, newError(ErrInputEmpty, "empty expression")
	}
	p := &parser{toks: toks}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, p.unexpected("end of expression")
	}
	return e, nil
}

func (p *parser) peek() (Token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return Token{}, false
}

func (p *parser) at(k TokenKind) bool {
	t, ok := p.peek()
	return ok && t.Kind == k
}

func (p *parser) atOperator(text string) bool {
	t, ok := p.peek()
	return ok && t.Kind == TokOperator && t.Text == text
}

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) expect(k TokenKind) (Token, error) {
	if !p.at(k) {
		return Token{}, p.unexpected(k.String())
	}
	return p.advance(), nil
}

func (p *parser) unexpected(what string) error {
	if p.pos < len(p.toks) {
		t := p.toks[p.pos]
		return newErrorAt(ErrUnexpectedToken, "expected "+what+", got "+t.String(), t.Position)
	}
	return newError(ErrInputEmpty, "expected "+what+", got end of expression")
}

// requireOperand parses the right-hand side of a binary (or unary) operator,
// reporting ErrExpectedRightHandExpression instead of a generic parse error
// when the operator turns out to be the very last token (spec.md's error
// taxonomy distinguishes "nothing followed the operator" from "something
// followed it but wasn't a valid expression").
func (p *parser) requireOperand(label string, opPos int, next func() (Expr, error)) (Expr, error) {
	if p.pos >= len(p.toks) {
		return nil, newErrorAt(ErrExpectedRightHandExpression, "expected an expression after '"+label+"'", opPos)
	}
	return next()
}

func (p *parser) parseExpr() (Expr, error) { return p.parseOrExpr() }

func (p *parser) parseOrExpr() (Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.atOperator("or") {
		opPos := p.advance().Position
		right, err := p.requireOperand("or", opPos, p.parseAndExpr)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: opOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAndExpr() (Expr, error) {
	left, err := p.parseEqualityExpr()
	if err != nil {
		return nil, err
	}
	for p.atOperator("and") {
		opPos := p.advance().Position
		right, err := p.requireOperand("and", opPos, p.parseEqualityExpr)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: opAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseEqualityExpr() (Expr, error) {
	left, err := p.parseRelationalExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op binaryOp
		var label string
		switch {
		case p.atOperator("="):
			op, label = opEqual, "="
		case p.atOperator("!="):
			op, label = opNotEqual, "!="
		default:
			return left, nil
		}
		opPos := p.advance().Position
		right, err := p.requireOperand(label, opPos, p.parseRelationalExpr)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseRelationalExpr() (Expr, error) {
	left, err := p.parseAdditiveExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op binaryOp
		var label string
		switch {
		case p.atOperator("<="):
			op, label = opLessThanOrEqual, "<="
		case p.atOperator(">="):
			op, label = opGreaterThanOrEqual, ">="
		case p.atOperator("<"):
			op, label = opLessThan, "<"
		case p.atOperator(">"):
			op, label = opGreaterThan, ">"
		default:
			return left, nil
		}
		opPos := p.advance().Position
		right, err := p.requireOperand(label, opPos, p.parseAdditiveExpr)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseAdditiveExpr() (Expr, error) {
	left, err := p.parseMultiplicativeExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op binaryOp
		var label string
		switch {
		case p.atOperator("+"):
			op, label = opAdd, "+"
		case p.atOperator("-"):
			op, label = opSubtract, "-"
		default:
			return left, nil
		}
		opPos := p.advance().Position
		right, err := p.requireOperand(label, opPos, p.parseMultiplicativeExpr)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicativeExpr() (Expr, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op binaryOp
		var label string
		switch {
		case p.atOperator("*"):
			op, label = opMultiply, "*"
		case p.atOperator("div"):
			op, label = opDiv, "div"
		case p.atOperator("mod"):
			op, label = opMod, "mod"
		default:
			return left, nil
		}
		opPos := p.advance().Position
		right, err := p.requireOperand(label, opPos, p.parseUnaryExpr)
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnaryExpr() (Expr, error) {
	if p.atOperator("-") {
		opPos := p.advance().Position
		operand, err := p.requireOperand("-", opPos, p.parseUnaryExpr)
		if err != nil {
			return nil, err
		}
		return &unaryMinusExpr{operand: operand}, nil
	}
	return p.parseUnionExpr()
}

func (p *parser) parseUnionExpr() (Expr, error) {
	left, err := p.parsePathExpr()
	if err != nil {
		return nil, err
	}
	for p.atOperator("|") {
		opPos := p.advance().Position
		right, err := p.requireOperand("|", opPos, p.parsePathExpr)
		if err != nil {
			return nil, err
		}
		left = &unionExpr{left: left, right: right}
	}
	return left, nil
}

// atStepStart reports whether the upcoming token can begin a Step (spec.md
// section 4.2's LocationPath production). All four abbreviations ('.', '..',
// '@', '//') have already been expanded by the lexer into these same three
// kinds, so no special-casing is needed here.
func (p *parser) atStepStart() bool {
	return p.at(TokAxis) || p.at(TokNameTest) || p.at(TokNodeType)
}

func (p *parser) parsePathExpr() (Expr, error) {
	if p.at(TokSlash) {
		p.advance()
		if p.atStepStart() {
			steps, err := p.parseSteps()
			if err != nil {
				return nil, err
			}
			return &pathExpr{absolute: true, steps: steps}, nil
		}
		if p.pos >= len(p.toks) {
			return &pathExpr{absolute: true}, nil
		}
		return nil, p.unexpected("a step")
	}
	if p.atStepStart() {
		steps, err := p.parseSteps()
		if err != nil {
			return nil, err
		}
		return &pathExpr{absolute: false, steps: steps}, nil
	}
	return p.parseFilterExpr()
}

// parseSteps parses Step ('/' Step)*, reporting ErrTrailingSlash when a '/'
// is not followed by another step (spec.md's error taxonomy names this case
// distinctly from a generic unexpected token).
func (p *parser) parseSteps() ([]*stepExpr, error) {
	first, err := p.parseStep()
	if err != nil {
		return nil, err
	}
	steps := []*stepExpr{first}
	for p.at(TokSlash) {
		slashPos := p.advance().Position
		if !p.atStepStart() {
			return nil, newErrorAt(ErrTrailingSlash, "path ends with '/'", slashPos)
		}
		s, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func (p *parser) parseStep() (*stepExpr, error) {
	axis := AxisChild
	if p.at(TokAxis) {
		axis = p.advance().Axis
	}
	test, err := p.parseNodeTest(axis)
	if err != nil {
		return nil, err
	}
	preds, err := p.parsePredicates()
	if err != nil {
		return nil, err
	}
	return &stepExpr{axis: axis, test: test, predicates: preds}, nil
}

func (p *parser) parseNodeTest(axis Axis) (nodeTest, error) {
	if p.at(TokNodeType) {
		t := p.advance()
		return nodeTest{isNodeType: true, nodeType: t.NodeType, piTarget: t.Text}, nil
	}
	if p.at(TokNameTest) {
		t := p.advance()
		return nodeTest{prefix: t.Prefix, local: t.Text, axis: axis}, nil
	}
	return nodeTest{}, p.unexpected("a node test")
}

func (p *parser) parsePredicates() ([]Expr, error) {
	var preds []Expr
	for p.at(TokLeftBracket) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRightBracket); err != nil {
			return nil, err
		}
		preds = append(preds, e)
	}
	return preds, nil
}

// parseFilterExpr parses a PrimaryExpr, any trailing predicates, and an
// optional continuation into a relative path (spec.md section 4.2's
// "FilterExpr '/' RelativeLocationPath" production).
func (p *parser) parseFilterExpr() (Expr, error) {
	primary, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	preds, err := p.parsePredicates()
	if err != nil {
		return nil, err
	}
	var result Expr = primary
	if len(preds) > 0 {
		result = &filterExpr{primary: primary, predicates: preds}
	}
	if p.at(TokSlash) {
		slashPos := p.advance().Position
		if !p.atStepStart() {
			return nil, newErrorAt(ErrTrailingSlash, "path ends with '/'", slashPos)
		}
		steps, err := p.parseSteps()
		if err != nil {
			return nil, err
		}
		return &pathExpr{start: result, steps: steps}, nil
	}
	return result, nil
}

func (p *parser) parsePrimaryExpr() (Expr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, newError(ErrInputEmpty, "expected an expression")
	}
	switch t.Kind {
	case TokVariableReference:
		p.advance()
		return &variableExpr{name: t.Text}, nil
	case TokLeftParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRightParen); err != nil {
			return nil, err
		}
		return e, nil
	case TokLiteral:
		p.advance()
		return &literalExpr{v: StringValue(t.Text)}, nil
	case TokNumber:
		p.advance()
		return &literalExpr{v: NumberValue(t.Number)}, nil
	case TokFunctionName:
		return p.parseFunctionCall()
	}
	return nil, newErrorAt(ErrUnexpectedToken, "expected an expression, got "+t.String(), t.Position)
}

// parseFunctionCall parses a function call's arguments. The lexer has
// already consumed the opening '(' as part of producing the TokFunctionName
// token (lexer.go), so only the argument list and closing ')' remain.
func (p *parser) parseFunctionCall() (Expr, error) {
	t := p.advance()
	var args []Expr
	if !p.at(TokRightParen) {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.at(TokComma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(TokRightParen); err != nil {
		return nil, err
	}
	spec, ok := builtinFuncs[t.Text]
	if !ok {
		return nil, newErrorAt(ErrInvalidXpath, "unknown function '"+t.Text+"'", t.Position)
	}
	if len(args) < spec.minArgs || (spec.maxArgs >= 0 && len(args) > spec.maxArgs) {
		return nil, newErrorAt(ErrMissingFuncArgument, "wrong number of arguments to '"+t.Text+"'", t.Position)
	}
	return &functionCallExpr{name: t.Text, args: args, fn: spec.fn}, nil
}

package msl

import (
	"fmt"
	"strings"
)

// intrinsicRemaps maps source intrinsics to their MSL equivalents.
// mul, mad and the texture methods need structural rewriting and are
// handled separately.
var intrinsicRemaps = map[string]string{
	"ddx":  "dfdx",
	"ddy":  "dfdy",
	"frac": "fract",
	"lerp": "mix",
}

// bodyRewriter walks a function body token stream and emits its MSL
// translation, preserving the source whitespace between tokens.
type bodyRewriter struct {
	tr *transpiler
	fi *funcInfo

	toks []Token
	i    int
	out  strings.Builder

	// lastSig is the text of the last significant token emitted; a "."
	// suppresses identifier rewriting for the member name that follows.
	lastSig string

	// rewriteReturns wraps return expressions in float4(expr, 1).
	rewriteReturns bool
}

func (tr *transpiler) rewriteBody(fi *funcInfo, toks []Token, rewriteReturns bool) (string, error) {
	r := &bodyRewriter{tr: tr, fi: fi, toks: toks, rewriteReturns: rewriteReturns}
	return r.run()
}

func (r *bodyRewriter) run() (string, error) {
	for r.i < len(r.toks) {
		if err := r.step(); err != nil {
			return "", err
		}
	}
	return r.out.String(), nil
}

// sub rewrites a token slice in the same function context and returns
// the trimmed result.
func (r *bodyRewriter) sub(toks []Token) (string, error) {
	nr := &bodyRewriter{tr: r.tr, fi: r.fi, toks: toks}
	s, err := nr.run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (r *bodyRewriter) step() error {
	tok := r.toks[r.i]
	switch tok.Kind {
	case TokenNewline:
		r.out.WriteByte('\n')
		r.i++
	case TokenSpacetab:
		r.out.WriteString(tok.Text)
		r.i++
	case TokenOther:
		r.out.WriteString(tok.Text)
		r.lastSig = tok.Text
		r.i++
	case TokenName:
		return r.name()
	default:
		r.i++
	}
	return nil
}

// skipWS returns the index of the next significant token at or after j.
func (r *bodyRewriter) skipWS(j int) int {
	for j < len(r.toks) {
		switch r.toks[j].Kind {
		case TokenName, TokenOther:
			return j
		}
		j++
	}
	return j
}

func (r *bodyRewriter) name() error {
	name := r.toks[r.i].Text
	prevDot := r.lastSig == "."
	r.lastSig = name

	if prevDot {
		// Member access; the field name is opaque to every rewrite rule.
		r.out.WriteString(name)
		r.i++
		return nil
	}

	switch name {
	case "clip":
		return fmt.Errorf("%w: clip", ErrUnsupportedIntrinsic)
	case "mul":
		return r.mulCall()
	case "mad":
		return r.madCall()
	case "obs_glsl_compile":
		r.out.WriteString("false")
		r.i++
		return nil
	case "return":
		if r.rewriteReturns {
			return r.returnFloat4()
		}
	}
	if mapped, ok := intrinsicRemaps[name]; ok {
		r.out.WriteString(mapped)
		r.i++
		return nil
	}

	if typeRemaps(name) {
		ct, err := convertTypeName(name)
		if err != nil {
			return err
		}
		r.out.WriteString(ct)
		r.i++
		return nil
	}

	if r.tr.in.Kind == FragmentShader {
		if _, ok := r.tr.textureByName[name]; ok {
			return r.textureOp(name)
		}
	}
	if _, ok := r.tr.uniformByName[name]; ok {
		return r.emitExpr("uniforms." + name)
	}
	if si, ok := r.tr.structByName[name]; ok && si.split() {
		r.out.WriteString(name + "_Out")
		r.i++
		return nil
	}
	if callee, ok := r.tr.funcByName[name]; ok {
		if extras := r.tr.extraArgs(callee); len(extras) > 0 {
			if p := r.skipWS(r.i + 1); p < len(r.toks) && r.toks[p].Text == "(" {
				return r.callWithExtras(name, p, extras)
			}
		}
	}

	return r.emitExpr(name)
}

// emitExpr writes expr, wrapping the comparison in all(...) when a
// comparator follows so vector comparisons reduce componentwise.
func (r *bodyRewriter) emitExpr(expr string) error {
	j := r.skipWS(r.i + 1)
	op, opEnd := r.comparatorAt(j)
	if op == "" {
		r.out.WriteString(expr)
		r.i++
		return nil
	}

	rhs, end := r.rhsExtent(opEnd)
	sub, err := r.sub(rhs)
	if err != nil {
		return err
	}
	fmt.Fprintf(&r.out, "all(%s %s %s)", expr, op, sub)
	r.lastSig = ")"
	r.i = end
	return nil
}

// comparatorAt recognizes a comparison operator starting at token j. The
// lexer may split multi-character operators, so adjacent Other tokens
// join before matching. Returns the operator and the index just past it,
// or "" when j does not start a comparator.
func (r *bodyRewriter) comparatorAt(j int) (string, int) {
	s := ""
	for k := j; k < len(r.toks) && r.toks[k].Kind == TokenOther && len(s) < 2; k++ {
		s += r.toks[k].Text
	}

	var op string
	switch {
	case strings.HasPrefix(s, "=="):
		op = "=="
	case strings.HasPrefix(s, "!="):
		op = "!="
	case strings.HasPrefix(s, "<="):
		op = "<="
	case strings.HasPrefix(s, ">="):
		op = ">="
	case strings.HasPrefix(s, "<<"), strings.HasPrefix(s, ">>"):
		return "", j
	case strings.HasPrefix(s, "<"):
		op = "<"
	case strings.HasPrefix(s, ">"):
		op = ">"
	default:
		return "", j
	}

	n, k := 0, j
	for n < len(op) {
		n += len(r.toks[k].Text)
		k++
	}
	if n != len(op) {
		// Operator split across an unexpected token boundary.
		return "", j
	}
	return op, k
}

// rhsExtent collects the right operand of a comparison: every token up
// to the first statement or operand boundary at the starting nesting
// depth.
func (r *bodyRewriter) rhsExtent(start int) ([]Token, int) {
	depth := 0
	k := start
	for k < len(r.toks) {
		tok := r.toks[k]
		if tok.Kind == TokenOther {
			switch tok.Text {
			case "(", "[":
				depth++
			case ")", "]":
				if depth == 0 {
					return r.toks[start:k], k
				}
				depth--
			case ";", ",", "?", ":", "{", "}":
				if depth == 0 {
					return r.toks[start:k], k
				}
			case "&&", "||":
				if depth == 0 {
					return r.toks[start:k], k
				}
			case "&", "|":
				if depth == 0 && k+1 < len(r.toks) && r.toks[k+1].Text == tok.Text {
					return r.toks[start:k], k
				}
			}
		}
		k++
	}
	return r.toks[start:k], k
}

// parseCallArgs splits the parenthesized argument list opening at token
// at into top-level comma groups. Returns the groups and the index just
// past the closing parenthesis. An empty list yields no groups.
func (r *bodyRewriter) parseCallArgs(at int) ([][]Token, int, error) {
	return splitCallArgs(r.toks, at)
}

func splitCallArgs(toks []Token, at int) ([][]Token, int, error) {
	if at >= len(toks) || toks[at].Text != "(" {
		return nil, 0, fmt.Errorf("%w: expected argument list", ErrMalformedBody)
	}
	var groups [][]Token
	depth := 0
	start := at + 1
	for k := at + 1; k < len(toks); k++ {
		tok := toks[k]
		if tok.Kind != TokenOther {
			continue
		}
		switch tok.Text {
		case "(", "[":
			depth++
		case "]":
			depth--
		case ")":
			if depth == 0 {
				g := toks[start:k]
				if len(groups) > 0 || !allWhitespace(g) {
					groups = append(groups, g)
				}
				return groups, k + 1, nil
			}
			depth--
		case ",":
			if depth == 0 {
				groups = append(groups, toks[start:k])
				start = k + 1
			}
		}
	}
	return nil, 0, fmt.Errorf("%w: unbalanced argument list", ErrMalformedBody)
}

func allWhitespace(toks []Token) bool {
	for _, t := range toks {
		if t.Kind == TokenName || t.Kind == TokenOther {
			return false
		}
	}
	return true
}

// rewriteArgs sub-rewrites each argument group.
func (r *bodyRewriter) rewriteArgs(groups [][]Token) ([]string, error) {
	args := make([]string, len(groups))
	for i, g := range groups {
		s, err := r.sub(g)
		if err != nil {
			return nil, err
		}
		args[i] = s
	}
	return args, nil
}

// mulCall rewrites mul(a, b) to (a) * (b).
func (r *bodyRewriter) mulCall() error {
	args, end, err := r.callOf("mul", 2)
	if err != nil {
		return err
	}
	fmt.Fprintf(&r.out, "(%s) * (%s)", args[0], args[1])
	r.lastSig = ")"
	r.i = end
	return nil
}

// madCall rewrites mad(a, b, c) to ((a) * (b)) + (c).
func (r *bodyRewriter) madCall() error {
	args, end, err := r.callOf("mad", 3)
	if err != nil {
		return err
	}
	fmt.Fprintf(&r.out, "((%s) * (%s)) + (%s)", args[0], args[1], args[2])
	r.lastSig = ")"
	r.i = end
	return nil
}

// callOf parses and rewrites the call following the intrinsic name at
// the current token, requiring exactly want arguments.
func (r *bodyRewriter) callOf(name string, want int) ([]string, int, error) {
	p := r.skipWS(r.i + 1)
	groups, end, err := r.parseCallArgs(p)
	if err != nil {
		return nil, 0, err
	}
	if len(groups) != want {
		return nil, 0, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrMalformedBody, name, want, len(groups))
	}
	args, err := r.rewriteArgs(groups)
	if err != nil {
		return nil, 0, err
	}
	return args, end, nil
}

// callWithExtras re-emits a user-function call with the callee's hidden
// arguments appended.
func (r *bodyRewriter) callWithExtras(name string, paren int, extras []string) error {
	groups, end, err := r.parseCallArgs(paren)
	if err != nil {
		return err
	}
	args, err := r.rewriteArgs(groups)
	if err != nil {
		return err
	}
	args = append(args, extras...)
	fmt.Fprintf(&r.out, "%s(%s)", name, strings.Join(args, ", "))
	r.lastSig = ")"
	r.i = end
	return nil
}

// returnFloat4 rewrites "return expr;" to "return float4(expr, 1);".
func (r *bodyRewriter) returnFloat4() error {
	depth := 0
	k := r.i + 1
	for k < len(r.toks) {
		tok := r.toks[k]
		if tok.Kind == TokenOther {
			switch tok.Text {
			case "(", "[":
				depth++
			case ")", "]":
				depth--
			case ";":
				if depth == 0 {
					expr, err := r.sub(r.toks[r.i+1 : k])
					if err != nil {
						return err
					}
					fmt.Fprintf(&r.out, "return float4(%s, 1);", expr)
					r.lastSig = ";"
					r.i = k + 1
					return nil
				}
			}
		}
		k++
	}
	return fmt.Errorf("%w: unterminated return statement", ErrMalformedBody)
}

// textureOp rewrites texture method calls into MSL sampling and reading
// forms. A bare texture reference passes through unchanged.
func (r *bodyRewriter) textureOp(name string) error {
	j := r.skipWS(r.i + 1)
	if j >= len(r.toks) || r.toks[j].Kind != TokenOther || r.toks[j].Text != "." {
		r.out.WriteString(name)
		r.i++
		return nil
	}
	k := r.skipWS(j + 1)
	if k >= len(r.toks) || r.toks[k].Kind != TokenName {
		r.out.WriteString(name)
		r.i++
		return nil
	}
	method := r.toks[k].Text
	switch method {
	case "Sample", "SampleBias", "SampleGrad", "SampleLevel", "Load":
	default:
		r.out.WriteString(name)
		r.i++
		return nil
	}

	p := r.skipWS(k + 1)
	groups, end, err := r.parseCallArgs(p)
	if err != nil {
		return err
	}
	args, err := r.rewriteArgs(groups)
	if err != nil {
		return err
	}

	wantArgs := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s.%s takes %d arguments, got %d", ErrMalformedBody, name, method, n, len(args))
		}
		return nil
	}

	switch method {
	case "Sample":
		if err := wantArgs(2); err != nil {
			return err
		}
		fmt.Fprintf(&r.out, "%s.sample(%s, %s)", name, args[0], args[1])
	case "SampleBias":
		if err := wantArgs(3); err != nil {
			return err
		}
		fmt.Fprintf(&r.out, "%s.sample(%s, %s, bias(%s))", name, args[0], args[1], args[2])
	case "SampleGrad":
		if err := wantArgs(4); err != nil {
			return err
		}
		fmt.Fprintf(&r.out, "%s.sample(%s, %s, gradient2d(%s, %s))", name, args[0], args[1], args[2], args[3])
	case "SampleLevel":
		if err := wantArgs(3); err != nil {
			return err
		}
		fmt.Fprintf(&r.out, "%s.sample(%s, %s, level(%s))", name, args[0], args[1], args[2])
	case "Load":
		if err := wantArgs(1); err != nil {
			return err
		}
		coords, err := r.loadCoords(groups[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(&r.out, "%s.read(%s)", name, coords)
	}
	r.lastSig = ")"
	r.i = end
	return nil
}

// loadCoords converts a Load argument into read() coordinates. An int3
// constructor supplies x, y and the mip level; an int2 constructor or
// any other vector expression reads mip 0.
func (r *bodyRewriter) loadCoords(arg []Token) (string, error) {
	j := 0
	for j < len(arg) && arg[j].Kind != TokenName && arg[j].Kind != TokenOther {
		j++
	}
	if j < len(arg) && arg[j].Kind == TokenName && (arg[j].Text == "int3" || arg[j].Text == "int2") {
		ctor := arg[j].Text
		p := j + 1
		for p < len(arg) && arg[p].Kind != TokenName && arg[p].Kind != TokenOther {
			p++
		}
		if p < len(arg) && arg[p].Text == "(" {
			groups, end, err := splitCallArgs(arg, p)
			if err == nil && allWhitespace(arg[end:]) {
				parts, err := r.rewriteArgs(groups)
				if err != nil {
					return "", err
				}
				switch {
				case ctor == "int3" && len(parts) == 3:
					return fmt.Sprintf("uint2(%s, %s), uint(%s)", parts[0], parts[1], parts[2]), nil
				case ctor == "int2" && len(parts) == 2:
					return fmt.Sprintf("uint2(%s, %s), uint(0)", parts[0], parts[1]), nil
				}
			}
		}
	}

	expr, err := r.sub(arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("uint2((%s).xy), uint(0)", expr), nil
}

package script

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2/lexer"
)

// maxSteps bounds the number of expression evaluations in one run. The
// grammar has no loops or user functions, so this only guards
// pathological inputs (huge literals, deeply nested expressions).
const maxSteps = 1_000_000

// builtin is a callable exposed through the allow-listed global surface
// or bound to a receiver value (string/array/number methods).
type builtin func(args []any) (any, error)

type environment struct {
	vars    map[string]any
	globals map[string]any
	steps   int
}

func newEnvironment(data any) *environment {
	return &environment{
		vars:    map[string]any{"data": data},
		globals: defaultGlobals(),
	}
}

// execute runs the program statements in order. It returns the value of
// the first return statement (returned=true) or nil once all statements
// have run.
func (env *environment) execute(p *Program) (any, bool, error) {
	for _, s := range p.Statements {
		switch {
		case s.Decl != nil:
			val, err := env.evalExpression(s.Decl.Value)
			if err != nil {
				return nil, false, err
			}
			env.vars[s.Decl.Name] = val
		case s.Return != nil:
			val, err := env.evalExpression(s.Return.Value)
			if err != nil {
				return nil, false, err
			}
			return val, true, nil
		case s.Expr != nil:
			if _, err := env.evalExpression(s.Expr); err != nil {
				return nil, false, err
			}
		}
	}
	return nil, false, nil
}

func (env *environment) step(pos lexer.Position) error {
	env.steps++
	if env.steps > maxSteps {
		return fmt.Errorf("%s: script exceeded the evaluation budget", pos)
	}
	return nil
}

func (env *environment) evalExpression(e *Expression) (any, error) {
	return env.evalTernary(e.Ternary)
}

func (env *environment) evalTernary(t *Ternary) (any, error) {
	cond, err := env.evalOr(t.Cond)
	if err != nil {
		return nil, err
	}
	if t.Then == nil {
		return cond, nil
	}
	if truthy(cond) {
		return env.evalExpression(t.Then)
	}
	return env.evalExpression(t.Else)
}

func (env *environment) evalOr(o *OrExpr) (any, error) {
	left, err := env.evalAnd(o.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range o.Right {
		if truthy(left) {
			return left, nil
		}
		left, err = env.evalAnd(rhs)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (env *environment) evalAnd(a *AndExpr) (any, error) {
	left, err := env.evalEquality(a.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range a.Right {
		if !truthy(left) {
			return left, nil
		}
		left, err = env.evalEquality(rhs)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (env *environment) evalEquality(e *Equality) (any, error) {
	left, err := env.evalComparison(e.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range e.Ops {
		right, err := env.evalComparison(rhs.Expr)
		if err != nil {
			return nil, err
		}
		eq := looseEqual(left, right)
		switch rhs.Op {
		case "==", "===":
			left = eq
		case "!=", "!==":
			left = !eq
		}
	}
	return left, nil
}

func (env *environment) evalComparison(c *Comparison) (any, error) {
	left, err := env.evalAdditive(c.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range c.Ops {
		right, err := env.evalAdditive(rhs.Expr)
		if err != nil {
			return nil, err
		}
		left, err = compareValues(left, right, rhs.Op)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (env *environment) evalAdditive(a *Additive) (any, error) {
	left, err := env.evalMultiplicative(a.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range a.Ops {
		right, err := env.evalMultiplicative(rhs.Expr)
		if err != nil {
			return nil, err
		}
		switch rhs.Op {
		case "+":
			left, err = addValues(left, right)
		case "-":
			left, err = numericOp(left, right, func(x, y float64) float64 { return x - y })
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (env *environment) evalMultiplicative(m *Multiplicative) (any, error) {
	left, err := env.evalUnary(m.Left)
	if err != nil {
		return nil, err
	}
	for _, rhs := range m.Ops {
		right, err := env.evalUnary(rhs.Expr)
		if err != nil {
			return nil, err
		}
		switch rhs.Op {
		case "*":
			left, err = numericOp(left, right, func(x, y float64) float64 { return x * y })
		case "/":
			left, err = numericOp(left, right, func(x, y float64) float64 { return x / y })
		case "%":
			left, err = numericOp(left, right, math.Mod)
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (env *environment) evalUnary(u *Unary) (any, error) {
	val, err := env.evalPostfix(u.Postfix)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "!":
		return !truthy(val), nil
	case "-":
		n, err := toNumber(val)
		if err != nil {
			return nil, err
		}
		return -n, nil
	default:
		return val, nil
	}
}

func (env *environment) evalPostfix(p *Postfix) (any, error) {
	current, err := env.evalPrimary(p.Primary)
	if err != nil {
		return nil, err
	}
	for _, op := range p.Ops {
		if err := env.step(op.Pos); err != nil {
			return nil, err
		}
		switch {
		case op.Member != nil:
			current, err = env.member(current, *op.Member, op.Pos)
		case op.Index != nil:
			var idx any
			idx, err = env.evalExpression(op.Index)
			if err == nil {
				current, err = env.index(current, idx, op.Pos)
			}
		case op.Call != nil:
			fn, ok := current.(builtin)
			if !ok {
				return nil, fmt.Errorf("%s: value is not callable", op.Pos)
			}
			args := make([]any, 0, len(op.Call.Args))
			for _, arg := range op.Call.Args {
				v, aerr := env.evalExpression(arg)
				if aerr != nil {
					return nil, aerr
				}
				args = append(args, v)
			}
			current, err = fn(args)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func (env *environment) evalPrimary(p *Primary) (any, error) {
	if err := env.step(p.Pos); err != nil {
		return nil, err
	}
	switch {
	case p.Number != nil:
		return *p.Number, nil
	case p.Str != nil:
		return string(*p.Str), nil
	case p.True:
		return true, nil
	case p.False:
		return false, nil
	case p.Null:
		return nil, nil
	case p.Array != nil:
		items := make([]any, 0, len(p.Array.Items))
		for _, item := range p.Array.Items {
			v, err := env.evalExpression(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case p.Object != nil:
		obj := make(map[string]any, len(p.Object.Entries))
		for _, entry := range p.Object.Entries {
			v, err := env.evalExpression(entry.Value)
			if err != nil {
				return nil, err
			}
			obj[entry.Key()] = v
		}
		return obj, nil
	case p.Ident != nil:
		name := *p.Ident
		if v, ok := env.vars[name]; ok {
			return v, nil
		}
		if v, ok := env.globals[name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("%s: %q is not defined", p.Pos, name)
	case p.Paren != nil:
		return env.evalExpression(p.Paren)
	default:
		return nil, fmt.Errorf("%s: empty expression", p.Pos)
	}
}

// member resolves property access. Maps are plain data lookups; other
// receiver types expose a small method/property surface.
func (env *environment) member(recv any, name string, pos lexer.Position) (any, error) {
	switch r := recv.(type) {
	case map[string]any:
		return r[name], nil
	case string:
		return stringMember(r, name, pos)
	case []any:
		return arrayMember(r, name, pos)
	case float64:
		return numberMember(r, name, pos)
	case nil:
		return nil, fmt.Errorf("%s: cannot read %q of null", pos, name)
	default:
		return nil, fmt.Errorf("%s: cannot read %q of %T", pos, name, recv)
	}
}

func (env *environment) index(recv, idx any, pos lexer.Position) (any, error) {
	switch r := recv.(type) {
	case []any:
		n, err := toNumber(idx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pos, err)
		}
		i := int(n)
		if i < 0 || i >= len(r) {
			return nil, nil
		}
		return r[i], nil
	case map[string]any:
		return r[toString(idx)], nil
	case string:
		n, err := toNumber(idx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pos, err)
		}
		runes := []rune(r)
		i := int(n)
		if i < 0 || i >= len(runes) {
			return nil, nil
		}
		return string(runes[i]), nil
	default:
		return nil, fmt.Errorf("%s: cannot index %T", pos, recv)
	}
}

func stringMember(s, name string, pos lexer.Position) (any, error) {
	switch name {
	case "length":
		return float64(len([]rune(s))), nil
	case "toUpperCase":
		return builtin(func([]any) (any, error) { return strings.ToUpper(s), nil }), nil
	case "toLowerCase":
		return builtin(func([]any) (any, error) { return strings.ToLower(s), nil }), nil
	case "trim":
		return builtin(func([]any) (any, error) { return strings.TrimSpace(s), nil }), nil
	case "split":
		return builtin(func(args []any) (any, error) {
			sep := ""
			if len(args) > 0 {
				sep = toString(args[0])
			}
			parts := strings.Split(s, sep)
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		}), nil
	case "slice":
		return builtin(func(args []any) (any, error) {
			runes := []rune(s)
			start, end, err := sliceBounds(args, len(runes))
			if err != nil {
				return nil, err
			}
			return string(runes[start:end]), nil
		}), nil
	case "replace":
		return builtin(func(args []any) (any, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("replace expects 2 arguments")
			}
			return strings.Replace(s, toString(args[0]), toString(args[1]), 1), nil
		}), nil
	case "replaceAll":
		return builtin(func(args []any) (any, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("replaceAll expects 2 arguments")
			}
			return strings.ReplaceAll(s, toString(args[0]), toString(args[1])), nil
		}), nil
	case "includes":
		return builtin(func(args []any) (any, error) {
			if len(args) < 1 {
				return false, nil
			}
			return strings.Contains(s, toString(args[0])), nil
		}), nil
	case "indexOf":
		return builtin(func(args []any) (any, error) {
			if len(args) < 1 {
				return float64(-1), nil
			}
			return float64(strings.Index(s, toString(args[0]))), nil
		}), nil
	case "padStart":
		return builtin(func(args []any) (any, error) { return padString(s, args, true) }), nil
	case "padEnd":
		return builtin(func(args []any) (any, error) { return padString(s, args, false) }), nil
	default:
		return nil, fmt.Errorf("%s: string has no member %q", pos, name)
	}
}

func padString(s string, args []any, atStart bool) (any, error) {
	if len(args) < 1 {
		return s, nil
	}
	n, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	pad := " "
	if len(args) > 1 {
		pad = toString(args[1])
	}
	if pad == "" {
		return s, nil
	}
	target := int(n)
	runes := []rune(s)
	var fill []rune
	for len(runes)+len(fill) < target {
		fill = append(fill, []rune(pad)...)
	}
	if len(runes)+len(fill) > target {
		fill = fill[:target-len(runes)]
	}
	if atStart {
		return string(fill) + s, nil
	}
	return s + string(fill), nil
}

func arrayMember(arr []any, name string, pos lexer.Position) (any, error) {
	switch name {
	case "length":
		return float64(len(arr)), nil
	case "join":
		return builtin(func(args []any) (any, error) {
			sep := ","
			if len(args) > 0 {
				sep = toString(args[0])
			}
			parts := make([]string, len(arr))
			for i, v := range arr {
				parts[i] = toString(v)
			}
			return strings.Join(parts, sep), nil
		}), nil
	case "slice":
		return builtin(func(args []any) (any, error) {
			start, end, err := sliceBounds(args, len(arr))
			if err != nil {
				return nil, err
			}
			out := make([]any, end-start)
			copy(out, arr[start:end])
			return out, nil
		}), nil
	case "includes":
		return builtin(func(args []any) (any, error) {
			if len(args) < 1 {
				return false, nil
			}
			for _, v := range arr {
				if looseEqual(v, args[0]) {
					return true, nil
				}
			}
			return false, nil
		}), nil
	case "indexOf":
		return builtin(func(args []any) (any, error) {
			if len(args) < 1 {
				return float64(-1), nil
			}
			for i, v := range arr {
				if looseEqual(v, args[0]) {
					return float64(i), nil
				}
			}
			return float64(-1), nil
		}), nil
	default:
		return nil, fmt.Errorf("%s: array has no member %q", pos, name)
	}
}

func numberMember(n float64, name string, pos lexer.Position) (any, error) {
	switch name {
	case "toFixed":
		return builtin(func(args []any) (any, error) {
			digits := 0
			if len(args) > 0 {
				d, err := toNumber(args[0])
				if err != nil {
					return nil, err
				}
				digits = int(d)
			}
			return strconv.FormatFloat(n, 'f', digits, 64), nil
		}), nil
	default:
		return nil, fmt.Errorf("%s: number has no member %q", pos, name)
	}
}

func sliceBounds(args []any, length int) (int, int, error) {
	start, end := 0, length
	if len(args) > 0 {
		n, err := toNumber(args[0])
		if err != nil {
			return 0, 0, err
		}
		start = clampIndex(int(n), length)
	}
	if len(args) > 1 {
		n, err := toNumber(args[1])
		if err != nil {
			return 0, 0, err
		}
		end = clampIndex(int(n), length)
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

// defaultGlobals is the fixed allow-list available to every script.
func defaultGlobals() map[string]any {
	return map[string]any{
		"Math": map[string]any{
			"PI":     math.Pi,
			"E":      math.E,
			"abs":    numFn1(math.Abs),
			"floor":  numFn1(math.Floor),
			"ceil":   numFn1(math.Ceil),
			"round":  numFn1(math.Round),
			"sqrt":   numFn1(math.Sqrt),
			"pow":    numFn2(math.Pow),
			"min":    numFold(math.Min, math.Inf(1)),
			"max":    numFold(math.Max, math.Inf(-1)),
			"random": builtin(func([]any) (any, error) { return rand.Float64(), nil }),
		},
		"String": builtin(func(args []any) (any, error) {
			if len(args) == 0 {
				return "", nil
			}
			return toString(args[0]), nil
		}),
		"Number": builtin(func(args []any) (any, error) {
			if len(args) == 0 {
				return float64(0), nil
			}
			return toNumber(args[0])
		}),
		"Boolean": builtin(func(args []any) (any, error) {
			if len(args) == 0 {
				return false, nil
			}
			return truthy(args[0]), nil
		}),
		"JSON": map[string]any{
			"parse": builtin(func(args []any) (any, error) {
				if len(args) == 0 {
					return nil, fmt.Errorf("JSON.parse expects a string")
				}
				var out any
				if err := json.Unmarshal([]byte(toString(args[0])), &out); err != nil {
					return nil, fmt.Errorf("JSON.parse: %w", err)
				}
				return out, nil
			}),
			"stringify": builtin(func(args []any) (any, error) {
				if len(args) == 0 {
					return "null", nil
				}
				data, err := json.Marshal(args[0])
				if err != nil {
					return nil, fmt.Errorf("JSON.stringify: %w", err)
				}
				return string(data), nil
			}),
		},
		"Date": map[string]any{
			"now": builtin(func([]any) (any, error) {
				return float64(time.Now().UnixMilli()), nil
			}),
		},
		"parseInt": builtin(func(args []any) (any, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("parseInt expects an argument")
			}
			base := 10
			if len(args) > 1 {
				b, err := toNumber(args[1])
				if err != nil {
					return nil, err
				}
				base = int(b)
			}
			s := strings.TrimSpace(toString(args[0]))
			// Like the host language, trailing garbage is tolerated: parse
			// the longest valid prefix.
			end := 0
			for end < len(s) {
				c := s[end]
				if end == 0 && (c == '+' || c == '-') {
					end++
					continue
				}
				if _, err := strconv.ParseInt(s[end:end+1], base, 64); err != nil {
					break
				}
				end++
			}
			n, err := strconv.ParseInt(s[:end], base, 64)
			if err != nil {
				return math.NaN(), nil
			}
			return float64(n), nil
		}),
		"parseFloat": builtin(func(args []any) (any, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("parseFloat expects an argument")
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(toString(args[0])), 64)
			if err != nil {
				return math.NaN(), nil
			}
			return n, nil
		}),
	}
}

func numFn1(fn func(float64) float64) builtin {
	return func(args []any) (any, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("expected 1 numeric argument")
		}
		n, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		return fn(n), nil
	}
}

func numFn2(fn func(float64, float64) float64) builtin {
	return func(args []any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("expected 2 numeric arguments")
		}
		a, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toNumber(args[1])
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}
}

func numFold(fn func(float64, float64) float64, seed float64) builtin {
	return func(args []any) (any, error) {
		acc := seed
		for _, arg := range args {
			n, err := toNumber(arg)
			if err != nil {
				return nil, err
			}
			acc = fn(acc, n)
		}
		return acc, nil
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to a number", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to a number", v)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func addValues(a, b any) (any, error) {
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr || bStr {
		return toString(a) + toString(b), nil
	}
	return numericOp(a, b, func(x, y float64) float64 { return x + y })
}

func numericOp(a, b any, fn func(x, y float64) float64) (any, error) {
	x, err := toNumber(a)
	if err != nil {
		return nil, err
	}
	y, err := toNumber(b)
	if err != nil {
		return nil, err
	}
	return fn(x, y), nil
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	an, aok := a.(float64)
	bn, bok := b.(float64)
	if aok && bok {
		return an == bn
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	// Mixed scalar types compare numerically when both sides convert.
	x, errA := toNumber(a)
	y, errB := toNumber(b)
	if errA == nil && errB == nil {
		return x == y
	}
	return false
}

func compareValues(a, b any, op string) (any, error) {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "<":
			return as < bs, nil
		case "<=":
			return as <= bs, nil
		case ">":
			return as > bs, nil
		case ">=":
			return as >= bs, nil
		}
	}
	x, err := toNumber(a)
	if err != nil {
		return nil, err
	}
	y, err := toNumber(b)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return x < y, nil
	case "<=":
		return x <= y, nil
	case ">":
		return x > y, nil
	case ">=":
		return x >= y, nil
	}
	return nil, fmt.Errorf("unknown comparison operator %q", op)
}

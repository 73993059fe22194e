package script

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The widget script language is a restricted expression/statement
// grammar: variable declarations, a return statement, and side-effect
// free expressions. It is evaluated by a tree walker against an
// allow-listed global surface; there is no host-level eval.

var (
	scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"|'(?:\\.|[^'])*'`},
		{Name: "Ident", Pattern: `[A-Za-z_$][A-Za-z0-9_$]*`},
		{Name: "Punct", Pattern: `===|!==|==|!=|<=|>=|&&|\|\||[-+*/%(){}\[\],.:;?<>=!]`},
	})

	programParser = participle.MustBuild[Program](
		participle.Lexer(scriptLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment"),
		participle.UseLookahead(2),
	)
)

// Program is the root AST node for a widget script.
type Program struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Statements []*Statement   `parser:"Newline* ( @@ ( ';' | Newline )* )*"`
}

// DeclaredNames returns the names of top-level let/const/var
// declarations in source order. In template mode these become the keys
// of the result map.
func (p *Program) DeclaredNames() []string {
	var names []string
	seen := map[string]bool{}
	for _, s := range p.Statements {
		if s.Decl == nil || seen[s.Decl.Name] {
			continue
		}
		seen[s.Decl.Name] = true
		names = append(names, s.Decl.Name)
	}
	return names
}

// Statement is a declaration, a return, or a bare expression.
type Statement struct {
	Decl   *Declaration `parser:"  @@"`
	Return *ReturnStmt  `parser:"| @@"`
	Expr   *Expression  `parser:"| @@"`
}

// Declaration binds a name in the script scope.
type Declaration struct {
	Pos     lexer.Position `parser:""`
	Keyword string         `parser:"@( 'let' | 'const' | 'var' )"`
	Name    string         `parser:"@Ident"`
	Value   *Expression    `parser:"'=' Newline* @@"`
}

// ReturnStmt yields the script output in value mode.
type ReturnStmt struct {
	Value *Expression `parser:"'return' @@"`
}

// Expression is the entry point of the precedence ladder.
type Expression struct {
	Ternary *Ternary `parser:"@@"`
}

// Ternary implements cond ? a : b.
type Ternary struct {
	Cond *OrExpr     `parser:"@@"`
	Then *Expression `parser:"( '?' Newline* @@"`
	Else *Expression `parser:"':' Newline* @@ )?"`
}

type OrExpr struct {
	Left  *AndExpr   `parser:"@@"`
	Right []*AndExpr `parser:"( '||' Newline* @@ )*"`
}

type AndExpr struct {
	Left  *Equality   `parser:"@@"`
	Right []*Equality `parser:"( '&&' Newline* @@ )*"`
}

type Equality struct {
	Left *Comparison    `parser:"@@"`
	Ops  []*EqualityRHS `parser:"@@*"`
}

type EqualityRHS struct {
	Op   string      `parser:"@( '===' | '!==' | '==' | '!=' )"`
	Expr *Comparison `parser:"Newline* @@"`
}

type Comparison struct {
	Left *Additive        `parser:"@@"`
	Ops  []*ComparisonRHS `parser:"@@*"`
}

type ComparisonRHS struct {
	Op   string    `parser:"@( '<=' | '>=' | '<' | '>' )"`
	Expr *Additive `parser:"Newline* @@"`
}

type Additive struct {
	Left *Multiplicative `parser:"@@"`
	Ops  []*AdditiveRHS  `parser:"@@*"`
}

type AdditiveRHS struct {
	Op   string          `parser:"@( '+' | '-' )"`
	Expr *Multiplicative `parser:"Newline* @@"`
}

type Multiplicative struct {
	Left *Unary               `parser:"@@"`
	Ops  []*MultiplicativeRHS `parser:"@@*"`
}

type MultiplicativeRHS struct {
	Op   string `parser:"@( '*' | '/' | '%' )"`
	Expr *Unary `parser:"Newline* @@"`
}

type Unary struct {
	Op      string   `parser:"@( '!' | '-' )?"`
	Postfix *Postfix `parser:"@@"`
}

// Postfix chains member access, indexing and calls onto a primary.
type Postfix struct {
	Primary *Primary     `parser:"@@"`
	Ops     []*PostfixOp `parser:"@@*"`
}

type PostfixOp struct {
	Pos    lexer.Position `parser:""`
	Member *string        `parser:"  '.' @Ident"`
	Index  *Expression    `parser:"| '[' Newline* @@ Newline* ']'"`
	Call   *CallArgs      `parser:"| @@"`
}

type CallArgs struct {
	Args []*Expression `parser:"'(' Newline* ( @@ ( ',' Newline* @@ )* )? Newline* ')'"`
}

// Primary is a literal, an identifier or a parenthesized expression.
type Primary struct {
	Pos    lexer.Position `parser:""`
	Number *float64       `parser:"  @Number"`
	Str    *StringValue   `parser:"| @String"`
	True   bool           `parser:"| @'true'"`
	False  bool           `parser:"| @'false'"`
	Null   bool           `parser:"| @'null'"`
	Array  *ArrayLit      `parser:"| @@"`
	Object *ObjectLit     `parser:"| @@"`
	Ident  *string        `parser:"| @Ident"`
	Paren  *Expression    `parser:"| '(' Newline* @@ Newline* ')'"`
}

type ArrayLit struct {
	Items []*Expression `parser:"'[' Newline* ( @@ ( ',' Newline* @@ )* )? Newline* ']'"`
}

type ObjectLit struct {
	Entries []*ObjectEntry `parser:"'{' Newline* ( @@ ( ',' Newline* @@ )* )? Newline* '}'"`
}

type ObjectEntry struct {
	KeyIdent *string      `parser:"( @Ident"`
	KeyStr   *StringValue `parser:"| @String )"`
	Value    *Expression  `parser:"':' Newline* @@"`
}

// Key returns the entry key regardless of how it was written.
func (e *ObjectEntry) Key() string {
	if e.KeyIdent != nil {
		return *e.KeyIdent
	}
	if e.KeyStr != nil {
		return string(*e.KeyStr)
	}
	return ""
}

// StringValue unquotes string literals on capture. Both double- and
// single-quoted forms are accepted.
type StringValue string

// Capture implements participle.Capture.
func (s *StringValue) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := unquoteScript(values[0])
	if err != nil {
		return err
	}
	*s = StringValue(val)
	return nil
}

func unquoteScript(raw string) (string, error) {
	if len(raw) < 2 {
		return "", fmt.Errorf("string literal too short: %q", raw)
	}
	if raw[0] == '"' {
		return strconv.Unquote(raw)
	}
	// Single-quoted form: resolve the escape sequences by hand since
	// strconv only understands double quotes.
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape in %q", raw)
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// Parse reads a script from r.
func Parse(r io.Reader) (*Program, error) {
	return programParser.Parse("", r)
}

// ParseString parses script source text.
func ParseString(src string) (*Program, error) {
	return programParser.ParseString("", src)
}

// internal/locator/selector.go
// Selector is the tagged representation of one way to find an element.
// Text-matching selectors used to be built by string interpolation
// ("vaadin-button*=" + label); here they are a distinct variant that is
// validated statically and compiled to XPath for the driver.

package locator

import (
	"fmt"
	"strings"
)

// Kind identifies the query language of a Selector.
type Kind int

const (
	KindCSS Kind = iota
	KindXPath
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindCSS:
		return "css"
	case KindXPath:
		return "xpath"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// QueryKind is the query language a driver must execute.
type QueryKind int

const (
	QueryCSS QueryKind = iota
	QueryXPath
)

// Query is the compiled, driver-facing form of a Selector.
type Query struct {
	Kind QueryKind
	Expr string
}

// Selector is immutable once constructed. The zero value is invalid.
type Selector struct {
	kind  Kind
	expr  string
	scope string // CSS compound restricting text selectors; "" means any element.
	exact bool
}

// CSS returns a CSS selector candidate.
func CSS(expr string) Selector { return Selector{kind: KindCSS, expr: strings.TrimSpace(expr)} }

// XPath returns an XPath selector candidate.
func XPath(expr string) Selector { return Selector{kind: KindXPath, expr: strings.TrimSpace(expr)} }

// Text matches elements within scope whose text contains text.
// scope is a simple CSS compound such as "vaadin-button" or `[role="tab"]`.
func Text(scope, text string) Selector {
	return Selector{kind: KindText, expr: text, scope: strings.TrimSpace(scope)}
}

// ExactText matches elements within scope whose normalized text equals text.
func ExactText(scope, text string) Selector {
	return Selector{kind: KindText, expr: text, scope: strings.TrimSpace(scope), exact: true}
}

func (s Selector) Kind() Kind         { return s.kind }
func (s Selector) Expression() string { return s.expr }
func (s Selector) Scope() string      { return s.scope }
func (s Selector) Exact() bool        { return s.exact }

// String renders the selector in the legacy string form used by feature
// authors ("tag*=text", "tag=text", CSS or XPath).
func (s Selector) String() string {
	if s.kind != KindText {
		return s.expr
	}
	op := "*="
	if s.exact {
		op = "="
	}
	return s.scope + op + s.expr
}

// ParseSelector converts the legacy string form into a Selector:
//
//	//div[@id='x'], (//a)[1]   XPath
//	button*=Sign in           partial text within scope
//	h1=Team                   exact text within scope
//	*=Invitations             partial text, any element
//	anything else             CSS
func ParseSelector(raw string) (Selector, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Selector{}, fmt.Errorf("%w: empty selector", ErrInvalidSelector)
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		sel := XPath(s)
		return sel, sel.Validate()
	}
	if i := topLevelEquals(s); i >= 0 {
		var sel Selector
		if i > 0 && s[i-1] == '*' {
			sel = Text(s[:i-1], s[i+1:])
		} else {
			sel = ExactText(s[:i], s[i+1:])
		}
		if sel.scope == "*" {
			sel.scope = ""
		}
		return sel, sel.Validate()
	}
	sel := CSS(s)
	return sel, sel.Validate()
}

// MustParse is ParseSelector for static selector tables; it panics on error.
func MustParse(raw string) Selector {
	sel, err := ParseSelector(raw)
	if err != nil {
		panic(err)
	}
	return sel
}

// ParseAll parses a list of legacy selector strings, preserving order.
func ParseAll(raws ...string) ([]Selector, error) {
	out := make([]Selector, 0, len(raws))
	for _, r := range raws {
		sel, err := ParseSelector(r)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", r, err)
		}
		out = append(out, sel)
	}
	return out, nil
}

// topLevelEquals returns the index of the first '=' outside brackets and quotes.
func topLevelEquals(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == '=' && depth == 0:
			return i
		}
	}
	return -1
}

// Validate performs static checks that need no live DOM.
func (s Selector) Validate() error {
	switch s.kind {
	case KindCSS:
		if s.expr == "" {
			return fmt.Errorf("%w: empty css selector", ErrInvalidSelector)
		}
		return checkBalanced(s.expr)
	case KindXPath:
		if s.expr == "" {
			return fmt.Errorf("%w: empty xpath", ErrInvalidSelector)
		}
		if !strings.HasPrefix(s.expr, "/") && !strings.HasPrefix(s.expr, "(") {
			return fmt.Errorf("%w: xpath %q must start with '/' or '('", ErrInvalidSelector, s.expr)
		}
		return checkBalanced(s.expr)
	case KindText:
		if strings.TrimSpace(s.expr) == "" {
			return fmt.Errorf("%w: text selector %q has no text", ErrInvalidSelector, s.String())
		}
		_, err := compoundToXPath(s.scope)
		return err
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidSelector, s.kind)
	}
}

// Compile produces the driver query. Text selectors become XPath.
func (s Selector) Compile() (Query, error) {
	if err := s.Validate(); err != nil {
		return Query{}, err
	}
	switch s.kind {
	case KindCSS:
		return Query{Kind: QueryCSS, Expr: s.expr}, nil
	case KindXPath:
		return Query{Kind: QueryXPath, Expr: s.expr}, nil
	}

	base, _ := compoundToXPath(s.scope)
	text := strings.Join(strings.Fields(s.expr), " ")
	lit := XPathLiteral(text)
	if s.exact {
		return Query{Kind: QueryXPath, Expr: fmt.Sprintf("%s[normalize-space(.)=%s]", base, lit)}, nil
	}
	match := fmt.Sprintf("contains(normalize-space(.), %s)", lit)
	if s.scope == "" {
		// Any element: keep only the deepest elements carrying the text so
		// html/body ancestors do not win.
		return Query{Kind: QueryXPath, Expr: fmt.Sprintf("%s[%s and not(*[%s])]", base, match, match)}, nil
	}
	return Query{Kind: QueryXPath, Expr: fmt.Sprintf("%s[%s]", base, match)}, nil
}

func checkBalanced(expr string) error {
	var stack []byte
	var quote byte
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '(':
			stack = append(stack, c)
		case ']', ')':
			want := byte('[')
			if c == ')' {
				want = '('
			}
			if len(stack) == 0 || stack[len(stack)-1] != want {
				return fmt.Errorf("%w: unbalanced %q in %q", ErrInvalidSelector, c, expr)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if quote != 0 {
		return fmt.Errorf("%w: unterminated quote in %q", ErrInvalidSelector, expr)
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: unclosed %q in %q", ErrInvalidSelector, stack[len(stack)-1], expr)
	}
	return nil
}

// XPathLiteral quotes s as an XPath 1.0 string literal.
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}

// compoundToXPath translates a simple CSS compound (tag, #id, .class and
// attribute tests, no combinators) into an XPath location step.
func compoundToXPath(compound string) (string, error) {
	c := strings.TrimSpace(compound)
	if c == "" || c == "*" {
		return "//*", nil
	}
	i := 0
	tag := "*"
	if isIdentStart(c[0]) {
		j := scanIdent(c, 0)
		tag = c[:j]
		i = j
	} else if c[0] == '*' {
		i = 1
	}

	var preds []string
	for i < len(c) {
		switch c[i] {
		case '#', '.':
			j := scanIdent(c, i+1)
			if j == i+1 {
				return "", fmt.Errorf("%w: empty name after %q in scope %q", ErrInvalidSelector, c[i], compound)
			}
			name := c[i+1 : j]
			if c[i] == '#' {
				preds = append(preds, "@id="+XPathLiteral(name))
			} else {
				preds = append(preds, fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), %s)", XPathLiteral(" "+name+" ")))
			}
			i = j
		case '[':
			end := strings.IndexByte(c[i:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed attribute test in scope %q", ErrInvalidSelector, compound)
			}
			pred, err := attrPredicate(c[i+1 : i+end])
			if err != nil {
				return "", fmt.Errorf("scope %q: %w", compound, err)
			}
			preds = append(preds, pred)
			i += end + 1
		default:
			return "", fmt.Errorf("%w: unsupported token %q in text selector scope %q", ErrInvalidSelector, c[i:], compound)
		}
	}

	var b strings.Builder
	b.WriteString("//")
	b.WriteString(tag)
	for _, p := range preds {
		b.WriteString("[" + p + "]")
	}
	return b.String(), nil
}

func attrPredicate(body string) (string, error) {
	body = strings.TrimSpace(body)
	op := ""
	idx := strings.IndexAny(body, "*^=")
	if idx < 0 {
		if body == "" {
			return "", fmt.Errorf("%w: empty attribute test", ErrInvalidSelector)
		}
		return "@" + body, nil
	}
	name := strings.TrimSpace(body[:idx])
	rest := body[idx:]
	switch {
	case strings.HasPrefix(rest, "*="):
		op, rest = "*=", rest[2:]
	case strings.HasPrefix(rest, "^="):
		op, rest = "^=", rest[2:]
	case strings.HasPrefix(rest, "="):
		op, rest = "=", rest[1:]
	default:
		return "", fmt.Errorf("%w: unsupported attribute operator in [%s]", ErrInvalidSelector, body)
	}
	if name == "" {
		return "", fmt.Errorf("%w: missing attribute name in [%s]", ErrInvalidSelector, body)
	}
	val := strings.TrimSpace(rest)
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		val = val[1 : len(val)-1]
	}
	lit := XPathLiteral(val)
	switch op {
	case "*=":
		return fmt.Sprintf("contains(@%s, %s)", name, lit), nil
	case "^=":
		return fmt.Sprintf("starts-with(@%s, %s)", name, lit), nil
	default:
		return fmt.Sprintf("@%s=%s", name, lit), nil
	}
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func scanIdent(s string, i int) int {
	for i < len(s) {
		c := s[i]
		if isIdentStart(c) || (c >= '0' && c <= '9') || c == '-' {
			i++
			continue
		}
		break
	}
	return i
}

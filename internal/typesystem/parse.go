package typesystem

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseType parses the textual descriptor syntax used by manifests and
// diagnostics. It accepts exactly what Type.String produces:
//
//	Int, geo.Point, List<t>, { area: () -> Float }, (Int, String) -> Bool,
//	(Int, Bool), Int | String
//
// Identifiers starting with a lower-case letter are type variables.
func ParseType(input string) (Type, error) {
	p := &typeParser{input: input}
	p.next()
	t, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	return t, nil
}

// MustParseType is ParseType for literals known to be valid.
func MustParseType(input string) Type {
	t, err := ParseType(input)
	if err != nil {
		panic(err)
	}
	return t
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokPunct
	tokArrow
	tokEllipsis
)

type typeToken struct {
	kind tokKind
	text string
	pos  int
}

type typeParser struct {
	input string
	pos   int
	tok   typeToken
}

func (p *typeParser) errorf(msg string, args ...interface{}) error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &SyntaxError{Input: p.input, Offset: p.tok.pos, Msg: msg}
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

func (p *typeParser) next() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.input) {
		p.tok = typeToken{kind: tokEOF, pos: start}
		return
	}

	rest := p.input[p.pos:]
	switch {
	case strings.HasPrefix(rest, "->"):
		p.pos += 2
		p.tok = typeToken{kind: tokArrow, text: "->", pos: start}
		return
	case strings.HasPrefix(rest, "..."):
		p.pos += 3
		p.tok = typeToken{kind: tokEllipsis, text: "...", pos: start}
		return
	}

	r := rune(p.input[p.pos])
	if isIdentRune(r) && r != '.' {
		for p.pos < len(p.input) && isIdentRune(rune(p.input[p.pos])) {
			p.pos++
		}
		p.tok = typeToken{kind: tokIdent, text: p.input[start:p.pos], pos: start}
		return
	}

	p.pos++
	p.tok = typeToken{kind: tokPunct, text: string(r), pos: start}
}

func (p *typeParser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *typeParser) expect(s string) error {
	if !p.isPunct(s) {
		if p.tok.kind == tokEOF {
			return p.errorf("expected %q, got end of input", s)
		}
		return p.errorf("expected %q, got %q", s, p.tok.text)
	}
	p.next()
	return nil
}

func (p *typeParser) parseUnion() (Type, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.isPunct("|") {
		return first, nil
	}
	members := []Type{first}
	for p.isPunct("|") {
		p.next()
		t, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		members = append(members, t)
	}
	return NormalizeUnion(members), nil
}

func (p *typeParser) parsePrimary() (Type, error) {
	switch {
	case p.tok.kind == tokIdent:
		return p.parseNamed()
	case p.isPunct("{"):
		return p.parseRecord()
	case p.isPunct("("):
		return p.parseParenthesized()
	case p.tok.kind == tokEOF:
		return nil, p.errorf("unexpected end of input")
	default:
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
}

func (p *typeParser) parseNamed() (Type, error) {
	name := p.tok.text
	p.next()

	var ctor Type
	if first := rune(name[0]); unicode.IsLower(first) && !strings.Contains(name, ".") {
		ctor = TVar{Name: name}
	} else if idx := strings.LastIndex(name, "."); idx > 0 && idx < len(name)-1 {
		ctor = TCon{Module: name[:idx], Name: name[idx+1:]}
	} else {
		ctor = TCon{Name: name}
	}

	if !p.isPunct("<") {
		return ctor, nil
	}
	p.next()
	args := []Type{}
	for {
		arg, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return TApp{Constructor: ctor, Args: args}, nil
}

func (p *typeParser) parseRecord() (Type, error) {
	p.next() // {
	fields := make(map[string]Type)
	for !p.isPunct("}") {
		if p.tok.kind != tokIdent {
			return nil, p.errorf("expected field name")
		}
		name := p.tok.text
		if _, dup := fields[name]; dup {
			return nil, p.errorf("duplicate field %q", name)
		}
		p.next()
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		t, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		fields[name] = t
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return TRecord{Fields: fields}, nil
}

// parseParenthesized handles grouping, tuples and function types, which
// share the leading "(".
func (p *typeParser) parseParenthesized() (Type, error) {
	p.next() // (
	elems := []Type{}
	variadic := false
	trailingComma := false
	for !p.isPunct(")") {
		if variadic {
			return nil, p.errorf("variadic parameter must be last")
		}
		if p.tok.kind == tokEllipsis {
			variadic = true
			p.next()
		}
		t, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
		trailingComma = false
		if !p.isPunct(",") {
			break
		}
		p.next()
		trailingComma = true
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}

	if p.tok.kind == tokArrow {
		p.next()
		ret, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		return TFunc{Params: elems, ReturnType: ret, IsVariadic: variadic}, nil
	}
	if variadic {
		return nil, p.errorf("variadic marker outside a parameter list")
	}
	if len(elems) == 1 && !trailingComma {
		return elems[0], nil
	}
	return TTuple{Elements: elems}, nil
}

package wpjson

import (
	"strconv"
	"strings"

	"github.com/wpcore-go/wpcore/internal/wperr"
)

// Parse reads a single JSON value from s using the engine's permissive
// grammar: the same grammar serves both strict JSON input and the
// relaxed config-file dialect (unquoted bare keys and values, '#'
// line comments, commas optional between container members, '=' or ':'
// or plain whitespace between an object key and its value), matching
// the original engine's single spa-json grammar for both uses.
//
// Containers are returned lazily: Parse itself only scans far enough to
// find the matching close bracket, and Elements/Properties/Lookup do the
// actual member-splitting work on first access.
func Parse(s string) (Value, error) {
	p := &parser{s: s}
	p.skipSpaceAndComments()
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipSpaceAndComments()
	if !p.atEnd() {
		return Value{}, wperr.Withf(wperr.KindInvalidArgument, "Parse", "trailing data after value at offset %d", p.i)
	}
	return v, nil
}

// ParseString is an alias of Parse kept for call sites that read more
// naturally passing a named string argument.
func ParseString(s string) (Value, error) { return Parse(s) }

type parser struct {
	s string
	i int
}

func (p *parser) atEnd() bool { return p.i >= len(p.s) }
func (p *parser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.s[p.i]
}

func (p *parser) consumeIf(c byte) bool {
	if p.peek() == c {
		p.i++
		return true
	}
	return false
}

func (p *parser) skipSpaceAndComments() {
	for !p.atEnd() {
		c := p.s[p.i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			p.i++
		case c == '#':
			for !p.atEnd() && p.s[p.i] != '\n' {
				p.i++
			}
		default:
			return
		}
	}
}

// parseValue parses one JSON value at the current position.
func (p *parser) parseValue() (Value, error) {
	p.skipSpaceAndComments()
	if p.atEnd() {
		return Value{}, wperr.Withf(wperr.KindInvalidArgument, "parseValue", "unexpected end of input")
	}
	switch c := p.peek(); {
	case c == '{':
		return p.parseContainer('{', '}', KindObject)
	case c == '[':
		return p.parseContainer('[', ']', KindArray)
	case c == '"':
		s, err := p.parseQuotedString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	default:
		tok, err := p.parseRawToken()
		if err != nil {
			return Value{}, err
		}
		return literalValue(tok), nil
	}
}

// parseContainer scans from open to its matching close, recording the
// raw interior text for lazy splitting instead of recursing eagerly.
func (p *parser) parseContainer(open, close byte, kind Kind) (Value, error) {
	start := p.i
	if !p.consumeIf(open) {
		return Value{}, wperr.Withf(wperr.KindInvalidArgument, "parseContainer", "expected %q", open)
	}
	depth := 1
	inString := false
	for !p.atEnd() && depth > 0 {
		c := p.s[p.i]
		switch {
		case inString:
			if c == '\\' {
				p.i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == open:
			depth++
		case c == close:
			depth--
		}
		p.i++
	}
	if depth != 0 {
		return Value{}, wperr.Withf(wperr.KindInvalidArgument, "parseContainer", "unterminated container starting at offset %d", start)
	}
	inner := p.s[start+1 : p.i-1]
	return Value{kind: kind, raw: inner}, nil
}

func (p *parser) parseQuotedString() (string, error) {
	start := p.i
	if !p.consumeIf('"') {
		return "", wperr.Withf(wperr.KindInvalidArgument, "parseQuotedString", "expected '\"'")
	}
	var sb strings.Builder
	for {
		if p.atEnd() {
			return "", wperr.Withf(wperr.KindInvalidArgument, "parseQuotedString", "unterminated string starting at offset %d", start)
		}
		c := p.s[p.i]
		if c == '"' {
			p.i++
			return sb.String(), nil
		}
		if c == '\\' && p.i+1 < len(p.s) {
			p.i++
			switch p.s[p.i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\\', '/':
				sb.WriteByte(p.s[p.i])
			case 'u':
				if p.i+4 < len(p.s) {
					if n, err := strconv.ParseUint(p.s[p.i+1:p.i+5], 16, 32); err == nil {
						sb.WriteRune(rune(n))
						p.i += 4
					}
				}
			default:
				sb.WriteByte(p.s[p.i])
			}
			p.i++
			continue
		}
		sb.WriteByte(c)
		p.i++
	}
}

// parseRawToken reads one unquoted token or quoted string verbatim
// (quotes included), used both for bare scalar literals and for object
// keys, which may be bare or quoted.
func (p *parser) parseRawToken() (string, error) {
	if p.peek() == '"' {
		start := p.i
		if _, err := p.parseQuotedString(); err != nil {
			return "", err
		}
		return p.s[start:p.i], nil
	}
	start := p.i
	for !p.atEnd() {
		c := p.s[p.i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',' ||
			c == '{' || c == '}' || c == '[' || c == ']' || c == ':' || c == '=' || c == '#' {
			break
		}
		p.i++
	}
	if p.i == start {
		return "", wperr.Withf(wperr.KindInvalidArgument, "parseRawToken", "empty token at offset %d", start)
	}
	return p.s[start:p.i], nil
}

// unquoteOrLiteral turns a raw token (as returned by parseRawToken) into
// its string form: quoted tokens are unescaped, bare tokens are used
// verbatim as object keys.
func unquoteOrLiteral(tok string) (string, error) {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		sub := &parser{s: tok}
		return sub.parseQuotedString()
	}
	return tok, nil
}

// literalValue classifies a bare token as null/true/false/number/string,
// matching the relaxed grammar's handling of unquoted scalars.
func literalValue(tok string) Value {
	switch tok {
	case "null":
		return Null
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		s, err := unquoteOrLiteral(tok)
		if err != nil {
			return String(tok)
		}
		return String(s)
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Int(i)
	}
	if u, err := strconv.ParseUint(tok, 10, 64); err == nil {
		return Uint(u)
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return Float(f)
	}
	return String(tok)
}

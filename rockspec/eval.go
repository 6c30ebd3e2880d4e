package rockspec

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// This file implements the sandboxed evaluator for rockspec text: a
// small recursive-descent parser over the restricted Lua table-literal
// grammar rockspecs actually use, with no I/O, no require, and no
// function calls. Parsing is total - no user rockspec may crash the
// process.

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokNumber
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokEquals
	tokComma
	tokSemi
	tokTrue
	tokFalse
	tokNil
)

type token struct {
	kind tokKind
	text string
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src)} }

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}
	c := l.src[l.pos]

	switch {
	case c == '{':
		l.pos++
		return token{kind: tokLBrace}, nil
	case c == '}':
		l.pos++
		return token{kind: tokRBrace}, nil
	case c == '[':
		l.pos++
		return token{kind: tokLBracket}, nil
	case c == ']':
		l.pos++
		return token{kind: tokRBracket}, nil
	case c == '=':
		l.pos++
		return token{kind: tokEquals}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma}, nil
	case c == ';':
		l.pos++
		return token{kind: tokSemi}, nil
	case c == '"' || c == '\'':
		return l.lexString(c)
	case c == '-' || isDigit(c):
		return l.lexNumber()
	case isIdentStart(c):
		return l.lexIdent()
	default:
		return token{}, errors.Errorf("unexpected character %q at offset %d", c, l.pos)
	}
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.pos++
			continue
		}
		if c == '-' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '-' {
			l.pos += 2
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

func isDigit(c rune) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c rune) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c rune) bool  { return isIdentStart(c) || isDigit(c) }

func (l *lexer) lexString(quote rune) (token, error) {
	l.pos++
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, errors.New("unterminated string literal")
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			break
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(l.src[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(c)
		l.pos++
	}
	return token{kind: tokString, text: sb.String()}, nil
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos])}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	switch text {
	case "true":
		return token{kind: tokTrue, text: text}, nil
	case "false":
		return token{kind: tokFalse, text: text}, nil
	case "nil":
		return token{kind: tokNil, text: text}, nil
	default:
		return token{kind: tokIdent, text: text}, nil
	}
}

// parser turns rockspec text into a generic value tree: map[string]any,
// []any, string, float64, bool.
type parser struct {
	lex  *lexer
	cur  token
	peek *token
}

func newParser(src string) (*parser, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	p.peek = nil
	return nil
}

// Evaluate parses a whole rockspec file: a sequence of top-level
// `key = value` assignments (optionally semicolon-terminated), producing
// the flattened table they describe.
func Evaluate(src string) (map[string]interface{}, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, errors.Wrap(err, "rockspec evaluation failed")
	}
	out := make(map[string]interface{})
	for p.cur.kind != tokEOF {
		if p.cur.kind == tokSemi {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.cur.kind != tokIdent {
			return nil, errors.Errorf("expected assignment, got token kind %d", p.cur.kind)
		}
		key := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokEquals {
			return nil, errors.Errorf("expected '=' after %q", key)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func (p *parser) parseValue() (interface{}, error) {
	switch p.cur.kind {
	case tokString:
		v := p.cur.text
		return v, p.advance()
	case tokNumber:
		v, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", p.cur.text)
		}
		return v, p.advance()
	case tokTrue:
		return true, p.advance()
	case tokFalse:
		return false, p.advance()
	case tokNil:
		return nil, p.advance()
	case tokLBrace:
		return p.parseTable()
	default:
		return nil, errors.Errorf("unexpected token kind %d in value position", p.cur.kind)
	}
}

func (p *parser) parseTable() (interface{}, error) {
	if err := p.advance(); err != nil { // consume '{'
		return nil, err
	}

	m := make(map[string]interface{})
	var arr []interface{}
	isArray := true

	for p.cur.kind != tokRBrace {
		if p.cur.kind == tokEOF {
			return nil, errors.New("unterminated table literal")
		}

		// [expr] = value  or  ident = value  or  bare value (array entry)
		if p.cur.kind == tokLBracket {
			if err := p.advance(); err != nil {
				return nil, err
			}
			keyVal, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			if p.cur.kind != tokRBracket {
				return nil, errors.New("expected ']' in table key")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tokEquals {
				return nil, errors.New("expected '=' after table key")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			val, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			if s, ok := keyVal.(string); ok {
				m[s] = val
			}
			isArray = false
		} else if p.cur.kind == tokIdent {
			save := p.cur
			ahead, err := p.peekToken()
			if err != nil {
				return nil, err
			}
			if ahead.kind == tokEquals {
				key := save.text
				if err := p.advance(); err != nil { // consume ident
					return nil, err
				}
				if err := p.advance(); err != nil { // consume '='
					return nil, err
				}
				val, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				m[key] = val
				isArray = false
			} else {
				val, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
		} else {
			val, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}

		if p.cur.kind == tokComma || p.cur.kind == tokSemi {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if p.cur.kind != tokRBrace {
		return nil, errors.New("expected '}' to close table literal")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if isArray {
		if arr == nil {
			return []interface{}{}, nil
		}
		return arr, nil
	}
	for i, v := range arr {
		m[strconv.Itoa(i+1)] = v
	}
	return m, nil
}

// peekToken looks one token ahead without consuming the current one,
// needed to distinguish `ident = value` from a bare array entry that
// happens to be an identifier-shaped string (there are none in practice,
// but the grammar requires the lookahead regardless to tell `foo = 1`
// apart from a lone `foo`, which isn't valid Lua anyway and is rejected).
func (p *parser) peekToken() (token, error) {
	if p.peek != nil {
		return *p.peek, nil
	}
	clone := &lexer{src: p.lex.src, pos: p.lex.pos}
	t, err := clone.next()
	if err != nil {
		return token{}, err
	}
	p.peek = &t
	return t, nil
}

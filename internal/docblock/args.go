package docblock

import (
	"strconv"
	"strings"

	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokString
	tokNumber
	tokIdent
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokArrow
	tokMinus
)

type token struct {
	typ  tokenType
	text string // identifier or number lexeme, decoded string contents
	pos  int
}

// ParseArgs parses a parenthesized argument list such as
// ('a', 2, 'key' => [true, null]) into positional and named values.
func ParseArgs(text string) (model.Args, error) {
	toks, err := lex(text)
	if err != nil {
		return model.Args{}, err
	}
	p := &argParser{toks: toks, src: text}

	if err := p.expect(tokLParen); err != nil {
		return model.Args{}, err
	}
	items, fields, err := p.entries(tokRParen)
	if err != nil {
		return model.Args{}, err
	}
	if p.peek().typ != tokEOF {
		return model.Args{}, p.errorf("unexpected trailing input")
	}
	return model.Args{Positional: items, Named: fields}, nil
}

type argParser struct {
	toks []token
	pos  int
	src  string
}

func (p *argParser) peek() token {
	return p.toks[p.pos]
}

func (p *argParser) next() token {
	t := p.toks[p.pos]
	if t.typ != tokEOF {
		p.pos++
	}
	return t
}

func (p *argParser) expect(typ tokenType) error {
	if p.next().typ != typ {
		return p.errorf("malformed argument list")
	}
	return nil
}

func (p *argParser) errorf(msg string) error {
	at := p.toks[p.pos].pos
	if p.pos > 0 && p.toks[p.pos].typ == tokEOF {
		at = len(p.src)
	}
	return errs.New(errs.Parse, "%s at offset %d in %s", msg, at, p.src)
}

// entries parses a comma separated list of values and key => value pairs
// up to and including the closing token.
func (p *argParser) entries(closing tokenType) ([]model.Value, []model.Field, error) {
	var (
		items  []model.Value
		fields []model.Field
	)
	for {
		if p.peek().typ == closing {
			p.next()
			return items, fields, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, nil, err
		}

		if p.peek().typ == tokArrow {
			p.next()
			key, ok := keyOf(v)
			if !ok {
				return nil, nil, p.errorf("invalid array key " + v.String())
			}
			val, err := p.value()
			if err != nil {
				return nil, nil, err
			}
			fields = append(fields, model.Field{Key: key, Value: val})
		} else {
			items = append(items, v)
		}

		switch p.peek().typ {
		case tokComma:
			p.next()
		case closing:
		default:
			return nil, nil, p.errorf("expected ',' or closing delimiter")
		}
	}
}

func (p *argParser) value() (model.Value, error) {
	t := p.next()
	switch t.typ {
	case tokString:
		return model.String(t.text), nil
	case tokNumber:
		return number(t.text, false)
	case tokMinus:
		n := p.next()
		if n.typ != tokNumber {
			return model.Value{}, p.errorf("expected number after '-'")
		}
		return number(n.text, true)
	case tokLBracket:
		items, fields, err := p.entries(tokRBracket)
		if err != nil {
			return model.Value{}, err
		}
		return model.Array(items, fields), nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return model.Bool(true), nil
		case "false":
			return model.Bool(false), nil
		case "null":
			return model.Null(), nil
		case "array":
			if p.peek().typ == tokLParen {
				p.next()
				items, fields, err := p.entries(tokRParen)
				if err != nil {
					return model.Value{}, err
				}
				return model.Array(items, fields), nil
			}
		}
		return model.Ident(t.text), nil
	case tokEOF:
		return model.Value{}, p.errorf("unexpected end of argument list")
	default:
		return model.Value{}, p.errorf("unexpected token")
	}
}

func keyOf(v model.Value) (string, bool) {
	switch v.Kind {
	case model.StringValue, model.IdentValue:
		return v.Str, true
	case model.IntValue:
		return strconv.FormatInt(v.Int, 10), true
	}
	return "", false
}

func number(text string, negative bool) (model.Value, error) {
	if negative {
		text = "-" + text
	}
	if !strings.ContainsAny(text, ".eE") || strings.HasPrefix(strings.TrimPrefix(text, "-"), "0x") {
		n, err := strconv.ParseInt(text, 0, 64)
		if err == nil {
			return model.Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return model.Value{}, errs.Wrap(err, errs.Parse, "invalid number %q", text)
	}
	return model.Float(f), nil
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{typ: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{typ: tokRParen, pos: i})
			i++
		case c == '[':
			toks = append(toks, token{typ: tokLBracket, pos: i})
			i++
		case c == ']':
			toks = append(toks, token{typ: tokRBracket, pos: i})
			i++
		case c == ',':
			toks = append(toks, token{typ: tokComma, pos: i})
			i++
		case c == '=' && i+1 < len(src) && src[i+1] == '>':
			toks = append(toks, token{typ: tokArrow, pos: i})
			i += 2
		case c == '-':
			toks = append(toks, token{typ: tokMinus, pos: i})
			i++
		case c == '\'' || c == '"':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, errs.Wrap(err, errs.Parse, "at offset %d in %s", i, src)
			}
			toks = append(toks, token{typ: tokString, text: s, pos: i})
			i += n
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isNumberChar(src[i], src[start:i]) {
				i++
			}
			toks = append(toks, token{typ: tokNumber, text: src[start:i], pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) {
				if isIdentChar(src[i]) {
					i++
				} else if src[i] == ':' && i+2 < len(src) && src[i+1] == ':' && isIdentStart(src[i+2]) {
					i += 2
				} else {
					break
				}
			}
			toks = append(toks, token{typ: tokIdent, text: src[start:i], pos: start})
		default:
			return nil, errs.New(errs.Parse, "unexpected character %q at offset %d in %s", c, i, src)
		}
	}
	return append(toks, token{typ: tokEOF, pos: len(src)}), nil
}

// lexString decodes a quoted literal at the start of s and returns its
// contents and the number of bytes consumed.
func lexString(s string) (string, int, error) {
	q := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == q {
			return b.String(), i + 1, nil
		}
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		if q == '\'' {
			if next == '\'' || next == '\\' {
				b.WriteByte(next)
				i++
			} else {
				b.WriteByte(c)
			}
			continue
		}
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case '0':
			b.WriteByte(0)
		case '\\', '"', '$':
			b.WriteByte(next)
		default:
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i++
	}
	return "", 0, errs.New(errs.Parse, "unterminated string literal")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumberChar(c byte, prefix string) bool {
	switch {
	case isDigit(c), c == '.':
		return true
	case c == 'x' || c == 'X':
		return prefix == "0"
	case c == 'e' || c == 'E':
		return true
	case (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'):
		return strings.HasPrefix(prefix, "0x") || strings.HasPrefix(prefix, "0X")
	case c == '+' || c == '-':
		return strings.HasSuffix(prefix, "e") || strings.HasSuffix(prefix, "E")
	}
	return false
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '\\' || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

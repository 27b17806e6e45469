package ifc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const maxNesting = 64

var (
	errComplexInstance = errors.New("complex entity instances are not supported")
	errTooDeep         = errors.New("parameters nested too deeply")
)

// parser reads one exchange file statement. Whitespace and /* comments */
// may appear between any two tokens.
type parser struct {
	data  []byte
	pos   int
	depth int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("byte %d: "+format, append([]any{p.pos}, args...)...)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			p.pos++
			continue
		}
		if c == '/' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '*' {
			end := bytes.Index(p.data[p.pos+2:], []byte("*/"))
			if end < 0 {
				p.pos = len(p.data)
				return
			}
			p.pos += end + 4
			continue
		}
		return
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.data) {
		return p.data[p.pos]
	}
	return 0
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.pos >= len(p.data) {
			return p.errorf("expected %q, got end of statement", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// keyword reads a standard keyword such as IFCWALL or FILE_SCHEMA, upper-cased
func (p *parser) keyword() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isUpper(c) || isLower(c) || c == '_' || (p.pos > start && (isDigit(c) || c == '-')) {
			p.pos++
			continue
		}
		break
	}
	return strings.ToUpper(string(p.data[start:p.pos]))
}

func (p *parser) digits() string {
	start := p.pos
	for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// instanceID reads the "#123 =" prefix of a data section statement
func (p *parser) instanceID() (int64, error) {
	if err := p.expect('#'); err != nil {
		return 0, err
	}
	d := p.digits()
	if d == "" {
		return 0, p.errorf("missing instance number")
	}
	id, err := strconv.ParseInt(d, 10, 64)
	if err != nil {
		return 0, p.errorf("instance number %s: %v", d, err)
	}
	if err = p.expect('='); err != nil {
		return 0, err
	}
	return id, nil
}

// end accepts an optional terminating ';' followed by nothing else
func (p *parser) end() error {
	p.skipSpace()
	if p.peek() == ';' {
		p.pos++
		p.skipSpace()
	}
	if p.pos < len(p.data) {
		return p.errorf("unexpected %q after instance", p.peek())
	}
	return nil
}

// parseInstance parses "#id = TYPE(params);"
func parseInstance(stmt []byte) (id int64, typeName string, params []Param, err error) {
	p := parser{data: stmt}
	if id, err = p.instanceID(); err != nil {
		return
	}
	p.skipSpace()
	if p.peek() == '(' {
		err = errComplexInstance
		return
	}
	if typeName = p.keyword(); typeName == "" {
		err = p.errorf("missing entity type")
		return
	}
	if params, err = p.list(); err != nil {
		return
	}
	err = p.end()
	return
}

// parseHeaderEntity parses "FILE_SCHEMA(params)" style header statements
func parseHeaderEntity(stmt []byte) (name string, params []Param, err error) {
	p := parser{data: stmt}
	if name = p.keyword(); name == "" {
		err = p.errorf("missing header entity name")
		return
	}
	if params, err = p.list(); err != nil {
		return
	}
	err = p.end()
	return
}

// list reads "(a, b, ...)"
func (p *parser) list() ([]Param, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return nil, errTooDeep
	}
	items := []Param{}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return items, nil
	}
	for {
		item, err := p.param()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return items, nil
		case 0:
			return nil, p.errorf("unterminated list")
		default:
			return nil, p.errorf("expected ',' or ')', got %q", p.peek())
		}
	}
}

func (p *parser) param() (Param, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '$':
		p.pos++
		return Param{Kind: ParamNull}, nil
	case c == '*':
		p.pos++
		return Param{Kind: ParamDerived}, nil
	case c == '\'':
		return p.str()
	case c == '"':
		return p.binary()
	case c == '#':
		p.pos++
		d := p.digits()
		if d == "" {
			return Param{}, p.errorf("missing reference number")
		}
		ref, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			return Param{}, p.errorf("reference %s: %v", d, err)
		}
		return Param{Kind: ParamReference, Int: ref}, nil
	case c == '.':
		return p.enum()
	case c == '(':
		items, err := p.list()
		if err != nil {
			return Param{}, err
		}
		return Param{Kind: ParamList, Items: items}, nil
	case isDigit(c) || c == '-' || c == '+':
		return p.number()
	case isUpper(c) || isLower(c):
		name := p.keyword()
		items, err := p.list()
		if err != nil {
			return Param{}, err
		}
		return Param{Kind: ParamTyped, Text: name, Items: items}, nil
	case c == 0:
		return Param{}, p.errorf("unexpected end of statement")
	}
	return Param{}, p.errorf("unexpected %q", c)
}

func (p *parser) str() (Param, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.data) {
			return Param{}, p.errorf("unterminated string")
		}
		c := p.data[p.pos]
		p.pos++
		if c == '\'' {
			if p.peek() == '\'' {
				sb.WriteByte('\'')
				p.pos++
				continue
			}
			break
		}
		sb.WriteByte(c)
	}
	text, err := decodeString(sb.String())
	if err != nil {
		return Param{}, p.errorf("%v", err)
	}
	return Param{Kind: ParamString, Text: text}, nil
}

func (p *parser) binary() (Param, error) {
	p.pos++
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != '"' {
		c := p.data[p.pos]
		if !isDigit(c) && (c < 'A' || c > 'F') {
			return Param{}, p.errorf("invalid binary digit %q", c)
		}
		p.pos++
	}
	if p.pos >= len(p.data) {
		return Param{}, p.errorf("unterminated binary")
	}
	text := string(p.data[start:p.pos])
	p.pos++
	return Param{Kind: ParamBinary, Text: text}, nil
}

func (p *parser) enum() (Param, error) {
	p.pos++
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != '.' {
		c := p.data[p.pos]
		if !isUpper(c) && !isLower(c) && !isDigit(c) && c != '_' {
			return Param{}, p.errorf("invalid enumeration character %q", c)
		}
		p.pos++
	}
	if p.pos >= len(p.data) || p.pos == start {
		return Param{}, p.errorf("malformed enumeration")
	}
	text := strings.ToUpper(string(p.data[start:p.pos]))
	p.pos++
	return Param{Kind: ParamEnum, Text: text}, nil
}

func (p *parser) number() (Param, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	if p.digits() == "" {
		return Param{}, p.errorf("malformed number")
	}
	isReal := false
	if p.peek() == '.' {
		isReal = true
		p.pos++
		p.digits()
	}
	if c := p.peek(); c == 'E' || c == 'e' {
		isReal = true
		p.pos++
		if c := p.peek(); c == '-' || c == '+' {
			p.pos++
		}
		if p.digits() == "" {
			return Param{}, p.errorf("malformed exponent")
		}
	}
	text := string(p.data[start:p.pos])
	if !isReal {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Param{Kind: ParamInteger, Int: i}, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Param{}, p.errorf("number %s: %v", text, err)
	}
	return Param{Kind: ParamReal, Real: f}, nil
}

package ifc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type span struct {
	offset int64
	length int
}

// Model is an open exchange file. Opening indexes every "#id=" statement of
// the DATA sections by byte position; entity statements are parsed one at a
// time by Record. Close releases the file.
type Model struct {
	path   string
	schema string
	ids     []int64
	index   map[int64]span
	skipped int // data statements without an instance name

	mu   sync.RWMutex
	file *os.File
}

// Record is one entity instance with its parameters named after the schema
type Record struct {
	ExpressID  int64
	Type       string
	Attributes []Attribute
}

type Attribute struct {
	Name  string
	Value Param
}

type section uint8

const (
	sectionStart section = iota
	sectionPreamble
	sectionHeader
	sectionBetween
	sectionData
	sectionEnd
)

// Open reads the container structure of an IFC file. Any error returned
// matches ErrParseFailure.
func Open(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Offset: -1, Err: err}
	}
	m := &Model{
		path:  path,
		file:  file,
		index: map[int64]span{},
	}
	if err = m.scan(bufio.NewReaderSize(file, 64*1024)); err != nil {
		file.Close()
		return nil, err
	}
	return m, nil
}

// scan walks the statements of the file, tracking strings, binaries and
// comments so that only a ';' outside of them ends a statement.
func (m *Model) scan(r *bufio.Reader) error {
	var (
		offset    int64
		start     int64 = -1
		stmt      []byte
		inString  bool
		inBinary  bool
		inComment bool
		current   = sectionStart
		sawData   bool
	)
	fail := func(at int64, format string, args ...any) error {
		return &ParseError{Path: m.path, Offset: at, Err: fmt.Errorf(format, args...)}
	}
	for current != sectionEnd {
		c, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(offset, "read: %w", err)
		}
		pos := offset
		offset++

		if inComment {
			if c == '*' {
				if next, _ := r.Peek(1); len(next) == 1 && next[0] == '/' {
					r.ReadByte()
					offset++
					inComment = false
					if start >= 0 {
						stmt = append(stmt, '*', '/')
					}
					continue
				}
			}
			if start >= 0 {
				stmt = append(stmt, c)
			}
			continue
		}
		if start < 0 {
			// Between statements
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
				continue
			}
			if c == '/' {
				if next, _ := r.Peek(1); len(next) == 1 && next[0] == '*' {
					r.ReadByte()
					offset++
					inComment = true
					continue
				}
			}
			start = pos
			stmt = stmt[:0]
		}
		stmt = append(stmt, c)
		switch {
		case (inString || inBinary) && c == '\n' && current == sectionData && nextIsInstance(r):
			// An unbalanced quote would swallow the rest of the file, the
			// statement ends at this line break and fails on its own
			log.Printf("IFC file %s: unterminated string in statement at byte %d", m.path, start)
			body := stmt[:len(stmt)-1]
			if current, err = m.statement(current, start, body); err != nil {
				return err
			}
			inString, inBinary = false, false
			start = -1
		case inString:
			if c == '\'' {
				if next, _ := r.Peek(1); len(next) == 1 && next[0] == '\'' {
					r.ReadByte()
					offset++
					stmt = append(stmt, '\'')
					continue
				}
				inString = false
			}
		case inBinary:
			if c == '"' {
				inBinary = false
			}
		case c == '\'':
			inString = true
		case c == '"':
			inBinary = true
		case c == '/':
			if next, _ := r.Peek(1); len(next) == 1 && next[0] == '*' {
				r.ReadByte()
				offset++
				stmt = append(stmt, '*')
				inComment = true
			}
		case c == ';':
			body := stmt[:len(stmt)-1]
			if current, err = m.statement(current, start, body); err != nil {
				return err
			}
			if current == sectionData {
				sawData = true
			}
			start = -1
		}
	}
	if start >= 0 {
		return fail(start, "unexpected end of file inside a statement")
	}
	if current == sectionStart {
		return fail(-1, "empty file")
	}
	if !sawData {
		return fail(-1, "no DATA section")
	}
	if current != sectionEnd {
		log.Printf("IFC file %s is not terminated by END-ISO-10303-21, using %d instances read so far", m.path, len(m.ids))
	}
	return nil
}

// nextIsInstance reports whether the buffered input starts with "#<digits>="
func nextIsInstance(r *bufio.Reader) bool {
	next, _ := r.Peek(32)
	if len(next) < 3 || next[0] != '#' {
		return false
	}
	i := 1
	for i < len(next) && next[i] >= '0' && next[i] <= '9' {
		i++
	}
	if i == 1 {
		return false
	}
	for i < len(next) && (next[i] == ' ' || next[i] == '\t') {
		i++
	}
	return i < len(next) && next[i] == '='
}

// statement handles one complete statement (without its ';') and returns the next section
func (m *Model) statement(current section, start int64, body []byte) (section, error) {
	p := parser{data: body}
	p.skipSpace()
	head := strings.TrimSpace(string(body[p.pos:]))
	fail := func(format string, args ...any) (section, error) {
		return current, &ParseError{Path: m.path, Offset: start, Err: fmt.Errorf(format, args...)}
	}
	switch current {
	case sectionStart:
		if head != "ISO-10303-21" {
			return fail("not an ISO 10303-21 file")
		}
		return sectionPreamble, nil
	case sectionPreamble:
		if head != "HEADER" {
			return fail("expected HEADER, got %.40q", head)
		}
		return sectionHeader, nil
	case sectionHeader:
		if head == "ENDSEC" {
			return sectionBetween, nil
		}
		name, params, err := parseHeaderEntity(body)
		if err != nil {
			log.Printf("IFC file %s: ignoring malformed header entry at byte %d: %v", m.path, start, err)
			return current, nil
		}
		if name == "FILE_SCHEMA" {
			m.schema = firstString(params)
		}
		return current, nil
	case sectionBetween:
		if head == "END-ISO-10303-21" {
			return sectionEnd, nil
		}
		if head == "DATA" || strings.HasPrefix(head, "DATA(") || strings.HasPrefix(head, "DATA (") {
			return sectionData, nil
		}
		return fail("unexpected statement %.40q between sections", head)
	case sectionData:
		if head == "ENDSEC" {
			return sectionBetween, nil
		}
		id, err := p.instanceID()
		if err != nil {
			log.Printf("IFC file %s: skipping statement without instance name at byte %d: %v", m.path, start, err)
			m.skipped++
			return current, nil
		}
		if _, exists := m.index[id]; exists {
			log.Printf("IFC file %s: instance #%d defined more than once, keeping the last one", m.path, id)
		} else {
			m.ids = append(m.ids, id)
		}
		m.index[id] = span{offset: start, length: len(body)}
		return current, nil
	}
	return current, nil
}

func firstString(params []Param) string {
	for _, p := range params {
		switch p.Kind {
		case ParamString:
			return p.Text
		case ParamList, ParamTyped:
			if s := firstString(p.Items); s != "" {
				return s
			}
		}
	}
	return ""
}

func (m *Model) Path() string { return m.path }

// Schema is the FILE_SCHEMA identifier, e.g. "IFC2X3" or "IFC4"
func (m *Model) Schema() string { return m.schema }

// Len is the number of entity instances in the file
func (m *Model) Len() int { return len(m.ids) }

// Skipped is the number of DATA statements that were dropped because they
// have no valid "#id=" instance name
func (m *Model) Skipped() int { return m.skipped }

// IDs returns all express ids in file order
func (m *Model) IDs() []int64 {
	return append([]int64(nil), m.ids...)
}

// Record reads and parses one entity instance. Malformed statements give an *ElementError.
func (m *Model) Record(id int64) (*Record, error) {
	s, ok := m.index[id]
	if !ok {
		return nil, ErrUnknownElement
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.file == nil {
		return nil, ErrClosed
	}
	buf := make([]byte, s.length)
	if _, err := m.file.ReadAt(buf, s.offset); err != nil {
		return nil, &ElementError{ExpressID: id, Err: err}
	}
	parsedID, typeName, params, err := parseInstance(buf)
	if err != nil {
		return nil, &ElementError{ExpressID: id, Err: err}
	}
	if parsedID != id {
		return nil, &ElementError{ExpressID: id, Err: fmt.Errorf("statement names instance #%d", parsedID)}
	}
	names := AttributeNames(m.schema, typeName)
	rec := &Record{
		ExpressID:  id,
		Type:       typeName,
		Attributes: make([]Attribute, len(params)),
	}
	for i, param := range params {
		rec.Attributes[i] = Attribute{Name: attributeName(names, i), Value: param}
	}
	return rec, nil
}

// Close releases the file; it is safe to call more than once
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

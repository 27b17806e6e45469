package ifc

import (
	"strconv"
	"strings"
)

// ParamKind is the lexical kind of an entity parameter
type ParamKind uint8

const (
	ParamNull      ParamKind = iota // $
	ParamDerived                    // *
	ParamString                     // 'text'
	ParamInteger                    // 12
	ParamReal                       // 1.5E-3
	ParamEnum                       // .ELEMENT.
	ParamReference                  // #12
	ParamBinary                     // "0FF"
	ParamTyped                      // IFCLABEL('text')
	ParamList                       // (1,2,3)
)

// Param is one parameter of an entity instance as written in the file.
// Typed parameters box their arguments in Items together with the declared
// type name in Text.
type Param struct {
	Kind  ParamKind
	Text  string // string contents, enum name, binary digits or declared type
	Int   int64  // integer value or referenced express id
	Real  float64
	Items []Param
}

func (p Param) IsNull() bool {
	return p.Kind == ParamNull || p.Kind == ParamDerived
}

// String renders the parameter back in exchange file syntax
func (p Param) String() string {
	var sb strings.Builder
	p.write(&sb)
	return sb.String()
}

func (p Param) write(sb *strings.Builder) {
	switch p.Kind {
	case ParamNull:
		sb.WriteByte('$')
	case ParamDerived:
		sb.WriteByte('*')
	case ParamString:
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(p.Text, "'", "''"))
		sb.WriteByte('\'')
	case ParamInteger:
		sb.WriteString(strconv.FormatInt(p.Int, 10))
	case ParamReal:
		s := strconv.FormatFloat(p.Real, 'G', -1, 64)
		// Exchange file reals always carry a decimal point
		if !strings.Contains(s, ".") {
			if i := strings.IndexByte(s, 'E'); i >= 0 {
				s = s[:i] + "." + s[i:]
			} else {
				s += "."
			}
		}
		sb.WriteString(s)
	case ParamEnum:
		sb.WriteByte('.')
		sb.WriteString(p.Text)
		sb.WriteByte('.')
	case ParamReference:
		sb.WriteByte('#')
		sb.WriteString(strconv.FormatInt(p.Int, 10))
	case ParamBinary:
		sb.WriteByte('"')
		sb.WriteString(p.Text)
		sb.WriteByte('"')
	case ParamTyped, ParamList:
		if p.Kind == ParamTyped {
			sb.WriteString(p.Text)
		}
		sb.WriteByte('(')
		for i, item := range p.Items {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.write(sb)
		}
		sb.WriteByte(')')
	}
}

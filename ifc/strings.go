package ifc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// decodeString resolves the control directives of ISO 10303-21 strings:
// \\ , \S\c , \P?\ , \X\hh , \X2\hhhh..\X0\ and \X4\hhhhhhhh..\X0\
// NUL characters are dropped, JSON columns (Postgres jsonb) reject them.
func decodeString(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return stripNUL(s), nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			i++
			continue
		}
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, `\\`):
			sb.WriteByte('\\')
			i += 2
		case strings.HasPrefix(rest, `\S\`) && len(rest) >= 4:
			// Upper half of the active code page, only ISO 8859-1 is supported
			sb.WriteRune(rune(rest[3]) + 128)
			i += 4
		case strings.HasPrefix(rest, `\P`) && len(rest) >= 4 && rest[3] == '\\':
			i += 4
		case strings.HasPrefix(rest, `\X2\`), strings.HasPrefix(rest, `\X4\`):
			width := 4
			if rest[2] == '4' {
				width = 8
			}
			end := strings.Index(rest[4:], `\X0\`)
			if end < 0 {
				return "", fmt.Errorf("unterminated %s directive", rest[:4])
			}
			decoded, err := decodeHexRunes(rest[4:4+end], width)
			if err != nil {
				return "", err
			}
			sb.WriteString(decoded)
			i += 4 + end + 4
		case strings.HasPrefix(rest, `\X\`) && len(rest) >= 5:
			b, err := strconv.ParseUint(rest[3:5], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid \\X\\ directive %q", rest[:5])
			}
			sb.WriteRune(rune(b))
			i += 5
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return stripNUL(sb.String()), nil
}

func stripNUL(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

func decodeHexRunes(hex string, width int) (string, error) {
	if len(hex)%width != 0 {
		return "", fmt.Errorf("hex run %q is not a multiple of %d digits", hex, width)
	}
	if width == 8 {
		runes := make([]rune, 0, len(hex)/8)
		for i := 0; i < len(hex); i += 8 {
			v, err := strconv.ParseUint(hex[i:i+8], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid hex run %q", hex)
			}
			runes = append(runes, rune(v))
		}
		return string(runes), nil
	}
	units := make([]uint16, 0, len(hex)/4)
	for i := 0; i < len(hex); i += 4 {
		v, err := strconv.ParseUint(hex[i:i+4], 16, 16)
		if err != nil {
			return "", fmt.Errorf("invalid hex run %q", hex)
		}
		units = append(units, uint16(v))
	}
	return string(utf16.Decode(units)), nil
}

package utils

import (
	"path/filepath"
	"strconv"
	"strings"
)

// SafeFilename keeps letters, digits, '-', '_' and non-leading dots, every
// other character becomes '_'
func SafeFilename(in string) string {
	in = filepath.Base(strings.ReplaceAll(in, "\\", "/"))
	var name strings.Builder
	for i, c := range in {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			(c == '.' && i > 0) || (c == '-') || (c == '_') {

			name.WriteRune(c)
		} else {
			// Replace all other characters with '_' (underscore)
			name.WriteString("_")
		}
	}
	return name.String()
}

// DisplayName is the file name without directory and extension
func DisplayName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}

func StringToUInt64(in string) (uint64, bool) {
	i, err := strconv.ParseUint(in, 10, 64)
	return i, err == nil
}

func StringToInt64(in string) (int64, bool) {
	i, err := strconv.ParseInt(in, 10, 64)
	return i, err == nil
}

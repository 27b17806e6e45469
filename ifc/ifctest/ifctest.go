// Package ifctest builds small IFC exchange files for tests.
package ifctest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Build returns an IFC file with the given DATA section statements
func Build(schema string, data ...string) []byte {
	var sb strings.Builder
	sb.WriteString("ISO-10303-21;\n")
	sb.WriteString("HEADER;\n")
	sb.WriteString("FILE_DESCRIPTION(('ViewDefinition [CoordinationView]'),'2;1');\n")
	sb.WriteString("FILE_NAME('test.ifc','2024-01-01T00:00:00',(''),(''),'','','');\n")
	fmt.Fprintf(&sb, "FILE_SCHEMA(('%s'));\n", schema)
	sb.WriteString("ENDSEC;\n")
	sb.WriteString("DATA;\n")
	for _, line := range data {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("ENDSEC;\n")
	sb.WriteString("END-ISO-10303-21;\n")
	return []byte(sb.String())
}

// Walls returns n wall statements numbered #1..#n; the ones listed in
// malformed get an unbalanced parameter list.
func Walls(n int, malformed ...int) []string {
	bad := map[int]bool{}
	for _, i := range malformed {
		bad[i] = true
	}
	lines := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if bad[i] {
			lines = append(lines, fmt.Sprintf("#%d=IFCWALL(('broken-%d',$,'Wall %d');", i, i, i))
			continue
		}
		lines = append(lines, fmt.Sprintf("#%d=IFCWALL('guid-%d',$,'Wall %d',$,$,$,$,'W-%02d',.STANDARD.);", i, i, i, i))
	}
	return lines
}

// WriteFile writes content into a temporary directory of t and returns its path
func WriteFile(t testing.TB, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("cannot write %s: %v", path, err)
	}
	return path
}

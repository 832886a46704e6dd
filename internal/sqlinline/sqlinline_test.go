package sqlinline

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"imagesvc/internal/infra"
)

// Every query constant must carry a unique "--sql <uuid>" marker, otherwise
// SQLRunner refuses to execute it.
func TestQueriesCarryUniqueMarkers(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}
	fset := token.NewFileSet()
	seen := map[string]string{}
	count := 0
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		src, err := os.ReadFile(file)
		if err != nil {
			t.Fatal(err)
		}
		f, err := parser.ParseFile(fset, file, src, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", file, err)
		}
		ast.Inspect(f, func(n ast.Node) bool {
			spec, ok := n.(*ast.ValueSpec)
			if !ok {
				return true
			}
			for i, name := range spec.Names {
				if !strings.HasPrefix(name.Name, "Q") || i >= len(spec.Values) {
					continue
				}
				lit, ok := spec.Values[i].(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					continue
				}
				query, err := strconv.Unquote(lit.Value)
				if err != nil {
					t.Fatalf("%s: unquote: %v", name.Name, err)
				}
				marker, _, err := infra.SplitMarker(query)
				if err != nil {
					t.Errorf("%s (%s): %v", name.Name, file, err)
					continue
				}
				if prev, dup := seen[marker]; dup {
					t.Errorf("%s reuses the marker of %s", name.Name, prev)
				}
				seen[marker] = name.Name
				count++
			}
			return true
		})
	}
	if count == 0 {
		t.Fatal("no queries found")
	}
}

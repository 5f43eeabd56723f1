package http

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"
)

func TestPackageDocAttachedOnce(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	var docs []string
	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.PackageClauseOnly|parser.ParseComments)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		if f.Doc != nil {
			docs = append(docs, name)
			if !strings.HasPrefix(f.Doc.Text(), "Package http ") {
				t.Fatalf("%s package doc = %q", name, f.Doc.Text())
			}
		}
	}
	if len(docs) != 1 || docs[0] != "server.go" {
		t.Fatalf("package doc found in %v, want only server.go", docs)
	}
}

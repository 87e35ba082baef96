package tools

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/richinex/redline/edit"
	"github.com/richinex/redline/model"
)

// DefinitionsTool lists top-level Go declarations of a directory's files.
type DefinitionsTool struct {
	files    *edit.Manager
	maxFiles int
}

// NewDefinitionsTool creates a list_code_definition_names handler.
func NewDefinitionsTool(files *edit.Manager) *DefinitionsTool {
	return &DefinitionsTool{files: files, maxFiles: 50}
}

// Metadata returns the tool metadata.
func (t *DefinitionsTool) Metadata() ToolMetadata {
	return grammar[model.ListCodeDefinitionNames]
}

// Execute parses every Go file directly in the directory.
func (t *DefinitionsTool) Execute(ctx context.Context, cmd Command) (ToolResult, error) {
	abs, display, err := t.files.Resolve(cmd.String(model.ParamPath))
	if err != nil {
		return FailureResult(err), nil
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return FailureResultf("directory not found: %s", display), nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) > t.maxFiles {
		names = names[:t.maxFiles]
	}

	var out strings.Builder
	fset := token.NewFileSet()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return FailureResult(err), nil
		}
		src, err := os.ReadFile(filepath.Join(abs, name))
		if err != nil {
			continue
		}
		file, err := parser.ParseFile(fset, name, src, parser.SkipObjectResolution)
		if err != nil {
			fmt.Fprintf(&out, "%s\n│ (parse error: %v)\n\n", name, err)
			continue
		}
		defs := declarations(file)
		if len(defs) == 0 {
			continue
		}
		fmt.Fprintf(&out, "%s\n", name)
		for _, d := range defs {
			fmt.Fprintf(&out, "│ %s\n", d)
		}
		out.WriteString("\n")
	}

	if out.Len() == 0 {
		return SuccessResult("No source code definitions found."), nil
	}
	return SuccessResult(strings.TrimRight(out.String(), "\n")), nil
}

func declarations(file *ast.File) []string {
	var defs []string
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil && len(d.Recv.List) > 0 {
				defs = append(defs, fmt.Sprintf("func (%s) %s", receiverType(d.Recv.List[0].Type), d.Name.Name))
			} else {
				defs = append(defs, "func "+d.Name.Name)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					defs = append(defs, "type "+s.Name.Name)
				case *ast.ValueSpec:
					for _, n := range s.Names {
						if n.Name == "_" {
							continue
						}
						defs = append(defs, d.Tok.String()+" "+n.Name)
					}
				}
			}
		}
	}
	return defs
}

func receiverType(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return "*" + receiverType(e.X)
	case *ast.IndexExpr:
		return receiverType(e.X)
	case *ast.IndexListExpr:
		return receiverType(e.X)
	case *ast.Ident:
		return e.Name
	}
	return "?"
}

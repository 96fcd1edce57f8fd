// Package language re-exports the gqlparser AST under a local namespace and
// provides the two parse entry points the module uses. Everything downstream
// (the registry builder, the merger, the plan service) imports this package
// instead of gqlparser paths, so swapping or pinning the parser is a single
// change here.
package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable document: operations plus fragment
// definitions. No validation is performed beyond syntax.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseSchema parses an SDL document. The name shows up in error positions.
func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth allows canvas { nodes { ... } } style queries with room to spare.
const DefaultMaxDepth = 5

// ValidateQueryDepth rejects queries nesting object selections deeper than maxDepth.
// A non-positive maxDepth disables the check.
func ValidateQueryDepth(query string, maxDepth int) error {
	if maxDepth <= 0 {
		return nil
	}
	document, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}

	if depth := queryDepth(document); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}

func queryDepth(document *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, def := range document.Definitions {
		if f, ok := def.(*ast.FragmentDefinition); ok && f.Name != nil {
			fragments[f.Name.Value] = f
		}
	}

	maxDepth := 0
	for _, def := range document.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			maxDepth = max(maxDepth, selectionDepth(op.SelectionSet, 0, fragments, map[string]bool{}))
		}
	}
	return maxDepth
}

// selectionDepth counts fields that themselves carry a selection set; leaves
// add nothing.
func selectionDepth(set *ast.SelectionSet, depth int, fragments map[string]*ast.FragmentDefinition, seen map[string]bool) int {
	if set == nil {
		return depth
	}

	maxDepth := depth
	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name.Value, "__") || sel.SelectionSet == nil {
				continue
			}
			maxDepth = max(maxDepth, selectionDepth(sel.SelectionSet, depth+1, fragments, seen))
		case *ast.InlineFragment:
			maxDepth = max(maxDepth, selectionDepth(sel.SelectionSet, depth, fragments, seen))
		case *ast.FragmentSpread:
			name := sel.Name.Value
			f, ok := fragments[name]
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			maxDepth = max(maxDepth, selectionDepth(f.SelectionSet, depth, fragments, seen))
			delete(seen, name)
		}
	}
	return maxDepth
}

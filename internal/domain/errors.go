package domain

import (
	"fmt"
	"strings"
)

// SchemaError reports that a payload container could not be located under any
// known alias. It means the upstream contract changed or the request was not
// authorized, and the whole payload is unusable.
type SchemaError struct {
	Path   []string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at %s: %s", strings.Join(e.Path, "."), e.Reason)
}

// ElementNotFoundError reports that a city has no weather element with the
// requested name.
type ElementNotFoundError struct {
	City    string
	Element string
	Path    []string
}

func (e *ElementNotFoundError) Error() string {
	if e.City == "" {
		return fmt.Sprintf("element %q not found at %s", e.Element, strings.Join(e.Path, "."))
	}
	return fmt.Sprintf("element %q not found for city %q at %s", e.Element, e.City, strings.Join(e.Path, "."))
}

// ShapeError reports a node inside one city entry holding the wrong JSON kind.
// Only that city is skipped.
type ShapeError struct {
	Path []string
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("expected %s at %s, got %s", e.Want, strings.Join(e.Path, "."), e.Got)
}

func schemaError(path []string, format string, args ...any) *SchemaError {
	return &SchemaError{Path: clonePath(path), Reason: fmt.Sprintf(format, args...)}
}

func clonePath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}

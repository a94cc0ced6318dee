// Package interceptor pretreats statements before they are classified: comments
// are stripped and, when SQL fragments are enabled, `name := value` variable
// definitions are consumed and `${name}` references are expanded.
package interceptor

import (
	"maps"
	"regexp"
	"strings"

	"github.com/pseudomuto/streamkeeper/pkg/parser"
)

var (
	definitionPattern = regexp.MustCompile(`(?s)^([A-Za-z_][\w.\-]*)\s*:=\s*(.*)$`)
	referencePattern  = regexp.MustCompile(`\$\{([A-Za-z_][\w.\-]*)\}`)
)

// Interceptor holds the variables of a single submission. It is not safe for
// concurrent use; each submission creates its own.
type Interceptor struct {
	fragment  bool
	variables map[string]string
}

// New creates an Interceptor. Variable handling is only active when fragment is
// true.
func New(fragment bool) *Interceptor {
	return &Interceptor{
		fragment:  fragment,
		variables: make(map[string]string),
	}
}

// Pretreat returns the statement to execute, or "" when the statement should be
// skipped (it was blank, only comments, or a variable definition).
//
// Example:
//
//	i := interceptor.New(true)
//	i.Pretreat("tbl := orders")             // ""
//	i.Pretreat("SELECT * FROM ${tbl} -- x") // "SELECT * FROM orders"
func (i *Interceptor) Pretreat(stmt string) string {
	stmt = strings.TrimSpace(parser.StripComments(stmt))
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" || !i.fragment {
		return stmt
	}

	if m := definitionPattern.FindStringSubmatch(stmt); m != nil {
		i.variables[m[1]] = i.expand(strings.TrimSpace(m[2]))
		return ""
	}

	return i.expand(stmt)
}

// Variables returns a copy of the variables defined so far.
func (i *Interceptor) Variables() map[string]string {
	return maps.Clone(i.variables)
}

func (i *Interceptor) expand(stmt string) string {
	return referencePattern.ReplaceAllStringFunc(stmt, func(ref string) string {
		name := referencePattern.FindStringSubmatch(ref)[1]
		if v, ok := i.variables[name]; ok {
			return v
		}

		return ref
	})
}

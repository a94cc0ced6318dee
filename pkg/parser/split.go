package parser

import (
	"regexp"
	"strings"

	"github.com/pseudomuto/streamkeeper/pkg/consts"
)

// Split breaks script into statements on separator, which is a regular
// expression (an invalid expression is matched literally). An empty separator
// means consts.DefaultSQLSeparator.
//
// Windows line endings are normalised, statements that are blank are dropped and
// a trailing semicolon on the last statement is removed. The order of the
// remaining statements is the order in script.
//
// Example:
//
//	parser.Split("SET 'a'='1'; INSERT INTO t SELECT * FROM s;", ";")
//	// []string{"SET 'a'='1'", " INSERT INTO t SELECT * FROM s"}
func Split(script, separator string) []string {
	if separator == "" {
		separator = consts.DefaultSQLSeparator
	}

	re, err := regexp.Compile(separator)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(separator))
	}

	parts := re.Split(strings.ReplaceAll(script, "\r\n", "\n"), -1)
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}

		statements = append(statements, part)
	}

	if n := len(statements); n > 0 {
		last := strings.TrimRightFunc(statements[n-1], isSpace)
		statements[n-1] = strings.TrimSuffix(last, ";")
		if strings.TrimSpace(statements[n-1]) == "" {
			statements = statements[:n-1]
		}
	}

	return statements
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

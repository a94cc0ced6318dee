package parser_test

import (
	"testing"

	"github.com/pseudomuto/streamkeeper/pkg/parser"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		separator string
		expected  []string
	}{
		{
			name:      "literal semicolon",
			script:    "SET 'x'='1'; INSERT INTO t SELECT * FROM s;",
			separator: ";",
			expected:  []string{"SET 'x'='1'", " INSERT INTO t SELECT * FROM s"},
		},
		{
			name:      "default separator",
			script:    "CREATE TABLE a (id INT);\nCREATE TABLE b (id INT); -- sink\nINSERT INTO b SELECT * FROM a;",
			separator: "",
			expected:  []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)", "\nINSERT INTO b SELECT * FROM a"},
		},
		{
			name:      "windows line endings",
			script:    "SELECT 1;\r\nSELECT 2;\r\n",
			separator: "",
			expected:  []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:      "blank statements dropped",
			script:    ";;  ;\n\nSELECT 1;;",
			separator: ";",
			expected:  []string{"\n\nSELECT 1"},
		},
		{
			name:      "invalid regexp is literal",
			script:    "SELECT 1(SELECT 2",
			separator: "(",
			expected:  []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:      "empty script",
			script:    "",
			separator: ";",
			expected:  []string{},
		},
		{
			name:      "last statement only semicolon and spaces",
			script:    "SELECT 1\n;\n",
			separator: "\n",
			expected:  []string{"SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, parser.Split(tt.script, tt.separator))
		})
	}
}

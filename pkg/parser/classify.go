package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// statementLexer tokenizes any input: every character that is not part of a
	// comment, literal, identifier, number or whitespace is a single Punct token.
	statementLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `--[^\r\n]*`},
		{Name: "MultilineComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
		{Name: "String", Pattern: `'([^'\\]|\\.)*'`},
		{Name: "BacktickIdent", Pattern: "`([^`\\\\]|\\\\.)*`"},
		{Name: "QuotedIdent", Pattern: `"([^"\\]|\\.)*"`},
		{Name: "Number", Pattern: `\d+(\.\d*)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Punct", Pattern: `[^\sa-zA-Z0-9_]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	// headParser only reads the leading keyword; the rest of the statement is
	// left for the engine to parse.
	headParser = participle.MustBuild[statementHead](
		participle.Lexer(statementLexer),
		participle.Elide("Comment", "MultilineComment", "Whitespace"),
	)
)

type statementHead struct {
	Parens  []string `parser:"@'('*"`
	Keyword string   `parser:"@Ident"`
}

// Keyword returns the upper-cased leading keyword of stmt, ignoring comments,
// whitespace and opening parentheses. It returns "" when stmt does not start
// with an identifier.
func Keyword(stmt string) string {
	head, err := headParser.ParseString("", stmt, participle.AllowTrailing(true))
	if err != nil {
		return ""
	}

	return strings.ToUpper(head.Keyword)
}

// Classify maps a statement to its Kind. It is pure and total: anything that is
// not recognised as INSERT, SELECT or EXECUTE is DDL.
//
// Example:
//
//	parser.Classify("insert into sink select * from src") // KindInsert
//	parser.Classify("WITH t AS (SELECT 1) SELECT * FROM t") // KindSelect
//	parser.Classify("EXECUTE CDCSOURCE demo WITH (...)")  // KindExecute
//	parser.Classify("CREATE TABLE t (...)")                // KindDDL
func Classify(stmt string) Kind {
	switch Keyword(stmt) {
	case "INSERT":
		return KindInsert
	case "SELECT", "WITH":
		return KindSelect
	case "EXECUTE":
		return KindExecute
	default:
		return KindDDL
	}
}

// StripComments removes line and block comments outside of literals. Each
// removed block comment is replaced by a single space so adjacent tokens stay
// separated.
func StripComments(sql string) string {
	lex, err := statementLexer.LexString("", sql)
	if err != nil {
		return sql
	}

	symbols := statementLexer.Symbols()
	comment, multiline := symbols["Comment"], symbols["MultilineComment"]

	var sb strings.Builder
	for {
		tok, err := lex.Next()
		if err != nil {
			return sql
		}

		if tok.EOF() {
			break
		}

		switch tok.Type {
		case comment:
		case multiline:
			sb.WriteByte(' ')
		default:
			sb.WriteString(tok.Value)
		}
	}

	return sb.String()
}

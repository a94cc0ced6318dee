// Package parser splits task scripts into statements and classifies each
// statement by its execution semantics.
//
// Only the leading keyword of a statement is parsed, using a participle lexer
// that understands comments, quoted literals and identifiers. The statement body
// is left untouched for the engine to parse.
//
// Basic usage:
//
//	for _, stmt := range parser.Split(script, `;\n`) {
//		switch parser.Classify(stmt) {
//		case parser.KindInsert, parser.KindSelect:
//			// transactional
//		case parser.KindExecute:
//			// explicit job action
//		default:
//			// DDL, SET, USE, ...
//		}
//	}
//
// Comments can be removed outside of literals with StripComments:
//
//	parser.StripComments("SELECT '--x' -- trailing") // "SELECT '--x' "
package parser

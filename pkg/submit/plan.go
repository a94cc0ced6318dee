package submit

import (
	"github.com/pseudomuto/streamkeeper/pkg/parser"
)

type (
	// Record is a pretreated statement and its kind.
	Record struct {
		SQL  string
		Kind parser.Kind
	}

	// Plan holds the statements of a submission grouped by how they are issued.
	// Each bucket keeps source order.
	Plan struct {
		DDL     []Record
		Trans   []Record
		Execute []Record
	}

	// Preprocessor pretreats a statement; "" means skip.
	Preprocessor interface {
		Pretreat(stmt string) string
	}
)

// NewPlan pretreats, classifies and groups statements.
//
// INSERT and SELECT statements go to Trans, EXECUTE statements to Execute and
// everything else to DDL. When useStatementSet is false, planning stops at the
// first Trans or Execute statement: nothing after it is pretreated or planned,
// including DDL.
func NewPlan(statements []string, pre Preprocessor, useStatementSet bool) Plan {
	var p Plan
	for _, item := range statements {
		stmt := pre.Pretreat(item)
		if stmt == "" {
			continue
		}

		rec := Record{SQL: stmt, Kind: parser.Classify(stmt)}
		switch {
		case rec.Kind.IsTransactional():
			p.Trans = append(p.Trans, rec)
			if !useStatementSet {
				return p
			}
		case rec.Kind == parser.KindExecute:
			p.Execute = append(p.Execute, rec)
			if !useStatementSet {
				return p
			}
		default:
			p.DDL = append(p.DDL, rec)
		}
	}

	return p
}

// Empty returns true when no bucket has statements.
func (p Plan) Empty() bool {
	return len(p.DDL) == 0 && len(p.Trans) == 0 && len(p.Execute) == 0
}

// Inserts returns the SQL of the INSERT records in Trans, in order.
func (p Plan) Inserts() []string {
	var inserts []string
	for _, rec := range p.Trans {
		if rec.Kind == parser.KindInsert {
			inserts = append(inserts, rec.SQL)
		}
	}

	return inserts
}

// Records returns the records of b.
func (p Plan) Records(b Bucket) []Record {
	switch b {
	case BucketDDL:
		return p.DDL
	case BucketTrans:
		return p.Trans
	case BucketExecute:
		return p.Execute
	default:
		return nil
	}
}

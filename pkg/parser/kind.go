package parser

// Kind is the execution semantics of a statement. The zero value is KindDDL,
// which is also what every unrecognised statement classifies as.
type Kind int

const (
	// KindDDL statements are executed immediately and individually.
	KindDDL Kind = iota

	// KindInsert statements are transactional and may be batched into a
	// statement set.
	KindInsert

	// KindSelect statements are transactional for grouping purposes but are
	// never part of a submitted statement set.
	KindSelect

	// KindExecute statements are explicit actions that trigger a final job run.
	KindExecute
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "INSERT"
	case KindSelect:
		return "SELECT"
	case KindExecute:
		return "EXECUTE"
	default:
		return "DDL"
	}
}

// IsTransactional returns true for INSERT and SELECT statements.
func (k Kind) IsTransactional() bool {
	return k == KindInsert || k == KindSelect
}

package ir

// Kind identifies an IR node variant. The string form is the wire tag.
type Kind string

const (
	KindChain             Kind = "chain"
	KindBreakableChain    Kind = "breakable_chain"
	KindConditional       Kind = "conditional"
	KindLoopChainCombo    Kind = "loop_chain_combo"
	KindWhile             Kind = "while"
	KindRepeat            Kind = "repeat"
	KindParallelMap       Kind = "parallel_map"
	KindFallback          Kind = "fallback"
	KindStruct            Kind = "struct"
	KindCall              Kind = "call"
	KindLambda            Kind = "lambda"
	KindReference         Kind = "reference"
	KindCustomFunction    Kind = "custom_function"
	KindModel             Kind = "model"
	KindPromptTemplate    Kind = "prompt_template"
	KindLogger            Kind = "logger"
	KindRegexPartialMatch Kind = "regex_partial_match"
	KindLogicalNot        Kind = "logical_not"
	KindSelection         Kind = "selection"
)

// Kinds lists every node kind in declaration order.
var Kinds = []Kind{
	KindChain, KindBreakableChain, KindConditional, KindLoopChainCombo,
	KindWhile, KindRepeat, KindParallelMap, KindFallback, KindStruct,
	KindCall, KindLambda, KindReference, KindCustomFunction, KindModel,
	KindPromptTemplate, KindLogger, KindRegexPartialMatch, KindLogicalNot,
	KindSelection,
}

// IsFunction reports whether nodes of kind k always evaluate to a callable.
func (k Kind) IsFunction() bool {
	switch k {
	case KindStruct, KindCall, KindReference, KindSelection:
		return false
	default:
		return true
	}
}

// IsExpression reports whether nodes of kind k are evaluated for a value
// rather than declaring a callable. Expressions may still produce a callable
// at run time (a reference bound to a function, for example).
func (k Kind) IsExpression() bool {
	return !k.IsFunction()
}

// canBeFunction reports whether a node of kind k may be placed where a
// callable is expected. Only struct literals are ruled out statically.
func (k Kind) canBeFunction() bool {
	return k != KindStruct
}

// canBeStruct reports whether a node of kind k may evaluate to a struct.
func (k Kind) canBeStruct() bool {
	return k.IsExpression()
}

package ir

// Node is a sealed interface over the IR node kinds.
// Build nodes with the internal/authoring constructors or DecodeNode; both
// enforce CheckWellFormed. Fields are exported for encoders and executors
// and must be treated as read-only.
type Node interface {
	Kind() Kind
	node() // sealed
}

// Chain applies Steps in order, feeding each result to the next step.
type Chain struct {
	Steps []Node
}

// BreakableChain is a Chain that returns early as soon as BreakIf,
// applied to an intermediate result, evaluates to true.
type BreakableChain struct {
	Steps   []Node
	BreakIf Node
}

// Conditional applies Condition to the argument and then applies exactly
// one of Then or Else to the same argument.
type Conditional struct {
	Condition Node
	Then      Node
	Else      Node
}

// LoopChainCombo runs Steps as a breakable chain for up to NumSteps rounds.
// BreakIf is optional; when set it is checked after every step.
type LoopChainCombo struct {
	Steps    []Node
	BreakIf  Node
	NumSteps int
}

// While applies Body to its state for as long as Condition holds.
type While struct {
	Condition Node
	Body      Node
}

// Repeat applies Body to its state exactly NumSteps times.
type Repeat struct {
	NumSteps int
	Body     Node
}

// ParallelMap applies Fn to every element of a struct argument.
// The output preserves element order and names.
type ParallelMap struct {
	Fn Node
}

// Fallback applies Candidates in order and returns the first success.
type Fallback struct {
	Candidates []Node
}

// Element is one member of a Struct. Name is empty for positional members.
type Element struct {
	Name  string
	Value Node
}

// Struct aggregates child nodes into a single tuple value.
type Struct struct {
	Elements []Element
}

// Call applies Fn to Arg. A nil Arg is a no-argument call.
type Call struct {
	Fn  Node
	Arg Node
}

// Lambda binds Param to its argument while evaluating Body.
type Lambda struct {
	Param string
	Body  Node
}

// Reference looks Name up in the enclosing lambda scopes.
type Reference struct {
	Name string
}

// CustomFunction delegates to a function the executor resolves by URI.
type CustomFunction struct {
	URI string
}

// Model runs inference on the model the executor resolves by URI.
type Model struct {
	URI string
}

// PromptTemplate fills {name} placeholders in Template from its argument.
type PromptTemplate struct {
	Template string
}

// Logger logs its argument and returns it unchanged.
type Logger struct{}

// RegexPartialMatch reports whether Pattern matches anywhere in its argument.
type RegexPartialMatch struct {
	Pattern string
}

// LogicalNot negates a boolean argument.
type LogicalNot struct{}

// Selection extracts one element from the struct Source evaluates to,
// by Name when it is set and by Index otherwise.
type Selection struct {
	Source Node
	Index  int
	Name   string
}

func (Chain) Kind() Kind             { return KindChain }
func (BreakableChain) Kind() Kind    { return KindBreakableChain }
func (Conditional) Kind() Kind       { return KindConditional }
func (LoopChainCombo) Kind() Kind    { return KindLoopChainCombo }
func (While) Kind() Kind             { return KindWhile }
func (Repeat) Kind() Kind            { return KindRepeat }
func (ParallelMap) Kind() Kind       { return KindParallelMap }
func (Fallback) Kind() Kind          { return KindFallback }
func (Struct) Kind() Kind            { return KindStruct }
func (Call) Kind() Kind              { return KindCall }
func (Lambda) Kind() Kind            { return KindLambda }
func (Reference) Kind() Kind         { return KindReference }
func (CustomFunction) Kind() Kind    { return KindCustomFunction }
func (Model) Kind() Kind             { return KindModel }
func (PromptTemplate) Kind() Kind    { return KindPromptTemplate }
func (Logger) Kind() Kind            { return KindLogger }
func (RegexPartialMatch) Kind() Kind { return KindRegexPartialMatch }
func (LogicalNot) Kind() Kind        { return KindLogicalNot }
func (Selection) Kind() Kind         { return KindSelection }

func (Chain) node()             {}
func (BreakableChain) node()    {}
func (Conditional) node()       {}
func (LoopChainCombo) node()    {}
func (While) node()             {}
func (Repeat) node()            {}
func (ParallelMap) node()       {}
func (Fallback) node()          {}
func (Struct) node()            {}
func (Call) node()              {}
func (Lambda) node()            {}
func (Reference) node()         {}
func (CustomFunction) node()    {}
func (Model) node()             {}
func (PromptTemplate) node()    {}
func (Logger) node()            {}
func (RegexPartialMatch) node() {}
func (LogicalNot) node()        {}
func (Selection) node()         {}

// ByName reports whether the selection addresses its element by name.
func (s Selection) ByName() bool {
	return s.Name != ""
}

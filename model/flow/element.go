package flow

import (
	"context"

	"github.com/viant/sagaflow/runtime/execution"
)

// Kind tags a flow element variant
type Kind string

const (
	KindSequential  Kind = "sequential"
	KindParallel    Kind = "parallel"
	KindConditional Kind = "conditional"
	KindLoop        Kind = "loop"
)

// DefaultMaxIterations caps loops without an explicit maximum
const DefaultMaxIterations = 100

// Predicate decides a conditional branch or loop continuation. It may block
// and must honour ctx.
type Predicate func(ctx context.Context, wfCtx *execution.Context) (bool, error)

// Condition is either a Go predicate or an expression evaluated against the
// workflow context variables.
type Condition struct {
	Func Predicate `json:"-" yaml:"-"`
	Expr string    `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// IsZero reports whether the condition is empty
func (c *Condition) IsZero() bool {
	return c == nil || (c.Func == nil && c.Expr == "")
}

// String returns a printable form of the condition
func (c *Condition) String() string {
	switch {
	case c.IsZero():
		return ""
	case c.Expr != "":
		return c.Expr
	}
	return "func"
}

// Element is a single flow element
type Element struct {
	Kind Kind `json:"kind" yaml:"kind"`

	// Step is the step name of a sequential element
	Step string `json:"step,omitempty" yaml:"step,omitempty"`

	// Steps are the members of a parallel element
	Steps []string `json:"steps,omitempty" yaml:"steps,omitempty"`

	// If, Then and Else describe a conditional element; Else is optional
	If   *Condition `json:"if,omitempty" yaml:"if,omitempty"`
	Then *Element   `json:"then,omitempty" yaml:"then,omitempty"`
	Else *Element   `json:"else,omitempty" yaml:"else,omitempty"`

	// While, Times, MaxIterations and Body describe a loop element
	While         *Condition `json:"while,omitempty" yaml:"while,omitempty"`
	Times         int        `json:"times,omitempty" yaml:"times,omitempty"`
	MaxIterations int        `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	Body          []*Element `json:"body,omitempty" yaml:"body,omitempty"`
}

// Step creates a sequential element
func Step(name string) *Element {
	return &Element{Kind: KindSequential, Step: name}
}

// Parallel creates a parallel element
func Parallel(names ...string) *Element {
	return &Element{Kind: KindParallel, Steps: names}
}

// If creates a conditional element with a Go predicate
func If(predicate Predicate, then *Element) *Element {
	return &Element{Kind: KindConditional, If: &Condition{Func: predicate}, Then: then}
}

// IfExpr creates a conditional element with an expression predicate
func IfExpr(expr string, then *Element) *Element {
	return &Element{Kind: KindConditional, If: &Condition{Expr: expr}, Then: then}
}

// Otherwise sets the else branch of a conditional element
func (e *Element) Otherwise(element *Element) *Element {
	e.Else = element
	return e
}

// Times creates a loop executing body exactly n times
func Times(n int, body ...*Element) *Element {
	return &Element{Kind: KindLoop, Times: n, Body: body}
}

// While creates a loop repeating body while predicate holds
func While(predicate Predicate, body ...*Element) *Element {
	return &Element{Kind: KindLoop, While: &Condition{Func: predicate}, Body: body}
}

// WhileExpr creates a loop repeating body while expr holds
func WhileExpr(expr string, body ...*Element) *Element {
	return &Element{Kind: KindLoop, While: &Condition{Expr: expr}, Body: body}
}

// WithMaxIterations overrides the loop safety cap
func (e *Element) WithMaxIterations(max int) *Element {
	e.MaxIterations = max
	return e
}

// Limit returns the effective loop cap
func (e *Element) Limit() int {
	if e.MaxIterations > 0 {
		return e.MaxIterations
	}
	return DefaultMaxIterations
}

// StepNames returns step names referenced by the element, including nested ones
func (e *Element) StepNames() []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindSequential:
		return []string{e.Step}
	case KindParallel:
		return append([]string{}, e.Steps...)
	case KindConditional:
		return append(e.Then.StepNames(), e.Else.StepNames()...)
	case KindLoop:
		var ret []string
		for _, item := range e.Body {
			ret = append(ret, item.StepNames()...)
		}
		return ret
	}
	return nil
}

package flow

import (
	"errors"
	"fmt"
)

// ErrUnknownElement reports an element with an unsupported kind
var ErrUnknownElement = errors.New("unknown flow element type")

// Definition is an ordered, immutable list of flow elements
type Definition struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Elements    []*Element `json:"elements" yaml:"elements"`
}

// New creates a definition
func New(name string, elements ...*Element) *Definition {
	return &Definition{Name: name, Elements: elements}
}

// StepNames returns distinct step names in declaration order
func (d *Definition) StepNames() []string {
	var ret []string
	seen := map[string]bool{}
	for _, element := range d.Elements {
		for _, name := range element.StepNames() {
			if seen[name] {
				continue
			}
			seen[name] = true
			ret = append(ret, name)
		}
	}
	return ret
}

// Validate checks static properties of the definition. The returned slice
// is empty when the definition is sound.
func (d *Definition) Validate() []error {
	var issues []error
	if len(d.Elements) == 0 {
		return append(issues, fmt.Errorf("flow %v has no elements", d.Name))
	}
	for i, element := range d.Elements {
		issues = append(issues, validate(fmt.Sprintf("elements[%d]", i), element)...)
	}
	return issues
}

func validate(location string, e *Element) []error {
	if e == nil {
		return []error{fmt.Errorf("%v: element is nil", location)}
	}
	var issues []error
	switch e.Kind {
	case KindSequential:
		if e.Step == "" {
			issues = append(issues, fmt.Errorf("%v: step name is empty", location))
		}
	case KindParallel:
		if len(e.Steps) == 0 {
			issues = append(issues, fmt.Errorf("%v: parallel element has no steps", location))
		}
		for j, name := range e.Steps {
			if name == "" {
				issues = append(issues, fmt.Errorf("%v.steps[%d]: step name is empty", location, j))
			}
		}
	case KindConditional:
		if e.If.IsZero() {
			issues = append(issues, fmt.Errorf("%v: conditional element has no predicate", location))
		}
		if e.Then == nil {
			issues = append(issues, fmt.Errorf("%v: conditional element has no then branch", location))
		} else {
			issues = append(issues, validate(location+".then", e.Then)...)
		}
		if e.Else != nil {
			issues = append(issues, validate(location+".else", e.Else)...)
		}
	case KindLoop:
		if e.While.IsZero() && e.Times <= 0 {
			issues = append(issues, fmt.Errorf("%v: loop element needs while or times", location))
		}
		if !e.While.IsZero() && e.Times > 0 {
			issues = append(issues, fmt.Errorf("%v: loop element cannot use both while and times", location))
		}
		if e.MaxIterations < 0 {
			issues = append(issues, fmt.Errorf("%v: maxIterations must not be negative", location))
		}
		if len(e.Body) == 0 {
			issues = append(issues, fmt.Errorf("%v: loop element has empty body", location))
		}
		for j, item := range e.Body {
			issues = append(issues, validate(fmt.Sprintf("%v.body[%d]", location, j), item)...)
		}
	default:
		issues = append(issues, fmt.Errorf("%v: %w: %q", location, ErrUnknownElement, e.Kind))
	}
	return issues
}

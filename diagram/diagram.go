// Package diagram derives a read only description of a flow definition for
// external tooling. The export has no effect on execution.
package diagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/sagaflow/model/flow"
)

// Step classifies a step by the kind of top level element it belongs to
type Step struct {
	Name string    `json:"name" yaml:"name"`
	Kind flow.Kind `json:"kind" yaml:"kind"`
}

// Dependency lists the steps of the preceding element
type Dependency struct {
	Step      string   `json:"step" yaml:"step"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// Diagram describes a flow definition
type Diagram struct {
	Name         string        `json:"name" yaml:"name"`
	Steps        []*Step       `json:"steps" yaml:"steps"`
	Dependencies []*Dependency `json:"dependencies" yaml:"dependencies"`
	Flow         string        `json:"flow" yaml:"flow"`
}

// Export describes definition. Every step is listed once, at its first
// occurrence; a step depends on all steps of the element preceding it.
func Export(definition *flow.Definition) *Diagram {
	ret := &Diagram{Steps: []*Step{}, Dependencies: []*Dependency{}}
	if definition == nil {
		return ret
	}
	ret.Name = definition.Name
	seen := map[string]bool{}
	var previous []string
	parts := make([]string, 0, len(definition.Elements))
	for _, element := range definition.Elements {
		names := unique(element.StepNames())
		kind := flow.Kind("")
		if element != nil {
			kind = element.Kind
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			ret.Steps = append(ret.Steps, &Step{Name: name, Kind: kind})
			ret.Dependencies = append(ret.Dependencies, &Dependency{Step: name, DependsOn: previous})
		}
		if len(names) > 0 {
			previous = names
		}
		parts = append(parts, render(element))
	}
	ret.Flow = strings.Join(parts, " -> ")
	return ret
}

// JSON returns the indented JSON form
func (d *Diagram) JSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Text returns a human readable form
func (d *Diagram) Text() string {
	var b strings.Builder
	b.WriteString("flow: " + d.Name + "\nsteps:")
	for _, step := range d.Steps {
		b.WriteString(fmt.Sprintf("\n  %v: %v", step.Name, step.Kind))
	}
	b.WriteString("\ndependencies:")
	for _, dependency := range d.Dependencies {
		if len(dependency.DependsOn) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n  %v <- %v", dependency.Step, strings.Join(dependency.DependsOn, ", ")))
	}
	b.WriteString("\npath: " + d.Flow)
	return b.String()
}

func render(element *flow.Element) string {
	if element == nil {
		return "?"
	}
	switch element.Kind {
	case flow.KindSequential:
		return element.Step
	case flow.KindParallel:
		return "[" + strings.Join(element.Steps, ", ") + "]"
	case flow.KindConditional:
		ret := fmt.Sprintf("if(%v) {%v}", element.If.String(), render(element.Then))
		if element.Else != nil {
			ret += fmt.Sprintf(" else {%v}", render(element.Else))
		}
		return ret
	case flow.KindLoop:
		body := make([]string, 0, len(element.Body))
		for _, item := range element.Body {
			body = append(body, render(item))
		}
		head := fmt.Sprintf("times(%d", element.Times)
		if element.Times <= 0 {
			head = fmt.Sprintf("while(%v", element.While.String())
		}
		if element.MaxIterations > 0 {
			head += fmt.Sprintf(", max %d", element.MaxIterations)
		}
		return head + ") {" + strings.Join(body, " -> ") + "}"
	}
	return fmt.Sprintf("%v?", element.Kind)
}

func unique(names []string) []string {
	var ret []string
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		ret = append(ret, name)
	}
	return ret
}

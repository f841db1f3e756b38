package flow

import (
	"fmt"
	"strings"

	"github.com/viant/sagaflow/internal/yml"
	model "github.com/viant/sagaflow/model/flow"
	"github.com/viant/sagaflow/model/types"
	"gopkg.in/yaml.v3"
)

// element forms keyed by their leading key, with every key allowed alongside
var forms = map[string][]string{
	"step":     {"step"},
	"parallel": {"parallel"},
	"if":       {"if", "then", "else"},
	"loop":     {"loop"},
}

var loopKeys = []string{"while", "times", "maxIterations", "do"}

func parseElements(location string, node *yml.Node) ([]*model.Element, error) {
	if node.Kind != yaml.SequenceNode {
		element, err := parseElement(location, node)
		if err != nil {
			return nil, err
		}
		return []*model.Element{element}, nil
	}
	ret := make([]*model.Element, 0, len(node.Content))
	err := node.Items(func(index int, item *yml.Node) error {
		element, err := parseElement(fmt.Sprintf("%v[%d]", location, index), item)
		if err != nil {
			return err
		}
		ret = append(ret, element)
		return nil
	})
	return ret, err
}

// parseElement decodes one of: a scalar step name, {step: name},
// {parallel: [names]}, {if: expr, then: element, else: element} or
// {loop: {while|times, maxIterations, do: elements}}.
func parseElement(location string, node *yml.Node) (*model.Element, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return model.Step(node.Value), nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("%v: expected step name or mapping, got %v", location, kindName(node.Kind))
	}
	form, err := formOf(location, node)
	if err != nil {
		return nil, err
	}
	switch form {
	case "step":
		return model.Step(node.Lookup("step").Value), nil
	case "parallel":
		names, err := scalars(location+".parallel", node.Lookup("parallel"))
		if err != nil {
			return nil, err
		}
		return model.Parallel(names...), nil
	case "if":
		ret := &model.Element{Kind: model.KindConditional, If: &model.Condition{Expr: node.Lookup("if").Value}}
		if then := node.Lookup("then"); then != nil {
			if ret.Then, err = parseElement(location+".then", then); err != nil {
				return nil, err
			}
		}
		if otherwise := node.Lookup("else"); otherwise != nil {
			if ret.Else, err = parseElement(location+".else", otherwise); err != nil {
				return nil, err
			}
		}
		return ret, nil
	}
	return parseLoop(location+".loop", node.Lookup("loop"))
}

func parseLoop(location string, node *yml.Node) (*model.Element, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%v: expected mapping, got %v", location, kindName(node.Kind))
	}
	ret := &model.Element{Kind: model.KindLoop}
	err := node.Pairs(func(key string, value *yml.Node) error {
		var err error
		switch key {
		case "while":
			ret.While = &model.Condition{Expr: value.Value}
		case "times":
			if ret.Times, err = value.Int(); err != nil {
				return fmt.Errorf("%v.times: %w", location, err)
			}
		case "maxIterations":
			if ret.MaxIterations, err = value.Int(); err != nil {
				return fmt.Errorf("%v.maxIterations: %w", location, err)
			}
		case "do":
			ret.Body, err = parseElements(location+".do", value)
			return err
		default:
			return unknownElement(key, location)
		}
		return nil
	})
	return ret, err
}

func formOf(location string, node *yml.Node) (string, error) {
	keys := node.Keys()
	if len(keys) == 0 {
		return "", fmt.Errorf("%v: empty element", location)
	}
	for _, key := range keys {
		allowed, ok := forms[key]
		if !ok {
			continue
		}
		for _, candidate := range keys {
			if !contains(allowed, candidate) {
				return "", unknownElement(candidate, location)
			}
		}
		return key, nil
	}
	return "", unknownElement(keys[0], location)
}

func scalars(location string, node *yml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%v: expected list of step names", location)
	}
	var ret []string
	err := node.Items(func(index int, item *yml.Node) error {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("%v[%d]: expected step name", location, index)
		}
		ret = append(ret, item.Value)
		return nil
	})
	return ret, err
}

func unknownElement(key, location string) error {
	return types.NewFlowError(types.KindUnknownElement, "", fmt.Errorf("%v: %w: %q", location, model.ErrUnknownElement, key))
}

func contains(values []string, candidate string) bool {
	for _, value := range values {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}

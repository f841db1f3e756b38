package yml

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// Node adds traversal helpers to yaml.Node
type Node yaml.Node

// Root returns the document content node
func (n *Node) Root() *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return n
}

// Lookup returns the value node of a mapping key or nil
func (n *Node) Lookup(name string) *Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == name {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

// Items iterates sequence items
func (n *Node) Items(callback func(index int, node *Node) error) error {
	for i, item := range n.Content {
		if err := callback(i, (*Node)(item)); err != nil {
			return err
		}
	}
	return nil
}

// Pairs iterates mapping key/value pairs in document order
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns mapping keys in document order
func (n *Node) Keys() []string {
	var ret []string
	_ = n.Pairs(func(key string, _ *Node) error {
		ret = append(ret, key)
		return nil
	})
	return ret
}

// Int returns the integer value of a scalar node
func (n *Node) Int() (int, error) {
	return strconv.Atoi(n.Value)
}

// Interface decodes the node into plain Go values
func (n *Node) Interface() interface{} {
	switch n.Kind {
	case yaml.DocumentNode:
		return n.Root().Interface()
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!bool":
			value, _ := strconv.ParseBool(n.Value)
			return value
		case "!!null":
			return nil
		case "!!int":
			value, _ := strconv.Atoi(n.Value)
			return value
		case "!!float":
			value, _ := strconv.ParseFloat(n.Value, 64)
			return value
		}
		return n.Value
	case yaml.MappingNode:
		ret := make(map[string]interface{}, len(n.Content)/2)
		_ = n.Pairs(func(key string, node *Node) error {
			ret[key] = node.Interface()
			return nil
		})
		return ret
	case yaml.SequenceNode:
		ret := make([]interface{}, 0, len(n.Content))
		_ = n.Items(func(_ int, node *Node) error {
			ret = append(ret, node.Interface())
			return nil
		})
		return ret
	}
	return nil
}

package criteria

import (
	"github.com/viant/sagaflow/service/dao"
)

// Match reports whether value satisfies the parameter called name. A missing
// parameter matches everything; a []string value matches any of its items.
func Match(name, value string, parameters []*dao.Parameter) bool {
	parameter := dao.Lookup(name, parameters)
	if parameter == nil {
		return true
	}
	switch actual := parameter.Value.(type) {
	case string:
		return value == actual
	case []string:
		for _, candidate := range actual {
			if value == candidate {
				return true
			}
		}
		return false
	}
	return true
}

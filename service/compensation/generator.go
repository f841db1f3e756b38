package compensation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// identifierKeys are checked in order when extracting a created entity id
var identifierKeys = []string{"id", "_id", "uuid"}

// Generator derives compensation descriptors
type Generator struct {
	overrides map[string]Func
	mux       sync.RWMutex
}

// NewGenerator creates a generator
func NewGenerator() *Generator {
	return &Generator{overrides: make(map[string]Func)}
}

// Register registers an override used for every operation with the given name
func (g *Generator) Register(name string, fn Func) {
	g.mux.Lock()
	defer g.mux.Unlock()
	if fn == nil {
		delete(g.overrides, name)
		return
	}
	g.overrides[name] = fn
}

// Override returns a registered override
func (g *Generator) Override(name string) (Func, bool) {
	g.mux.RLock()
	defer g.mux.RUnlock()
	fn, ok := g.overrides[name]
	return fn, ok
}

// Derive returns the descriptor for source, or nil when the operation needs
// no compensation. A non-nil override takes precedence over registered
// overrides and over the generic derivation.
func (g *Generator) Derive(source *Source, override Func) *Descriptor {
	if source == nil {
		return nil
	}
	if override == nil {
		override, _ = g.Override(source.Name)
	}
	if override != nil {
		return &Descriptor{
			Strategy: StrategyCustom,
			Target:   source.Target,
			Payload:  source.Request,
			Custom:   override,
		}
	}
	switch source.Type {
	case OperationCreate:
		id := IdentifierOf(source.Response)
		if id == "" {
			// without an identifier the delete would address the whole collection
			return &Descriptor{Strategy: StrategyGenericInverse, Target: source.Target}
		}
		target := SubstituteID(source.Target, id)
		return &Descriptor{
			Strategy: StrategyGenericInverse,
			Target:   target,
			Inverse:  &Action{Method: MethodDelete, Target: target},
		}
	case OperationUpdate:
		return &Descriptor{
			Strategy: StrategyGenericInverse,
			Target:   source.Target,
			Payload:  source.Request,
			Inverse:  &Action{Method: MethodUpdate, Target: source.Target, Payload: source.Request},
		}
	case OperationDelete:
		payload := source.Response
		if isEmpty(payload) {
			payload = source.Request
		}
		target := StripID(source.Target)
		return &Descriptor{
			Strategy: StrategyGenericInverse,
			Target:   target,
			Payload:  payload,
			Inverse:  &Action{Method: MethodCreate, Target: target, Payload: payload},
		}
	}
	return nil
}

// IdentifierOf extracts an entity identifier from a create response,
// checking id, _id and uuid in order. A scalar response is the identifier
// itself; a map or struct without those fields has none.
func IdentifierOf(response interface{}) string {
	if isEmpty(response) {
		return ""
	}
	fields := asMap(response)
	for _, key := range identifierKeys {
		if value, ok := fields[key]; ok && !isEmpty(value) {
			return fmt.Sprint(value)
		}
	}
	switch reflect.Indirect(reflect.ValueOf(response)).Kind() {
	case reflect.Invalid, reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return ""
	}
	return fmt.Sprint(response)
}

// SubstituteID places id into the last placeholder segment ({id} or :id) of
// target, or appends it as a new segment when target has no placeholder.
func SubstituteID(target, id string) string {
	if id == "" {
		return target
	}
	segments := strings.Split(target, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if isPlaceholder(segments[i]) {
			segments[i] = id
			return strings.Join(segments, "/")
		}
	}
	return strings.TrimRight(target, "/") + "/" + id
}

// StripID removes the trailing identifier segment of a resource path. A
// single segment path is treated as a collection and returned unchanged.
func StripID(target string) string {
	trimmed := strings.TrimRight(target, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return trimmed
	}
	return trimmed[:idx]
}

func isPlaceholder(segment string) bool {
	if strings.HasPrefix(segment, ":") && len(segment) > 1 {
		return true
	}
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") && len(segment) > 2
}

func asMap(value interface{}) map[string]interface{} {
	switch actual := value.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		return actual
	case map[string]string:
		ret := make(map[string]interface{}, len(actual))
		for k, v := range actual {
			ret[k] = v
		}
		return ret
	}
	rType := reflect.TypeOf(value)
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	if rType.Kind() != reflect.Struct && rType.Kind() != reflect.Map {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var ret map[string]interface{}
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil
	}
	return ret
}

func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if text, ok := value.(string); ok {
		return text == ""
	}
	return false
}

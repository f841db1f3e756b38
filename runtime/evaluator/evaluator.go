package evaluator

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
)

// ErrInvalidExpression is returned for expressions that cannot be parsed
var ErrInvalidExpression = errors.New("invalid expression")

// Evaluate evaluates expr with variables. Every ${...} wrapper is unwrapped
// before parsing; an unknown variable evaluates to nil.
func Evaluate(expr string, variables map[string]interface{}) (interface{}, error) {
	source := unwrap(expr)
	if source == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	node, err := parser.ParseExpr(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrInvalidExpression, expr, err)
	}
	return eval(node, variables)
}

// Bool evaluates expr and converts the result to its truth value
func Bool(expr string, variables map[string]interface{}) (bool, error) {
	value, err := Evaluate(expr, variables)
	if err != nil {
		return false, err
	}
	return Truthy(value), nil
}

// Truthy reports the truth value of v: false for nil, false, zero numbers,
// empty strings and empty collections.
func Truthy(v interface{}) bool {
	switch actual := v.(type) {
	case nil:
		return false
	case bool:
		return actual
	case string:
		return actual != "" && actual != "false"
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func unwrap(expr string) string {
	expr = strings.TrimSpace(expr)
	var sb strings.Builder
	for {
		start := strings.Index(expr, "${")
		if start == -1 {
			sb.WriteString(expr)
			break
		}
		end := strings.Index(expr[start:], "}")
		if end == -1 {
			sb.WriteString(expr)
			break
		}
		sb.WriteString(expr[:start])
		sb.WriteString("(" + expr[start+2:start+end] + ")")
		expr = expr[start+end+1:]
	}
	return strings.TrimSpace(sb.String())
}

func eval(node ast.Expr, variables map[string]interface{}) (interface{}, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return eval(n.X, variables)
	case *ast.BasicLit:
		return literal(n)
	case *ast.Ident:
		switch n.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			return nil, nil
		}
		return variables[n.Name], nil
	case *ast.SelectorExpr:
		holder, err := eval(n.X, variables)
		if err != nil {
			return nil, err
		}
		return property(holder, n.Sel.Name), nil
	case *ast.IndexExpr:
		holder, err := eval(n.X, variables)
		if err != nil {
			return nil, err
		}
		key, err := eval(n.Index, variables)
		if err != nil {
			return nil, err
		}
		return index(holder, key), nil
	case *ast.CallExpr:
		return call(n, variables)
	case *ast.UnaryExpr:
		value, err := eval(n.X, variables)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.NOT:
			return !Truthy(value), nil
		case token.SUB:
			f, ok := toFloat(value)
			if !ok {
				return nil, fmt.Errorf("%w: cannot negate %v", ErrInvalidExpression, value)
			}
			return -f, nil
		}
		return nil, fmt.Errorf("%w: unsupported operator %s", ErrInvalidExpression, n.Op)
	case *ast.BinaryExpr:
		return binary(n, variables)
	}
	return nil, fmt.Errorf("%w: unsupported syntax %T", ErrInvalidExpression, node)
}

func literal(n *ast.BasicLit) (interface{}, error) {
	switch n.Kind {
	case token.INT, token.FLOAT:
		return strconv.ParseFloat(n.Value, 64)
	case token.STRING, token.CHAR:
		if strings.HasPrefix(n.Value, "'") {
			return strings.Trim(n.Value, "'"), nil
		}
		return strconv.Unquote(n.Value)
	}
	return nil, fmt.Errorf("%w: unsupported literal %s", ErrInvalidExpression, n.Value)
}

func call(n *ast.CallExpr, variables map[string]interface{}) (interface{}, error) {
	ident, ok := n.Fun.(*ast.Ident)
	if !ok || ident.Name != "len" || len(n.Args) != 1 {
		return nil, fmt.Errorf("%w: unsupported call", ErrInvalidExpression)
	}
	value, err := eval(n.Args[0], variables)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return float64(0), nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return float64(rv.Len()), nil
	}
	return float64(0), nil
}

func binary(n *ast.BinaryExpr, variables map[string]interface{}) (interface{}, error) {
	left, err := eval(n.X, variables)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.LAND:
		if !Truthy(left) {
			return false, nil
		}
		right, err := eval(n.Y, variables)
		return Truthy(right), err
	case token.LOR:
		if Truthy(left) {
			return true, nil
		}
		right, err := eval(n.Y, variables)
		return Truthy(right), err
	}
	right, err := eval(n.Y, variables)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.EQL:
		return equal(left, right), nil
	case token.NEQ:
		return !equal(left, right), nil
	case token.LSS, token.GTR, token.LEQ, token.GEQ:
		cmp, err := compare(left, right)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.LSS:
			return cmp < 0, nil
		case token.GTR:
			return cmp > 0, nil
		case token.LEQ:
			return cmp <= 0, nil
		}
		return cmp >= 0, nil
	case token.ADD:
		if ls, ok := left.(string); ok {
			return ls + fmt.Sprint(right), nil
		}
	}
	return arithmetic(n.Op, left, right)
}

func arithmetic(op token.Token, left, right interface{}) (interface{}, error) {
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: non numeric operands for %s", ErrInvalidExpression, op)
	}
	switch op {
	case token.ADD:
		return l + r, nil
	case token.SUB:
		return l - r, nil
	case token.MUL:
		return l * r, nil
	case token.QUO:
		if r == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
		}
		return l / r, nil
	case token.REM:
		if int64(r) == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
		}
		return float64(int64(l) % int64(r)), nil
	}
	return nil, fmt.Errorf("%w: unsupported operator %s", ErrInvalidExpression, op)
}

func equal(left, right interface{}) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	if lok && rok {
		return l == r
	}
	lb, lok := left.(bool)
	rb, rok := right.(bool)
	if lok && rok {
		return lb == rb
	}
	return fmt.Sprint(left) == fmt.Sprint(right)
}

func compare(left, right interface{}) (int, error) {
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	if lok && rok {
		switch {
		case l < r:
			return -1, nil
		case l > r:
			return 1, nil
		}
		return 0, nil
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		return strings.Compare(ls, rs), nil
	}
	return 0, fmt.Errorf("%w: cannot compare %v and %v", ErrInvalidExpression, left, right)
}

func toFloat(v interface{}) (float64, bool) {
	switch actual := v.(type) {
	case float64:
		return actual, true
	case float32:
		return float64(actual), true
	case int:
		return float64(actual), true
	case int8:
		return float64(actual), true
	case int16:
		return float64(actual), true
	case int32:
		return float64(actual), true
	case int64:
		return float64(actual), true
	case uint:
		return float64(actual), true
	case uint8:
		return float64(actual), true
	case uint16:
		return float64(actual), true
	case uint32:
		return float64(actual), true
	case uint64:
		return float64(actual), true
	}
	return 0, false
}

func property(holder interface{}, name string) interface{} {
	if holder == nil {
		return nil
	}
	if m, ok := holder.(map[string]interface{}); ok {
		return m[name]
	}
	rv := reflect.ValueOf(holder)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		value := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil
		}
		return value.Interface()
	case reflect.Struct:
		rType := rv.Type()
		for i := 0; i < rType.NumField(); i++ {
			field := rType.Field(i)
			if !field.IsExported() {
				continue
			}
			tag := strings.Split(field.Tag.Get("json"), ",")[0]
			if field.Name == name || tag == name || strings.EqualFold(field.Name, name) {
				return rv.Field(i).Interface()
			}
		}
	}
	return nil
}

func index(holder interface{}, key interface{}) interface{} {
	if holder == nil {
		return nil
	}
	if text, ok := key.(string); ok {
		return property(holder, text)
	}
	idx, ok := toFloat(key)
	if !ok {
		return nil
	}
	rv := reflect.ValueOf(holder)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i := int(idx)
		if i < 0 || i >= rv.Len() {
			return nil
		}
		return rv.Index(i).Interface()
	case reflect.Map:
		return property(holder, fmt.Sprint(key))
	}
	return nil
}

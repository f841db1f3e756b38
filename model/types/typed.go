package types

import (
	"context"
	"fmt"

	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/structology/conv"
)

var converter = newConverter()

func newConverter() *conv.Converter {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	return conv.NewConverter(options)
}

// Typed adapts a strongly typed function to Executor. Inputs that are not
// already of type I (for example decoded JSON/YAML maps) are converted.
func Typed[I any, O any](fn func(ctx context.Context, input I, wfCtx *execution.Context) (O, error)) Executor {
	return Func(func(ctx context.Context, input interface{}, wfCtx *execution.Context) (interface{}, error) {
		typed, ok := input.(I)
		if !ok && input != nil {
			if err := converter.Convert(input, &typed); err != nil {
				return nil, fmt.Errorf("failed to convert %T to %T: %w", input, typed, err)
			}
		}
		return fn(ctx, typed, wfCtx)
	})
}

package compensation

import (
	"context"
	"fmt"
)

// OperationType is the semantic type of a ledger operation
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
	OperationRead   OperationType = "read"
	OperationCustom OperationType = "custom"
)

// Strategy tags how a descriptor is executed
type Strategy string

const (
	StrategyCustom         Strategy = "custom"
	StrategyGenericInverse Strategy = "generic-inverse"
)

// Method is the resource method used by a generic inverse
type Method string

const (
	MethodCreate Method = "create"
	MethodUpdate Method = "update"
	MethodDelete Method = "delete"
)

// Func is a caller supplied compensation; it receives the original request
// and response of the operation being reversed.
type Func func(ctx context.Context, request, response interface{}) error

type (
	// Action is a derived inverse resource call
	Action struct {
		Method  Method      `json:"method"`
		Target  string      `json:"target"`
		Payload interface{} `json:"payload,omitempty"`
	}

	// Descriptor holds everything needed to reverse one operation
	Descriptor struct {
		Strategy Strategy    `json:"strategy"`
		Target   string      `json:"target,omitempty"`
		Payload  interface{} `json:"payload,omitempty"`
		Inverse  *Action     `json:"inverse,omitempty"`
		Custom   Func        `json:"-"`
	}

	// Source describes an executed operation for descriptor derivation
	Source struct {
		Name     string
		Type     OperationType
		Target   string
		Request  interface{}
		Response interface{}
	}
)

func (a *Action) String() string {
	return fmt.Sprintf("%s %s", a.Method, a.Target)
}

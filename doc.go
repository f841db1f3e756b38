// Package sagaflow is a process orchestration engine with saga style
// recovery.
//
// Flows are ordered lists of sequential, parallel, conditional and loop
// elements resolved against a step registry. Failed steps go through a
// recovery coordinator (retry by name, handler, rollback); when a flow runs
// inside a transaction every ledger operation carries a compensation that is
// replayed in reverse order on failure.
//
// Most applications use the Service façade exposed by the root package:
//
//	srv, _ := sagaflow.New()
//	_ = srv.Register("charge", charge, step.WithOperation(compensation.OperationCreate, "/payments"))
//	definition, _ := srv.LoadFlow(ctx, "order.yaml")
//	result, err := srv.Execute(ctx, definition, input)
//
// See the sub-packages for the individual components.
package sagaflow

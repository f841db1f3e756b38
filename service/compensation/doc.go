// Package compensation derives inverse actions for ledger operations and
// replays them when a transaction rolls back.
//
// A Generator turns an operation (type, target, request, response) into a
// Descriptor. Create, update and delete operations get a generic inverse
// that is executed through a ResourceClient; custom operations, or any
// operation with a registered override, get the override verbatim. The
// Executor replays descriptors in strict reverse order and reports every
// operation it could not compensate instead of stopping at the first failure.
package compensation

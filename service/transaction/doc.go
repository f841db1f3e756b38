// Package transaction implements the saga ledger. A Manager begins
// transactions, records every successful operation together with its
// compensation descriptor and, on rollback, replays compensations in reverse
// order through compensation.Executor.
//
// Transactions live in a dao.Service store (in memory by default). The
// store only guards memory safety; concurrent sagas must use distinct
// transaction ids.
package transaction
